// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"time"

	authErrors "github.com/qolzam/inkwell/auth/errors"
	"github.com/qolzam/inkwell/auth/models"
	"github.com/qolzam/inkwell/auth/validation"
	"github.com/qolzam/inkwell/internal/auth/tokens"
	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/pkg/log"
	"github.com/qolzam/inkwell/internal/platform/email"
	userModels "github.com/qolzam/inkwell/users/models"
	"golang.org/x/crypto/bcrypt"
)

const resetSubject = "Reset your password"

var resetTemplate = template.Must(template.New("reset").Parse(`<div style="font-family: Arial, sans-serif; line-height: 1.6;">
  <h2>Reset your password</h2>
  <p>Hello {{.Name}},</p>
  <p>We received a request to reset the password of your account.</p>
  <p><a href="{{.Link}}">Choose a new password</a></p>
  <p>The link expires in {{.Minutes}} minutes. If you did not ask for this, ignore this email.</p>
</div>`))

func (s *authService) ForgetPassword(ctx context.Context, req *models.ForgetPasswordRequest) error {
	if err := validation.ValidateForgetPasswordRequest(req); err != nil {
		return validationError(err)
	}
	if s.config.Mailer == nil {
		return authErrors.ErrResetUnavailable
	}

	user, err := s.findUser(ctx, "email", req.Email)
	if err != nil {
		return err
	}
	switch {
	case user == nil:
		return authErrors.ErrUserNotFound
	case user.IsDeleted:
		return authErrors.ErrUserDeleted
	case user.IsBlocked():
		return authErrors.ErrUserBlocked
	}

	token, err := tokens.CreateResetToken(s.config.PrivateKey, user.ID, user.Email, user.Password, s.config.ResetTTL)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	link := s.config.ResetURL + "?" + url.Values{"email": {user.Email}, "token": {token}}.Encode()

	var html bytes.Buffer
	err = resetTemplate.Execute(&html, map[string]interface{}{
		"Name":    user.FullName,
		"Link":    link,
		"Minutes": int(s.config.ResetTTL / time.Minute),
	})
	if err != nil {
		return err
	}
	err = s.config.Mailer.Send(ctx, email.Message{
		From:    s.config.MailFrom,
		To:      []email.Address{{Name: user.FullName, Email: user.Email}},
		Subject: resetSubject,
		Text:    "Reset your password: " + link,
		HTML:    html.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	log.InfoWithContext(ctx, "password reset link sent to user %s", user.ID)
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, resetToken string, req *models.ResetPasswordRequest) error {
	if err := validation.ValidateResetPasswordRequest(req); err != nil {
		return validationError(err)
	}
	if resetToken == "" {
		resetToken = req.Token
	}
	if resetToken == "" {
		return authErrors.ErrInvalidResetToken
	}

	claims, err := tokens.ParseResetToken(s.config.PublicKey, resetToken)
	if err != nil {
		log.WarnWithContext(ctx, "rejected reset token: %v", err)
		return authErrors.ErrInvalidResetToken
	}
	if claims.Email != req.Email {
		return authErrors.ErrInvalidResetToken
	}

	user, err := s.findUser(ctx, interfaces.FieldID, claims.Subject)
	if err != nil {
		return err
	}
	switch {
	case user == nil, user.IsDeleted:
		return authErrors.ErrUserNotFound
	case user.IsBlocked():
		return authErrors.ErrUserBlocked
	case tokens.PasswordFingerprint(user.Password) != claims.Fingerprint:
		return authErrors.ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	now := time.Now().UTC()
	// Matching on the old hash spends the token even under concurrent resets.
	n, err := s.store.UpdateFields(ctx, userModels.CollectionName, interfaces.NewQuery(
		interfaces.Eq(interfaces.FieldID, user.ID),
		interfaces.Eq("password", user.Password),
	), map[string]interface{}{
		"password":                string(hash),
		"passwordChangeAt":        now,
		interfaces.FieldUpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n == 0 {
		return authErrors.ErrInvalidResetToken
	}
	log.InfoWithContext(ctx, "password reset for user %s", user.ID)
	return nil
}
