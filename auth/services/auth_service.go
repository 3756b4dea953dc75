// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	authErrors "github.com/qolzam/inkwell/auth/errors"
	"github.com/qolzam/inkwell/auth/models"
	"github.com/qolzam/inkwell/auth/validation"
	"github.com/qolzam/inkwell/internal/auth/tokens"
	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/utils"
	"github.com/qolzam/inkwell/internal/pkg/log"
	"github.com/qolzam/inkwell/internal/platform/email"
	"github.com/qolzam/inkwell/internal/types"
	userModels "github.com/qolzam/inkwell/users/models"
	"golang.org/x/crypto/bcrypt"
)

// AuthService defines the interface for credential operations
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error)
	Me(ctx context.Context, userID string) (*userModels.User, error)
	ChangePassword(ctx context.Context, userID string, req *models.ChangePasswordRequest) error
	// ForgetPassword mails a short-lived reset link to the account's owner.
	ForgetPassword(ctx context.Context, req *models.ForgetPasswordRequest) error
	// ResetPassword sets a new password using a token from ForgetPassword.
	// A token is spent once the password it was issued against changes.
	ResetPassword(ctx context.Context, resetToken string, req *models.ResetPasswordRequest) error
}

// Config holds the signing material for access and reset tokens.
type Config struct {
	PrivateKey string
	PublicKey  string
	AccessTTL  time.Duration
	ResetTTL   time.Duration
	// ResetURL is the client page that receives email and token query params.
	ResetURL string
	// Mailer is required for ForgetPassword.
	Mailer   email.Sender
	MailFrom email.Address
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

type authService struct {
	store  interfaces.Repository
	config Config
}

// NewAuthService creates an auth service over the users collection.
func NewAuthService(store interfaces.Repository, config Config) AuthService {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.AccessTTL <= 0 {
		config.AccessTTL = 24 * time.Hour
	}
	if config.ResetTTL <= 0 {
		config.ResetTTL = 10 * time.Minute
	}
	return &authService{store: store, config: config}
}

func validationError(err error) error {
	return fmt.Errorf("%w: %s", authErrors.ErrValidationFailed, err.Error())
}

func (s *authService) findUser(ctx context.Context, field, value string) (*userModels.User, error) {
	var user userModels.User
	err := s.store.FindOne(ctx, userModels.CollectionName, interfaces.NewQuery(interfaces.Eq(field, value)), &user)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by %s: %w", field, err)
	}
	return &user, nil
}

func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error) {
	if err := validation.ValidateRegisterRequest(req); err != nil {
		return nil, validationError(err)
	}

	existing, err := s.findUser(ctx, "email", req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IsDeleted {
			return nil, authErrors.ErrEmailOfDeleted
		}
		return nil, authErrors.ErrEmailTaken
	}
	existing, err = s.findUser(ctx, "username", req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IsDeleted {
			return nil, authErrors.ErrUsernameOfDeleted
		}
		return nil, authErrors.ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &userModels.User{
		FullName:       req.FullName,
		Username:       req.Username,
		Email:          req.Email,
		Password:       string(hash),
		Gender:         req.Gender,
		DateOfBirth:    req.DateOfBirth,
		ProfilePicture: req.ProfilePicture,
		SocialLinks:    []userModels.SocialLink{},
		Role:           types.UserRole,
		Status:         userModels.StatusActive,
	}
	user.Touch(utils.NewID(), time.Now().UTC())

	if err := s.store.Save(ctx, userModels.CollectionName, user); err != nil {
		if errors.Is(err, interfaces.ErrDuplicateKey) {
			return nil, authErrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	log.InfoWithContext(ctx, "registered user %s (%s)", user.ID, user.Username)

	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error) {
	if err := validation.ValidateLoginRequest(req); err != nil {
		return nil, validationError(err)
	}

	user, err := s.findUser(ctx, "email", req.Email)
	if err != nil {
		return nil, err
	}
	switch {
	case user == nil:
		return nil, authErrors.ErrUserNotFound
	case user.IsDeleted:
		return nil, authErrors.ErrUserDeleted
	case user.IsBlocked():
		return nil, authErrors.ErrUserBlocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, authErrors.ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *authService) Me(ctx context.Context, userID string) (*userModels.User, error) {
	user, err := s.findUser(ctx, interfaces.FieldID, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsDeleted {
		return nil, authErrors.ErrUserNotFound
	}
	return user.Public(), nil
}

func (s *authService) ChangePassword(ctx context.Context, userID string, req *models.ChangePasswordRequest) error {
	if err := validation.ValidateChangePasswordRequest(req); err != nil {
		return validationError(err)
	}

	user, err := s.findUser(ctx, interfaces.FieldID, userID)
	if err != nil {
		return err
	}
	if user == nil || user.IsDeleted {
		return authErrors.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return authErrors.ErrIncorrectPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	now := time.Now().UTC()
	_, err = s.store.UpdateFields(ctx, userModels.CollectionName, interfaces.NewQuery(interfaces.Eq(interfaces.FieldID, userID)), map[string]interface{}{
		"password":                string(hash),
		"passwordChangeAt":        now,
		interfaces.FieldUpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// UserContext builds the token claims of user.
func UserContext(user *userModels.User) types.UserContext {
	return types.UserContext{
		UserID:   uuid.FromStringOrNil(user.ID),
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
		Role:     user.Role,
	}
}

func (s *authService) issue(user *userModels.User) (*models.AuthResult, error) {
	token, err := tokens.CreateAccessToken(s.config.PrivateKey, UserContext(user), s.config.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	return &models.AuthResult{AccessToken: token, User: user.Public()}, nil
}
