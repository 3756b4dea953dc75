// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	gopass "github.com/nbutton23/zxcvbn-go"
	"github.com/qolzam/inkwell/auth/models"
	"github.com/qolzam/inkwell/internal/pkg/log"
	userModels "github.com/qolzam/inkwell/users/models"
)

// MinPasswordScore is the lowest accepted zxcvbn score (0-4).
const MinPasswordScore = 2

// MinPasswordLength applies to new passwords on change.
const MinPasswordLength = 6

var (
	// Common disposable email domains to block
	disposableEmailDomains = map[string]bool{
		"10minutemail.com":  true,
		"guerrillamail.com": true,
		"mailinator.com":    true,
		"tempmail.org":      true,
		"temp-mail.org":     true,
		"throwaway.email":   true,
		"dispostable.com":   true,
		"yopmail.com":       true,
		"maildrop.cc":       true,
		"sharklasers.com":   true,
		"trashmail.com":     true,
	}

	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

	usernameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{1,28}[a-z0-9]$`)

	suspiciousPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(script|javascript|vbscript|onload|onerror|onclick)`),
		regexp.MustCompile(`(?i)(<|>|&lt;|&gt;|%3c|%3e)`),
		regexp.MustCompile(`(--|\||;|\/\*|\*\/)`),
	}

	reservedUsernames = map[string]bool{
		"admin": true, "root": true, "system": true, "api": true, "me": true,
		"www": true, "null": true, "undefined": true, "my-posts": true,
	}
)

// ValidateEmail returns the normalized email or a descriptive error.
func ValidateEmail(email string) (string, error) {
	sanitized := strings.TrimSpace(strings.ToLower(email))
	switch {
	case sanitized == "":
		return "", fmt.Errorf("email is required")
	case len(sanitized) > 254:
		return "", fmt.Errorf("email must be less than 254 characters")
	case containsSuspiciousPatterns(sanitized):
		log.Warn("[Security] Suspicious email pattern detected: %s", sanitized)
		return "", fmt.Errorf("email contains invalid characters or patterns")
	case strings.Contains(sanitized, ".."):
		return "", fmt.Errorf("email cannot contain consecutive dots")
	}
	if _, err := mail.ParseAddress(sanitized); err != nil || !emailRegex.MatchString(sanitized) {
		return "", fmt.Errorf("email must be a valid email address")
	}

	domain := sanitized[strings.LastIndex(sanitized, "@")+1:]
	if !strings.Contains(domain, ".") {
		return "", fmt.Errorf("email must have a valid domain with TLD")
	}
	if disposableEmailDomains[domain] {
		log.Warn("[Security] Disposable email attempt: %s", sanitized)
		return "", fmt.Errorf("disposable email addresses are not allowed")
	}
	return sanitized, nil
}

// ValidateFullName trims and collapses whitespace in a display name.
func ValidateFullName(fullName string) (string, error) {
	sanitized := strings.Join(strings.Fields(fullName), " ")
	switch {
	case sanitized == "":
		return "", fmt.Errorf("fullName is required")
	case len(sanitized) < 2:
		return "", fmt.Errorf("fullName must be at least 2 characters")
	case len(sanitized) > 100:
		return "", fmt.Errorf("fullName must be less than 100 characters")
	}
	for _, char := range sanitized {
		if !unicode.IsLetter(char) && !unicode.IsSpace(char) &&
			char != '.' && char != '-' && char != '\'' && char != ',' {
			return "", fmt.Errorf("fullName contains invalid characters")
		}
	}
	return sanitized, nil
}

// ValidateUsername lowercases a username and checks its format.
func ValidateUsername(username string) (string, error) {
	sanitized := strings.TrimSpace(strings.ToLower(username))
	switch {
	case sanitized == "":
		return "", fmt.Errorf("username is required")
	case len(sanitized) < 3:
		return "", fmt.Errorf("username must be at least 3 characters")
	case len(sanitized) > 30:
		return "", fmt.Errorf("username must be at most 30 characters")
	case !usernameRegex.MatchString(sanitized):
		return "", fmt.Errorf("username must contain only letters, numbers, dots, underscores and hyphens")
	case reservedUsernames[sanitized]:
		return "", fmt.Errorf("username cannot be a reserved word")
	}
	return sanitized, nil
}

// ValidatePasswordStrength rejects passwords zxcvbn scores below MinPasswordScore.
func ValidatePasswordStrength(password string, userInputs ...string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	passStrength := gopass.PasswordStrength(password, userInputs)
	if passStrength.Score < MinPasswordScore {
		return fmt.Errorf("password is too weak, try a longer mix of words, numbers and symbols")
	}
	return nil
}

// ValidateRegisterRequest normalizes req in place.
func ValidateRegisterRequest(req *models.RegisterRequest) error {
	if req == nil {
		return fmt.Errorf("request is required")
	}
	var err error
	if req.FullName, err = ValidateFullName(req.FullName); err != nil {
		return err
	}
	if req.Username, err = ValidateUsername(req.Username); err != nil {
		return err
	}
	if req.Email, err = ValidateEmail(req.Email); err != nil {
		return err
	}
	if req.Gender != "" {
		if req.Gender, err = canonicalGender(req.Gender); err != nil {
			return err
		}
	}
	return ValidatePasswordStrength(req.Password, req.Username, req.Email, req.FullName)
}

func canonicalGender(gender string) (string, error) {
	for _, g := range userModels.Genders {
		if strings.EqualFold(g, strings.TrimSpace(gender)) {
			return g, nil
		}
	}
	return "", fmt.Errorf("gender must be one of %s", strings.Join(userModels.Genders, ", "))
}

// ValidateLoginRequest validates the login request
func ValidateLoginRequest(req *models.LoginRequest) error {
	if req == nil {
		return fmt.Errorf("request is required")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		return fmt.Errorf("email is required")
	}
	if containsSuspiciousPatterns(req.Email) {
		log.Warn("[Security] Suspicious login identifier detected: %s", req.Email)
		return fmt.Errorf("email contains invalid characters or patterns")
	}
	if req.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// ValidateChangePasswordRequest validates the change password request
func ValidateChangePasswordRequest(req *models.ChangePasswordRequest) error {
	if req == nil {
		return fmt.Errorf("request is required")
	}
	if req.OldPassword == "" {
		return fmt.Errorf("oldPassword is required")
	}
	if len(req.NewPassword) < MinPasswordLength {
		return fmt.Errorf("newPassword must be at least %d characters", MinPasswordLength)
	}
	if req.NewPassword == req.OldPassword {
		return fmt.Errorf("newPassword must differ from oldPassword")
	}
	return nil
}

// ValidateForgetPasswordRequest normalizes the email in place.
func ValidateForgetPasswordRequest(req *models.ForgetPasswordRequest) error {
	if req == nil {
		return fmt.Errorf("request is required")
	}
	var err error
	req.Email, err = ValidateEmail(req.Email)
	return err
}

// ValidateResetPasswordRequest normalizes the email and checks the new password.
func ValidateResetPasswordRequest(req *models.ResetPasswordRequest) error {
	if req == nil {
		return fmt.Errorf("request is required")
	}
	var err error
	if req.Email, err = ValidateEmail(req.Email); err != nil {
		return err
	}
	if len(req.NewPassword) < MinPasswordLength {
		return fmt.Errorf("newPassword must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// containsSuspiciousPatterns checks for markup and comment injection patterns
func containsSuspiciousPatterns(input string) bool {
	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}
