// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	userModels "github.com/qolzam/inkwell/users/models"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	FullName       string `json:"fullName"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Gender         string `json:"gender"`
	DateOfBirth    string `json:"dateOfBirth"`
	ProfilePicture string `json:"profilePicture"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the body of PUT /auth/change-password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ForgetPasswordRequest is the body of POST /auth/forget-password.
type ForgetPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password. The reset
// token travels in the Authorization header; Token is accepted as a fallback.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
	Token       string `json:"token,omitempty"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	AccessToken string           `json:"accessToken"`
	User        *userModels.User `json:"user"`
}
