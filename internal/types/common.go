// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package types

import (
	uuid "github.com/gofrs/uuid"
)

// HTTP Header Constants
const (
	HeaderUID           = "uid"
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
)

// Authentication Constants
const (
	BearerPrefix = "Bearer "
	// ClaimKey is the JWT claim holding the user context.
	ClaimKey = "claim"
	// UserCtxName is the fiber.Locals key of the authenticated UserContext.
	UserCtxName = "user"
)

// Roles
const (
	UserRole  = "user"
	AdminRole = "admin"
)

// UserContext is the authenticated caller decoded from the access token.
type UserContext struct {
	UserID   uuid.UUID `json:"uid"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	FullName string    `json:"fullName"`
	Role     string    `json:"role"`
	// IssuedAt is the token issue time in unix seconds.
	IssuedAt int64 `json:"iat"`
}

// IsAdmin reports whether the caller has the admin role.
func (u UserContext) IsAdmin() bool {
	return u.Role == AdminRole
}

// ID returns the caller id in its stored string form.
func (u UserContext) ID() string {
	return u.UserID.String()
}
