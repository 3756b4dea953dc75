// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package authjwt

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/qolzam/inkwell/internal/pkg/log"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/internal/types"
)

// Verifier checks a decoded caller against current state, e.g. that the
// account still exists and the token predates no password change. A
// returned *fiber.Error selects the response status; other errors map to 401.
type Verifier func(ctx context.Context, user types.UserContext) error

// Config defines the config for the JWT middleware.
type Config struct {
	// The EC public key for validating ES256 tokens.
	PublicKey string
	// The claim key where the UserContext is stored.
	ClaimKey string
	// The context key to store the UserContext.
	UserCtxName string
	// Optional lets requests without a token through anonymously.
	Optional bool
	// Verifier runs after the token is accepted.
	Verifier Verifier
}

// New creates a new middleware handler.
func New(cfg Config) fiber.Handler {
	// Parse the key once on startup.
	ecPublicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(cfg.PublicKey))
	if err != nil {
		panic(fmt.Sprintf("failed to parse EC public key: %v", err))
	}
	if cfg.ClaimKey == "" {
		cfg.ClaimKey = types.ClaimKey
	}
	if cfg.UserCtxName == "" {
		cfg.UserCtxName = types.UserCtxName
	}

	return func(c *fiber.Ctx) error {
		tokenString := extractToken(c)
		if tokenString == "" {
			if cfg.Optional {
				return c.Next()
			}
			return unauthorized(c, "You are not authorized", nil)
		}

		userCtx, err := parse(tokenString, ecPublicKey, cfg.ClaimKey)
		if err != nil {
			return unauthorized(c, "Invalid token", err.Error())
		}

		if cfg.Verifier != nil {
			if err := cfg.Verifier(c.UserContext(), userCtx); err != nil {
				var fe *fiber.Error
				if errors.As(err, &fe) {
					return server.SendError(c, fe.Code, codeFor(fe.Code), fe.Message, nil)
				}
				log.WarnWithContext(c.UserContext(), "token verification failed for %s: %v", userCtx.ID(), err)
				return unauthorized(c, "You are not authorized", nil)
			}
		}

		c.Locals(cfg.UserCtxName, userCtx)
		return c.Next()
	}
}

// extractToken reads the bearer header, falling back to the access_token cookie.
func extractToken(c *fiber.Ctx) string {
	authHeader := c.Get(types.HeaderAuthorization)
	if strings.HasPrefix(authHeader, types.BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, types.BearerPrefix))
	}
	return c.Cookies("access_token")
}

func unauthorized(c *fiber.Ctx, message string, details interface{}) error {
	return server.SendError(c, http.StatusUnauthorized, server.CodeUnauthorized, message, details)
}

func codeFor(status int) string {
	switch status {
	case http.StatusForbidden:
		return server.CodeForbidden
	case http.StatusNotFound:
		return server.CodeNotFound
	default:
		return server.CodeUnauthorized
	}
}

func parse(tokenString string, key *ecdsa.PublicKey, claimKey string) (types.UserContext, error) {
	var userCtx types.UserContext

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// CRITICAL: Enforce the expected signing algorithm.
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return userCtx, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return userCtx, errors.New("invalid token")
	}
	if exp, ok := claims["exp"].(float64); ok && int64(exp) < time.Now().Unix() {
		return userCtx, errors.New("token has expired")
	}

	claimData, ok := claims[claimKey].(map[string]interface{})
	if !ok {
		return userCtx, errors.New("invalid token claim format")
	}
	userCtx, err = mapToUserContext(claimData)
	if err != nil {
		return userCtx, fmt.Errorf("invalid user context in token: %w", err)
	}
	if iat, ok := claims["iat"].(float64); ok {
		userCtx.IssuedAt = int64(iat)
	}
	return userCtx, nil
}

// mapToUserContext converts claim data to UserContext
func mapToUserContext(claimData map[string]interface{}) (types.UserContext, error) {
	var userCtx types.UserContext

	userIDStr, ok := claimData[types.HeaderUID].(string)
	if !ok {
		return userCtx, errors.New("missing or invalid uid in claim")
	}
	userID, err := uuid.FromString(userIDStr)
	if err != nil {
		return userCtx, fmt.Errorf("invalid user ID: %v", err)
	}
	userCtx.UserID = userID

	if email, ok := claimData["email"].(string); ok {
		userCtx.Email = email
	}
	if username, ok := claimData["username"].(string); ok {
		userCtx.Username = username
	}
	if fullName, ok := claimData["fullName"].(string); ok {
		userCtx.FullName = fullName
	}
	if role, ok := claimData["role"].(string); ok {
		userCtx.Role = role
	}
	return userCtx, nil
}

// ValidateToken validates a JWT token and returns the UserContext if valid.
// This is a pure validation function that does NOT write to the response.
func ValidateToken(tokenString string, publicKey string, claimKey string) (types.UserContext, error) {
	ecPublicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKey))
	if err != nil {
		return types.UserContext{}, fmt.Errorf("failed to parse EC public key: %w", err)
	}
	return parse(tokenString, ecPublicKey, claimKey)
}
