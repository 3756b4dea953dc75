// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package tokens

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/qolzam/inkwell/internal/types"
)

// KeyID is written to the kid header of every issued token.
const KeyID = "inkwell-auth-key-1"

// Issuer is the iss claim of every issued token.
const Issuer = "inkwell"

// AccessClaims is the envelope containing the user Claim.
type AccessClaims struct {
	Claim map[string]interface{} `json:"claim"`
	jwt.RegisteredClaims
}

// ClaimFromUser builds the claim map the JWT middleware decodes.
func ClaimFromUser(user types.UserContext) map[string]interface{} {
	return map[string]interface{}{
		types.HeaderUID: user.UserID.String(),
		"email":         user.Email,
		"username":      user.Username,
		"fullName":      user.FullName,
		"role":          user.Role,
	}
}

// CreateAccessToken creates an ES256 signed access token for user valid for ttl.
func CreateAccessToken(privateKeyPEM string, user types.UserContext, ttl time.Duration) (string, error) {
	if user.UserID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	privateKey, err := jwt.ParseECPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.Must(uuid.NewV4()).String(),
			Issuer:    Issuer,
			Subject:   user.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Claim: ClaimFromUser(user),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = KeyID

	return token.SignedString(privateKey)
}

// ResetAudience marks tokens that may only be used to reset a password.
const ResetAudience = "password-reset"

var ErrInvalidResetToken = errors.New("invalid reset token")

// ResetClaims ties a reset token to the password hash it was issued
// against, so the token stops working once the password changes.
type ResetClaims struct {
	Email       string `json:"email"`
	Fingerprint string `json:"pwf"`
	jwt.RegisteredClaims
}

// PasswordFingerprint is a short digest of a stored password hash.
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

// CreateResetToken signs a short-lived password reset token for userID.
func CreateResetToken(privateKeyPEM, userID, email, passwordHash string, ttl time.Duration) (string, error) {
	if userID == "" || email == "" {
		return "", errors.New("user id and email are required")
	}
	privateKey, err := jwt.ParseECPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := ResetClaims{
		Email:       email,
		Fingerprint: PasswordFingerprint(passwordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.Must(uuid.NewV4()).String(),
			Issuer:    Issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{ResetAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = KeyID

	return token.SignedString(privateKey)
}

// ParseResetToken verifies signature, audience and expiry of a reset token.
func ParseResetToken(publicKeyPEM, tokenString string) (*ResetClaims, error) {
	publicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, err
	}

	claims := &ResetClaims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithAudience(ResetAudience),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResetToken, err)
	}
	if claims.Subject == "" || claims.Fingerprint == "" {
		return nil, ErrInvalidResetToken
	}
	return claims, nil
}
