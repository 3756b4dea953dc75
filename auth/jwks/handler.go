// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package jwks

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/pkg/log"
	"github.com/qolzam/inkwell/internal/server"
)

// coordinateSize is the byte length of a P-256 coordinate.
const coordinateSize = 32

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// Handler serves the public verification key of issued access tokens.
type Handler struct {
	set *JWKS
	err error
}

// NewHandler parses publicKey once. A bad key is reported on every request.
func NewHandler(publicKey, keyID string) *Handler {
	jwk, err := FromPEM(publicKey, keyID)
	if err != nil {
		log.Error("jwks: %v", err)
		return &Handler{err: err}
	}
	return &Handler{set: &JWKS{Keys: []JWK{*jwk}}}
}

// FromPEM converts an ES256 public key in PEM form to a JWK.
func FromPEM(publicKey, keyID string) (*JWK, error) {
	block, _ := pem.Decode([]byte(publicKey))
	if block == nil {
		return nil, fmt.Errorf("failed to parse public key")
	}
	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	ecdsaKey, ok := pubKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}

	x := make([]byte, coordinateSize)
	y := make([]byte, coordinateSize)
	ecdsaKey.X.FillBytes(x)
	ecdsaKey.Y.FillBytes(y)

	return &JWK{
		Kty: "EC",
		Use: "sig",
		Kid: keyID,
		Alg: "ES256",
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(x),
		Y:   base64.RawURLEncoding.EncodeToString(y),
	}, nil
}

// Handle returns the JWKS for JWT validation
func (h *Handler) Handle(c *fiber.Ctx) error {
	if h.err != nil {
		return server.SendError(c, http.StatusInternalServerError, server.CodeInternalError, "Signing key unavailable", nil)
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.JSON(h.set)
}
