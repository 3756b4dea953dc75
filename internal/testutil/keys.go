// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/qolzam/inkwell/internal/auth/tokens"
	"github.com/qolzam/inkwell/internal/types"
	"github.com/stretchr/testify/require"
)

// GenerateECDSAKeyPairPEM generates valid ECDSA key pairs for testing.
// Returns (publicKeyPEM, privateKeyPEM) as strings.
func GenerateECDSAKeyPairPEM(t *testing.T) (string, string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err, "Failed to generate ECDSA private key")

	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err, "Failed to marshal ECDSA private key")
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})

	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err, "Failed to marshal ECDSA public key")
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	return string(pubPEM), string(privPEM)
}

// GenerateTestJWT signs a one hour access token for userCtx.
func GenerateTestJWT(t *testing.T, privateKeyPEM string, userCtx types.UserContext) string {
	t.Helper()
	token, err := tokens.CreateAccessToken(privateKeyPEM, userCtx, time.Hour)
	require.NoError(t, err, "failed to generate test JWT")
	return token
}
