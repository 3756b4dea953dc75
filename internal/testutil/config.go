// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package testutil

import (
	"testing"

	platformconfig "github.com/qolzam/inkwell/internal/platform/config"
	"github.com/stretchr/testify/require"
)

// NewTestConfig returns a configuration backed by the in-memory store with
// a fresh key pair. Overrides are applied on top of the defaults, keyed by
// environment variable name.
func NewTestConfig(t *testing.T, overrides map[string]string) *platformconfig.Config {
	t.Helper()

	publicKey, privateKey := GenerateECDSAKeyPairPEM(t)
	env := map[string]string{
		"JWT_PUBLIC_KEY":                    publicKey,
		"JWT_PRIVATE_KEY":                   privateKey,
		"DB_TYPE":                           "memory",
		"CACHE_BACKEND":                     "memory",
		"RATE_LIMIT_LOGIN_ENABLED":          "false",
		"RATE_LIMIT_REGISTER_ENABLED":       "false",
		"RATE_LIMIT_PASSWORD_RESET_ENABLED": "false",
	}
	for k, v := range overrides {
		env[k] = v
	}

	cfg, err := platformconfig.LoadFromMap(env)
	require.NoError(t, err, "test configuration must be valid")
	return cfg
}
