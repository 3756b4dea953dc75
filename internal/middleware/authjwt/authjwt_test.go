// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package authjwt

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/qolzam/inkwell/internal/auth/tokens"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/internal/testutil"
	"github.com/qolzam/inkwell/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() types.UserContext {
	return types.UserContext{
		UserID:   uuid.Must(uuid.NewV4()),
		Email:    "grace@example.com",
		Username: "grace",
		FullName: "Grace Hopper",
		Role:     types.UserRole,
	}
}

func newApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Get("/", New(cfg), func(c *fiber.Ctx) error {
		user, ok := server.CurrentUser(c)
		if !ok {
			return server.SendResponse(c, http.StatusOK, "anonymous", nil)
		}
		return server.SendResponse(c, http.StatusOK, "authenticated", user)
	})
	return app
}

func TestAuthJWT(t *testing.T) {
	t.Parallel()
	publicKey, privateKey := testutil.GenerateECDSAKeyPairPEM(t)
	user := testUser()
	token := testutil.GenerateTestJWT(t, privateKey, user)

	t.Run("valid bearer token", func(t *testing.T) {
		h := testutil.NewHTTPHelper(t, newApp(Config{PublicKey: publicKey}))
		resp := h.NewRequest(http.MethodGet, "/", nil).WithJWTAuth(token).Send()
		var got types.UserContext
		env := testutil.Decode(t, resp, &got)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "authenticated", env.Message)
		assert.Equal(t, user.UserID, got.UserID)
		assert.Equal(t, "Grace Hopper", got.FullName)
	})

	t.Run("cookie token", func(t *testing.T) {
		h := testutil.NewHTTPHelper(t, newApp(Config{PublicKey: publicKey}))
		resp := h.NewRequest(http.MethodGet, "/", nil).WithHeader("Cookie", "access_token="+token).Send()
		env := testutil.Decode(t, resp, nil)
		assert.Equal(t, "authenticated", env.Message)
	})

	t.Run("missing token", func(t *testing.T) {
		h := testutil.NewHTTPHelper(t, newApp(Config{PublicKey: publicKey}))
		resp := h.NewRequest(http.MethodGet, "/", nil).Send()
		env := testutil.Decode(t, resp, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, server.CodeUnauthorized, env.Code)
	})

	t.Run("optional without token", func(t *testing.T) {
		h := testutil.NewHTTPHelper(t, newApp(Config{PublicKey: publicKey, Optional: true}))
		resp := h.NewRequest(http.MethodGet, "/", nil).Send()
		env := testutil.Decode(t, resp, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "anonymous", env.Message)
	})

	t.Run("optional with bad token", func(t *testing.T) {
		h := testutil.NewHTTPHelper(t, newApp(Config{PublicKey: publicKey, Optional: true}))
		resp := h.NewRequest(http.MethodGet, "/", nil).WithJWTAuth("not-a-jwt").Send()
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token signed by another key", func(t *testing.T) {
		_, otherPrivate := testutil.GenerateECDSAKeyPairPEM(t)
		h := testutil.NewHTTPHelper(t, newApp(Config{PublicKey: publicKey}))
		resp := h.NewRequest(http.MethodGet, "/", nil).WithJWTAuth(testutil.GenerateTestJWT(t, otherPrivate, user)).Send()
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := tokens.CreateAccessToken(privateKey, user, -time.Minute)
		require.NoError(t, err)
		h := testutil.NewHTTPHelper(t, newApp(Config{PublicKey: publicKey}))
		resp := h.NewRequest(http.MethodGet, "/", nil).WithJWTAuth(expired).Send()
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("verifier rejection with status", func(t *testing.T) {
		verifier := func(ctx context.Context, u types.UserContext) error {
			return fiber.NewError(http.StatusForbidden, "This user is blocked!")
		}
		h := testutil.NewHTTPHelper(t, newApp(Config{PublicKey: publicKey, Verifier: verifier}))
		resp := h.NewRequest(http.MethodGet, "/", nil).WithJWTAuth(token).Send()
		env := testutil.Decode(t, resp, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, server.CodeForbidden, env.Code)
		assert.Equal(t, "This user is blocked!", env.Message)
	})

	t.Run("verifier plain error", func(t *testing.T) {
		verifier := func(ctx context.Context, u types.UserContext) error {
			assert.NotZero(t, u.IssuedAt)
			return errors.New("lookup failed")
		}
		h := testutil.NewHTTPHelper(t, newApp(Config{PublicKey: publicKey, Verifier: verifier}))
		resp := h.NewRequest(http.MethodGet, "/", nil).WithJWTAuth(token).Send()
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestValidateToken(t *testing.T) {
	t.Parallel()
	publicKey, privateKey := testutil.GenerateECDSAKeyPairPEM(t)
	user := testUser()

	got, err := ValidateToken(testutil.GenerateTestJWT(t, privateKey, user), publicKey, types.ClaimKey)
	require.NoError(t, err)
	assert.Equal(t, user.UserID, got.UserID)
	assert.Equal(t, user.Email, got.Email)

	_, err = ValidateToken("garbage", publicKey, types.ClaimKey)
	assert.Error(t, err)

	_, err = ValidateToken(testutil.GenerateTestJWT(t, privateKey, user), publicKey, "other")
	assert.ErrorContains(t, err, "invalid token claim format")
}

func TestMapToUserContext_RejectsBadUID(t *testing.T) {
	t.Parallel()
	_, err := mapToUserContext(map[string]interface{}{"uid": "nope"})
	assert.Error(t, err)
	_, err = mapToUserContext(map[string]interface{}{})
	assert.Error(t, err)
}
