// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/auth"
	"github.com/qolzam/inkwell/auth/handlers"
	"github.com/qolzam/inkwell/auth/jwks"
	"github.com/qolzam/inkwell/auth/services"
	"github.com/qolzam/inkwell/internal/auth/tokens"
	"github.com/qolzam/inkwell/internal/database/memory"
	"github.com/qolzam/inkwell/internal/middleware/guards"
	"github.com/qolzam/inkwell/internal/platform/email"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/internal/testutil"
	userModels "github.com/qolzam/inkwell/users/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const strongPassword = "violet-Harbor-lantern-42"

type authPayload struct {
	AccessToken string `json:"accessToken"`
	User        struct {
		ID       string `json:"_id"`
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"user"`
}

func setup(t *testing.T, overrides map[string]string) *testutil.HTTPHelper {
	t.Helper()
	return setupWithMailer(t, overrides, nil)
}

func setupWithMailer(t *testing.T, overrides map[string]string, mailer email.Sender) *testutil.HTTPHelper {
	t.Helper()
	cfg := testutil.NewTestConfig(t, overrides)

	repo := memory.NewMemoryRepository()
	require.NoError(t, repo.EnsureCollection(context.Background(), userModels.CollectionName, userModels.Indexes...))
	svc := services.NewAuthService(repo, services.Config{
		PrivateKey: cfg.JWT.PrivateKey,
		PublicKey:  cfg.JWT.PublicKey,
		AccessTTL:  cfg.JWT.AccessTTL,
		ResetTTL:   cfg.JWT.ResetTTL,
		ResetURL:   cfg.App.ClientURL + "/reset-password",
		Mailer:     mailer,
		MailFrom:   email.Address{Email: cfg.Email.From},
		BcryptCost: bcrypt.MinCost,
	})

	app := fiber.New(fiber.Config{ErrorHandler: server.ErrorHandler})
	auth.RegisterRoutes(app, &auth.AuthHandlers{
		AuthHandler: handlers.NewAuthHandler(svc),
		JWKSHandler: jwks.NewHandler(cfg.JWT.PublicKey, tokens.KeyID),
	}, guards.New(cfg.JWT.PublicKey, nil), cfg)
	return testutil.NewHTTPHelper(t, app)
}

func register(t *testing.T, h *testutil.HTTPHelper, username, email string) authPayload {
	t.Helper()
	resp := h.NewRequest(http.MethodPost, "/auth/register", map[string]string{
		"fullName": "Jane Doe", "username": username, "email": email, "password": strongPassword,
	}).Send()
	var payload authPayload
	env := testutil.Decode(t, resp, &payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
	return payload
}

func TestAuthRoutes_RegisterLoginMe(t *testing.T) {
	h := setup(t, nil)

	registered := register(t, h, "janedoe", "jane@example.com")
	assert.NotEmpty(t, registered.AccessToken)
	assert.Empty(t, registered.User.Password)

	resp := h.NewRequest(http.MethodPost, "/auth/register", map[string]string{
		"fullName": "Jane Doe", "username": "janedoe", "email": "other@example.com", "password": strongPassword,
	}).Send()
	env := testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Username already exists", env.Message)

	resp = h.NewRequest(http.MethodPost, "/auth/login", map[string]string{"email": "jane@example.com", "password": strongPassword}).Send()
	var loggedIn authPayload
	env = testutil.Decode(t, resp, &loggedIn)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User Logged in successfully", env.Message)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	resp = h.NewRequest(http.MethodPost, "/auth/login", map[string]string{"email": "jane@example.com", "password": "bad-password"}).Send()
	env = testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Incorrect credentials", env.Message)

	resp = h.NewRequest(http.MethodPost, "/auth/login", map[string]string{"email": "ghost@example.com", "password": strongPassword}).Send()
	env = testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "User not found", env.Message)

	resp = h.NewRequest(http.MethodGet, "/auth/me", nil).WithJWTAuth(loggedIn.AccessToken).Send()
	var me struct {
		Username string `json:"username"`
	}
	env = testutil.Decode(t, resp, &me)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User fetched successfully", env.Message)
	assert.Equal(t, "janedoe", me.Username)

	resp = h.NewRequest(http.MethodGet, "/auth/me", nil).Send()
	testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRoutes_ChangePassword(t *testing.T) {
	h := setup(t, nil)
	registered := register(t, h, "janedoe", "jane@example.com")

	resp := h.NewRequest(http.MethodPut, "/auth/change-password", map[string]string{
		"oldPassword": strongPassword, "newPassword": "abc",
	}).WithJWTAuth(registered.AccessToken).Send()
	testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.NewRequest(http.MethodPut, "/auth/change-password", map[string]string{
		"oldPassword": strongPassword, "newPassword": "brand-new-secret",
	}).WithJWTAuth(registered.AccessToken).Send()
	env := testutil.Decode(t, resp, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Password changed successfully", env.Message)

	resp = h.NewRequest(http.MethodPost, "/auth/login", map[string]string{"email": "jane@example.com", "password": "brand-new-secret"}).Send()
	testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRoutes_Validation(t *testing.T) {
	h := setup(t, nil)

	resp := h.NewRequest(http.MethodPost, "/auth/register", map[string]string{
		"fullName": "Jane Doe", "username": "janedoe", "email": "jane@example.com", "password": "password",
	}).Send()
	env := testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Message, "too weak")
}

func TestAuthRoutes_LoginRateLimited(t *testing.T) {
	h := setup(t, map[string]string{
		"RATE_LIMIT_LOGIN_ENABLED":  "true",
		"RATE_LIMIT_LOGIN_MAX":      "2",
		"RATE_LIMIT_LOGIN_DURATION": "1m",
	})

	body := map[string]string{"email": "ghost@example.com", "password": "whatever"}
	for i := 0; i < 2; i++ {
		resp := h.NewRequest(http.MethodPost, "/auth/login", body).Send()
		testutil.Decode(t, resp, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
	resp := h.NewRequest(http.MethodPost, "/auth/login", body).Send()
	testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestAuthRoutes_JWKS(t *testing.T) {
	h := setup(t, nil)
	resp := h.NewRequest(http.MethodGet, "/auth/.well-known/jwks.json", nil).Send()
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type lastMessage struct {
	msg email.Message
}

func (l *lastMessage) Send(_ context.Context, msg email.Message) error {
	l.msg = msg
	return nil
}

func TestAuthRoutes_ForgetAndResetPassword(t *testing.T) {
	resp := setup(t, nil).NewRequest(http.MethodPost, "/auth/forget-password", map[string]string{"email": "jane@example.com"}).Send()
	env := testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "Password reset is not available", env.Message)

	mail := &lastMessage{}
	h := setupWithMailer(t, nil, mail)
	register(t, h, "janedoe", "jane@example.com")

	resp = h.NewRequest(http.MethodPost, "/auth/forget-password", map[string]string{"email": "jane@example.com"}).Send()
	env = testutil.Decode(t, resp, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	assert.Equal(t, "Password reset link sent successfully", env.Message)

	link, err := url.Parse(mail.msg.Text[strings.Index(mail.msg.Text, "http"):])
	require.NoError(t, err)
	assert.Equal(t, "localhost:3000", link.Host)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	body := map[string]string{"email": "jane@example.com", "newPassword": "fresh-secret-9"}
	resp = h.NewRequest(http.MethodPost, "/auth/reset-password", body).Send()
	env = testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Access Forbidden", env.Message)

	resp = h.NewRequest(http.MethodPost, "/auth/reset-password", body).WithJWTAuth(token).Send()
	env = testutil.Decode(t, resp, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	assert.Equal(t, "Password reset successfully", env.Message)

	resp = h.NewRequest(http.MethodPost, "/auth/reset-password", body).WithJWTAuth(token).Send()
	testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.NewRequest(http.MethodPost, "/auth/login", map[string]string{"email": "jane@example.com", "password": "fresh-secret-9"}).Send()
	testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A reset token does not authenticate regular routes.
	resp = h.NewRequest(http.MethodGet, "/auth/me", nil).WithJWTAuth(token).Send()
	testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
