// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/qolzam/inkwell/internal/database/memory"
	"github.com/qolzam/inkwell/internal/database/utils"
	"github.com/qolzam/inkwell/internal/middleware/guards"
	"github.com/qolzam/inkwell/internal/querybuilder"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/internal/testutil"
	"github.com/qolzam/inkwell/internal/types"
	"github.com/qolzam/inkwell/subscriptions"
	"github.com/qolzam/inkwell/subscriptions/handlers"
	"github.com/qolzam/inkwell/subscriptions/models"
	"github.com/qolzam/inkwell/subscriptions/services"
	userModels "github.com/qolzam/inkwell/users/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionRoutes(t *testing.T) {
	cfg := testutil.NewTestConfig(t, nil)
	ctx := context.Background()
	store := memory.NewMemoryRepository()

	token := func(username, role string) string {
		u := &userModels.User{Username: username, Email: username + "@example.com", Role: role, Status: userModels.StatusActive}
		u.Touch(utils.NewID(), time.Now().UTC())
		require.NoError(t, store.Save(ctx, userModels.CollectionName, u))
		return testutil.GenerateTestJWT(t, cfg.JWT.PrivateKey, types.UserContext{UserID: uuid.FromStringOrNil(u.ID), Username: username, Role: role})
	}
	alice, admin := token("alice", types.UserRole), token("root", types.AdminRole)

	svc := services.NewSubscriptionService(store, services.Plans{
		MonthlyPrice:    cfg.App.MonthlyPrice,
		AnnualPrice:     cfg.App.AnnualPrice,
		DefaultCurrency: cfg.App.DefaultCurrency,
		Monthly:         cfg.App.MonthlySubscription,
		Annual:          cfg.App.AnnualSubscription,
	}, querybuilder.Settings{DefaultLimit: 10, MaxLimit: 100})
	app := fiber.New(fiber.Config{ErrorHandler: server.ErrorHandler})
	subscriptions.RegisterRoutes(app, &subscriptions.SubscriptionsHandlers{
		SubscriptionHandler: handlers.NewSubscriptionHandler(svc),
	}, guards.New(cfg.JWT.PublicKey, nil))
	h := testutil.NewHTTPHelper(t, app)

	resp := h.NewRequest(http.MethodPost, "/subscriptions", map[string]string{"type": "Lifetime"}).WithJWTAuth(alice).Send()
	testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.NewRequest(http.MethodPost, "/subscriptions", map[string]string{"type": models.TypeMonthly}).WithJWTAuth(alice).Send()
	var checkout models.Checkout
	env := testutil.Decode(t, resp, &checkout)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	assert.Equal(t, "Subscription initiate successfully", env.Message)
	require.NotEmpty(t, checkout.TransactionID)

	resp = h.NewRequest(http.MethodGet, "/subscriptions", nil).WithJWTAuth(alice).Send()
	testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.NewRequest(http.MethodGet, "/subscriptions", nil).WithJWTAuth(admin).Send()
	env = testutil.Decode(t, resp, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Subscriptions retrieved successfully", env.Message)
	assert.Equal(t, int64(1), env.Meta.Total)

	confirm := "/payments/" + checkout.TransactionID + "/confirm"
	resp = h.NewRequest(http.MethodPut, confirm, nil).WithJWTAuth(alice).Send()
	testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.NewRequest(http.MethodPut, confirm, nil).WithJWTAuth(admin).Send()
	var payment models.Payment
	env = testutil.Decode(t, resp, &payment)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	assert.Equal(t, "Payment confirmed successfully", env.Message)
	assert.Equal(t, models.PaymentPaid, payment.Status)

	resp = h.NewRequest(http.MethodPut, confirm, nil).WithJWTAuth(admin).Send()
	env = testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Payment already paid", env.Message)

	resp = h.NewRequest(http.MethodPost, "/subscriptions/subscribe", map[string]string{"type": models.TypeAnnual}).WithJWTAuth(alice).Send()
	env = testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "User is already a premium member", env.Message)

	resp = h.NewRequest(http.MethodGet, "/payments/me", nil).WithJWTAuth(alice).Send()
	var mine []map[string]interface{}
	testutil.Decode(t, resp, &mine)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, mine, 1)
	assert.Equal(t, models.PaymentPaid, mine[0]["status"])

	resp = h.NewRequest(http.MethodGet, "/subscriptions/me", nil).WithJWTAuth(alice).Send()
	testutil.Decode(t, resp, &mine)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.StatusActive, mine[0]["status"])
}
