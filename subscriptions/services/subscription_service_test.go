// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/memory"
	"github.com/qolzam/inkwell/internal/database/utils"
	"github.com/qolzam/inkwell/internal/querybuilder"
	subErrors "github.com/qolzam/inkwell/subscriptions/errors"
	"github.com/qolzam/inkwell/subscriptions/models"
	userModels "github.com/qolzam/inkwell/users/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var plans = Plans{
	MonthlyPrice:    9.99,
	AnnualPrice:     99.99,
	DefaultCurrency: "USD",
	Monthly:         30 * 24 * time.Hour,
	Annual:          365 * 24 * time.Hour,
}

func newService(t *testing.T) (interfaces.Repository, *subscriptionService) {
	t.Helper()
	store := memory.NewMemoryRepository()
	require.NoError(t, store.EnsureCollection(context.Background(), models.PaymentsCollection, models.PaymentIndexes...))
	svc := NewSubscriptionService(store, plans, querybuilder.Settings{DefaultLimit: 10, MaxLimit: 100}).(*subscriptionService)
	return store, svc
}

func seedUser(t *testing.T, store interfaces.Repository, username string, mutate func(*userModels.User)) *userModels.User {
	t.Helper()
	user := &userModels.User{Username: username, Email: username + "@example.com", Status: userModels.StatusActive}
	if mutate != nil {
		mutate(user)
	}
	user.Touch(utils.NewID(), time.Now().UTC())
	require.NoError(t, store.Save(context.Background(), userModels.CollectionName, user))
	return user
}

func TestSubscribeAndConfirm(t *testing.T) {
	t.Parallel()
	store, svc := newService(t)
	ctx := context.Background()
	user := seedUser(t, store, "alice", nil)

	checkout, err := svc.Subscribe(ctx, user.ID, &models.SubscribeRequest{Type: models.TypeAnnual, Currency: "usd", Price: 1})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(checkout.TransactionID, "txn-"))
	assert.Equal(t, 99.99, checkout.Payment.Amount)
	assert.Equal(t, "USD", checkout.Payment.Currency)
	assert.Equal(t, models.PaymentPending, checkout.Payment.Status)
	assert.Equal(t, models.StatusPending, checkout.Subscription.Status)
	assert.Equal(t, checkout.Subscription.ID, checkout.Payment.Subscription)

	active, err := svc.HasActiveSubscription(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, active)

	payment, err := svc.ConfirmPayment(ctx, checkout.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, payment.Status)
	require.NotNil(t, payment.PaidAt)

	var sub models.Subscription
	require.NoError(t, store.FindOne(ctx, models.CollectionName, byID(checkout.Subscription.ID), &sub))
	assert.Equal(t, models.StatusActive, sub.Status)
	require.NotNil(t, sub.EndDate)
	assert.WithinDuration(t, sub.StartDate.Add(plans.Annual), *sub.EndDate, time.Second)

	var stored userModels.User
	require.NoError(t, store.FindOne(ctx, userModels.CollectionName, byID(user.ID), &stored))
	assert.True(t, stored.IsPremiumUser)

	active, err = svc.HasActiveSubscription(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, active)

	_, err = svc.ConfirmPayment(ctx, checkout.TransactionID)
	assert.ErrorIs(t, err, subErrors.ErrAlreadyPaid)
	_, err = svc.ConfirmPayment(ctx, "txn-missing")
	assert.ErrorIs(t, err, subErrors.ErrPaymentNotFound)
	_, err = svc.Subscribe(ctx, user.ID, &models.SubscribeRequest{Type: models.TypeMonthly})
	assert.ErrorIs(t, err, subErrors.ErrAlreadyPremium)
}

func TestSubscribe_ReusesOpenSubscription(t *testing.T) {
	t.Parallel()
	store, svc := newService(t)
	ctx := context.Background()
	user := seedUser(t, store, "bob", nil)

	first, err := svc.Subscribe(ctx, user.ID, &models.SubscribeRequest{Type: models.TypeMonthly})
	require.NoError(t, err)
	second, err := svc.Subscribe(ctx, user.ID, &models.SubscribeRequest{Type: models.TypeAnnual, Currency: "BDT"})
	require.NoError(t, err)

	assert.Equal(t, first.Subscription.ID, second.Subscription.ID)
	assert.NotEqual(t, first.TransactionID, second.TransactionID)

	n, err := store.Count(ctx, models.CollectionName, interfaces.NewQuery(interfaces.Eq("user", user.ID)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = store.Count(ctx, models.PaymentsCollection, interfaces.NewQuery(interfaces.Eq("user", user.ID)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var sub models.Subscription
	require.NoError(t, store.FindOne(ctx, models.CollectionName, byID(first.Subscription.ID), &sub))
	assert.Equal(t, models.TypeAnnual, sub.Type)
	assert.Equal(t, second.TransactionID, sub.TransactionID)

	var stale models.Payment
	require.NoError(t, store.FindOne(ctx, models.PaymentsCollection, byTransaction(first.TransactionID), &stale))
	assert.Equal(t, models.PaymentCanceled, stale.Status)
	_, err = svc.ConfirmPayment(ctx, first.TransactionID)
	assert.ErrorIs(t, err, subErrors.ErrPaymentCanceled)

	paid, err := svc.ConfirmPayment(ctx, second.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.Status)
}

func TestSubscribe_Rules(t *testing.T) {
	t.Parallel()
	store, svc := newService(t)
	ctx := context.Background()
	blocked := seedUser(t, store, "blocked", func(u *userModels.User) { u.Status = userModels.StatusBlocked })
	deleted := seedUser(t, store, "deleted", func(u *userModels.User) { u.IsDeleted = true })
	lapsed := seedUser(t, store, "lapsed", func(u *userModels.User) { u.IsPremiumUser = true })
	ok := &models.SubscribeRequest{Type: models.TypeMonthly}

	_, err := svc.Subscribe(ctx, blocked.ID, &models.SubscribeRequest{Type: models.TypeMonthly})
	assert.ErrorIs(t, err, subErrors.ErrUserBlocked)
	_, err = svc.Subscribe(ctx, deleted.ID, &models.SubscribeRequest{Type: models.TypeMonthly})
	assert.ErrorIs(t, err, subErrors.ErrUserDeleted)
	_, err = svc.Subscribe(ctx, utils.NewID(), &models.SubscribeRequest{Type: models.TypeMonthly})
	assert.ErrorIs(t, err, subErrors.ErrUserNotFound)

	_, err = svc.Subscribe(ctx, lapsed.ID, &models.SubscribeRequest{Type: "Weekly"})
	assert.ErrorIs(t, err, subErrors.ErrValidationFailed)
	_, err = svc.Subscribe(ctx, lapsed.ID, &models.SubscribeRequest{Type: models.TypeMonthly, Currency: "EUR"})
	assert.ErrorIs(t, err, subErrors.ErrValidationFailed)
	_, err = svc.Subscribe(ctx, lapsed.ID, &models.SubscribeRequest{Type: models.TypeMonthly, PaymentMethod: "Cash"})
	assert.ErrorIs(t, err, subErrors.ErrValidationFailed)

	checkout, err := svc.Subscribe(ctx, lapsed.ID, ok)
	require.NoError(t, err)
	assert.Equal(t, 9.99, checkout.Payment.Amount)
	assert.Equal(t, models.PaymentMethods[0], checkout.Payment.PaymentMethod)
}

func TestHasActiveSubscription_Window(t *testing.T) {
	t.Parallel()
	store, svc := newService(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	start, end := now.AddDate(0, -2, 0), now.AddDate(0, -1, 0)
	expired := &models.Subscription{User: "u1", Status: models.StatusActive, StartDate: &start, EndDate: &end}
	expired.Touch(utils.NewID(), now)
	require.NoError(t, store.Save(ctx, models.CollectionName, expired))

	active, err := svc.HasActiveSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, active)

	start, end = now.AddDate(0, 0, -1), now.AddDate(0, 0, 29)
	current := &models.Subscription{User: "u1", Status: models.StatusActive, StartDate: &start, EndDate: &end}
	current.Touch(utils.NewID(), now)
	require.NoError(t, store.Save(ctx, models.CollectionName, current))

	active, err = svc.HasActiveSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestListPayments(t *testing.T) {
	t.Parallel()
	store, svc := newService(t)
	ctx := context.Background()
	alice := seedUser(t, store, "alice", nil)
	bob := seedUser(t, store, "bob", nil)
	for _, id := range []string{alice.ID, bob.ID} {
		_, err := svc.Subscribe(ctx, id, &models.SubscribeRequest{Type: models.TypeMonthly})
		require.NoError(t, err)
	}

	docs, meta, err := svc.ListPayments(ctx, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.Total)
	user, ok := docs[0]["user"].(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, user["username"])
	assert.IsType(t, map[string]interface{}{}, docs[0]["subscription"])

	_, meta, err = svc.ListMyPayments(ctx, bob.ID, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.Total)

	_, meta, err = svc.ListSubscriptions(ctx, url.Values{"status": {models.StatusPending}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.Total)
	_, meta, err = svc.ListMySubscriptions(ctx, alice.ID, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.Total)
}
