// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/utils"
	"github.com/qolzam/inkwell/internal/pkg/log"
	"github.com/qolzam/inkwell/internal/querybuilder"
	subErrors "github.com/qolzam/inkwell/subscriptions/errors"
	"github.com/qolzam/inkwell/subscriptions/models"
	userModels "github.com/qolzam/inkwell/users/models"
)

// Plans prices and lengths of the two subscription types.
type Plans struct {
	MonthlyPrice    float64
	AnnualPrice     float64
	DefaultCurrency string
	Monthly         time.Duration
	Annual          time.Duration
}

func (p Plans) price(subscriptionType string) float64 {
	if subscriptionType == models.TypeAnnual {
		return p.AnnualPrice
	}
	return p.MonthlyPrice
}

func (p Plans) length(subscriptionType string) time.Duration {
	if subscriptionType == models.TypeAnnual {
		return p.Annual
	}
	return p.Monthly
}

// SubscriptionService defines the interface for premium subscriptions and
// their payments.
type SubscriptionService interface {
	// Subscribe opens a pending subscription and payment for userID. A
	// previous pending, canceled or expired subscription is reused.
	Subscribe(ctx context.Context, userID string, req *models.SubscribeRequest) (*models.Checkout, error)
	// ConfirmPayment marks the payment paid, activates its subscription and
	// flags the user as premium.
	ConfirmPayment(ctx context.Context, transactionID string) (*models.Payment, error)
	HasActiveSubscription(ctx context.Context, userID string) (bool, error)

	ListSubscriptions(ctx context.Context, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error)
	ListMySubscriptions(ctx context.Context, userID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error)
	ListPayments(ctx context.Context, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error)
	ListMyPayments(ctx context.Context, userID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error)
}

type subscriptionService struct {
	store    interfaces.Repository
	plans    Plans
	settings querybuilder.Settings
	now      func() time.Time
}

// NewSubscriptionService creates a subscription service over the document store.
func NewSubscriptionService(store interfaces.Repository, plans Plans, settings querybuilder.Settings) SubscriptionService {
	return &subscriptionService{
		store:    store,
		plans:    plans,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func byID(id string) *interfaces.Query {
	return interfaces.NewQuery(interfaces.Eq(interfaces.FieldID, id))
}

func byTransaction(id string) *interfaces.Query {
	return interfaces.NewQuery(interfaces.Eq("transactionId", id))
}

func (s *subscriptionService) subscriber(ctx context.Context, userID string) (*userModels.User, error) {
	var user userModels.User
	err := s.store.FindOne(ctx, userModels.CollectionName, byID(userID), &user)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, subErrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	switch {
	case user.IsDeleted:
		return nil, subErrors.ErrUserDeleted
	case user.IsBlocked():
		return nil, subErrors.ErrUserBlocked
	}
	return &user, nil
}

func (s *subscriptionService) normalize(req *models.SubscribeRequest) error {
	req.Type = strings.TrimSpace(req.Type)
	if req.Type != models.TypeMonthly && req.Type != models.TypeAnnual {
		return fmt.Errorf("%w: type must be %s or %s", subErrors.ErrValidationFailed, models.TypeMonthly, models.TypeAnnual)
	}
	if req.Currency == "" {
		req.Currency = s.plans.DefaultCurrency
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if !slices.Contains(models.Currencies, req.Currency) {
		return fmt.Errorf("%w: currency must be one of %s", subErrors.ErrValidationFailed, strings.Join(models.Currencies, ", "))
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentMethods[0]
	}
	if !slices.Contains(models.PaymentMethods, req.PaymentMethod) {
		return fmt.Errorf("%w: paymentMethod must be one of %s", subErrors.ErrValidationFailed, strings.Join(models.PaymentMethods, ", "))
	}
	req.Price = s.plans.price(req.Type)
	return nil
}

// transactionID returns a txn- prefixed id no payment uses yet.
func (s *subscriptionService) transactionID(ctx context.Context) (string, error) {
	for {
		id := "txn-" + strings.ReplaceAll(utils.NewID(), "-", "")[:12]
		n, err := s.store.Count(ctx, models.PaymentsCollection, byTransaction(id))
		if err != nil {
			return "", fmt.Errorf("failed to check transaction id: %w", err)
		}
		if n == 0 {
			return id, nil
		}
	}
}

func (s *subscriptionService) Subscribe(ctx context.Context, userID string, req *models.SubscribeRequest) (*models.Checkout, error) {
	if err := s.normalize(req); err != nil {
		return nil, err
	}
	user, err := s.subscriber(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsPremiumUser {
		active, err := s.HasActiveSubscription(ctx, userID)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, subErrors.ErrAlreadyPremium
		}
	}

	txn, err := s.transactionID(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	checkout := &models.Checkout{TransactionID: txn}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var previous []models.Subscription
		query := interfaces.NewQuery(
			interfaces.Eq("user", userID),
			interfaces.In("status", models.StatusPending, models.StatusCanceled, models.StatusExpired),
		)
		one := int64(1)
		if err := utils.FindAll(ctx, s.store, models.CollectionName, query, &interfaces.FindOptions{Limit: &one}, &previous); err != nil {
			return fmt.Errorf("failed to look up subscriptions: %w", err)
		}

		sub := &models.Subscription{
			User:          userID,
			Type:          req.Type,
			Status:        models.StatusPending,
			Price:         req.Price,
			Currency:      req.Currency,
			PaymentMethod: req.PaymentMethod,
			TransactionID: txn,
		}
		if len(previous) > 0 {
			sub.BaseEntity = previous[0].BaseEntity
			sub.UpdatedAt = now
			if _, err := s.store.UpdateFields(ctx, models.CollectionName, byID(sub.ID), map[string]interface{}{
				"type":                    sub.Type,
				"status":                  sub.Status,
				"price":                   sub.Price,
				"currency":                sub.Currency,
				"paymentMethod":           sub.PaymentMethod,
				"transactionId":           sub.TransactionID,
				"startDate":               nil,
				"endDate":                 nil,
				interfaces.FieldUpdatedAt: now,
			}); err != nil {
				return fmt.Errorf("failed to reopen subscription: %w", err)
			}
			if _, err := s.store.UpdateFields(ctx, models.PaymentsCollection, interfaces.NewQuery(
				interfaces.Eq("subscription", sub.ID),
				interfaces.Eq("status", models.PaymentPending),
			), map[string]interface{}{
				"status":                  models.PaymentCanceled,
				interfaces.FieldUpdatedAt: now,
			}); err != nil {
				return fmt.Errorf("failed to cancel stale payments: %w", err)
			}
		} else {
			sub.Touch(utils.NewID(), now)
			if err := s.store.Save(ctx, models.CollectionName, sub); err != nil {
				return fmt.Errorf("failed to create subscription: %w", err)
			}
		}

		payment := &models.Payment{
			TransactionID: txn,
			User:          userID,
			Subscription:  sub.ID,
			PaymentMethod: req.PaymentMethod,
			Amount:        req.Price,
			Currency:      req.Currency,
			Status:        models.PaymentPending,
		}
		payment.Touch(utils.NewID(), now)
		if err := s.store.Save(ctx, models.PaymentsCollection, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		checkout.Subscription, checkout.Payment = sub, payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.InfoWithContext(ctx, "subscription %s initiated for user %s", txn, userID)
	return checkout, nil
}

func (s *subscriptionService) ConfirmPayment(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.store.FindOne(ctx, models.PaymentsCollection, byTransaction(transactionID), &payment)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, subErrors.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	if payment.Status == models.PaymentPaid {
		return nil, subErrors.ErrAlreadyPaid
	}
	if payment.Status == models.PaymentCanceled {
		return nil, subErrors.ErrPaymentCanceled
	}

	now := s.now()
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var sub models.Subscription
		err := s.store.FindOne(ctx, models.CollectionName, byTransaction(transactionID), &sub)
		if errors.Is(err, interfaces.ErrNoDocuments) {
			return subErrors.ErrSubscriptionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to find subscription: %w", err)
		}

		if _, err := s.store.UpdateFields(ctx, models.PaymentsCollection, byTransaction(transactionID), map[string]interface{}{
			"status":                  models.PaymentPaid,
			"paidAt":                  now,
			interfaces.FieldUpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to complete payment: %w", err)
		}
		if _, err := s.store.UpdateFields(ctx, models.CollectionName, byID(sub.ID), map[string]interface{}{
			"status":                  models.StatusActive,
			"startDate":               now,
			"endDate":                 now.Add(s.plans.length(sub.Type)),
			interfaces.FieldUpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to activate subscription: %w", err)
		}
		n, err := s.store.UpdateFields(ctx, userModels.CollectionName, byID(payment.User), map[string]interface{}{"isPremiumUser": true})
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if n == 0 {
			return subErrors.ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.InfoWithContext(ctx, "payment %s confirmed", transactionID)
	payment.Status = models.PaymentPaid
	payment.PaidAt = &now
	payment.UpdatedAt = now
	return &payment, nil
}

func (s *subscriptionService) HasActiveSubscription(ctx context.Context, userID string) (bool, error) {
	var subs []models.Subscription
	query := interfaces.NewQuery(interfaces.Eq("user", userID), interfaces.Eq("status", models.StatusActive))
	if err := utils.FindAll(ctx, s.store, models.CollectionName, query, nil, &subs); err != nil {
		return false, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	now := s.now()
	for i := range subs {
		if subs[i].ActiveAt(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *subscriptionService) list(ctx context.Context, collection string, params url.Values, filters []string, populate []utils.PopulateSpec, base ...interfaces.Field) ([]interfaces.Document, querybuilder.PageMeta, error) {
	qb := querybuilder.New(s.store, collection, params,
		querybuilder.WithBase(base...),
		querybuilder.WithAllowedFilters(filters...),
		querybuilder.WithSettings(s.settings),
	)
	if _, err := qb.Filter(ctx); err != nil {
		return nil, querybuilder.PageMeta{}, err
	}
	docs, meta, err := qb.Sort().Paginate().Fields().Run(ctx)
	if err != nil {
		return nil, meta, err
	}
	if err := utils.Populate(ctx, s.store, docs, populate...); err != nil {
		return nil, meta, err
	}
	return docs, meta, nil
}

var (
	subscriptionFilters = []string{"user", "type", "status", "currency", "paymentMethod", "transactionId"}
	paymentFilters      = []string{"user", "subscription", "status", "currency", "paymentMethod", "transactionId"}
	userRef             = utils.PopulateSpec{Field: "user", Collection: userModels.CollectionName, Select: userModels.PublicFields}
	subscriptionRef     = utils.PopulateSpec{Field: "subscription", Collection: models.CollectionName, Select: []string{"type", "status", "startDate", "endDate"}}
)

func (s *subscriptionService) ListSubscriptions(ctx context.Context, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error) {
	return s.list(ctx, models.CollectionName, params, subscriptionFilters, []utils.PopulateSpec{userRef})
}

func (s *subscriptionService) ListMySubscriptions(ctx context.Context, userID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error) {
	return s.list(ctx, models.CollectionName, params, subscriptionFilters, nil, interfaces.Eq("user", userID))
}

func (s *subscriptionService) ListPayments(ctx context.Context, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error) {
	return s.list(ctx, models.PaymentsCollection, params, paymentFilters, []utils.PopulateSpec{userRef, subscriptionRef})
}

func (s *subscriptionService) ListMyPayments(ctx context.Context, userID string, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error) {
	return s.list(ctx, models.PaymentsCollection, params, paymentFilters, []utils.PopulateSpec{subscriptionRef}, interfaces.Eq("user", userID))
}
