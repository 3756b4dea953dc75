// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"time"

	"github.com/qolzam/inkwell/internal/database/interfaces"
)

// Store collections owned by subscriptions.
const (
	CollectionName     = "subscriptions"
	PaymentsCollection = "payments"
)

// Subscription plans.
const (
	TypeMonthly = "Monthly"
	TypeAnnual  = "Annual"
)

// Subscription states.
const (
	StatusPending  = "Pending"
	StatusActive   = "Active"
	StatusExpired  = "Expired"
	StatusCanceled = "Canceled"
)

// Payment states.
const (
	PaymentPending  = "Pending"
	PaymentPaid     = "Paid"
	PaymentFailed   = "Failed"
	PaymentCanceled = "Canceled"
)

// Accepted currencies and payment methods.
var (
	Currencies     = []string{"USD", "BDT"}
	PaymentMethods = []string{"Aamarpay", "Stripe"}
)

// Indexes for the subscriptions collection.
var Indexes = []interfaces.Index{
	{Fields: []string{"user"}},
	{Fields: []string{"transactionId"}},
}

// PaymentIndexes makes transaction ids unique.
var PaymentIndexes = []interfaces.Index{
	{Fields: []string{"transactionId"}, Unique: true},
}

// Subscription is a premium plan of a user. User holds the user id.
type Subscription struct {
	interfaces.BaseEntity `bson:",inline"`
	User                  string     `json:"user" bson:"user"`
	Type                  string     `json:"type" bson:"type"`
	StartDate             *time.Time `json:"startDate" bson:"startDate"`
	EndDate               *time.Time `json:"endDate" bson:"endDate"`
	Status                string     `json:"status" bson:"status"`
	Price                 float64    `json:"price" bson:"price"`
	Currency              string     `json:"currency" bson:"currency"`
	PaymentMethod         string     `json:"paymentMethod" bson:"paymentMethod"`
	TransactionID         string     `json:"transactionId" bson:"transactionId"`
}

// ActiveAt reports whether the subscription grants premium access at t.
func (s *Subscription) ActiveAt(t time.Time) bool {
	if s.Status != StatusActive || s.StartDate == nil || s.EndDate == nil {
		return false
	}
	return !t.Before(*s.StartDate) && !t.After(*s.EndDate)
}

// Payment is one payment attempt for a subscription.
type Payment struct {
	interfaces.BaseEntity `bson:",inline"`
	TransactionID         string     `json:"transactionId" bson:"transactionId"`
	User                  string     `json:"user" bson:"user"`
	Subscription          string     `json:"subscription" bson:"subscription"`
	PaymentMethod         string     `json:"paymentMethod" bson:"paymentMethod"`
	Amount                float64    `json:"amount" bson:"amount"`
	Currency              string     `json:"currency" bson:"currency"`
	Status                string     `json:"status" bson:"status"`
	PaidAt                *time.Time `json:"paidAt" bson:"paidAt"`
}

// SubscribeRequest is the body of POST /subscriptions/subscribe. Price is
// taken from configuration when omitted.
type SubscribeRequest struct {
	Type          string  `json:"type"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"paymentMethod"`
	Price         float64 `json:"price"`
}

// Checkout is returned when a subscription is initiated.
type Checkout struct {
	TransactionID string        `json:"transactionId"`
	Subscription  *Subscription `json:"subscription"`
	Payment       *Payment      `json:"payment"`
}
