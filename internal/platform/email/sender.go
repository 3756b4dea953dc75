// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package email

import (
	"context"
	"net/mail"
)

// Address is a mailbox with an optional display name.
type Address struct {
	Name  string
	Email string
}

// String renders the address for a mail header.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

// Message represents an email to be sent.
type Message struct {
	From    Address
	To      []Address
	Subject string
	Text    string
	HTML    string
}

// Sender abstracts email sending for DI and testing.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
