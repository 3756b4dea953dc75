// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPSender_RequiresHostAndPort(t *testing.T) {
	_, err := NewSMTPSender("", "25", "", "")
	assert.Error(t, err)
	_, err = NewSMTPSender("smtp.example.com", "", "", "")
	assert.Error(t, err)
}

func TestSMTPSender_Send(t *testing.T) {
	sender, err := NewSMTPSender("smtp.example.com", "587", "mailer", "secret")
	require.NoError(t, err)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte
	var gotAuth smtp.Auth
	sender.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotBody = addr, a, from, to, msg
		return nil
	}

	err = sender.Send(context.Background(), Message{
		From:    Address{Name: "Inkwell", Email: "noreply@example.com"},
		To:      []Address{{Name: "Alice", Email: "alice@example.com"}},
		Subject: "Your blog post has been deleted",
		Text:    "plain",
		HTML:    "<p>html</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	body := string(gotBody)
	assert.Contains(t, body, "From: \"Inkwell\" <noreply@example.com>\r\n")
	assert.Contains(t, body, "To: \"Alice\" <alice@example.com>\r\n")
	assert.Contains(t, body, "Subject: Your blog post has been deleted\r\n")
	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "<p>html</p>")
}

func TestSMTPSender_Errors(t *testing.T) {
	sender, err := NewSMTPSender("smtp.example.com", "25", "", "")
	require.NoError(t, err)
	sender.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	assert.ErrorIs(t, sender.Send(context.Background(), Message{}), ErrNoRecipients)

	err = sender.Send(context.Background(), Message{To: []Address{{Email: "bob@example.com"}}, Text: "hi"})
	assert.ErrorContains(t, err, "connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sender.Send(ctx, Message{To: []Address{{Email: "bob@example.com"}}}), context.Canceled)
}
