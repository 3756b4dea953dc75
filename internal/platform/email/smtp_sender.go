// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/gofrs/uuid"
)

// ErrNoRecipients is returned when a message has no To address.
var ErrNoRecipients = errors.New("email: message has no recipients")

// SMTPSender is the production implementation of the Sender interface.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a new SMTP sender. Host and port are required.
func NewSMTPSender(host, port, username, password string) (*SMTPSender, error) {
	if host == "" || port == "" {
		return nil, fmt.Errorf("SMTP host and port are required")
	}
	return &SMTPSender{host: host, port: port, username: username, password: password, send: smtp.SendMail}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	to := make([]string, len(msg.To))
	for i, rcpt := range msg.To {
		to[i] = rcpt.Email
	}
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	if err := s.send(addr, auth, msg.From.Email, to, build(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", strings.Join(to, ", "), err)
	}
	return nil
}

// build renders an RFC 5322 message. A message with both bodies becomes
// multipart/alternative.
func build(msg Message) []byte {
	var b bytes.Buffer
	rcpts := make([]string, len(msg.To))
	for i, rcpt := range msg.To {
		rcpts[i] = rcpt.String()
	}
	fmt.Fprintf(&b, "From: %s\r\n", msg.From.String())
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(rcpts, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case msg.HTML != "" && msg.Text != "":
		boundary := strings.ReplaceAll(uuid.Must(uuid.NewV4()).String(), "-", "")
		fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s\r\n", boundary, msg.Text)
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s\r\n", boundary, msg.HTML)
		fmt.Fprintf(&b, "--%s--\r\n", boundary)
	case msg.HTML != "":
		fmt.Fprintf(&b, "Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", msg.HTML)
	default:
		fmt.Fprintf(&b, "Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s", msg.Text)
	}
	return b.Bytes()
}
