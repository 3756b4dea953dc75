// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/qolzam/inkwell/internal/pkg/log"
	"github.com/qolzam/inkwell/internal/platform/email"
	"github.com/qolzam/inkwell/internal/types"
	"github.com/qolzam/inkwell/posts/models"
	userModels "github.com/qolzam/inkwell/users/models"
)

const (
	removalSubject = "Your blog post has been deleted"
	defaultReason  = "It did not follow the community guidelines."
)

var removalTemplate = template.Must(template.New("removal").Parse(`<div style="font-family: Arial, sans-serif; line-height: 1.6;">
  <h2>Your blog post has been deleted</h2>
  <p>Hello {{.Name}},</p>
  <p>Your post <strong>{{.Title}}</strong> was removed by an administrator.</p>
  <p><strong>Reason:</strong> {{.Reason}}</p>
  <p>If you believe this was a mistake, reply to this email.</p>
</div>`))

func (s *postService) DeletePostByAdmin(ctx context.Context, caller types.UserContext, id, reason string) (*models.Post, error) {
	post, err := s.DeletePost(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if s.deps.Mailer == nil {
		return post, nil
	}
	if reason == "" {
		reason = defaultReason
	}
	// The post is already gone; a failed notice is only logged.
	if err := s.notifyRemoval(ctx, post, reason); err != nil {
		log.WarnWithContext(ctx, "removal notice for post %s: %v", post.ID, err)
	}
	return post, nil
}

func (s *postService) notifyRemoval(ctx context.Context, post *models.Post, reason string) error {
	var author userModels.User
	if err := s.store.FindOne(ctx, userModels.CollectionName, byID(post.Author), &author); err != nil {
		return fmt.Errorf("failed to load author: %w", err)
	}

	var html bytes.Buffer
	err := removalTemplate.Execute(&html, map[string]string{
		"Name":   author.FullName,
		"Title":  post.Title,
		"Reason": reason,
	})
	if err != nil {
		return err
	}

	return s.deps.Mailer.Send(ctx, email.Message{
		From:    s.deps.MailFrom,
		To:      []email.Address{{Name: author.FullName, Email: author.Email}},
		Subject: removalSubject,
		Text:    fmt.Sprintf("Your post %q was removed by an administrator. Reason: %s", post.Title, reason),
		HTML:    html.String(),
	})
}
