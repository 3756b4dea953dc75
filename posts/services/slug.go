// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/posts/models"
)

// droppedSlugRunes are removed outright instead of becoming separators.
const droppedSlugRunes = `*+~.()'"!?:@#$%^&\`

// slugify lowercases s, drops punctuation and joins the remaining words with
// single hyphens.
func slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case strings.ContainsRune(droppedSlugRunes, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return b.String()
}

// uniqueSlug derives a slug from title and username, appending -1, -2, ...
// until no post, deleted or not, already uses it.
func (s *postService) uniqueSlug(ctx context.Context, title, username string) (string, error) {
	base := slugify(title + "-" + username)
	slug := base
	for suffix := 1; ; suffix++ {
		n, err := s.store.Count(ctx, models.CollectionName, interfaces.NewQuery(interfaces.Eq("slug", slug)))
		if err != nil {
			return "", fmt.Errorf("failed to check slug uniqueness: %w", err)
		}
		if n == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, suffix)
	}
}
