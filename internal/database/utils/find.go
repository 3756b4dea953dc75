// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package utils

import (
	"context"

	"github.com/qolzam/inkwell/internal/database/interfaces"
)

// FindAll decodes every document matching query into out, a pointer to a slice.
func FindAll(ctx context.Context, repo interfaces.Repository, collection string, query *interfaces.Query, opts *interfaces.FindOptions, out interface{}) error {
	cursor, err := repo.Find(ctx, collection, query, opts)
	if err != nil {
		return err
	}
	defer cursor.Close()
	return cursor.All(out)
}
