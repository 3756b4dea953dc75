// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package utils

import (
	"context"
	"fmt"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"golang.org/x/sync/errgroup"
)

// PopulateSpec replaces a reference field with the referenced document.
type PopulateSpec struct {
	Field      string
	Collection string
	// Select limits the embedded document to these fields (plus _id).
	Select []string
	// Exclude strips fields from the embedded document when Select is empty.
	Exclude []string
}

func (s PopulateSpec) projection() map[string]int {
	sel := map[string]int{}
	if len(s.Select) > 0 {
		for _, name := range s.Select {
			sel[name] = 1
		}
		return sel
	}
	for _, name := range s.Exclude {
		sel[name] = 0
	}
	return sel
}

// Populate embeds referenced documents into docs, one batched lookup per reference field.
// Lookups run concurrently; references that no longer resolve become null.
func Populate(ctx context.Context, repo interfaces.Repository, docs []interfaces.Document, refs ...PopulateSpec) error {
	if len(docs) == 0 || len(refs) == 0 {
		return nil
	}

	resolved := make([]map[string]interfaces.Document, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		i, ref := i, ref
		ids := referencedIDs(docs, ref.Field)
		if len(ids) == 0 {
			continue
		}
		g.Go(func() error {
			found, err := fetchByIDs(gctx, repo, ref, ids)
			if err != nil {
				return fmt.Errorf("populate %s: %w", ref.Field, err)
			}
			resolved[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, ref := range refs {
		found := resolved[i]
		if found == nil {
			continue
		}
		for _, doc := range docs {
			id, ok := doc[ref.Field].(string)
			if !ok {
				continue
			}
			if target, exists := found[id]; exists {
				doc[ref.Field] = map[string]interface{}(CopyDocument(target))
			} else {
				doc[ref.Field] = nil
			}
		}
	}
	return nil
}

func referencedIDs(docs []interfaces.Document, field string) []interface{} {
	seen := map[string]struct{}{}
	var ids []interface{}
	for _, doc := range docs {
		id, ok := doc[field].(string)
		if !ok || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func fetchByIDs(ctx context.Context, repo interfaces.Repository, ref PopulateSpec, ids []interface{}) (map[string]interfaces.Document, error) {
	cursor, err := repo.Find(ctx, ref.Collection, interfaces.NewQuery(interfaces.In(interfaces.FieldID, ids...)), &interfaces.FindOptions{
		Select: ref.projection(),
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var found []interfaces.Document
	if err := cursor.All(&found); err != nil {
		return nil, err
	}
	out := make(map[string]interfaces.Document, len(found))
	for _, doc := range found {
		out[DocumentID(doc)] = doc
	}
	return out, nil
}
