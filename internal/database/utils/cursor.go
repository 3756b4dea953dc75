// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package utils

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/qolzam/inkwell/internal/database/interfaces"
)

// DocumentCursor iterates an already materialised result set.
type DocumentCursor struct {
	docs []interfaces.Document
	pos  int
	err  error
}

// NewDocumentCursor wraps docs in a QueryResult.
func NewDocumentCursor(docs []interfaces.Document) *DocumentCursor {
	return &DocumentCursor{docs: docs, pos: -1}
}

// Next advances the cursor.
func (c *DocumentCursor) Next() bool {
	if c.pos+1 >= len(c.docs) {
		c.pos = len(c.docs)
		return false
	}
	c.pos++
	return true
}

// Decode decodes the current document.
func (c *DocumentCursor) Decode(v interface{}) error {
	if c.pos < 0 || c.pos >= len(c.docs) {
		return errors.New("cursor is not positioned on a document")
	}
	return DecodeDocument(c.docs[c.pos], v)
}

// All decodes the remaining documents into out.
func (c *DocumentCursor) All(out interface{}) error {
	start := c.pos + 1
	if start > len(c.docs) {
		start = len(c.docs)
	}
	rest := c.docs[start:]
	c.pos = len(c.docs)

	if target, ok := out.(*[]interfaces.Document); ok {
		copied := make([]interfaces.Document, len(rest))
		for i, doc := range rest {
			copied[i] = CopyDocument(doc)
		}
		*target = copied
		return nil
	}

	raw, err := json.Marshal(rest)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode documents: %w", err)
	}
	return nil
}

// Close releases the cursor.
func (c *DocumentCursor) Close() {
	c.docs = nil
}

// Error returns the iteration error, if any.
func (c *DocumentCursor) Error() error {
	return c.err
}
