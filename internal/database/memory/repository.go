// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package memory is a process-local document store used for development
// and tests. Documents are kept in their JSON shape.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/utils"
)

type txKey struct{}

var _ interfaces.Repository = (*MemoryRepository)(nil)

type collection struct {
	docs    []interfaces.Document
	indexes []interfaces.Index
}

// MemoryRepository implements the Repository interface in memory
type MemoryRepository struct {
	mu          sync.RWMutex
	txMu        sync.Mutex
	collections map[string]*collection
	now         func() time.Time
}

// NewMemoryRepository creates an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		collections: map[string]*collection{},
		now:         time.Now,
	}
}

func (r *MemoryRepository) coll(name string) *collection {
	c, ok := r.collections[name]
	if !ok {
		c = &collection{}
		r.collections[name] = c
	}
	return c
}

// Save stores a single document
func (r *MemoryRepository) Save(ctx context.Context, collectionName string, data interface{}) error {
	doc, err := utils.ToDocument(data)
	if err != nil {
		return err
	}
	if utils.DocumentID(doc) == "" {
		doc[interfaces.FieldID] = utils.NewID()
	}
	if _, ok := doc[interfaces.FieldCreatedAt]; !ok {
		stamp := r.now().UTC().Format(time.RFC3339Nano)
		doc[interfaces.FieldCreatedAt] = stamp
		doc[interfaces.FieldUpdatedAt] = stamp
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.coll(collectionName)
	if c.conflicts(doc) {
		return interfaces.ErrDuplicateKey
	}
	c.docs = append(c.docs, doc)
	return nil
}

func (c *collection) conflicts(doc interfaces.Document) bool {
	id := utils.DocumentID(doc)
	for _, existing := range c.docs {
		if utils.DocumentID(existing) == id {
			return true
		}
	}
	for _, idx := range c.indexes {
		if !idx.Unique {
			continue
		}
		for _, existing := range c.docs {
			same := true
			for _, field := range idx.Fields {
				a, aok := utils.GetPath(doc, field)
				b, bok := utils.GetPath(existing, field)
				if aok != bok || compareForSort(a, aok, b, bok) != 0 {
					same = false
					break
				}
			}
			if same {
				return true
			}
		}
	}
	return false
}

// FindOne retrieves the first matching document
func (r *MemoryRepository) FindOne(ctx context.Context, collectionName string, query *interfaces.Query, out interface{}) error {
	one := int64(1)
	docs, err := r.find(collectionName, query, &interfaces.FindOptions{Limit: &one})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return interfaces.ErrNoDocuments
	}
	return utils.DecodeDocument(docs[0], out)
}

// Find retrieves multiple documents
func (r *MemoryRepository) Find(ctx context.Context, collectionName string, query *interfaces.Query, opts *interfaces.FindOptions) (interfaces.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := r.find(collectionName, query, opts)
	if err != nil {
		return nil, err
	}
	return utils.NewDocumentCursor(docs), nil
}

func (r *MemoryRepository) find(collectionName string, query *interfaces.Query, opts *interfaces.FindOptions) ([]interfaces.Document, error) {
	m, err := newMatcher(query)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &interfaces.FindOptions{}
	}
	if _, err := utils.ProjectionMode(opts.Select); err != nil {
		return nil, err
	}

	r.mu.RLock()
	var matched []interfaces.Document
	if c, ok := r.collections[collectionName]; ok {
		for _, doc := range c.docs {
			if m.matches(doc) {
				matched = append(matched, doc)
			}
		}
	}
	r.mu.RUnlock()

	if len(opts.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, key := range opts.Sort {
				a, aok := utils.GetPath(matched[i], key.Name)
				b, bok := utils.GetPath(matched[j], key.Name)
				cmp := compareForSort(a, aok, b, bok)
				if cmp == 0 {
					continue
				}
				if key.Direction < 0 {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	if opts.Skip != nil && *opts.Skip > 0 {
		if *opts.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[*opts.Skip:]
		}
	}
	if opts.Limit != nil && *opts.Limit > 0 && *opts.Limit < int64(len(matched)) {
		matched = matched[:*opts.Limit]
	}

	out := make([]interfaces.Document, 0, len(matched))
	for _, doc := range matched {
		projected, err := utils.ApplyProjection(utils.CopyDocument(doc), opts.Select)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return out, nil
}

// Count returns the number of matching documents
func (r *MemoryRepository) Count(ctx context.Context, collectionName string, query *interfaces.Query) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m, err := newMatcher(query)
	if err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	if c, ok := r.collections[collectionName]; ok {
		for _, doc := range c.docs {
			if m.matches(doc) {
				n++
			}
		}
	}
	return n, nil
}

// UpdateFields sets fields on matching documents
func (r *MemoryRepository) UpdateFields(ctx context.Context, collectionName string, query *interfaces.Query, updates map[string]interface{}) (int64, error) {
	return r.UpdateAndIncrement(ctx, collectionName, query, updates, nil)
}

// IncrementFields adds deltas to numeric fields
func (r *MemoryRepository) IncrementFields(ctx context.Context, collectionName string, query *interfaces.Query, increments map[string]interface{}) (int64, error) {
	return r.UpdateAndIncrement(ctx, collectionName, query, nil, increments)
}

// UpdateAndIncrement applies sets and increments in one pass
func (r *MemoryRepository) UpdateAndIncrement(ctx context.Context, collectionName string, query *interfaces.Query, updates map[string]interface{}, increments map[string]interface{}) (int64, error) {
	m, err := newMatcher(query)
	if err != nil {
		return 0, err
	}
	normalized := make(map[string]interface{}, len(updates))
	for k, v := range updates {
		if !interfaces.ValidFieldName(k) {
			return 0, interfaces.ErrInvalidFilter
		}
		nv, err := utils.NormalizeValue(v)
		if err != nil {
			return 0, fmt.Errorf("normalize %s: %w", k, err)
		}
		normalized[k] = nv
	}
	deltas := make(map[string]float64, len(increments))
	for k, v := range increments {
		f, ok := toFloat(v)
		if !ok || !interfaces.ValidFieldName(k) {
			return 0, fmt.Errorf("%w: increment %s must be numeric", interfaces.ErrInvalidFilter, k)
		}
		deltas[k] = f
	}
	stamp := r.now().UTC().Format(time.RFC3339Nano)

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.collections[collectionName]
	if !ok {
		return 0, nil
	}
	var n int64
	for _, doc := range c.docs {
		if !m.matches(doc) {
			continue
		}
		n++
		for k, v := range normalized {
			utils.SetPath(doc, k, v)
		}
		for k, delta := range deltas {
			current, _ := utils.GetPath(doc, k)
			base, _ := toFloat(current)
			utils.SetPath(doc, k, base+delta)
		}
		doc[interfaces.FieldUpdatedAt] = stamp
	}
	return n, nil
}

// Delete removes matching documents
func (r *MemoryRepository) Delete(ctx context.Context, collectionName string, query *interfaces.Query) (int64, error) {
	m, err := newMatcher(query)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.collections[collectionName]
	if !ok {
		return 0, nil
	}
	kept := c.docs[:0]
	var n int64
	for _, doc := range c.docs {
		if m.matches(doc) {
			n++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return n, nil
}

// EnsureCollection registers the collection and its indexes
func (r *MemoryRepository) EnsureCollection(ctx context.Context, collectionName string, indexes ...interfaces.Index) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.coll(collectionName)
	c.indexes = append(c.indexes[:0], indexes...)
	return nil
}

// WithTransaction serialises transactions and restores a snapshot when fn fails.
// Writes made outside a transaction while one is running are not isolated.
func (r *MemoryRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, ok := ctx.Value(txKey{}).(*MemoryRepository); ok && owner == r {
		return fn(ctx)
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	snapshot := r.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, r)); err != nil {
		r.restore(snapshot)
		return err
	}
	return nil
}

func (r *MemoryRepository) snapshot() map[string]*collection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*collection, len(r.collections))
	for name, c := range r.collections {
		copied := &collection{indexes: append([]interfaces.Index(nil), c.indexes...)}
		for _, doc := range c.docs {
			copied.docs = append(copied.docs, utils.CopyDocument(doc))
		}
		out[name] = copied
	}
	return out
}

func (r *MemoryRepository) restore(snapshot map[string]*collection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections = snapshot
}

// Ping always succeeds
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close drops all data
func (r *MemoryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections = map[string]*collection{}
	return nil
}
