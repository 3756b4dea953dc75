// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package querybuilder turns untrusted request parameters into a refined
// repository query: free-text search, equality filtering with category
// name resolution, ordering, paging, projection and page metadata.
package querybuilder

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/pkg/log"
	"golang.org/x/sync/errgroup"
)

// Reserved request parameters. They steer the pipeline and never become
// equality predicates.
const (
	ParamSearchTerm = "searchTerm"
	ParamSort       = "sort"
	ParamLimit      = "limit"
	ParamPage       = "page"
	ParamFields     = "fields"
	ParamCategory   = "category"
)

var reservedParams = map[string]struct{}{
	ParamSearchTerm: {},
	ParamSort:       {},
	ParamLimit:      {},
	ParamPage:       {},
	ParamFields:     {},
}

// Pipeline defaults.
const (
	DefaultPage     = 1
	DefaultLimit    = 10
	DefaultMaxLimit = 100
	DefaultSort     = "-" + interfaces.FieldCreatedAt
)

// ErrFilterPending is returned when a terminal operation runs before Filter.
var ErrFilterPending = errors.New("querybuilder: Filter must complete before the query runs")

// CategoryResolver maps a human-readable category name to its id.
type CategoryResolver interface {
	ResolveCategoryID(ctx context.Context, name string) (id string, found bool, err error)
}

// FieldKind tells Filter how to coerce a string parameter before it
// becomes a predicate value.
type FieldKind int

const (
	KindString FieldKind = iota
	KindBool
	KindNumber
)

// Settings carries the paging limits and category policy.
type Settings struct {
	DefaultLimit int
	MaxLimit     int
	// StrictCategory turns an unknown category name into a predicate that
	// matches nothing instead of dropping the predicate.
	StrictCategory bool
}

// PageMeta describes a page of results.
type PageMeta struct {
	Limit      int   `json:"limit"`
	Page       int   `json:"page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// NewPageMeta computes the page count for total matches.
func NewPageMeta(page, limit int, total int64) PageMeta {
	meta := PageMeta{Limit: limit, Page: page, Total: total}
	if limit > 0 {
		meta.TotalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return meta
}

// Option configures a Builder.
type Option func(*Builder)

// WithBase adds predicates that every result must satisfy regardless of
// request parameters, e.g. a soft-delete flag or an owner id.
func WithBase(conditions ...interfaces.Field) Option {
	return func(b *Builder) {
		b.base = append(b.base, conditions...)
	}
}

// WithCategoryResolver enables category name resolution in Filter.
func WithCategoryResolver(r CategoryResolver) Option {
	return func(b *Builder) {
		b.resolver = r
	}
}

// WithAllowedFilters restricts the parameters Filter turns into predicates.
// Anything else is ignored.
func WithAllowedFilters(names ...string) Option {
	return func(b *Builder) {
		if b.allowed == nil {
			b.allowed = make(map[string]struct{}, len(names))
		}
		for _, n := range names {
			b.allowed[n] = struct{}{}
		}
	}
}

// WithFilterKinds declares non-string parameters.
func WithFilterKinds(kinds map[string]FieldKind) Option {
	return func(b *Builder) {
		if b.kinds == nil {
			b.kinds = make(map[string]FieldKind, len(kinds))
		}
		for k, v := range kinds {
			b.kinds[k] = v
		}
	}
}

// WithHiddenFields names fields that are never returned, whatever the
// projection asks for.
func WithHiddenFields(names ...string) Option {
	return func(b *Builder) {
		b.hidden = append(b.hidden, names...)
	}
}

// WithSettings overrides the paging defaults.
func WithSettings(s Settings) Option {
	return func(b *Builder) {
		b.settings = s
	}
}

// Builder accumulates a query over one collection. It is not safe for
// concurrent use while stages are being applied.
type Builder struct {
	store      interfaces.Repository
	collection string
	params     url.Values

	settings Settings
	base     []interfaces.Field
	resolver CategoryResolver
	allowed  map[string]struct{}
	kinds    map[string]FieldKind
	hidden   []string

	search   []interfaces.Field
	filters  []interfaces.Field
	filtered bool

	sort       []interfaces.SortField
	projection map[string]int
	page       int
	limit      int
	paginated  bool
}

// New creates a Builder over collection driven by params.
func New(store interfaces.Repository, collection string, params url.Values, opts ...Option) *Builder {
	b := &Builder{
		store:      store,
		collection: collection,
		params:     params,
		settings:   Settings{DefaultLimit: DefaultLimit, MaxLimit: DefaultMaxLimit},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.params == nil {
		b.params = url.Values{}
	}
	if b.settings.DefaultLimit <= 0 {
		b.settings.DefaultLimit = DefaultLimit
	}
	b.page, b.limit = pageAndLimit(b.params, b.settings)
	return b
}

// Search restricts results to documents where at least one of fields
// contains searchTerm, case-insensitively. The term is matched literally.
// Without a searchTerm parameter the query is unchanged.
func (b *Builder) Search(fields ...string) *Builder {
	term := strings.TrimSpace(b.params.Get(ParamSearchTerm))
	b.search = nil
	if term == "" {
		return b
	}
	pattern := regexp.QuoteMeta(term)
	for _, f := range fields {
		if !interfaces.ValidFieldName(f) {
			continue
		}
		b.search = append(b.search, interfaces.Field{Name: f, Value: pattern, Operator: interfaces.OpRegex})
	}
	return b
}

// Filter turns every non-reserved parameter into an equality predicate.
// A category name is replaced by its id; an unknown name drops the
// predicate unless StrictCategory is set. Calling Filter again recomputes
// the predicates from the same parameters.
func (b *Builder) Filter(ctx context.Context) (*Builder, error) {
	keys := make([]string, 0, len(b.params))
	for k := range b.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var filters []interfaces.Field
	for _, key := range keys {
		if _, reserved := reservedParams[key]; reserved {
			continue
		}
		if !interfaces.ValidFieldName(key) {
			continue
		}
		if b.allowed != nil {
			if _, ok := b.allowed[key]; !ok {
				continue
			}
		}
		values := nonEmpty(b.params[key])
		if len(values) == 0 {
			continue
		}

		if key == ParamCategory && b.resolver != nil {
			field, keep, err := b.categoryPredicate(ctx, values)
			if err != nil {
				return b, err
			}
			if keep {
				filters = append(filters, field)
			}
			continue
		}

		field, err := b.predicate(key, values)
		if err != nil {
			return b, err
		}
		filters = append(filters, field)
	}

	b.filters = filters
	b.filtered = true
	return b, nil
}

func (b *Builder) categoryPredicate(ctx context.Context, names []string) (interfaces.Field, bool, error) {
	ids := make([]interface{}, 0, len(names))
	for _, name := range names {
		id, found, err := b.resolver.ResolveCategoryID(ctx, name)
		if err != nil {
			return interfaces.Field{}, false, fmt.Errorf("resolve category %q: %w", name, err)
		}
		if !found {
			log.Debug("querybuilder: unknown category %q on %s", name, b.collection)
			continue
		}
		ids = append(ids, id)
	}
	switch {
	case len(ids) == 1:
		return interfaces.Eq(ParamCategory, ids[0]), true, nil
	case len(ids) > 1:
		return interfaces.In(ParamCategory, ids...), true, nil
	case b.settings.StrictCategory:
		return interfaces.In(ParamCategory), true, nil
	default:
		return interfaces.Field{}, false, nil
	}
}

func (b *Builder) predicate(key string, raw []string) (interfaces.Field, error) {
	values := make([]interface{}, 0, len(raw))
	for _, r := range raw {
		v, err := coerce(r, b.kinds[key])
		if err != nil {
			return interfaces.Field{}, fmt.Errorf("%w: %s: %v", interfaces.ErrInvalidFilter, key, err)
		}
		values = append(values, v)
	}
	if len(values) == 1 {
		return interfaces.Eq(key, values[0]), nil
	}
	return interfaces.In(key, values...), nil
}

// Sort orders results by the comma-separated sort parameter. A leading
// "-" means descending. Defaults to newest first.
func (b *Builder) Sort() *Builder {
	b.sort = parseSort(b.params.Get(ParamSort))
	return b
}

// Paginate restricts results to the requested page.
func (b *Builder) Paginate() *Builder {
	b.paginated = true
	return b
}

// Fields restricts the returned fields to the comma-separated fields
// parameter. Without it the version key is excluded.
func (b *Builder) Fields() *Builder {
	b.projection = parseFields(b.params.Get(ParamFields), b.hidden)
	return b
}

// Page returns the effective page number.
func (b *Builder) Page() int { return b.page }

// Limit returns the effective page size.
func (b *Builder) Limit() int { return b.limit }

// Query returns the accumulated predicate. It does not include Filter
// predicates until Filter has run.
func (b *Builder) Query() *interfaces.Query {
	q := interfaces.NewQuery()
	q.Conditions = append(q.Conditions, b.base...)
	q.Conditions = append(q.Conditions, b.filters...)
	if len(b.search) > 0 {
		q.OrGroups = append(q.OrGroups, append([]interfaces.Field(nil), b.search...))
	}
	return q
}

// FindOptions returns the ordering, window and projection applied so far.
func (b *Builder) FindOptions() *interfaces.FindOptions {
	opts := &interfaces.FindOptions{}
	if len(b.sort) > 0 {
		opts.Sort = append([]interfaces.SortField(nil), b.sort...)
	}
	if b.paginated {
		skip := int64(b.page-1) * int64(b.limit)
		limit := int64(b.limit)
		opts.Skip = &skip
		opts.Limit = &limit
	}
	switch {
	case b.projection != nil:
		opts.Select = copyProjection(b.projection)
	case len(b.hidden) > 0:
		opts.Select = parseFields("", b.hidden)
		delete(opts.Select, interfaces.FieldVersion)
	}
	return opts
}

// Execute runs the refined query and returns the matching documents.
func (b *Builder) Execute(ctx context.Context) ([]interfaces.Document, error) {
	if !b.filtered {
		return nil, ErrFilterPending
	}
	cursor, err := b.store.Find(ctx, b.collection, b.Query(), b.FindOptions())
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	docs := []interfaces.Document{}
	if err := cursor.All(&docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// CountTotal counts every document matching the predicate, ignoring the
// page window, and reports the page metadata.
func (b *Builder) CountTotal(ctx context.Context) (PageMeta, error) {
	if !b.filtered {
		return PageMeta{}, ErrFilterPending
	}
	total, err := b.store.Count(ctx, b.collection, b.Query())
	if err != nil {
		return PageMeta{}, err
	}
	return NewPageMeta(b.page, b.limit, total), nil
}

// Run executes the query and the count concurrently.
func (b *Builder) Run(ctx context.Context) ([]interfaces.Document, PageMeta, error) {
	if !b.filtered {
		return nil, PageMeta{}, ErrFilterPending
	}
	var (
		docs []interfaces.Document
		meta PageMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docs, err = b.Execute(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		meta, err = b.CountTotal(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, PageMeta{}, err
	}
	return docs, meta, nil
}
