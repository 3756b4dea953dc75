// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package metrics

import (
	"context"
	"fmt"
	"time"

	commentModels "github.com/qolzam/inkwell/comments/models"
	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/utils"
	postModels "github.com/qolzam/inkwell/posts/models"
	subModels "github.com/qolzam/inkwell/subscriptions/models"
	userModels "github.com/qolzam/inkwell/users/models"
	voteModels "github.com/qolzam/inkwell/votes/models"
	"golang.org/x/sync/errgroup"
)

// Trend labels of a month over month comparison.
const (
	TrendIncrease = "increase"
	TrendDecrease = "decrease"
	TrendFlat     = "no change"
)

// maxConcurrentQueries bounds the store queries one dashboard runs at once.
const maxConcurrentQueries = 8

// Stat summarizes one metric.
type Stat struct {
	Total         float64 `json:"total"`
	CurrentMonth  float64 `json:"currentMonth"`
	LastMonthDiff string  `json:"lastMonthDiff"`
	Type          string  `json:"type"`
}

// ChartPoint holds the per-month values of the current year.
type ChartPoint struct {
	Name      string  `json:"name"`
	Views     float64 `json:"views"`
	Posts     float64 `json:"posts"`
	Comments  float64 `json:"comments"`
	Users     float64 `json:"users"`
	Revenue   float64 `json:"revenue"`
	Upvotes   float64 `json:"upvotes"`
	Downvotes float64 `json:"downvotes"`
}

// Dashboard is the admin metrics payload.
type Dashboard struct {
	Upvotes   Stat         `json:"upvotes"`
	Downvotes Stat         `json:"downvotes"`
	Comments  Stat         `json:"comments"`
	Views     Stat         `json:"views"`
	Revenue   Stat         `json:"revenue"`
	Users     Stat         `json:"users"`
	Posts     Stat         `json:"posts"`
	ChartData []ChartPoint `json:"chartData"`
}

// Service computes dashboard metrics.
type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
}

type service struct {
	store interfaces.Repository
	now   func() time.Time
}

// NewService creates a metrics service over the document store.
func NewService(store interfaces.Repository) Service {
	return &service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// source is one metric: the documents it counts, or sums when sumField is set.
type source struct {
	collection string
	conditions []interfaces.Field
	sumField   string
	stat       func(*Dashboard) *Stat
	point      func(*ChartPoint) *float64
}

var sources = []source{
	{
		collection: voteModels.CollectionName,
		conditions: []interfaces.Field{interfaces.Eq("type", voteModels.Upvote)},
		stat:       func(d *Dashboard) *Stat { return &d.Upvotes },
		point:      func(p *ChartPoint) *float64 { return &p.Upvotes },
	},
	{
		collection: voteModels.CollectionName,
		conditions: []interfaces.Field{interfaces.Eq("type", voteModels.Downvote)},
		stat:       func(d *Dashboard) *Stat { return &d.Downvotes },
		point:      func(p *ChartPoint) *float64 { return &p.Downvotes },
	},
	{
		collection: commentModels.CollectionName,
		conditions: []interfaces.Field{interfaces.Ne("isDeleted", true)},
		stat:       func(d *Dashboard) *Stat { return &d.Comments },
		point:      func(p *ChartPoint) *float64 { return &p.Comments },
	},
	{
		collection: postModels.ViewsCollection,
		stat:       func(d *Dashboard) *Stat { return &d.Views },
		point:      func(p *ChartPoint) *float64 { return &p.Views },
	},
	{
		collection: subModels.PaymentsCollection,
		conditions: []interfaces.Field{interfaces.Eq("status", subModels.PaymentPaid)},
		sumField:   "amount",
		stat:       func(d *Dashboard) *Stat { return &d.Revenue },
		point:      func(p *ChartPoint) *float64 { return &p.Revenue },
	},
	{
		collection: userModels.CollectionName,
		stat:       func(d *Dashboard) *Stat { return &d.Users },
		point:      func(p *ChartPoint) *float64 { return &p.Users },
	},
	{
		collection: postModels.CollectionName,
		conditions: []interfaces.Field{interfaces.Ne("isDeleted", true)},
		stat:       func(d *Dashboard) *Stat { return &d.Posts },
		point:      func(p *ChartPoint) *float64 { return &p.Posts },
	},
}

// window bounds createdAt; a zero time leaves that side open.
type window struct {
	from, to time.Time
}

func (w window) conditions() []interfaces.Field {
	var out []interfaces.Field
	if !w.from.IsZero() {
		out = append(out, interfaces.Gte(interfaces.FieldCreatedAt, w.from))
	}
	if !w.to.IsZero() {
		out = append(out, interfaces.Lt(interfaces.FieldCreatedAt, w.to))
	}
	return out
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	dash := &Dashboard{ChartData: make([]ChartPoint, 12)}
	for i := range dash.ChartData {
		dash.ChartData[i].Name = time.Month(i + 1).String()[:3]
	}

	type pair struct{ current, previous float64 }
	months := make([]pair, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQueries)
	for i, src := range sources {
		stat := src.stat(dash)
		s.measure(gctx, g, src, window{}, &stat.Total)
		s.measure(gctx, g, src, window{from: monthStart}, &months[i].current)
		s.measure(gctx, g, src, window{from: monthStart.AddDate(0, -1, 0), to: monthStart}, &months[i].previous)
		for m := range dash.ChartData {
			from := yearStart.AddDate(0, m, 0)
			s.measure(gctx, g, src, window{from: from, to: from.AddDate(0, 1, 0)}, src.point(&dash.ChartData[m]))
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to compute metrics: %w", err)
	}

	for i, src := range sources {
		stat := src.stat(dash)
		stat.CurrentMonth = months[i].current
		stat.LastMonthDiff = percentageDiff(months[i].current, months[i].previous)
		stat.Type = trend(months[i].current, months[i].previous)
	}
	return dash, nil
}

// measure schedules one count or sum whose result is written to out.
func (s *service) measure(ctx context.Context, g *errgroup.Group, src source, w window, out *float64) {
	query := interfaces.NewQuery(append(append([]interfaces.Field{}, src.conditions...), w.conditions()...)...)
	g.Go(func() error {
		if src.sumField == "" {
			n, err := s.store.Count(ctx, src.collection, query)
			if err != nil {
				return fmt.Errorf("count %s: %w", src.collection, err)
			}
			*out = float64(n)
			return nil
		}
		sum, err := s.sum(ctx, src.collection, query, src.sumField)
		if err != nil {
			return err
		}
		*out = sum
		return nil
	})
}

func (s *service) sum(ctx context.Context, collection string, query *interfaces.Query, field string) (float64, error) {
	var docs []interfaces.Document
	opts := &interfaces.FindOptions{Select: map[string]int{field: 1}}
	if err := utils.FindAll(ctx, s.store, collection, query, opts, &docs); err != nil {
		return 0, fmt.Errorf("sum %s.%s: %w", collection, field, err)
	}
	var total float64
	for _, doc := range docs {
		switch v := doc[field].(type) {
		case float64:
			total += v
		case int64:
			total += float64(v)
		case int32:
			total += float64(v)
		case int:
			total += float64(v)
		}
	}
	return total, nil
}

func percentageDiff(current, previous float64) string {
	if previous == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", (current-previous)/previous*100)
}

func trend(current, previous float64) string {
	switch {
	case current > previous:
		return TrendIncrease
	case current < previous:
		return TrendDecrease
	default:
		return TrendFlat
	}
}
