// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package postgresql

import (
	"errors"
	"testing"
	"time"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selectSQL(t *testing.T, q *interfaces.Query, opts *interfaces.FindOptions) (string, []interface{}) {
	t.Helper()
	r := &PostgreSQLRepository{schema: "public"}
	sb, err := r.selectBuilder("public.posts", q, opts)
	require.NoError(t, err)
	stmt, args, err := sb.ToSql()
	require.NoError(t, err)
	return stmt, args
}

func TestBuildWhere_Empty(t *testing.T) {
	t.Parallel()
	stmt, args := selectSQL(t, nil, nil)
	assert.Equal(t, "SELECT data FROM public.posts", stmt)
	assert.Empty(t, args)
}

func TestBuildWhere_Equality(t *testing.T) {
	t.Parallel()
	stmt, args := selectSQL(t, interfaces.NewQuery(
		interfaces.Eq("_id", "p1"),
		interfaces.Eq("author", "u1"),
	), nil)
	assert.Equal(t, "SELECT data FROM public.posts WHERE (id = $1 AND (data @> $2::jsonb OR data @> $3::jsonb))", stmt)
	assert.Equal(t, []interface{}{"p1", `{"author":"u1"}`, `{"author":["u1"]}`}, args)
}

func TestBuildWhere_NotEqualAndIn(t *testing.T) {
	t.Parallel()
	stmt, args := selectSQL(t, interfaces.NewQuery(
		interfaces.Ne("isDeleted", true),
		interfaces.In("category", "c1", "c2"),
	), nil)
	assert.Equal(t, "SELECT data FROM public.posts WHERE (NOT (data @> $1::jsonb OR data @> $2::jsonb) AND "+
		"((data @> $3::jsonb OR data @> $4::jsonb) OR (data @> $5::jsonb OR data @> $6::jsonb)))", stmt)
	assert.Equal(t, []interface{}{
		`{"isDeleted":true}`, `{"isDeleted":[true]}`,
		`{"category":"c1"}`, `{"category":["c1"]}`,
		`{"category":"c2"}`, `{"category":["c2"]}`,
	}, args)
}

func TestBuildWhere_EmptyInMatchesNothing(t *testing.T) {
	t.Parallel()
	stmt, args := selectSQL(t, interfaces.NewQuery(interfaces.In("category")), nil)
	assert.Equal(t, "SELECT data FROM public.posts WHERE (FALSE)", stmt)
	assert.Empty(t, args)
}

func TestBuildWhere_SearchGroupAndRange(t *testing.T) {
	t.Parallel()
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := &interfaces.Query{
		Conditions: []interfaces.Field{
			{Name: "createdAt", Value: since, Operator: interfaces.OpGTE},
			{Name: "totalViews", Value: 10, Operator: interfaces.OpGreater},
		},
		OrGroups: [][]interfaces.Field{{
			{Name: "title", Value: "go", Operator: interfaces.OpRegex},
			{Name: "author.name", Value: "go", Operator: interfaces.OpRegex},
		}},
	}
	stmt, args := selectSQL(t, q, nil)
	assert.Equal(t, "SELECT data FROM public.posts WHERE (created_at >= $1 AND (data->>'totalViews')::numeric > $2 AND "+
		"(data->>'title' ~* $3 OR data #>> '{author,name}' ~* $4))", stmt)
	assert.Equal(t, []interface{}{since, 10, "go", "go"}, args)
}

func TestSelectBuilder_SortAndPage(t *testing.T) {
	t.Parallel()
	skip, limit := int64(10), int64(10)
	stmt, _ := selectSQL(t, nil, &interfaces.FindOptions{
		Sort:  []interfaces.SortField{{Name: "createdAt", Direction: -1}, {Name: "title", Direction: 1}, {Name: "_id", Direction: 1}},
		Skip:  &skip,
		Limit: &limit,
	})
	assert.Equal(t, "SELECT data FROM public.posts ORDER BY created_at DESC, data->'title' ASC, id ASC LIMIT 10 OFFSET 10", stmt)
}

func TestBuildWhere_RejectsUnsafeNames(t *testing.T) {
	t.Parallel()
	_, err := buildWhere(interfaces.NewQuery(interfaces.Eq("title'; DROP TABLE posts; --", "x")))
	assert.True(t, errors.Is(err, interfaces.ErrInvalidFilter))

	_, err = buildOrderBy([]interfaces.SortField{{Name: "1; DROP", Direction: 1}})
	assert.True(t, errors.Is(err, interfaces.ErrInvalidFilter))
}

func TestBuildDataUpdate(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	expr, err := buildDataUpdate(
		map[string]interface{}{"title": "New", "isDeleted": false},
		map[string]interface{}{"totalViews": 1},
		now,
	)
	require.NoError(t, err)
	stmt, args, err := expr.ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"jsonb_set(jsonb_set(jsonb_set(jsonb_set(data, '{isDeleted}', ?::jsonb, true), '{title}', ?::jsonb, true), "+
			"'{totalViews}', to_jsonb(COALESCE((data #>> '{totalViews}')::numeric, 0) + ?), true), '{updatedAt}', ?::jsonb, true)",
		stmt)
	assert.Equal(t, []interface{}{"false", `"New"`, 1, `"2024-06-01T12:00:00Z"`}, args)
}

func TestIndexStatement(t *testing.T) {
	t.Parallel()
	stmt, err := indexStatement("public.votes", "votes", interfaces.Index{Fields: []string{"post", "user"}, Unique: true})
	require.NoError(t, err)
	assert.Equal(t, "CREATE UNIQUE INDEX IF NOT EXISTS uniq_votes_post_user ON public.votes ((data->>'post'), (data->>'user'))", stmt)
}
