// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package postgresql

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/qolzam/inkwell/internal/database/interfaces"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Reserved document fields are mirrored into real columns.
var columns = map[string]string{
	interfaces.FieldID:        "id",
	interfaces.FieldCreatedAt: "created_at",
	interfaces.FieldUpdatedAt: "updated_at",
}

var rangeOperators = map[string]string{
	interfaces.OpGreater: ">",
	interfaces.OpGTE:     ">=",
	interfaces.OpLess:    "<",
	interfaces.OpLTE:     "<=",
}

func validIdent(name string) bool {
	return identPattern.MatchString(name)
}

// pgPath renders a dotted field name as a text[] literal, e.g. '{author,name}'.
func pgPath(name string) string {
	return "'{" + strings.ReplaceAll(name, ".", ",") + "}'"
}

// jsonText extracts a field as text.
func jsonText(name string) string {
	if !strings.Contains(name, ".") {
		return fmt.Sprintf("data->>'%s'", name)
	}
	return "data #>> " + pgPath(name)
}

// jsonValue extracts a field as jsonb.
func jsonValue(name string) string {
	if !strings.Contains(name, ".") {
		return fmt.Sprintf("data->'%s'", name)
	}
	return "data #> " + pgPath(name)
}

// containment builds the JSON object {"a":{"b":value}} for a dotted path.
func containment(name string, value interface{}) (string, error) {
	parts := strings.Split(name, ".")
	var nested interface{} = value
	for i := len(parts) - 1; i >= 0; i-- {
		nested = map[string]interface{}{parts[i]: nested}
	}
	raw, err := json.Marshal(nested)
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrInvalidFilter, err)
	}
	return string(raw), nil
}

func isComposite(v interface{}) bool {
	switch v.(type) {
	case []interface{}, []string, map[string]interface{}, interfaces.Document:
		return true
	}
	return false
}

// buildWhere translates a Query into a squirrel predicate. A nil result means no WHERE clause.
func buildWhere(q *interfaces.Query) (sq.Sqlizer, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.IsEmpty() {
		return nil, nil
	}

	and := sq.And{}
	for _, f := range q.Conditions {
		pred, err := buildPredicate(f)
		if err != nil {
			return nil, err
		}
		and = append(and, pred)
	}
	for _, group := range q.OrGroups {
		or := sq.Or{}
		for _, f := range group {
			pred, err := buildPredicate(f)
			if err != nil {
				return nil, err
			}
			or = append(or, pred)
		}
		and = append(and, or)
	}
	return and, nil
}

func buildPredicate(f interfaces.Field) (sq.Sqlizer, error) {
	column, isColumn := columns[f.Name]

	switch f.Operator {
	case interfaces.OpEqual:
		if isColumn {
			return sq.Eq{column: f.Value}, nil
		}
		return jsonEquals(f.Name, f.Value)

	case interfaces.OpNotEqual:
		if isColumn {
			return sq.NotEq{column: f.Value}, nil
		}
		eq, err := jsonEquals(f.Name, f.Value)
		if err != nil {
			return nil, err
		}
		sql, args, err := eq.ToSql()
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT "+sql, args...), nil

	case interfaces.OpIn:
		values := f.Value.([]interface{})
		if len(values) == 0 {
			return sq.Expr("FALSE"), nil
		}
		if isColumn {
			return sq.Eq{column: values}, nil
		}
		or := sq.Or{}
		for _, v := range values {
			eq, err := jsonEquals(f.Name, v)
			if err != nil {
				return nil, err
			}
			or = append(or, eq)
		}
		return or, nil

	case interfaces.OpRegex:
		pattern, ok := f.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: regex value for %s must be a string", interfaces.ErrInvalidFilter, f.Name)
		}
		if isColumn {
			return sq.Expr(column+"::text ~* ?", pattern), nil
		}
		return sq.Expr(jsonText(f.Name)+" ~* ?", pattern), nil

	default:
		op, ok := rangeOperators[f.Operator]
		if !ok {
			return nil, interfaces.ErrInvalidFilter
		}
		if isColumn {
			return sq.Expr(fmt.Sprintf("%s %s ?", column, op), f.Value), nil
		}
		expr := jsonText(f.Name)
		switch f.Value.(type) {
		case time.Time:
			expr = "(" + expr + ")::timestamptz"
		case int, int32, int64, float32, float64:
			expr = "(" + expr + ")::numeric"
		}
		return sq.Expr(fmt.Sprintf("%s %s ?", expr, op), f.Value), nil
	}
}

// jsonEquals matches a scalar field, or an array field holding the value.
func jsonEquals(name string, value interface{}) (sq.Sqlizer, error) {
	if value == nil {
		jv := jsonValue(name)
		return sq.Expr(fmt.Sprintf("(%s IS NULL OR %s = 'null'::jsonb)", jv, jv)), nil
	}
	scalar, err := containment(name, value)
	if err != nil {
		return nil, err
	}
	if isComposite(value) {
		return sq.Expr("data @> ?::jsonb", scalar), nil
	}
	element, err := containment(name, []interface{}{value})
	if err != nil {
		return nil, err
	}
	return sq.Expr("(data @> ?::jsonb OR data @> ?::jsonb)", scalar, element), nil
}

func buildOrderBy(fields []interfaces.SortField) ([]string, error) {
	clauses := make([]string, 0, len(fields))
	for _, s := range fields {
		if !interfaces.ValidFieldName(s.Name) {
			return nil, interfaces.ErrInvalidFilter
		}
		expr, ok := columns[s.Name]
		if !ok {
			expr = jsonValue(s.Name)
		}
		dir := "ASC"
		if s.Direction < 0 {
			dir = "DESC"
		}
		clauses = append(clauses, expr+" "+dir)
	}
	return clauses, nil
}

// buildDataUpdate chains jsonb_set calls that apply sets, increments and the
// updatedAt stamp to the data column.
func buildDataUpdate(updates, increments map[string]interface{}, now time.Time) (sq.Sqlizer, error) {
	expr := "data"
	var args []interface{}

	for _, k := range sortedKeys(updates) {
		if !interfaces.ValidFieldName(k) {
			return nil, interfaces.ErrInvalidFilter
		}
		raw, err := json.Marshal(updates[k])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		expr = fmt.Sprintf("jsonb_set(%s, %s, ?::jsonb, true)", expr, pgPath(k))
		args = append(args, string(raw))
	}

	for _, k := range sortedKeys(increments) {
		if !interfaces.ValidFieldName(k) {
			return nil, interfaces.ErrInvalidFilter
		}
		expr = fmt.Sprintf("jsonb_set(%s, %s, to_jsonb(COALESCE((data #>> %s)::numeric, 0) + ?), true)", expr, pgPath(k), pgPath(k))
		args = append(args, increments[k])
	}

	stamp, err := json.Marshal(now)
	if err != nil {
		return nil, err
	}
	expr = fmt.Sprintf("jsonb_set(%s, '{%s}', ?::jsonb, true)", expr, interfaces.FieldUpdatedAt)
	args = append(args, string(stamp))

	return sq.Expr(expr, args...), nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexStatement(table, collection string, idx interfaces.Index) (string, error) {
	if len(idx.Fields) == 0 {
		return "", fmt.Errorf("%w: index without fields", interfaces.ErrInvalidFilter)
	}
	exprs := make([]string, 0, len(idx.Fields))
	names := make([]string, 0, len(idx.Fields))
	for _, field := range idx.Fields {
		if !interfaces.ValidFieldName(field) {
			return "", interfaces.ErrInvalidFilter
		}
		if column, ok := columns[field]; ok {
			exprs = append(exprs, column)
		} else {
			exprs = append(exprs, "("+jsonText(field)+")")
		}
		names = append(names, strings.ToLower(strings.ReplaceAll(field, ".", "_")))
	}
	kind := "INDEX"
	prefix := "idx"
	if idx.Unique {
		kind = "UNIQUE INDEX"
		prefix = "uniq"
	}
	name := fmt.Sprintf("%s_%s_%s", prefix, collection, strings.Join(names, "_"))
	return fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)", kind, name, table, strings.Join(exprs, ", ")), nil
}
