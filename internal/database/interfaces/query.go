// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package interfaces

import "regexp"

// Supported operators for Field.
const (
	OpEqual    = "="
	OpNotEqual = "<>"
	OpIn       = "IN"
	OpRegex    = "~*" // case-insensitive regular expression
	OpGreater  = ">"
	OpGTE      = ">="
	OpLess     = "<"
	OpLTE      = "<="
)

// Field represents a single predicate on a document field.
// Name is the document path in dotted form (e.g. "author", "category").
type Field struct {
	Name     string
	Value    interface{}
	Operator string
}

// Query defines a structured, database-agnostic query.
// Conditions are AND-ed; each OR group must have at least one matching field.
type Query struct {
	Conditions []Field
	OrGroups   [][]Field
}

// NewQuery returns a query holding the given AND conditions.
func NewQuery(conditions ...Field) *Query {
	return &Query{Conditions: conditions}
}

// Eq builds an equality condition.
func Eq(name string, value interface{}) Field {
	return Field{Name: name, Value: value, Operator: OpEqual}
}

// Ne builds a not-equal condition. Documents missing the field match.
func Ne(name string, value interface{}) Field {
	return Field{Name: name, Value: value, Operator: OpNotEqual}
}

// In builds a membership condition. An empty list matches nothing.
func In(name string, values ...interface{}) Field {
	return Field{Name: name, Value: values, Operator: OpIn}
}

// Gte builds a lower-bound condition.
func Gte(name string, value interface{}) Field {
	return Field{Name: name, Value: value, Operator: OpGTE}
}

// Lt builds a strict upper-bound condition.
func Lt(name string, value interface{}) Field {
	return Field{Name: name, Value: value, Operator: OpLess}
}

// And returns a copy of q with the extra conditions appended.
func (q *Query) And(conditions ...Field) *Query {
	out := q.Clone()
	out.Conditions = append(out.Conditions, conditions...)
	return out
}

// Clone returns a copy that shares no slices with q.
func (q *Query) Clone() *Query {
	if q == nil {
		return &Query{}
	}
	out := &Query{
		Conditions: append([]Field(nil), q.Conditions...),
	}
	for _, group := range q.OrGroups {
		out.OrGroups = append(out.OrGroups, append([]Field(nil), group...))
	}
	return out
}

// IsEmpty reports whether the query matches every document.
func (q *Query) IsEmpty() bool {
	return q == nil || (len(q.Conditions) == 0 && len(q.OrGroups) == 0)
}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidFieldName reports whether name is safe to use as a document path
// in sorts, projections and predicates.
func ValidFieldName(name string) bool {
	return fieldNamePattern.MatchString(name)
}

// Validate checks operators and field names.
func (q *Query) Validate() error {
	if q == nil {
		return nil
	}
	check := func(f Field) error {
		if !ValidFieldName(f.Name) {
			return ErrInvalidFilter
		}
		switch f.Operator {
		case OpEqual, OpNotEqual, OpRegex, OpGreater, OpGTE, OpLess, OpLTE:
			return nil
		case OpIn:
			if _, ok := f.Value.([]interface{}); !ok {
				return ErrInvalidFilter
			}
			return nil
		default:
			return ErrInvalidFilter
		}
	}
	for _, f := range q.Conditions {
		if err := check(f); err != nil {
			return err
		}
	}
	for _, group := range q.OrGroups {
		for _, f := range group {
			if err := check(f); err != nil {
				return err
			}
		}
	}
	return nil
}
