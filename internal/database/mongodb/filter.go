// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"fmt"
	"time"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var rangeOperators = map[string]string{
	interfaces.OpGreater: "$gt",
	interfaces.OpGTE:     "$gte",
	interfaces.OpLess:    "$lt",
	interfaces.OpLTE:     "$lte",
}

// buildFilter converts a Query into a MongoDB filter document.
func buildFilter(q *interfaces.Query) (bson.M, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.IsEmpty() {
		return bson.M{}, nil
	}

	var clauses []bson.M
	for _, f := range q.Conditions {
		clause, err := buildClause(f)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}
	for _, group := range q.OrGroups {
		alternatives := make(bson.A, 0, len(group))
		for _, f := range group {
			clause, err := buildClause(f)
			if err != nil {
				return nil, err
			}
			alternatives = append(alternatives, clause)
		}
		clauses = append(clauses, bson.M{"$or": alternatives})
	}

	if len(clauses) == 1 {
		return clauses[0], nil
	}
	and := make(bson.A, 0, len(clauses))
	for _, c := range clauses {
		and = append(and, c)
	}
	return bson.M{"$and": and}, nil
}

func buildClause(f interfaces.Field) (bson.M, error) {
	switch f.Operator {
	case interfaces.OpEqual:
		return bson.M{f.Name: f.Value}, nil
	case interfaces.OpNotEqual:
		return bson.M{f.Name: bson.M{"$ne": f.Value}}, nil
	case interfaces.OpIn:
		values := f.Value.([]interface{})
		return bson.M{f.Name: bson.M{"$in": append(bson.A{}, values...)}}, nil
	case interfaces.OpRegex:
		pattern, ok := f.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: regex value for %s must be a string", interfaces.ErrInvalidFilter, f.Name)
		}
		return bson.M{f.Name: primitive.Regex{Pattern: pattern, Options: "i"}}, nil
	default:
		op, ok := rangeOperators[f.Operator]
		if !ok {
			return nil, interfaces.ErrInvalidFilter
		}
		return bson.M{f.Name: bson.M{op: f.Value}}, nil
	}
}

func buildSort(fields []interfaces.SortField) bson.D {
	sort := bson.D{}
	for _, s := range fields {
		dir := 1
		if s.Direction < 0 {
			dir = -1
		}
		sort = append(sort, bson.E{Key: s.Name, Value: dir})
	}
	return sort
}

func buildProjection(sel map[string]int) bson.M {
	projection := bson.M{}
	for name, flag := range sel {
		projection[name] = flag
	}
	return projection
}

func buildUpdate(updates, increments map[string]interface{}, now time.Time) bson.M {
	set := bson.M{interfaces.FieldUpdatedAt: now}
	for k, v := range updates {
		set[k] = v
	}
	update := bson.M{"$set": set}
	if len(increments) > 0 {
		inc := bson.M{}
		for k, v := range increments {
			inc[k] = v
		}
		update["$inc"] = inc
	}
	return update
}

// normalize converts driver-specific decoded values into plain Go values so
// documents look the same regardless of backend.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]interface{}, len(t))
		for k, inner := range t {
			out[k] = normalize(inner)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, inner := range t {
			out[k] = normalize(inner)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(t))
		for i, inner := range t {
			out[i] = normalize(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, inner := range t {
			out[i] = normalize(inner)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case int32:
		return int64(t)
	default:
		return v
	}
}

func toDocument(m bson.M) interfaces.Document {
	return interfaces.Document(normalize(m).(map[string]interface{}))
}
