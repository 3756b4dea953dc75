// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package memory

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/utils"
)

// matcher evaluates a Query against stored documents.
type matcher struct {
	query   *interfaces.Query
	regexes map[string]*regexp.Regexp
}

func newMatcher(q *interfaces.Query) (*matcher, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	m := &matcher{query: q, regexes: map[string]*regexp.Regexp{}}
	compile := func(f interfaces.Field) error {
		if f.Operator != interfaces.OpRegex {
			return nil
		}
		pattern, ok := f.Value.(string)
		if !ok {
			return fmt.Errorf("%w: regex value for %s must be a string", interfaces.ErrInvalidFilter, f.Name)
		}
		if _, done := m.regexes[pattern]; done {
			return nil
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return fmt.Errorf("%w: %v", interfaces.ErrInvalidFilter, err)
		}
		m.regexes[pattern] = re
		return nil
	}
	if q != nil {
		for _, f := range q.Conditions {
			if err := compile(f); err != nil {
				return nil, err
			}
		}
		for _, group := range q.OrGroups {
			for _, f := range group {
				if err := compile(f); err != nil {
					return nil, err
				}
			}
		}
	}
	return m, nil
}

func (m *matcher) matches(doc interfaces.Document) bool {
	if m.query == nil {
		return true
	}
	for _, f := range m.query.Conditions {
		if !m.matchField(doc, f) {
			return false
		}
	}
	for _, group := range m.query.OrGroups {
		matched := false
		for _, f := range group {
			if m.matchField(doc, f) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func (m *matcher) matchField(doc interfaces.Document, f interfaces.Field) bool {
	stored, present := utils.GetPath(doc, f.Name)
	switch f.Operator {
	case interfaces.OpEqual:
		return equalsStored(stored, present, f.Value)
	case interfaces.OpNotEqual:
		return !equalsStored(stored, present, f.Value)
	case interfaces.OpIn:
		for _, candidate := range f.Value.([]interface{}) {
			if equalsStored(stored, present, candidate) {
				return true
			}
		}
		return false
	case interfaces.OpRegex:
		re := m.regexes[f.Value.(string)]
		return anyElement(stored, present, func(v interface{}) bool {
			s, ok := v.(string)
			return ok && re.MatchString(s)
		})
	default:
		return anyElement(stored, present, func(v interface{}) bool {
			cmp, ok := compareValues(v, f.Value)
			if !ok {
				return false
			}
			switch f.Operator {
			case interfaces.OpGreater:
				return cmp > 0
			case interfaces.OpGTE:
				return cmp >= 0
			case interfaces.OpLess:
				return cmp < 0
			case interfaces.OpLTE:
				return cmp <= 0
			}
			return false
		})
	}
}

// anyElement applies pred to a scalar, or to each element of an array value.
func anyElement(stored interface{}, present bool, pred func(interface{}) bool) bool {
	if !present {
		return false
	}
	if arr, ok := stored.([]interface{}); ok {
		for _, v := range arr {
			if pred(v) {
				return true
			}
		}
		return false
	}
	return pred(stored)
}

func equalsStored(stored interface{}, present bool, want interface{}) bool {
	if want == nil {
		return !present || stored == nil
	}
	if !present {
		return false
	}
	if arr, ok := stored.([]interface{}); ok {
		if wantArr, isArr := want.([]interface{}); isArr {
			return reflect.DeepEqual(arr, wantArr)
		}
		for _, v := range arr {
			if equalScalar(v, want) {
				return true
			}
		}
		return false
	}
	return equalScalar(stored, want)
}

func equalScalar(a, b interface{}) bool {
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	if _, ok := b.(bool); ok {
		return false
	}
	cmp, ok := compareValues(a, b)
	return ok && cmp == 0
}

// compareValues orders two scalars of compatible kinds: numbers, times
// (including RFC 3339 strings) and strings.
func compareValues(a, b interface{}) (int, bool) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return compareFloat(af, bf), true
		}
		return 0, false
	}
	at, aTime := toTime(a)
	bt, bTime := toTime(b)
	if aTime && bTime {
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		default:
			return 0, true
		}
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if len(t) < len("2006-01-02T15:04:05Z") {
			return time.Time{}, false
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}

// typeRank mirrors the cross-type ordering used by document databases:
// missing/null < numbers < strings < objects < arrays < booleans < dates.
func typeRank(v interface{}, present bool) int {
	if !present || v == nil {
		return 0
	}
	if _, ok := toFloat(v); ok {
		return 1
	}
	if _, ok := toTime(v); ok {
		return 6
	}
	switch v.(type) {
	case string:
		return 2
	case map[string]interface{}:
		return 3
	case []interface{}:
		return 4
	case bool:
		return 5
	}
	return 7
}

func compareForSort(a interface{}, aok bool, b interface{}, bok bool) int {
	ra, rb := typeRank(a, aok), typeRank(b, bok)
	if ra != rb {
		return ra - rb
	}
	if ra == 0 {
		return 0
	}
	if ra == 5 {
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	}
	if cmp, ok := compareValues(a, b); ok {
		return cmp
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
