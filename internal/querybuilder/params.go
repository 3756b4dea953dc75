// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package querybuilder

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/qolzam/inkwell/internal/database/interfaces"
)

// splitList splits a parameter on commas and whitespace.
func splitList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// positive parses a strictly positive integer parameter.
func positive(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func pageAndLimit(params url.Values, s Settings) (page, limit int) {
	page, ok := positive(params.Get(ParamPage))
	if !ok {
		page = DefaultPage
	}
	limit, ok = positive(params.Get(ParamLimit))
	if !ok {
		limit = s.DefaultLimit
	}
	if s.MaxLimit > 0 && limit > s.MaxLimit {
		limit = s.MaxLimit
	}
	return page, limit
}

// parseSort turns "title,-createdAt" into sort keys with an _id tiebreaker
// so paging over equal keys is stable. Invalid keys are skipped.
func parseSort(raw string) []interfaces.SortField {
	var keys []interfaces.SortField
	seen := map[string]bool{}
	for _, token := range splitList(raw) {
		dir := 1
		switch token[0] {
		case '-':
			dir, token = -1, token[1:]
		case '+':
			token = token[1:]
		}
		if !interfaces.ValidFieldName(token) || seen[token] {
			continue
		}
		seen[token] = true
		keys = append(keys, interfaces.SortField{Name: token, Direction: dir})
	}
	if len(keys) == 0 {
		keys = []interfaces.SortField{{Name: interfaces.FieldCreatedAt, Direction: -1}}
		seen[interfaces.FieldCreatedAt] = true
	}
	if !seen[interfaces.FieldID] {
		keys = append(keys, interfaces.SortField{Name: interfaces.FieldID, Direction: 1})
	}
	return keys
}

// parseFields turns "title,slug" or "-content" into a projection. When
// inclusions and exclusions are mixed the exclusions are ignored, except
// for _id. Hidden fields are always excluded.
func parseFields(raw string, hidden []string) map[string]int {
	isHidden := make(map[string]bool, len(hidden))
	for _, h := range hidden {
		isHidden[h] = true
	}

	include := map[string]int{}
	exclude := map[string]int{}
	for _, token := range splitList(raw) {
		excluded := false
		switch token[0] {
		case '-':
			excluded, token = true, token[1:]
		case '+':
			token = token[1:]
		}
		if !interfaces.ValidFieldName(token) {
			continue
		}
		if excluded {
			exclude[token] = 0
			continue
		}
		if isHidden[token] || token == interfaces.FieldVersion {
			continue
		}
		include[token] = 1
	}

	if len(include) > 0 {
		if _, ok := exclude[interfaces.FieldID]; ok {
			include[interfaces.FieldID] = 0
		}
		return include
	}

	exclude[interfaces.FieldVersion] = 0
	for _, h := range hidden {
		exclude[h] = 0
	}
	return exclude
}

func copyProjection(p map[string]int) map[string]int {
	out := make(map[string]int, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func coerce(raw string, kind FieldKind) (interface{}, error) {
	switch kind {
	case KindBool:
		return strconv.ParseBool(strings.TrimSpace(raw))
	case KindNumber:
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	default:
		return raw, nil
	}
}
