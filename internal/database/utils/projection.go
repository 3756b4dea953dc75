// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package utils

import (
	"github.com/qolzam/inkwell/internal/database/interfaces"
)

// ProjectionMode reports whether a projection includes or excludes fields.
// Mixing inclusion and exclusion is rejected, except for _id.
func ProjectionMode(sel map[string]int) (inclusive bool, err error) {
	var includes, excludes int
	for name, flag := range sel {
		if name == interfaces.FieldID {
			continue
		}
		if flag == 0 {
			excludes++
		} else {
			includes++
		}
	}
	if includes > 0 && excludes > 0 {
		return false, interfaces.ErrInvalidProjection
	}
	return includes > 0, nil
}

// ApplyProjection returns a projected copy of doc.
func ApplyProjection(doc interfaces.Document, sel map[string]int) (interfaces.Document, error) {
	if len(sel) == 0 {
		return doc, nil
	}
	inclusive, err := ProjectionMode(sel)
	if err != nil {
		return nil, err
	}

	if !inclusive {
		out := CopyDocument(doc)
		for name, flag := range sel {
			if flag == 0 {
				DeletePath(out, name)
			}
		}
		return out, nil
	}

	out := interfaces.Document{}
	if flag, ok := sel[interfaces.FieldID]; !ok || flag != 0 {
		if id, found := doc[interfaces.FieldID]; found {
			out[interfaces.FieldID] = id
		}
	}
	for name, flag := range sel {
		if flag == 0 || name == interfaces.FieldID {
			continue
		}
		if value, ok := GetPath(doc, name); ok {
			SetPath(out, name, copyValue(value))
		}
	}
	return out, nil
}
