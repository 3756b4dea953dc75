// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	uuid "github.com/gofrs/uuid"
	"github.com/qolzam/inkwell/internal/database/interfaces"
)

// NewID returns a fresh document identifier.
func NewID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// ToDocument converts an entity or map into its stored JSON shape.
func ToDocument(v interface{}) (interfaces.Document, error) {
	if doc, ok := v.(interfaces.Document); ok {
		return CopyDocument(doc), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc interfaces.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("document must be an object")
	}
	return doc, nil
}

// NormalizeValue converts a Go value into the JSON representation used by
// document backends (numbers become float64, structs become maps).
func NormalizeValue(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeDocument decodes a stored document into out.
func DecodeDocument(doc interfaces.Document, out interface{}) error {
	if target, ok := out.(*interfaces.Document); ok {
		*target = CopyDocument(doc)
		return nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// CopyDocument deep-copies a document.
func CopyDocument(doc interfaces.Document) interfaces.Document {
	if doc == nil {
		return nil
	}
	out := make(interfaces.Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, inner := range t {
			out[k] = copyValue(inner)
		}
		return out
	case interfaces.Document:
		return map[string]interface{}(CopyDocument(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, inner := range t {
			out[i] = copyValue(inner)
		}
		return out
	default:
		return v
	}
}

// GetPath resolves a dotted path inside a document.
func GetPath(doc map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = doc
	for _, part := range parts {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// SetPath assigns a value at a dotted path, creating intermediate objects.
func SetPath(doc map[string]interface{}, path string, value interface{}) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(current[part])
		if !ok {
			next = map[string]interface{}{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// DeletePath removes the value at a dotted path.
func DeletePath(doc map[string]interface{}, path string) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(current[part])
		if !ok {
			return
		}
		current = next
	}
	delete(current, parts[len(parts)-1])
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case interfaces.Document:
		return t, true
	default:
		return nil, false
	}
}

// DocumentID returns the string identifier of a document.
func DocumentID(doc interfaces.Document) string {
	if id, ok := doc[interfaces.FieldID].(string); ok {
		return id
	}
	if id, ok := doc[interfaces.FieldID]; ok && id != nil {
		return fmt.Sprint(id)
	}
	return ""
}
