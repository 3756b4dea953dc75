// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package interfaces

import (
	"context"
	"time"
)

// Repository defines the document store contract shared by every backend.
type Repository interface {
	// Save inserts a single document. Unique index violations return ErrDuplicateKey.
	Save(ctx context.Context, collectionName string, data interface{}) error

	// FindOne decodes the first matching document into out or returns ErrNoDocuments.
	FindOne(ctx context.Context, collectionName string, query *Query, out interface{}) error

	// Find returns a cursor over matching documents.
	Find(ctx context.Context, collectionName string, query *Query, opts *FindOptions) (QueryResult, error)

	// Count returns the number of matching documents.
	Count(ctx context.Context, collectionName string, query *Query) (int64, error)

	// UpdateFields sets fields on every matching document and returns the matched count.
	UpdateFields(ctx context.Context, collectionName string, query *Query, updates map[string]interface{}) (int64, error)

	// IncrementFields adds numeric deltas on every matching document.
	IncrementFields(ctx context.Context, collectionName string, query *Query, increments map[string]interface{}) (int64, error)

	// UpdateAndIncrement combines UpdateFields and IncrementFields in one write.
	UpdateAndIncrement(ctx context.Context, collectionName string, query *Query, updates map[string]interface{}, increments map[string]interface{}) (int64, error)

	// Delete removes every matching document and returns the deleted count.
	Delete(ctx context.Context, collectionName string, query *Query) (int64, error)

	// EnsureCollection creates the collection and its indexes when missing.
	EnsureCollection(ctx context.Context, collectionName string, indexes ...Index) error

	// WithTransaction runs fn atomically. Nested calls join the outer transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Document is a raw stored record keyed by its JSON field names.
type Document map[string]interface{}

// SortField is one key of a multi-key ordering. Direction is 1 or -1.
type SortField struct {
	Name      string
	Direction int
}

// FindOptions represents options for find operations
type FindOptions struct {
	Limit  *int64
	Skip   *int64
	Sort   []SortField
	Select map[string]int
}

// Index describes a secondary index on a collection.
type Index struct {
	Fields []string
	Unique bool
}

// QueryResult represents a query result cursor
type QueryResult interface {
	Next() bool
	Decode(v interface{}) error
	// All decodes every remaining document into out, a pointer to a slice.
	All(out interface{}) error
	Close()
	Error() error
}

// BaseEntity represents the base entity with common fields
type BaseEntity struct {
	ID        string    `json:"_id" bson:"_id"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
	Version   int64     `json:"__v" bson:"__v"`
}

// Touch stamps a new entity with its id and timestamps.
func (b *BaseEntity) Touch(id string, now time.Time) {
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
}

// Reserved document fields.
const (
	FieldID        = "_id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldVersion   = "__v"
)

// Database configuration constants
const (
	DatabaseTypeMongoDB    = "mongodb"
	DatabaseTypePostgreSQL = "postgresql"
	DatabaseTypeMemory     = "memory"
)

// Common errors
var (
	ErrNoDocuments          = NewRepositoryError("no documents found", "NOT_FOUND")
	ErrDuplicateKey         = NewRepositoryError("duplicate key error", "DUPLICATE_KEY")
	ErrInvalidFilter        = NewRepositoryError("invalid filter", "INVALID_FILTER")
	ErrInvalidProjection    = NewRepositoryError("invalid projection", "INVALID_PROJECTION")
	ErrConnectionFailed     = NewRepositoryError("database connection failed", "CONNECTION_FAILED")
	ErrTransactionFailed    = NewRepositoryError("transaction failed", "TRANSACTION_FAILED")
	ErrUnsupportedOperation = NewRepositoryError("unsupported operation", "UNSUPPORTED_OPERATION")
)

// RepositoryError represents a repository specific error
type RepositoryError struct {
	Message string
	Code    string
}

func (e *RepositoryError) Error() string {
	return e.Message
}

// NewRepositoryError creates a new repository error
func NewRepositoryError(message, code string) *RepositoryError {
	return &RepositoryError{
		Message: message,
		Code:    code,
	}
}
