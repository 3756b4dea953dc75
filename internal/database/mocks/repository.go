// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mocks

import (
	"context"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a testify mock of interfaces.Repository.
type MockRepository struct {
	mock.Mock
}

var _ interfaces.Repository = (*MockRepository)(nil)

func (m *MockRepository) Save(ctx context.Context, collectionName string, data interface{}) error {
	args := m.Called(ctx, collectionName, data)
	return args.Error(0)
}

func (m *MockRepository) FindOne(ctx context.Context, collectionName string, query *interfaces.Query, out interface{}) error {
	args := m.Called(ctx, collectionName, query, out)
	return args.Error(0)
}

func (m *MockRepository) Find(ctx context.Context, collectionName string, query *interfaces.Query, opts *interfaces.FindOptions) (interfaces.QueryResult, error) {
	args := m.Called(ctx, collectionName, query, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(interfaces.QueryResult), args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context, collectionName string, query *interfaces.Query) (int64, error) {
	args := m.Called(ctx, collectionName, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) UpdateFields(ctx context.Context, collectionName string, query *interfaces.Query, updates map[string]interface{}) (int64, error) {
	args := m.Called(ctx, collectionName, query, updates)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) IncrementFields(ctx context.Context, collectionName string, query *interfaces.Query, increments map[string]interface{}) (int64, error) {
	args := m.Called(ctx, collectionName, query, increments)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) UpdateAndIncrement(ctx context.Context, collectionName string, query *interfaces.Query, updates map[string]interface{}, increments map[string]interface{}) (int64, error) {
	args := m.Called(ctx, collectionName, query, updates, increments)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, collectionName string, query *interfaces.Query) (int64, error) {
	args := m.Called(ctx, collectionName, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) EnsureCollection(ctx context.Context, collectionName string, indexes ...interfaces.Index) error {
	args := m.Called(ctx, collectionName, indexes)
	return args.Error(0)
}

// WithTransaction runs fn directly unless an error is configured.
func (m *MockRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
