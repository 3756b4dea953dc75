// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package postgresql stores documents as JSONB rows, one table per collection.
package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/postgres"
	"github.com/qolzam/inkwell/internal/database/utils"
	"github.com/qolzam/inkwell/internal/pkg/log"
)

var _ interfaces.Repository = (*PostgreSQLRepository)(nil)

// PostgreSQLRepository implements the Repository interface for PostgreSQL
type PostgreSQLRepository struct {
	client *postgres.Client
	dbName string
	schema string
	tables sync.Map
}

// NewPostgreSQLRepository connects and prepares the schema.
func NewPostgreSQLRepository(ctx context.Context, config *interfaces.PostgreSQLConfig, databaseName string) (*PostgreSQLRepository, error) {
	client, err := postgres.NewClient(ctx, config, databaseName)
	if err != nil {
		return nil, err
	}

	repo, err := NewPostgreSQLRepositoryFromClient(ctx, client, config.Schema)
	if err != nil {
		client.Close()
		return nil, err
	}
	repo.dbName = databaseName
	return repo, nil
}

// NewPostgreSQLRepositoryFromClient builds a repository over an existing client.
func NewPostgreSQLRepositoryFromClient(ctx context.Context, client *postgres.Client, schema string) (*PostgreSQLRepository, error) {
	if schema == "" {
		schema = "public"
	}
	if !validIdent(schema) {
		return nil, fmt.Errorf("invalid schema name %q", schema)
	}

	repo := &PostgreSQLRepository{client: client, schema: schema}
	if _, err := client.DB().ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema)); err != nil {
		log.Error("PostgreSQL schema initialization error: %s", err.Error())
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return repo, nil
}

func (r *PostgreSQLRepository) tableName(collectionName string) string {
	return fmt.Sprintf("%s.%s", r.schema, collectionName)
}

// ensureTable creates the backing table once per process.
func (r *PostgreSQLRepository) ensureTable(ctx context.Context, collectionName string) (string, error) {
	if !validIdent(collectionName) {
		return "", fmt.Errorf("%w: invalid collection name %q", interfaces.ErrInvalidFilter, collectionName)
	}
	table := r.tableName(collectionName)
	if _, ok := r.tables.Load(collectionName); ok {
		return table, nil
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at, id)", collectionName, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_data_gin ON %s USING GIN (data)", collectionName, table),
	}
	for _, stmt := range stmts {
		if _, err := r.client.DB().ExecContext(ctx, stmt); err != nil {
			if pgErr, ok := err.(*pq.Error); ok && (pgErr.Code == "42P07" || pgErr.Code == "23505") {
				// created concurrently by another process
				continue
			}
			return "", fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	r.tables.Store(collectionName, struct{}{})
	return table, nil
}

func mapError(err error) error {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", interfaces.ErrDuplicateKey, pgErr.Message)
	}
	return err
}

// Save stores a single document
func (r *PostgreSQLRepository) Save(ctx context.Context, collectionName string, data interface{}) error {
	table, err := r.ensureTable(ctx, collectionName)
	if err != nil {
		return err
	}

	doc, err := utils.ToDocument(data)
	if err != nil {
		return err
	}
	id := utils.DocumentID(doc)
	if id == "" {
		id = utils.NewID()
		doc[interfaces.FieldID] = id
	}
	now := time.Now().UTC()
	createdAt := timestampOf(doc, interfaces.FieldCreatedAt, now)
	updatedAt := timestampOf(doc, interfaces.FieldUpdatedAt, createdAt)
	doc[interfaces.FieldCreatedAt] = createdAt
	doc[interfaces.FieldUpdatedAt] = updatedAt

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	query, args, err := psql.Insert(table).
		Columns("id", "data", "created_at", "updated_at").
		Values(id, string(raw), createdAt, updatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.client.Runner(ctx).ExecContext(ctx, query, args...); err != nil {
		log.Error("PostgreSQL Save error: %s", err.Error())
		return mapError(err)
	}
	return nil
}

func timestampOf(doc interfaces.Document, field string, fallback time.Time) time.Time {
	switch v := doc[field].(type) {
	case time.Time:
		if !v.IsZero() {
			return v.UTC()
		}
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil && !t.IsZero() {
			return t.UTC()
		}
	}
	return fallback
}

// FindOne retrieves the first matching document
func (r *PostgreSQLRepository) FindOne(ctx context.Context, collectionName string, query *interfaces.Query, out interface{}) error {
	one := int64(1)
	docs, err := r.find(ctx, collectionName, query, &interfaces.FindOptions{Limit: &one})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return interfaces.ErrNoDocuments
	}
	return utils.DecodeDocument(docs[0], out)
}

// Find retrieves multiple documents
func (r *PostgreSQLRepository) Find(ctx context.Context, collectionName string, query *interfaces.Query, opts *interfaces.FindOptions) (interfaces.QueryResult, error) {
	docs, err := r.find(ctx, collectionName, query, opts)
	if err != nil {
		return nil, err
	}
	return utils.NewDocumentCursor(docs), nil
}

func (r *PostgreSQLRepository) selectBuilder(table string, query *interfaces.Query, opts *interfaces.FindOptions) (sq.SelectBuilder, error) {
	sb := psql.Select("data").From(table)
	where, err := buildWhere(query)
	if err != nil {
		return sb, err
	}
	if where != nil {
		sb = sb.Where(where)
	}
	if opts == nil {
		return sb, nil
	}
	if len(opts.Sort) > 0 {
		order, err := buildOrderBy(opts.Sort)
		if err != nil {
			return sb, err
		}
		sb = sb.OrderBy(order...)
	}
	if opts.Limit != nil && *opts.Limit > 0 {
		sb = sb.Limit(uint64(*opts.Limit))
	}
	if opts.Skip != nil && *opts.Skip > 0 {
		sb = sb.Offset(uint64(*opts.Skip))
	}
	return sb, nil
}

func (r *PostgreSQLRepository) find(ctx context.Context, collectionName string, query *interfaces.Query, opts *interfaces.FindOptions) ([]interfaces.Document, error) {
	var sel map[string]int
	if opts != nil {
		sel = opts.Select
	}
	if _, err := utils.ProjectionMode(sel); err != nil {
		return nil, err
	}

	table, err := r.ensureTable(ctx, collectionName)
	if err != nil {
		return nil, err
	}
	sb, err := r.selectBuilder(table, query, opts)
	if err != nil {
		return nil, err
	}
	stmt, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.client.Runner(ctx).QueryxContext(ctx, stmt, args...)
	if err != nil {
		log.Error("PostgreSQL Find error: %s", err.Error())
		return nil, mapError(err)
	}
	defer rows.Close()

	var docs []interfaces.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc interfaces.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		projected, err := utils.ApplyProjection(doc, sel)
		if err != nil {
			return nil, err
		}
		docs = append(docs, projected)
	}
	return docs, rows.Err()
}

// Count returns the number of matching documents
func (r *PostgreSQLRepository) Count(ctx context.Context, collectionName string, query *interfaces.Query) (int64, error) {
	table, err := r.ensureTable(ctx, collectionName)
	if err != nil {
		return 0, err
	}
	sb := psql.Select("COUNT(*)").From(table)
	where, err := buildWhere(query)
	if err != nil {
		return 0, err
	}
	if where != nil {
		sb = sb.Where(where)
	}
	stmt, args, err := sb.ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := sqlx.GetContext(ctx, r.client.Runner(ctx), &count, stmt, args...); err != nil {
		log.Error("PostgreSQL Count error: %s", err.Error())
		return 0, mapError(err)
	}
	return count, nil
}

// UpdateFields sets fields on matching documents
func (r *PostgreSQLRepository) UpdateFields(ctx context.Context, collectionName string, query *interfaces.Query, updates map[string]interface{}) (int64, error) {
	return r.UpdateAndIncrement(ctx, collectionName, query, updates, nil)
}

// IncrementFields adds deltas to numeric fields
func (r *PostgreSQLRepository) IncrementFields(ctx context.Context, collectionName string, query *interfaces.Query, increments map[string]interface{}) (int64, error) {
	return r.UpdateAndIncrement(ctx, collectionName, query, nil, increments)
}

// UpdateAndIncrement applies sets and increments in a single UPDATE
func (r *PostgreSQLRepository) UpdateAndIncrement(ctx context.Context, collectionName string, query *interfaces.Query, updates map[string]interface{}, increments map[string]interface{}) (int64, error) {
	table, err := r.ensureTable(ctx, collectionName)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	dataExpr, err := buildDataUpdate(updates, increments, now)
	if err != nil {
		return 0, err
	}

	ub := psql.Update(table).Set("data", dataExpr).Set("updated_at", now)
	where, err := buildWhere(query)
	if err != nil {
		return 0, err
	}
	if where != nil {
		ub = ub.Where(where)
	}
	stmt, args, err := ub.ToSql()
	if err != nil {
		return 0, err
	}

	res, err := r.client.Runner(ctx).ExecContext(ctx, stmt, args...)
	if err != nil {
		log.Error("PostgreSQL UpdateAndIncrement error: %s", err.Error())
		return 0, mapError(err)
	}
	return res.RowsAffected()
}

// Delete removes matching documents
func (r *PostgreSQLRepository) Delete(ctx context.Context, collectionName string, query *interfaces.Query) (int64, error) {
	table, err := r.ensureTable(ctx, collectionName)
	if err != nil {
		return 0, err
	}
	db := psql.Delete(table)
	where, err := buildWhere(query)
	if err != nil {
		return 0, err
	}
	if where != nil {
		db = db.Where(where)
	}
	stmt, args, err := db.ToSql()
	if err != nil {
		return 0, err
	}

	res, err := r.client.Runner(ctx).ExecContext(ctx, stmt, args...)
	if err != nil {
		log.Error("PostgreSQL Delete error: %s", err.Error())
		return 0, mapError(err)
	}
	return res.RowsAffected()
}

// EnsureCollection creates the table and its expression indexes
func (r *PostgreSQLRepository) EnsureCollection(ctx context.Context, collectionName string, indexes ...interfaces.Index) error {
	table, err := r.ensureTable(ctx, collectionName)
	if err != nil {
		return err
	}
	for _, idx := range indexes {
		stmt, err := indexStatement(table, collectionName, idx)
		if err != nil {
			return err
		}
		if _, err := r.client.DB().ExecContext(ctx, stmt); err != nil {
			log.Error("PostgreSQL index error on %s(%s): %s", collectionName, strings.Join(idx.Fields, ","), err.Error())
			return mapError(err)
		}
	}
	return nil
}

// WithTransaction executes fn within a transaction; nested calls join it
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.client.InTransaction(ctx, fn)
}

// Ping checks the connection
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

// Close closes the connection pool
func (r *PostgreSQLRepository) Close() error {
	return r.client.Close()
}
