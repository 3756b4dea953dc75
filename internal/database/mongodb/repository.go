// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/utils"
	"github.com/qolzam/inkwell/internal/pkg/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ interfaces.Repository = (*MongoRepository)(nil)

// MongoRepository implements the Repository interface for MongoDB
type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	dbName   string
}

// MongoQueryResult implements QueryResult for MongoDB
type MongoQueryResult struct {
	cursor *mongo.Cursor
	ctx    context.Context
	err    error
}

// NewMongoRepository creates a new MongoDB repository
func NewMongoRepository(ctx context.Context, config *interfaces.MongoDBConfig, databaseName string) (*MongoRepository, error) {
	clientOptions := options.Client().ApplyURI(buildConnectionURI(config))

	if config.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(uint64(config.MaxPoolSize))
	}
	if config.MinPoolSize > 0 {
		clientOptions.SetMinPoolSize(uint64(config.MinPoolSize))
	}
	if config.ConnectTimeout > 0 {
		clientOptions.SetConnectTimeout(time.Duration(config.ConnectTimeout) * time.Second)
	}
	if config.SocketTimeout > 0 {
		clientOptions.SetSocketTimeout(time.Duration(config.SocketTimeout) * time.Second)
	}
	if config.ServerSelectionTimeout > 0 {
		clientOptions.SetServerSelectionTimeout(time.Duration(config.ServerSelectionTimeout) * time.Second)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoRepository{
		client:   client,
		database: client.Database(databaseName),
		dbName:   databaseName,
	}, nil
}

// buildConnectionURI builds MongoDB connection URI from config
func buildConnectionURI(config *interfaces.MongoDBConfig) string {
	if config.URI != "" {
		return config.URI
	}

	uri := "mongodb://"
	if config.Username != "" && config.Password != "" {
		uri += fmt.Sprintf("%s:%s@", config.Username, config.Password)
	}
	uri += fmt.Sprintf("%s:%d", config.Host, config.Port)

	sep := "/?"
	if config.AuthSource != "" {
		uri += fmt.Sprintf("%sauthSource=%s", sep, config.AuthSource)
		sep = "&"
	}
	if config.ReplicaSet != "" {
		uri += fmt.Sprintf("%sreplicaSet=%s", sep, config.ReplicaSet)
		sep = "&"
	}
	if config.TLS {
		uri += sep + "ssl=true"
	}
	return uri
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return interfaces.ErrNoDocuments
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", interfaces.ErrDuplicateKey, err)
	default:
		return err
	}
}

// Save stores a single document
func (r *MongoRepository) Save(ctx context.Context, collectionName string, data interface{}) error {
	if doc, ok := data.(interfaces.Document); ok {
		doc = utils.CopyDocument(doc)
		if utils.DocumentID(doc) == "" {
			doc[interfaces.FieldID] = utils.NewID()
		}
		if _, ok := doc[interfaces.FieldCreatedAt]; !ok {
			now := time.Now().UTC()
			doc[interfaces.FieldCreatedAt] = now
			doc[interfaces.FieldUpdatedAt] = now
		}
		data = bson.M(doc)
	}

	if _, err := r.database.Collection(collectionName).InsertOne(ctx, data); err != nil {
		log.Error("MongoDB Save error: %s", err.Error())
		return mapError(err)
	}
	return nil
}

// FindOne retrieves a single document
func (r *MongoRepository) FindOne(ctx context.Context, collectionName string, query *interfaces.Query, out interface{}) error {
	filter, err := buildFilter(query)
	if err != nil {
		return err
	}

	result := r.database.Collection(collectionName).FindOne(ctx, filter)
	if err := result.Err(); err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			log.Error("MongoDB FindOne error: %s", err.Error())
		}
		return mapError(err)
	}

	if target, ok := out.(*interfaces.Document); ok {
		var raw bson.M
		if err := result.Decode(&raw); err != nil {
			return err
		}
		*target = toDocument(raw)
		return nil
	}
	return result.Decode(out)
}

// Find retrieves multiple documents
func (r *MongoRepository) Find(ctx context.Context, collectionName string, query *interfaces.Query, opts *interfaces.FindOptions) (interfaces.QueryResult, error) {
	filter, err := buildFilter(query)
	if err != nil {
		return nil, err
	}

	findOptions := options.Find()
	if opts != nil {
		if opts.Limit != nil {
			findOptions.SetLimit(*opts.Limit)
		}
		if opts.Skip != nil {
			findOptions.SetSkip(*opts.Skip)
		}
		if len(opts.Sort) > 0 {
			findOptions.SetSort(buildSort(opts.Sort))
		}
		if len(opts.Select) > 0 {
			if _, err := utils.ProjectionMode(opts.Select); err != nil {
				return nil, err
			}
			findOptions.SetProjection(buildProjection(opts.Select))
		}
	}

	cursor, err := r.database.Collection(collectionName).Find(ctx, filter, findOptions)
	if err != nil {
		log.Error("MongoDB Find error: %s", err.Error())
		return nil, mapError(err)
	}
	return &MongoQueryResult{cursor: cursor, ctx: ctx}, nil
}

// Count returns the number of matching documents
func (r *MongoRepository) Count(ctx context.Context, collectionName string, query *interfaces.Query) (int64, error) {
	filter, err := buildFilter(query)
	if err != nil {
		return 0, err
	}
	count, err := r.database.Collection(collectionName).CountDocuments(ctx, filter)
	if err != nil {
		log.Error("MongoDB Count error: %s", err.Error())
		return 0, mapError(err)
	}
	return count, nil
}

// UpdateFields sets fields on matching documents
func (r *MongoRepository) UpdateFields(ctx context.Context, collectionName string, query *interfaces.Query, updates map[string]interface{}) (int64, error) {
	return r.UpdateAndIncrement(ctx, collectionName, query, updates, nil)
}

// IncrementFields adds deltas to numeric fields
func (r *MongoRepository) IncrementFields(ctx context.Context, collectionName string, query *interfaces.Query, increments map[string]interface{}) (int64, error) {
	return r.UpdateAndIncrement(ctx, collectionName, query, nil, increments)
}

// UpdateAndIncrement applies $set and $inc in a single update
func (r *MongoRepository) UpdateAndIncrement(ctx context.Context, collectionName string, query *interfaces.Query, updates map[string]interface{}, increments map[string]interface{}) (int64, error) {
	filter, err := buildFilter(query)
	if err != nil {
		return 0, err
	}
	for k := range updates {
		if !interfaces.ValidFieldName(k) {
			return 0, interfaces.ErrInvalidFilter
		}
	}
	for k := range increments {
		if !interfaces.ValidFieldName(k) {
			return 0, interfaces.ErrInvalidFilter
		}
	}

	res, err := r.database.Collection(collectionName).UpdateMany(ctx, filter, buildUpdate(updates, increments, time.Now().UTC()))
	if err != nil {
		log.Error("MongoDB UpdateAndIncrement error: %s", err.Error())
		return 0, mapError(err)
	}
	return res.MatchedCount, nil
}

// Delete removes matching documents
func (r *MongoRepository) Delete(ctx context.Context, collectionName string, query *interfaces.Query) (int64, error) {
	filter, err := buildFilter(query)
	if err != nil {
		return 0, err
	}
	res, err := r.database.Collection(collectionName).DeleteMany(ctx, filter)
	if err != nil {
		log.Error("MongoDB Delete error: %s", err.Error())
		return 0, mapError(err)
	}
	return res.DeletedCount, nil
}

// EnsureCollection creates the requested indexes. Collections are created lazily by MongoDB.
func (r *MongoRepository) EnsureCollection(ctx context.Context, collectionName string, indexes ...interfaces.Index) error {
	if len(indexes) == 0 {
		return nil
	}
	models := make([]mongo.IndexModel, 0, len(indexes))
	for _, idx := range indexes {
		keys := bson.D{}
		for _, field := range idx.Fields {
			if !interfaces.ValidFieldName(field) {
				return interfaces.ErrInvalidFilter
			}
			keys = append(keys, bson.E{Key: field, Value: 1})
		}
		models = append(models, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(idx.Unique),
		})
	}
	if _, err := r.database.Collection(collectionName).Indexes().CreateMany(ctx, models); err != nil {
		log.Error("MongoDB EnsureCollection error: %s", err.Error())
		return err
	}
	return nil
}

// WithTransaction executes a function within a transaction.
// A context that already carries a session joins the running transaction.
func (r *MongoRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// Ping checks the connection
func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close disconnects the client
func (r *MongoRepository) Close() error {
	return r.client.Disconnect(context.Background())
}

// Client returns the underlying mongo.Client.
func (r *MongoRepository) Client() *mongo.Client {
	return r.client
}

// Next advances the cursor
func (r *MongoQueryResult) Next() bool {
	if r.cursor == nil {
		return false
	}
	return r.cursor.Next(r.ctx)
}

// Decode decodes the current document
func (r *MongoQueryResult) Decode(v interface{}) error {
	if r.cursor == nil {
		return fmt.Errorf("cursor is nil")
	}
	if target, ok := v.(*interfaces.Document); ok {
		var raw bson.M
		if err := r.cursor.Decode(&raw); err != nil {
			return err
		}
		*target = toDocument(raw)
		return nil
	}
	return r.cursor.Decode(v)
}

// All decodes every remaining document
func (r *MongoQueryResult) All(out interface{}) error {
	if r.cursor == nil {
		return fmt.Errorf("cursor is nil")
	}
	if target, ok := out.(*[]interfaces.Document); ok {
		var raw []bson.M
		if err := r.cursor.All(r.ctx, &raw); err != nil {
			return err
		}
		docs := make([]interfaces.Document, 0, len(raw))
		for _, m := range raw {
			docs = append(docs, toDocument(m))
		}
		*target = docs
		return nil
	}
	return r.cursor.All(r.ctx, out)
}

// Close closes the cursor
func (r *MongoQueryResult) Close() {
	if r.cursor != nil {
		r.cursor.Close(r.ctx)
	}
}

// Error returns the cursor error
func (r *MongoQueryResult) Error() error {
	if r.err != nil {
		return r.err
	}
	if r.cursor != nil {
		return r.cursor.Err()
	}
	return nil
}
