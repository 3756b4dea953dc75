// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package factory

import (
	"context"
	"fmt"

	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/memory"
	"github.com/qolzam/inkwell/internal/database/mongodb"
	"github.com/qolzam/inkwell/internal/database/postgresql"
	platformconfig "github.com/qolzam/inkwell/internal/platform/config"
)

// RepositoryFactory creates repository instances based on configuration
type RepositoryFactory struct {
	config *interfaces.RepositoryConfig
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(config *interfaces.RepositoryConfig) *RepositoryFactory {
	return &RepositoryFactory{
		config: config,
	}
}

// NewRepositoryFactoryFromPlatformConfig creates a new repository factory from platform config
func NewRepositoryFactoryFromPlatformConfig(dbConfig platformconfig.DatabaseConfig) *RepositoryFactory {
	config := &interfaces.RepositoryConfig{
		DatabaseType: dbConfig.Type,
		DatabaseName: getDatabaseName(dbConfig),
	}

	switch dbConfig.Type {
	case interfaces.DatabaseTypeMongoDB:
		config.MongoConfig = &interfaces.MongoDBConfig{
			URI:            dbConfig.MongoDB.URI,
			Host:           dbConfig.MongoDB.Host,
			Port:           dbConfig.MongoDB.Port,
			Username:       dbConfig.MongoDB.Username,
			Password:       dbConfig.MongoDB.Password,
			AuthSource:     dbConfig.MongoDB.AuthSource,
			ReplicaSet:     dbConfig.MongoDB.ReplicaSet,
			TLS:            dbConfig.MongoDB.TLS,
			ConnectTimeout: int(dbConfig.MongoDB.ConnectTimeout.Seconds()),
			SocketTimeout:  int(dbConfig.MongoDB.SocketTimeout.Seconds()),
			MaxPoolSize:    dbConfig.MongoDB.MaxPoolSize,
			MinPoolSize:    dbConfig.MongoDB.MinPoolSize,
		}
	case interfaces.DatabaseTypePostgreSQL:
		config.PostgresConfig = &interfaces.PostgreSQLConfig{
			DSN:                dbConfig.Postgres.DSN,
			Host:               dbConfig.Postgres.Host,
			Port:               dbConfig.Postgres.Port,
			Username:           dbConfig.Postgres.Username,
			Password:           dbConfig.Postgres.Password,
			Database:           dbConfig.Postgres.Database,
			Schema:             dbConfig.Postgres.Schema,
			SSLMode:            dbConfig.Postgres.SSLMode,
			MaxOpenConnections: dbConfig.Postgres.MaxOpenConns,
			MaxIdleConnections: dbConfig.Postgres.MaxIdleConns,
			MaxLifetime:        int(dbConfig.Postgres.ConnMaxLifetime.Seconds()),
			ConnectTimeout:     10,
		}
	}

	return &RepositoryFactory{
		config: config,
	}
}

// getDatabaseName extracts the database name from platform config
func getDatabaseName(dbConfig platformconfig.DatabaseConfig) string {
	switch dbConfig.Type {
	case interfaces.DatabaseTypeMongoDB:
		return dbConfig.MongoDB.Database
	case interfaces.DatabaseTypePostgreSQL:
		return dbConfig.Postgres.Database
	default:
		return "inkwell"
	}
}

// CreateRepository creates a repository instance based on the configured database type
func (f *RepositoryFactory) CreateRepository(ctx context.Context) (interfaces.Repository, error) {
	if err := f.ValidateConfig(); err != nil {
		return nil, err
	}

	switch f.config.DatabaseType {
	case interfaces.DatabaseTypeMongoDB:
		repo, err := mongodb.NewMongoRepository(ctx, f.config.MongoConfig, f.config.DatabaseName)
		if err != nil {
			return nil, fmt.Errorf("failed to create MongoDB repository: %w", err)
		}
		return repo, nil
	case interfaces.DatabaseTypePostgreSQL:
		repo, err := postgresql.NewPostgreSQLRepository(ctx, f.config.PostgresConfig, f.config.DatabaseName)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL repository: %w", err)
		}
		return repo, nil
	case interfaces.DatabaseTypeMemory:
		return memory.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", f.config.DatabaseType)
	}
}

// ValidateConfig validates the repository configuration and fills in defaults
func (f *RepositoryFactory) ValidateConfig() error {
	if f.config == nil {
		return fmt.Errorf("repository configuration is nil")
	}

	if f.config.DatabaseType == "" {
		return fmt.Errorf("database type is required")
	}

	switch f.config.DatabaseType {
	case interfaces.DatabaseTypeMongoDB:
		if f.config.MongoConfig == nil {
			return fmt.Errorf("MongoDB configuration is required")
		}
		return f.validateMongoConfig()

	case interfaces.DatabaseTypePostgreSQL:
		if f.config.PostgresConfig == nil {
			return fmt.Errorf("PostgreSQL configuration is required")
		}
		return f.validatePostgreSQLConfig()

	case interfaces.DatabaseTypeMemory:
		return nil

	default:
		return fmt.Errorf("unsupported database type: %s", f.config.DatabaseType)
	}
}

func (f *RepositoryFactory) validateMongoConfig() error {
	config := f.config.MongoConfig

	if config.URI == "" && config.Host == "" {
		return fmt.Errorf("MongoDB URI or host is required")
	}
	if config.Port <= 0 {
		config.Port = 27017
	}
	if config.MaxPoolSize <= 0 {
		config.MaxPoolSize = 100
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10
	}
	if f.config.DatabaseName == "" {
		return fmt.Errorf("MongoDB database name is required")
	}
	return nil
}

func (f *RepositoryFactory) validatePostgreSQLConfig() error {
	config := f.config.PostgresConfig

	if config.DSN == "" && config.Host == "" {
		return fmt.Errorf("PostgreSQL DSN or host is required")
	}
	if config.Port <= 0 {
		config.Port = 5432
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	if config.MaxOpenConnections <= 0 {
		config.MaxOpenConnections = 50
	}
	if config.MaxIdleConnections <= 0 {
		config.MaxIdleConnections = 10
	}
	if config.MaxLifetime <= 0 {
		config.MaxLifetime = 300
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10
	}
	return nil
}
