// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/qolzam/inkwell/internal/cache"
	"github.com/qolzam/inkwell/internal/database/factory"
	"github.com/qolzam/inkwell/internal/database/interfaces"
	platformconfig "github.com/qolzam/inkwell/internal/platform/config"
	"github.com/qolzam/inkwell/internal/querybuilder"
)

// Collection pairs a collection name with the indexes it needs.
type Collection struct {
	Name    string
	Indexes []interfaces.Index
}

// BaseService owns the shared resources every domain service is built on.
type BaseService struct {
	Repository interfaces.Repository
	Cache      *cache.GenericCacheService
	config     *platformconfig.Config
}

// NewBaseService opens the configured document store and cache.
func NewBaseService(ctx context.Context, cfg *platformconfig.Config) (*BaseService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("platform configuration is required")
	}

	repositoryFactory := factory.NewRepositoryFactoryFromPlatformConfig(cfg.Database)
	if err := repositoryFactory.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid repository configuration: %w", err)
	}

	repository, err := repositoryFactory.CreateRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	cacheService, err := cache.NewFromConfig(cfg.Cache)
	if err != nil {
		_ = repository.Close()
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return &BaseService{
		Repository: repository,
		Cache:      cacheService,
		config:     cfg,
	}, nil
}

// NewBaseServiceWithRepo creates a BaseService with an existing repository.
// Used by tests to inject isolated repositories.
func NewBaseServiceWithRepo(repo interfaces.Repository, cacheService *cache.GenericCacheService, cfg *platformconfig.Config) *BaseService {
	return &BaseService{
		Repository: repo,
		Cache:      cacheService,
		config:     cfg,
	}
}

// EnsureCollections creates every collection and its indexes.
func (s *BaseService) EnsureCollections(ctx context.Context, collections ...Collection) error {
	for _, c := range collections {
		if err := s.Repository.EnsureCollection(ctx, c.Name, c.Indexes...); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", c.Name, err)
		}
	}
	return nil
}

// QuerySettings returns the list pipeline settings.
func (s *BaseService) QuerySettings() querybuilder.Settings {
	return querybuilder.Settings{
		DefaultLimit:   s.config.Query.DefaultLimit,
		MaxLimit:       s.config.Query.MaxLimit,
		StrictCategory: s.config.Query.StrictCategory,
	}
}

// HealthCheck performs a health check on the repository
func (s *BaseService) HealthCheck(ctx context.Context) error {
	return s.Repository.Ping(ctx)
}

// Close closes the cache and the repository.
func (s *BaseService) Close() error {
	var errs []error
	if s.Cache != nil {
		errs = append(errs, s.Cache.Close())
	}
	if s.Repository != nil {
		errs = append(errs, s.Repository.Close())
	}
	return errors.Join(errs...)
}

// GetDatabaseType returns the configured database type
func (s *BaseService) GetDatabaseType() string {
	return s.config.Database.Type
}
