// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	catErrors "github.com/qolzam/inkwell/categories/errors"
	"github.com/qolzam/inkwell/categories/models"
	"github.com/qolzam/inkwell/internal/cache"
	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/database/utils"
	"github.com/qolzam/inkwell/internal/pkg/log"
	"github.com/qolzam/inkwell/internal/querybuilder"
)

const nameCachePrefix = "categories:name:"

// CategoryService defines the interface for category operations. It also
// resolves category names for the list pipeline of other collections.
type CategoryService interface {
	querybuilder.CategoryResolver

	CreateCategory(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error)
	ListCategories(ctx context.Context, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) (*models.Category, error)
}

type categoryService struct {
	store    interfaces.Repository
	cache    *cache.GenericCacheService
	settings querybuilder.Settings
}

// NewCategoryService creates a category service. The cache may be nil.
func NewCategoryService(store interfaces.Repository, cacheService *cache.GenericCacheService, settings querybuilder.Settings) CategoryService {
	return &categoryService{store: store, cache: cacheService, settings: settings}
}

func active(conditions ...interfaces.Field) *interfaces.Query {
	return interfaces.NewQuery(append(conditions, interfaces.Ne("isDeleted", true))...)
}

func (s *categoryService) CreateCategory(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: the category name is required", catErrors.ErrValidationFailed)
	}

	var existing models.Category
	err := s.store.FindOne(ctx, models.CollectionName, active(interfaces.Eq("name", name)), &existing)
	switch {
	case err == nil:
		return nil, catErrors.ErrCategoryExists
	case !errors.Is(err, interfaces.ErrNoDocuments):
		return nil, fmt.Errorf("failed to look up category: %w", err)
	}

	category := &models.Category{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
	}
	category.Touch(utils.NewID(), time.Now().UTC())

	if err := s.store.Save(ctx, models.CollectionName, category); err != nil {
		if errors.Is(err, interfaces.ErrDuplicateKey) {
			return nil, catErrors.ErrCategoryExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	s.forget(ctx, name)
	return category, nil
}

func (s *categoryService) ListCategories(ctx context.Context, params url.Values) ([]interfaces.Document, querybuilder.PageMeta, error) {
	qb := querybuilder.New(s.store, models.CollectionName, params,
		querybuilder.WithBase(interfaces.Ne("isDeleted", true)),
		querybuilder.WithAllowedFilters("name", "postCount"),
		querybuilder.WithFilterKinds(map[string]querybuilder.FieldKind{"postCount": querybuilder.KindNumber}),
		querybuilder.WithSettings(s.settings),
	).Search(models.SearchableFields...)

	if _, err := qb.Filter(ctx); err != nil {
		return nil, querybuilder.PageMeta{}, err
	}
	return qb.Sort().Paginate().Fields().Run(ctx)
}

func (s *categoryService) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := s.store.FindOne(ctx, models.CollectionName, active(interfaces.Eq(interfaces.FieldID, id)), &category); err != nil {
		if errors.Is(err, interfaces.ErrNoDocuments) {
			return nil, catErrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.UpdateFields(ctx, models.CollectionName, interfaces.NewQuery(interfaces.Eq(interfaces.FieldID, id)), map[string]interface{}{
		"isDeleted": true,
	}); err != nil {
		return nil, fmt.Errorf("failed to delete category: %w", err)
	}
	category.IsDeleted = true
	s.forget(ctx, category.Name)
	return category, nil
}

// ResolveCategoryID maps a category name to the id of a live category.
// Hits are cached; misses always go to the store.
func (s *categoryService) ResolveCategoryID(ctx context.Context, name string) (string, bool, error) {
	key := nameCachePrefix + url.QueryEscape(name)

	var cached string
	if s.cache.IsEnabled() {
		if err := s.cache.GetCached(ctx, key, &cached); err == nil && cached != "" {
			return cached, true, nil
		}
	}

	var category models.Category
	err := s.store.FindOne(ctx, models.CollectionName, active(interfaces.Eq("name", name)), &category)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve category %q: %w", name, err)
	}

	if s.cache.IsEnabled() {
		if err := s.cache.CacheData(ctx, key, category.ID); err != nil {
			log.Warn("category cache write for %q failed: %v", name, err)
		}
	}
	return category.ID, true, nil
}

func (s *categoryService) forget(ctx context.Context, name string) {
	if !s.cache.IsEnabled() {
		return
	}
	if err := s.cache.InvalidateKey(ctx, nameCachePrefix+url.QueryEscape(name)); err != nil {
		log.Warn("category cache invalidation for %q failed: %v", name, err)
	}
}
