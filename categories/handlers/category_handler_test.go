// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"
	"github.com/qolzam/inkwell/categories"
	"github.com/qolzam/inkwell/categories/handlers"
	"github.com/qolzam/inkwell/categories/models"
	"github.com/qolzam/inkwell/categories/services"
	"github.com/qolzam/inkwell/internal/database/memory"
	"github.com/qolzam/inkwell/internal/middleware/guards"
	"github.com/qolzam/inkwell/internal/querybuilder"
	"github.com/qolzam/inkwell/internal/server"
	"github.com/qolzam/inkwell/internal/testutil"
	"github.com/qolzam/inkwell/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	http       *testutil.HTTPHelper
	adminToken string
	userToken  string
}

func setup(t *testing.T) fixture {
	t.Helper()
	cfg := testutil.NewTestConfig(t, nil)

	repo := memory.NewMemoryRepository()
	require.NoError(t, repo.EnsureCollection(context.Background(), models.CollectionName, models.Indexes...))
	svc := services.NewCategoryService(repo, nil, querybuilder.Settings{DefaultLimit: 10, MaxLimit: 100})

	app := fiber.New(fiber.Config{ErrorHandler: server.ErrorHandler})
	categories.RegisterRoutes(app, &categories.CategoriesHandlers{
		CategoryHandler: handlers.NewCategoryHandler(svc),
	}, guards.New(cfg.JWT.PublicKey, nil))

	admin := types.UserContext{UserID: uuid.Must(uuid.NewV4()), Username: "root", Role: types.AdminRole}
	user := types.UserContext{UserID: uuid.Must(uuid.NewV4()), Username: "reader", Role: types.UserRole}
	return fixture{
		http:       testutil.NewHTTPHelper(t, app),
		adminToken: testutil.GenerateTestJWT(t, cfg.JWT.PrivateKey, admin),
		userToken:  testutil.GenerateTestJWT(t, cfg.JWT.PrivateKey, user),
	}
}

func TestCategoryRoutes_Lifecycle(t *testing.T) {
	f := setup(t)

	resp := f.http.NewRequest(http.MethodPost, "/categories", map[string]string{"name": "Go", "description": "Gophers"}).
		WithJWTAuth(f.adminToken).Send()
	var created models.Category
	env := testutil.Decode(t, resp, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, env.Success)
	assert.Equal(t, "New category successfully created.", env.Message)
	assert.Equal(t, "Go", created.Name)

	resp = f.http.NewRequest(http.MethodPost, "/categories", map[string]string{"name": "Go"}).
		WithJWTAuth(f.adminToken).Send()
	env = testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "A category with this name already exists.", env.Message)

	resp = f.http.NewRequest(http.MethodGet, "/categories?searchTerm=go", nil).Send()
	var list []map[string]interface{}
	env = testutil.Decode(t, resp, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.Total)

	resp = f.http.NewRequest(http.MethodGet, "/categories/"+created.ID, nil).Send()
	env = testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Category fetched successfully.", env.Message)

	resp = f.http.NewRequest(http.MethodDelete, "/categories/"+created.ID, nil).WithJWTAuth(f.adminToken).Send()
	env = testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Category successfully removed.", env.Message)

	resp = f.http.NewRequest(http.MethodGet, "/categories/"+created.ID, nil).Send()
	env = testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Category not found.", env.Message)
}

func TestCategoryRoutes_Guards(t *testing.T) {
	f := setup(t)

	resp := f.http.NewRequest(http.MethodPost, "/categories", map[string]string{"name": "Go"}).Send()
	testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.http.NewRequest(http.MethodPost, "/categories", map[string]string{"name": "Go"}).
		WithJWTAuth(f.userToken).Send()
	testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.http.NewRequest(http.MethodGet, "/categories/not-a-uuid", nil).Send()
	testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCategoryRoutes_InvalidFilter(t *testing.T) {
	f := setup(t)

	resp := f.http.NewRequest(http.MethodGet, "/categories?postCount=many", nil).Send()
	env := testutil.Decode(t, resp, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
}
