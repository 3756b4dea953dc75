// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	uuid "github.com/gofrs/uuid"
	"github.com/qolzam/inkwell/internal/database/interfaces"
	"github.com/qolzam/inkwell/internal/querybuilder"
	"github.com/qolzam/inkwell/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestSendPage(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return SendPage(c, "Posts retrieved", []string{"a"}, querybuilder.NewPageMeta(2, 10, 25))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(200), body["statusCode"])
	assert.Equal(t, "Posts retrieved", body["message"])
	assert.Equal(t, map[string]interface{}{
		"limit": float64(10), "page": float64(2), "total": float64(25), "totalPages": float64(3),
	}, body["meta"])
}

func TestSendResponse_OmitsMeta(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		return SendResponse(c, http.StatusCreated, "Created", fiber.Map{"id": "1"})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode(t, resp)
	_, hasMeta := body["meta"]
	assert.False(t, hasMeta)
	assert.Equal(t, map[string]interface{}{"id": "1"}, body["data"])
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid filter", fmt.Errorf("%w: isPremium", interfaces.ErrInvalidFilter), http.StatusBadRequest, CodeInvalidFilter},
		{"not found", interfaces.ErrNoDocuments, http.StatusNotFound, CodeNotFound},
		{"storage failure", errors.New("connection reset"), http.StatusInternalServerError, CodeInternalError},
		{"fiber error", fiber.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "Method Not Allowed"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
			app.Get("/", func(c *fiber.Ctx) error { return tc.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			body := decode(t, resp)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.code, body["code"])
			assert.Equal(t, float64(tc.status), body["statusCode"])
		})
	}
}

func TestQueryValues_KeepsRepeatedKeys(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	var got url.Values
	app.Get("/", func(c *fiber.Ctx) error {
		got = QueryValues(c)
		return c.SendStatus(http.StatusNoContent)
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/?tags=go&tags=rust&searchTerm=async%20io", nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "rust"}, got["tags"])
	assert.Equal(t, "async io", got.Get("searchTerm"))
}

func TestCurrentUser(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	id := uuid.Must(uuid.NewV4())
	app.Get("/with", func(c *fiber.Ctx) error {
		c.Locals(types.UserCtxName, types.UserContext{UserID: id, Role: types.AdminRole})
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin() || user.ID() != id.String() {
			return c.SendStatus(http.StatusTeapot)
		}
		return c.SendStatus(http.StatusOK)
	})
	app.Get("/without", func(c *fiber.Ctx) error {
		if _, ok := CurrentUser(c); ok {
			return c.SendStatus(http.StatusTeapot)
		}
		return c.SendStatus(http.StatusOK)
	})

	for _, path := range []string{"/with", "/without"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
