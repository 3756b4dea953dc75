// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/inkwell/internal/types"
	"github.com/stretchr/testify/require"
)

// HTTPHelper provides a robust way to make HTTP requests in tests.
// It enforces error checking and provides a fluent API for building requests.
type HTTPHelper struct {
	t   *testing.T
	app *fiber.App
}

// NewHTTPHelper creates a new test helper for a given Fiber app.
func NewHTTPHelper(t *testing.T, app *fiber.App) *HTTPHelper {
	require.NotNil(t, app, "Fiber app provided to HTTPHelper cannot be nil")
	return &HTTPHelper{
		t:   t,
		app: app,
	}
}

// Request represents a test request under construction.
type Request struct {
	helper    *HTTPHelper
	method    string
	path      string
	bodyBytes []byte
	headers   http.Header
}

// NewRequest begins building a new test request. It centralizes body marshaling.
func (h *HTTPHelper) NewRequest(method, path string, body interface{}) *Request {
	var bodyBytes []byte
	if body != nil {
		switch b := body.(type) {
		case []byte:
			bodyBytes = b
		case string:
			bodyBytes = []byte(b)
		default:
			jsonBytes, err := json.Marshal(body)
			require.NoError(h.t, err, "Failed to marshal request body to JSON")
			bodyBytes = jsonBytes
		}
	}

	req := &Request{
		helper:    h,
		method:    method,
		path:      path,
		bodyBytes: bodyBytes,
		headers:   make(http.Header),
	}
	if body != nil {
		req.WithHeader(types.HeaderContentType, "application/json")
	}
	return req
}

// WithHeader adds a header to the request.
func (r *Request) WithHeader(key, value string) *Request {
	r.headers.Add(key, value)
	return r
}

// WithJWTAuth adds token as an Authorization: Bearer header.
func (r *Request) WithJWTAuth(token string) *Request {
	return r.WithHeader(types.HeaderAuthorization, types.BearerPrefix+token)
}

// Send executes the request and returns the response.
func (r *Request) Send() *http.Response {
	req := httptest.NewRequest(r.method, r.path, bytes.NewReader(r.bodyBytes))
	req.Header = r.headers

	resp, err := r.helper.app.Test(req, int(10*time.Second.Milliseconds()))
	require.NoError(r.helper.t, err, "app.Test should not return an error")
	require.NotNil(r.helper.t, resp, "app.Test response should not be nil")
	return resp
}

// Envelope mirrors the JSON response envelope for assertions.
type Envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Meta       *struct {
		Limit      int   `json:"limit"`
		Page       int   `json:"page"`
		Total      int64 `json:"total"`
		TotalPages int64 `json:"totalPages"`
	} `json:"meta"`
}

// Decode reads and closes the response body into an Envelope. When data is
// non-nil the envelope's data field is decoded into it.
func Decode(t *testing.T, resp *http.Response, data interface{}) Envelope {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env), "response is not a JSON envelope: %s", raw)
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}
