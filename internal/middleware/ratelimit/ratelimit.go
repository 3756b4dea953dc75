// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package ratelimit provides per-IP rate limiting for the authentication endpoints.
package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/qolzam/inkwell/internal/pkg/log"
	"github.com/qolzam/inkwell/internal/platform/config"
	"github.com/qolzam/inkwell/internal/server"
)

// CodeRateLimited is the error code of a rejected request.
const CodeRateLimited = "RATE_LIMIT_EXCEEDED"

// Config holds the configuration for rate limiting middleware
type Config struct {
	// Name is used in log lines and the error message, e.g. "login".
	Name string

	Max    int
	Window time.Duration

	// Next defines a function to skip this middleware when returned true
	Next func(c *fiber.Ctx) bool

	// Custom key generator (optional - uses default IP-based if not provided)
	KeyGenerator func(c *fiber.Ctx) string
}

func configDefault(cfg Config) Config {
	if cfg.Max <= 0 {
		cfg.Max = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = func(c *fiber.Ctx) string {
			return c.IP() + ":" + c.Path()
		}
	}
	return cfg
}

// New creates a new rate limiting middleware handler
func New(config Config) fiber.Handler {
	cfg := configDefault(config)

	return limiter.New(limiter.Config{
		Max:          cfg.Max,
		Expiration:   cfg.Window,
		KeyGenerator: cfg.KeyGenerator,
		Next:         cfg.Next,
		LimitReached: func(c *fiber.Ctx) error {
			log.WarnWithContext(c.UserContext(), "[RateLimit] Rate limit exceeded for %s from IP: %s", cfg.Name, c.IP())
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(cfg.Window.Seconds())))
			return server.SendError(c, http.StatusTooManyRequests, CodeRateLimited,
				fmt.Sprintf("Too many %s attempts. Please try again later.", cfg.Name), nil)
		},
	})
}

// FromConfig builds a limiter from a configured rule. Disabled rules yield
// a pass-through handler.
func FromConfig(name string, rule config.RateLimitConfig) fiber.Handler {
	if !rule.Enabled {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return New(Config{Name: name, Max: rule.Max, Window: rule.Duration})
}
