package http

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses the handler left
// unmarked. Place details change rarely; searches and the page less so.
// Error responses are never stored.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		path := c.Path()
		var value string
		switch {
		case err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest:
			// an upstream outage or a miss must not stick in shared caches
			value = "no-store"
		case path == "/v1/health" || path == "/v1/ready":
			value = "public, max-age=10"
		case path == "/metrics":
			value = "no-cache"
		case path == "/" || path == "/graphql":
			value = "private, max-age=0"
		case strings.HasPrefix(path, "/v1/cities/search"):
			value = "public, max-age=300"
		case strings.HasPrefix(path, "/v1/places/reverse"), strings.HasPrefix(path, "/v1/places/lookup"):
			value = "public, max-age=600"
		case strings.HasPrefix(path, "/v1/places/"):
			value = "public, max-age=3600"
		}

		if value != "" {
			c.Set(fiber.HeaderCacheControl, value)
		}
		return err
	}
}

// ETagMiddleware tags successful GET bodies with a weak ETag and answers
// 304 when the client already holds it.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}

		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		sum := sha256.Sum256(body)
		etag := `W/"` + hex.EncodeToString(sum[:8]) + `"`
		c.Set(fiber.HeaderETag, etag)

		for _, candidate := range strings.Split(c.Get(fiber.HeaderIfNoneMatch), ",") {
			if strings.TrimSpace(candidate) == etag {
				c.Status(fiber.StatusNotModified)
				c.Response().ResetBody()
				return nil
			}
		}
		return nil
	}
}
