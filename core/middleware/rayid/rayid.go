// Package rayid assigns a unique request ID to every incoming request.
package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Header carries the ray ID on responses and, when a client supplies one, on
// requests.
const Header = "X-Ray-Id"

// New returns a middleware that ensures every request carries a ray ID in
// its locals and response headers. An incoming header value is honored so
// upstream proxies can stitch traces together.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(Header)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Locals("ray_id", rid)
		c.Set(Header, rid)
		return c.Next()
	}
}
