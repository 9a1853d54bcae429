package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"loan-console/internal/config"
	"loan-console/internal/core/services"
)

// DeviceCookie identifies a browser. Its value namespaces the session store.
const DeviceCookie = "console_device"

const (
	deviceCookieTTL = 365 * 24 * time.Hour
	localsWorkspace = "workspace"
	localsSession   = "session"
)

// Device attaches the caller's workspace, issuing a device cookie on first
// visit or when the presented one is not a uuid
func Device(reg *services.Registry, cfg config.CookieConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(DeviceCookie)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     DeviceCookie,
				Value:    id,
				Path:     "/",
				Domain:   cfg.Domain,
				Expires:  time.Now().Add(deviceCookieTTL),
				Secure:   cfg.Secure,
				HTTPOnly: true,
				SameSite: cfg.SameSite,
			})
		}

		c.Locals(localsWorkspace, reg.Workspace(id))
		return c.Next()
	}
}

// WorkspaceFrom returns the workspace set by Device
func WorkspaceFrom(c *fiber.Ctx) *services.Workspace {
	ws, _ := c.Locals(localsWorkspace).(*services.Workspace)
	return ws
}
