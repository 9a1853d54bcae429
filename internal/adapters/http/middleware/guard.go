package middleware

import (
	"github.com/gofiber/fiber/v2"

	"loan-console/internal/core/domain"
	"loan-console/internal/core/guard"
	"loan-console/internal/pkg/response"
)

// RouteGuard restores the device session and applies the routing rules
// before any page renders. Must run after Device.
func RouteGuard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ws := WorkspaceFrom(c)
		if ws == nil {
			return response.InternalServerError(c, "Workspace not initialised")
		}

		state := ws.Session(c.UserContext())
		decision := guard.Evaluate(c.Path(), state)

		switch decision.Outcome {
		case guard.Redirect:
			return c.Redirect(decision.Target, fiber.StatusFound)
		case guard.Placeholder:
			return response.Success(c, "Loading", fiber.Map{"loading": true})
		}

		c.Locals(localsSession, state)
		return c.Next()
	}
}

// SessionFrom returns the session state restored by RouteGuard
func SessionFrom(c *fiber.Ctx) domain.SessionState {
	state, ok := c.Locals(localsSession).(domain.SessionState)
	if !ok {
		return domain.Unauthenticated()
	}
	return state
}
