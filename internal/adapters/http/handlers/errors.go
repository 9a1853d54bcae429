package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"loan-console/internal/core/domain"
	"loan-console/internal/core/guard"
	"loan-console/internal/core/services"
	"loan-console/internal/pkg/response"
)

const networkMessage = "Unable to reach the loan service. Please try again."

// respondError maps a service error onto the console response. An expired
// session always sends the browser back to the login form.
func respondError(c *fiber.Ctx, ws *services.Workspace, err error) error {
	var (
		verr   *domain.ValidationError
		apiErr *domain.APIError
		netErr *domain.NetworkError
	)

	switch {
	case errors.Is(err, domain.ErrAuthExpired):
		if ws != nil {
			ws.Expire(c.UserContext())
		}
		return c.Redirect(guard.RouteLogin, fiber.StatusFound)
	case errors.As(err, &verr):
		return response.Invalid(c, verr.Error(), verr.Fields)
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 || status >= 500 {
			status = fiber.StatusBadGateway
		}
		return response.Error(c, status, apiErr.Message)
	case errors.As(err, &netErr):
		return response.BadGateway(c, networkMessage)
	case errors.Is(err, services.ErrUnknownDashboard), errors.Is(err, domain.ErrLoanNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrActionNotOffered),
		errors.Is(err, domain.ErrTransitionInFlight),
		errors.Is(err, domain.ErrNoPendingConfirmation):
		return response.Conflict(c, err.Error())
	case errors.Is(err, domain.ErrInvalidLoanStatus):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrUnknownRole):
		return response.BadGateway(c, "The loan service returned an unknown role")
	default:
		return response.InternalServerError(c, "Something went wrong")
	}
}
