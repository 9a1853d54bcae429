package handlers

import (
	"loan-console/internal/adapters/http/middleware"
	"loan-console/internal/core/domain"
	"loan-console/internal/core/guard"
	"loan-console/internal/core/services"
	"loan-console/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles the login and signup forms
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// authPage is the view model of the login and signup forms
type authPage struct {
	Form  string `json:"form"`
	Flash string `json:"flash,omitempty"`
}

// LoginPage renders the login form
// @Summary Login form
// @Router /login [get]
func (h *AuthHandler) LoginPage(c *fiber.Ctx) error {
	ws := middleware.WorkspaceFrom(c)
	return response.Success(c, "", authPage{Form: "login", Flash: ws.TakeFlash()})
}

// Login handles the login form
// @Summary Login
// @Description Authenticate against the loan service and go to the role's dashboard
// @Accept json
// @Param body body domain.Credentials true "Credentials"
// @Success 303
// @Failure 401 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var creds domain.Credentials
	if err := c.BodyParser(&creds); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	ws := middleware.WorkspaceFrom(c)
	home, err := h.authService.Login(c.UserContext(), ws, creds)
	if err != nil {
		return respondError(c, ws, err)
	}

	return c.Redirect(home, fiber.StatusSeeOther)
}

// SignupPage renders the signup form
// @Summary Signup form
// @Router /signup [get]
func (h *AuthHandler) SignupPage(c *fiber.Ctx) error {
	return response.Success(c, "", authPage{Form: "signup"})
}

// Signup handles the registration form and returns to the login form
// @Summary Signup
// @Accept json
// @Param body body domain.SignupInput true "Registration data"
// @Success 303
// @Failure 422 {object} response.Response
// @Router /signup [post]
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var in domain.SignupInput
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	ws := middleware.WorkspaceFrom(c)
	if err := h.authService.Signup(c.UserContext(), ws, in); err != nil {
		return respondError(c, ws, err)
	}

	return c.Redirect(guard.RouteLogin, fiber.StatusSeeOther)
}

// Logout forgets the device session
// @Summary Logout
// @Success 303
// @Router /logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	ws := middleware.WorkspaceFrom(c)
	if err := h.authService.Logout(c.UserContext(), ws); err != nil {
		return response.InternalServerError(c, "Failed to logout")
	}

	return c.Redirect(guard.RouteLogin, fiber.StatusSeeOther)
}
