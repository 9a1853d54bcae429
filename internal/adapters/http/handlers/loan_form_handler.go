package handlers

import (
	"loan-console/internal/adapters/http/middleware"
	"loan-console/internal/core/domain"
	"loan-console/internal/core/guard"
	"loan-console/internal/core/services"
	"loan-console/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// LoanFormHandler serves the loan application form
type LoanFormHandler struct {
	formService *services.LoanFormService
}

// NewLoanFormHandler creates a new loan form handler
func NewLoanFormHandler(formService *services.LoanFormService) *LoanFormHandler {
	return &LoanFormHandler{
		formService: formService,
	}
}

// loanFormPage describes the form's options and limits
type loanFormPage struct {
	Form               string   `json:"form"`
	FullName           string   `json:"fullName"`
	EmploymentStatuses []string `json:"employmentStatuses"`
	MinAmount          string   `json:"minAmount"`
	MinTenureMonths    int      `json:"minTenureMonths"`
}

// Show renders the loan application form, prefilled with the user's name
// @Summary Loan application form
// @Router /user-form [get]
func (h *LoanFormHandler) Show(c *fiber.Ctx) error {
	state := middleware.SessionFrom(c)
	return response.Success(c, "", loanFormPage{
		Form:               "loan-application",
		FullName:           state.User.FullName,
		EmploymentStatuses: domain.EmploymentStatuses,
		MinAmount:          domain.MinLoanAmount.String(),
		MinTenureMonths:    domain.MinTenureMonths,
	})
}

// Submit handles the loan application and returns to the user dashboard
// @Summary Submit loan application
// @Accept json
// @Param body body domain.LoanApplication true "Application"
// @Success 303
// @Failure 422 {object} response.Response
// @Router /user-form [post]
func (h *LoanFormHandler) Submit(c *fiber.Ctx) error {
	var app domain.LoanApplication
	if err := c.BodyParser(&app); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	ws := middleware.WorkspaceFrom(c)
	if _, err := h.formService.Submit(c.UserContext(), ws, app); err != nil {
		return respondError(c, ws, err)
	}

	return c.Redirect(guard.RouteUserDashboard, fiber.StatusSeeOther)
}
