package handlers

import (
	"errors"
	"strings"

	"loan-console/internal/adapters/http/middleware"
	"loan-console/internal/core/domain"
	"loan-console/internal/core/services"
	"loan-console/internal/pkg/pagination"
	"loan-console/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler serves the admin, verifier and user dashboards
type DashboardHandler struct{}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// dashboardPage is a dashboard view plus the one-shot flash message
type dashboardPage struct {
	services.DashboardView
	Flash string `json:"flash,omitempty"`
}

type sortRequest struct {
	Field string `json:"field" form:"field"`
}

type filterRequest struct {
	Status string `json:"status" form:"status"`
}

type searchRequest struct {
	Text string `json:"text" form:"text"`
}

type actionRequest struct {
	Action string `json:"action" form:"action"`
}

// Show renders a dashboard page
// @Summary Dashboard
// @Description Render the dashboard at :dashboard, optionally moving to page and changing the page size
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response
// @Failure 302
// @Router /{dashboard} [get]
func (h *DashboardHandler) Show(c *fiber.Ctx) error {
	ws, d, err := h.mount(c)
	if err != nil {
		return respondError(c, ws, err)
	}

	cur := d.View().List.Meta
	params := pagination.GetParams(c, pagination.Params{Page: cur.Page, Limit: cur.Limit})
	if params.Limit != cur.Limit {
		if err := d.SetPageSize(params.Limit); err != nil {
			return response.BadRequest(c, err.Error())
		}
	}
	if params.Page != cur.Page {
		d.SetPage(params.Page)
	}

	return h.render(c, ws, d)
}

// Sort toggles the sort on a column
// @Router /{dashboard}/sort [post]
func (h *DashboardHandler) Sort(c *fiber.Ctx) error {
	var req sortRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Field) == "" {
		return response.BadRequest(c, "Sort field is required")
	}

	ws, d, err := h.mount(c)
	if err != nil {
		return respondError(c, ws, err)
	}
	return h.afterUpdate(c, ws, d, d.ToggleSort(c.UserContext(), req.Field))
}

// Filter sets the status filter. An empty status shows every loan.
// @Router /{dashboard}/filter [post]
func (h *DashboardHandler) Filter(c *fiber.Ctx) error {
	var req filterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	var status domain.LoanStatus
	if s := strings.TrimSpace(req.Status); s != "" && !strings.EqualFold(s, "all") {
		parsed, err := domain.ParseLoanStatus(s)
		if err != nil {
			return response.BadRequest(c, err.Error())
		}
		status = parsed
	}

	ws, d, err := h.mount(c)
	if err != nil {
		return respondError(c, ws, err)
	}
	return h.afterUpdate(c, ws, d, d.SetStatusFilter(c.UserContext(), status))
}

// Search sets the free-text search
// @Router /{dashboard}/search [post]
func (h *DashboardHandler) Search(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	ws, d, err := h.mount(c)
	if err != nil {
		return respondError(c, ws, err)
	}
	if !d.Capability().Searchable {
		return response.BadRequest(c, "This dashboard has no search")
	}
	d.SetSearch(req.Text)
	return h.render(c, ws, d)
}

// Refresh refetches statistics and the loan list
// @Router /{dashboard}/refresh [post]
func (h *DashboardHandler) Refresh(c *fiber.Ctx) error {
	ws, d, err := h.mount(c)
	if err != nil {
		return respondError(c, ws, err)
	}
	return h.afterUpdate(c, ws, d, d.Refresh(c.UserContext()))
}

// Action picks an entry of a loan's action menu. Status changes open a
// confirmation; "view" returns the loan record.
// @Param id path string true "Loan ID"
// @Router /{dashboard}/loans/{id}/actions [post]
func (h *DashboardHandler) Action(c *fiber.Ctx) error {
	var req actionRequest
	if err := c.BodyParser(&req); err != nil || req.Action == "" {
		return response.BadRequest(c, "Action is required")
	}

	ws, d, err := h.mount(c)
	if err != nil {
		return respondError(c, ws, err)
	}

	id := domain.EntityID(c.Params("id"))
	rec, ok := d.Lookup(id)
	if !ok {
		return response.NotFound(c, domain.ErrLoanNotFound.Error())
	}

	for _, a := range d.Capability().Actions(rec.Status) {
		if !strings.EqualFold(a.Key, req.Action) {
			continue
		}
		if a.Target == "" {
			return response.Success(c, "", rec)
		}
		if _, err := d.Propose(id, a.Target); err != nil {
			return respondError(c, ws, err)
		}
		return h.render(c, ws, d)
	}
	return response.Conflict(c, domain.ErrActionNotOffered.Error())
}

// Confirm submits the open confirmation. A rejected change still renders
// the dashboard, with the failure in its banner.
// @Router /{dashboard}/confirm [post]
func (h *DashboardHandler) Confirm(c *fiber.Ctx) error {
	ws, d, err := h.mount(c)
	if err != nil {
		return respondError(c, ws, err)
	}
	return h.afterUpdate(c, ws, d, d.Confirm(c.UserContext()))
}

// Cancel closes the open confirmation
// @Router /{dashboard}/cancel [post]
func (h *DashboardHandler) Cancel(c *fiber.Ctx) error {
	ws, d, err := h.mount(c)
	if err != nil {
		return respondError(c, ws, err)
	}
	d.Cancel()
	return h.render(c, ws, d)
}

func (h *DashboardHandler) mount(c *fiber.Ctx) (*services.Workspace, *services.Dashboard, error) {
	ws := middleware.WorkspaceFrom(c)
	d, err := ws.Dashboard(c.UserContext(), "/"+c.Params("dashboard"))
	return ws, d, err
}

// afterUpdate renders the dashboard unless err needs its own response.
// Loan service failures are already part of the view.
func (h *DashboardHandler) afterUpdate(c *fiber.Ctx, ws *services.Workspace, d *services.Dashboard, err error) error {
	var (
		apiErr *domain.APIError
		netErr *domain.NetworkError
	)
	if err != nil && !errors.As(err, &apiErr) && !errors.As(err, &netErr) {
		return respondError(c, ws, err)
	}
	return h.render(c, ws, d)
}

func (h *DashboardHandler) render(c *fiber.Ctx, ws *services.Workspace, d *services.Dashboard) error {
	return response.Success(c, "", dashboardPage{
		DashboardView: d.View(),
		Flash:         ws.TakeFlash(),
	})
}
