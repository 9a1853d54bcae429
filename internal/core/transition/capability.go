package transition

import (
	"loan-console/internal/adapters/api"
	"loan-console/internal/core/domain"
)

// Action is one entry of a loan's action menu
type Action struct {
	Key    string            `json:"key"`
	Label  string            `json:"label"`
	Target domain.LoanStatus `json:"target,omitempty"`
}

var (
	actionVerify  = Action{Key: "verify", Label: "Verify", Target: domain.StatusVerified}
	actionApprove = Action{Key: "approve", Label: "Approve", Target: domain.StatusApproved}
	actionReject  = Action{Key: "reject", Label: "Reject", Target: domain.StatusRejected}
	actionView    = Action{Key: "view", Label: "View Details"}
)

// VerifyRoute selects how a verification is submitted
type VerifyRoute int

const (
	// VerifyViaStatus sends PUT /loans/:id/status {status: verified}
	VerifyViaStatus VerifyRoute = iota
	// VerifyViaEndpoint sends PUT /loans/:id/verify
	VerifyViaEndpoint
)

// Capability describes everything that differs between the dashboards.
// ServerQuery forwards sort and status filter to the list endpoint.
type Capability struct {
	Name          string              `json:"name"`
	Route         string              `json:"route"`
	Role          domain.Role         `json:"role"`
	StatsPath     string              `json:"-"`
	ListPath      string              `json:"-"`
	StatusFilters []domain.LoanStatus `json:"statusFilters"`
	Columns       []string            `json:"columns"`
	PageSize      int                 `json:"pageSize"`
	PageSizes     []int               `json:"pageSizes"`
	Searchable    bool                `json:"searchable"`
	ServerQuery   bool                `json:"-"`
	Polling       bool                `json:"polling"`
	VerifyVia     VerifyRoute         `json:"-"`
	menu          func(domain.LoanStatus) []Action
}

// Actions returns the menu offered for a loan in status
func (c Capability) Actions(status domain.LoanStatus) []Action {
	if c.menu == nil {
		return []Action{actionView}
	}
	return c.menu(status)
}

// Offers reports whether moving a loan in status to target is on the menu
func (c Capability) Offers(status, target domain.LoanStatus) bool {
	if target == "" {
		return false
	}
	for _, a := range c.Actions(status) {
		if a.Target == target {
			return true
		}
	}
	return false
}

// ReadOnly reports whether no status change is ever offered
func (c Capability) ReadOnly() bool {
	for _, s := range domain.AllStatuses {
		for _, a := range c.Actions(s) {
			if a.Target != "" {
				return false
			}
		}
	}
	return true
}

// Admin is the admin dashboard: may verify, approve or reject
func Admin(pageSize int) Capability {
	return Capability{
		Name:          "admin",
		Route:         "/admin-dashboard",
		Role:          domain.RoleAdmin,
		StatsPath:     api.PathAdminStats,
		ListPath:      api.PathRecentLoans,
		StatusFilters: domain.AllStatuses,
		Columns:       []string{"User details", "Customer name", "Date", "Action"},
		PageSize:      pageSize,
		PageSizes:     []int{6, 10, 25, 50},
		ServerQuery:   true,
		VerifyVia:     VerifyViaStatus,
		menu: func(s domain.LoanStatus) []Action {
			switch s {
			case domain.StatusPending:
				return []Action{actionVerify, actionApprove, actionReject}
			case domain.StatusVerified:
				return []Action{actionApprove, actionReject}
			}
			return []Action{actionView}
		},
	}
}

// Verifier is the verifier dashboard: may only verify pending loans
func Verifier(pageSize int) Capability {
	return Capability{
		Name:          "verifier",
		Route:         "/verifier-dashboard",
		Role:          domain.RoleVerifier,
		StatsPath:     api.PathVerifierStats,
		ListPath:      api.PathLoans,
		StatusFilters: domain.AllStatuses,
		Columns:       []string{"User details", "Customer name", "Date", "Action"},
		PageSize:      pageSize,
		PageSizes:     []int{6, 10, 25, 50},
		ServerQuery:   true,
		VerifyVia:     VerifyViaEndpoint,
		menu: func(s domain.LoanStatus) []Action {
			if s == domain.StatusPending {
				return []Action{actionVerify}
			}
			return []Action{actionView}
		},
	}
}

// User is the applicant's own read-only dashboard
func User(pageSize int) Capability {
	return Capability{
		Name:       "user",
		Route:      "/user-dashboard",
		Role:       domain.RoleUser,
		ListPath:   api.PathUserLoans,
		Columns:    []string{"Loan Officer", "Amount", "Date Applied", "Status"},
		PageSize:   pageSize,
		PageSizes:  []int{5, 10, 25},
		Searchable: true,
		Polling:    true,
	}
}
