package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role represents user role in the system
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleVerifier Role = "verifier"
	RoleUser     Role = "user"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleVerifier, RoleUser:
		return true
	}
	return false
}

// ParseRole converts a raw role string, rejecting unknown values
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// EntityID is an identifier issued by the loan service. The service is not
// consistent about numeric vs string ids, so both decode into a string.
type EntityID string

// UnmarshalJSON accepts a JSON string or number
func (id *EntityID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = EntityID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	*id = EntityID(n.String())
	return nil
}

func (id EntityID) String() string {
	return string(id)
}

// User represents the authenticated account as returned by the loan service
type User struct {
	ID       EntityID `json:"id"`
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Role     Role     `json:"role"`
}

// Session is the token + user pair held for the duration of a login
type Session struct {
	Token string
	User  User
}

// SessionPhase is the coarse authentication state seen by the route guard
type SessionPhase int

const (
	PhaseLoading SessionPhase = iota
	PhaseUnauthenticated
	PhaseAuthenticated
)

func (p SessionPhase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// SessionState is the result of restoring a session
type SessionState struct {
	Phase SessionPhase
	User  User
}

// Authenticated builds an authenticated state for u
func Authenticated(u User) SessionState {
	return SessionState{Phase: PhaseAuthenticated, User: u}
}

// Unauthenticated is the empty session state
func Unauthenticated() SessionState {
	return SessionState{Phase: PhaseUnauthenticated}
}

// IsAuthenticated reports whether the state carries a user
func (s SessionState) IsAuthenticated() bool {
	return s.Phase == PhaseAuthenticated
}

// LoanRecord is a single credit application as cached by a dashboard
type LoanRecord struct {
	ID                EntityID        `json:"id"`
	ApplicantName     string          `json:"fullName"`
	Email             string          `json:"email,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	TenureMonths      int             `json:"tenure"`
	Reason            string          `json:"reason"`
	EmploymentStatus  string          `json:"employmentStatus,omitempty"`
	EmploymentAddress string          `json:"employmentAddress,omitempty"`
	Status            LoanStatus      `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	AssignedOfficer   string          `json:"assignedOfficer,omitempty"`
}

// OfficerLabel returns the assigned officer or the placeholder shown when none is set
func (l LoanRecord) OfficerLabel() string {
	if strings.TrimSpace(l.AssignedOfficer) == "" {
		return "Not Assigned"
	}
	return l.AssignedOfficer
}

// LoanPage is a normalized loan list response
type LoanPage struct {
	Items      []LoanRecord
	Total      int
	TotalPages int
}

// LoanQuery carries list parameters forwarded to the loan service
type LoanQuery struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Status    LoanStatus
}

// DashboardStats is the aggregate summary shown above a loan list
type DashboardStats struct {
	ActiveUsers   int64           `json:"activeUsers"`
	Borrowers     int64           `json:"borrowers"`
	CashDisbursed decimal.Decimal `json:"cashDisbursed"`
	CashReceived  decimal.Decimal `json:"cashReceived"`
	Savings       decimal.Decimal `json:"savings"`
	RepaidLoans   int64           `json:"repaidLoans"`
	Loans         int64           `json:"loans"`
	OtherAccounts int64           `json:"otherAccounts"`
}

// StatusUpdate is the body of PUT /loans/:id/status
type StatusUpdate struct {
	Status        LoanStatus `json:"status"`
	DisbursedDate string     `json:"disbursedDate,omitempty"`
	RepaymentDate string     `json:"repaymentDate,omitempty"`
}
