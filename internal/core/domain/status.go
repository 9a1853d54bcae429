package domain

import (
	"fmt"
	"strings"
)

// LoanStatus is the forward-only state of a loan record
type LoanStatus string

const (
	StatusPending  LoanStatus = "pending"
	StatusVerified LoanStatus = "verified"
	StatusApproved LoanStatus = "approved"
	StatusRejected LoanStatus = "rejected"
)

// AllStatuses lists the statuses in workflow order
var AllStatuses = []LoanStatus{StatusPending, StatusVerified, StatusApproved, StatusRejected}

var transitions = map[LoanStatus][]LoanStatus{
	StatusPending:  {StatusVerified, StatusApproved, StatusRejected},
	StatusVerified: {StatusApproved, StatusRejected},
}

// Valid reports whether s is a known status
func (s LoanStatus) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transitions exist from s
func (s LoanStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseLoanStatus converts a raw status, rejecting anything outside the allowed set
func ParseLoanStatus(s string) (LoanStatus, error) {
	st := LoanStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLoanStatus, s)
	}
	return st, nil
}

// NextStatuses returns the statuses reachable from s
func NextStatuses(s LoanStatus) []LoanStatus {
	next := transitions[s]
	out := make([]LoanStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is a legal move in the workflow.
// The loan service remains the authority; this only shapes what is offered.
func CanTransition(from, to LoanStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
