package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"loan-console/internal/core/domain"
)

var errUnknownListShape = errors.New("expected an array or an object with a data array")

// wireLoan is a loan record as the service sends it. Field names vary
// between endpoints, so every known alias is accepted.
type wireLoan struct {
	ID                domain.EntityID `json:"id"`
	AltID             domain.EntityID `json:"_id"`
	FullName          string          `json:"fullName"`
	FirstName         string          `json:"firstName"`
	LastName          string          `json:"lastName"`
	UserEmail         string          `json:"userEmail"`
	Email             string          `json:"email"`
	Amount            decimal.Decimal `json:"amount"`
	Tenure            flexInt         `json:"tenure"`
	Reason            string          `json:"reason"`
	Purpose           string          `json:"purpose"`
	EmploymentStatus  string          `json:"employmentStatus"`
	EmploymentAddress string          `json:"employmentAddress"`
	Status            string          `json:"status"`
	CreatedAt         flexTime        `json:"createdAt"`
	UpdatedAt         flexTime        `json:"updatedAt"`
	LoanOfficerName   string          `json:"loanOfficerName"`
	AssignedOfficer   string          `json:"assignedOfficer"`
}

func (w wireLoan) record() domain.LoanRecord {
	id := w.ID
	if id == "" {
		id = w.AltID
	}
	name := strings.TrimSpace(w.FullName)
	if name == "" {
		name = strings.TrimSpace(w.FirstName + " " + w.LastName)
	}
	email := w.UserEmail
	if email == "" {
		email = w.Email
	}
	reason := w.Reason
	if reason == "" {
		reason = w.Purpose
	}
	officer := w.LoanOfficerName
	if officer == "" {
		officer = w.AssignedOfficer
	}
	updated := w.UpdatedAt.Time
	if updated.IsZero() {
		updated = w.CreatedAt.Time
	}
	return domain.LoanRecord{
		ID:                id,
		ApplicantName:     name,
		Email:             email,
		Amount:            w.Amount,
		TenureMonths:      int(w.Tenure),
		Reason:            reason,
		EmploymentStatus:  w.EmploymentStatus,
		EmploymentAddress: w.EmploymentAddress,
		Status:            domain.LoanStatus(strings.ToLower(strings.TrimSpace(w.Status))),
		CreatedAt:         w.CreatedAt.Time,
		UpdatedAt:         updated,
		AssignedOfficer:   officer,
	}
}

// loanEnvelope is the paginated list shape
type loanEnvelope struct {
	Data       *[]wireLoan `json:"data"`
	Total      int         `json:"total"`
	TotalItems int         `json:"totalItems"`
	TotalPages int         `json:"totalPages"`
}

// decodeLoanPage accepts a bare array or {data, total|totalItems, totalPages}.
// TotalPages stays zero when the service did not report it.
func decodeLoanPage(raw json.RawMessage) (*domain.LoanPage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errUnknownListShape
	}

	var wire []wireLoan
	page := &domain.LoanPage{}
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, err
		}
		page.Total = len(wire)
	case '{':
		var env loanEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, err
		}
		if env.Data == nil {
			return nil, errUnknownListShape
		}
		wire = *env.Data
		switch {
		case env.Total > 0:
			page.Total = env.Total
		case env.TotalItems > 0:
			page.Total = env.TotalItems
		default:
			page.Total = len(wire)
		}
		page.TotalPages = env.TotalPages
	default:
		return nil, errUnknownListShape
	}

	page.Items = make([]domain.LoanRecord, 0, len(wire))
	for _, w := range wire {
		page.Items = append(page.Items, w.record())
	}
	return page, nil
}

// decodeLoanRecord reads an echoed record, returning nil when the body is
// not a loan
func decodeLoanRecord(raw json.RawMessage) *domain.LoanRecord {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var w wireLoan
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil
	}
	rec := w.record()
	if rec.ID == "" {
		return nil
	}
	return &rec
}

// flexInt accepts a JSON number or a numeric string
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", string(data), err)
	}
	*n = flexInt(f)
	return nil
}

// flexTime accepts RFC 3339 timestamps and plain dates
type flexTime struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}
