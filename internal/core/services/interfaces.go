package services

import (
	"context"

	"loan-console/internal/core/domain"
)

// LoanAPI is the loan service as seen by one workspace
type LoanAPI interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error)
	Signup(ctx context.Context, req domain.SignupRequest) error
	Stats(ctx context.Context, path string) (*domain.DashboardStats, error)
	LoanList(ctx context.Context, path string, q domain.LoanQuery) (*domain.LoanPage, error)
	UpdateStatus(ctx context.Context, id domain.EntityID, update domain.StatusUpdate) (*domain.LoanRecord, error)
	VerifyLoan(ctx context.Context, id domain.EntityID) (*domain.LoanRecord, error)
	CreateLoan(ctx context.Context, req domain.LoanRequest) (*domain.LoanRecord, error)
}

// SessionStore persists one device's session
type SessionStore interface {
	Restore(ctx context.Context) domain.SessionState
	Save(ctx context.Context, sess domain.Session) error
	Clear(ctx context.Context) error
	Token(ctx context.Context) string
}
