package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"loan-console/internal/core/domain"
	"loan-console/internal/core/guard"
)

// LoanSubmittedMessage is flashed on the user dashboard after a submission
const LoanSubmittedMessage = "Loan application submitted successfully!"

// LoanFormService submits loan applications
type LoanFormService struct {
	log *zap.Logger
}

// NewLoanFormService creates a new loan form service
func NewLoanFormService(log *zap.Logger) *LoanFormService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoanFormService{log: log.Named("loan_form")}
}

// Submit validates the application before any network call, then creates
// the loan. The mounted user dashboard, if any, is refreshed so the new
// application shows up without waiting for the next poll.
func (s *LoanFormService) Submit(ctx context.Context, ws *Workspace, app domain.LoanApplication) (*domain.LoanRecord, error) {
	req, err := app.Validate()
	if err != nil {
		return nil, err
	}

	rec, err := ws.API().CreateLoan(ctx, *req)
	if err != nil {
		if errors.Is(err, domain.ErrAuthExpired) {
			ws.Expire(ctx)
		}
		s.log.Info("loan submission failed", zap.String("device", ws.ID()), zap.Error(err))
		return nil, err
	}

	s.log.Info("📨 loan application submitted",
		zap.String("device", ws.ID()),
		zap.String("amount", req.Amount.String()),
		zap.Int("tenure", req.Tenure),
	)
	ws.SetFlash(LoanSubmittedMessage)

	if d, ok := ws.Mounted(guard.RouteUserDashboard); ok {
		if err := d.RefreshList(ctx); errors.Is(err, domain.ErrAuthExpired) {
			ws.Expire(ctx)
		}
	}
	return rec, nil
}
