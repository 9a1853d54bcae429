// Package transition drives loan status changes from a dashboard:
// confirmation, submission with a per-loan in-flight guard, and the
// transient result banner.
package transition

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"loan-console/internal/core/domain"
)

const (
	dateLayout     = "2006-01-02"
	networkMessage = "Unable to reach the loan service. Please try again."
)

// Submitter sends status changes to the loan service
type Submitter interface {
	UpdateStatus(ctx context.Context, id domain.EntityID, update domain.StatusUpdate) (*domain.LoanRecord, error)
	VerifyLoan(ctx context.Context, id domain.EntityID) (*domain.LoanRecord, error)
}

// RecordSet is the list the controller acts on
type RecordSet interface {
	Lookup(id domain.EntityID) (domain.LoanRecord, bool)
	// Applied is called after the service accepted a change. rec is the
	// echoed record, or nil when the service did not return one.
	Applied(ctx context.Context, id domain.EntityID, status domain.LoanStatus, rec *domain.LoanRecord)
}

// Confirmation is an action awaiting the operator's confirmation
type Confirmation struct {
	LoanID  domain.EntityID   `json:"loanId"`
	Target  domain.LoanStatus `json:"target"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Note    string            `json:"note"`
}

// BannerKind is success or error
type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerError   BannerKind = "error"
)

// Banner is the transient result of the last submission
type Banner struct {
	Kind      BannerKind `json:"kind"`
	Message   string     `json:"message"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Config holds controller policy
type Config struct {
	RepaymentWindowDays int
	BannerDuration      time.Duration
	Now                 func() time.Time
	Logger              *zap.Logger
}

// Controller runs the confirm-then-submit flow for one dashboard
type Controller struct {
	cap     Capability
	api     Submitter
	records RecordSet
	window  int
	linger  time.Duration
	now     func() time.Time
	log     *zap.Logger

	mu       sync.Mutex
	pending  *Confirmation
	inFlight map[domain.EntityID]struct{}
	banner   *Banner
}

// NewController creates a controller for a dashboard capability
func NewController(capability Capability, api Submitter, records RecordSet, cfg Config) *Controller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RepaymentWindowDays < 1 {
		cfg.RepaymentWindowDays = 30
	}
	if cfg.BannerDuration <= 0 {
		cfg.BannerDuration = 3 * time.Second
	}
	return &Controller{
		cap:      capability,
		api:      api,
		records:  records,
		window:   cfg.RepaymentWindowDays,
		linger:   cfg.BannerDuration,
		now:      cfg.Now,
		log:      cfg.Logger.With(zap.String("dashboard", capability.Name)),
		inFlight: make(map[domain.EntityID]struct{}),
	}
}

// Actions returns the menu for the loan with id
func (c *Controller) Actions(id domain.EntityID) ([]Action, error) {
	rec, ok := c.records.Lookup(id)
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return c.cap.Actions(rec.Status), nil
}

// Propose opens a confirmation for moving loan id to target
func (c *Controller) Propose(id domain.EntityID, target domain.LoanStatus) (*Confirmation, error) {
	rec, ok := c.records.Lookup(id)
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	if !c.cap.Offers(rec.Status, target) {
		return nil, domain.ErrActionNotOffered
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[id]; busy {
		return nil, domain.ErrTransitionInFlight
	}
	conf := confirmationFor(id, target)
	c.pending = conf
	cp := *conf
	return &cp, nil
}

// Pending returns the open confirmation, if any
func (c *Controller) Pending() *Confirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	cp := *c.pending
	return &cp
}

// Cancel closes the open confirmation without submitting
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}

// Confirm closes the open confirmation and submits it
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()
	conf := c.pending
	c.pending = nil
	c.mu.Unlock()

	if conf == nil {
		return domain.ErrNoPendingConfirmation
	}
	return c.Submit(ctx, conf.LoanID, conf.Target)
}

// Submit sends the change for loan id. Only one submission per loan may be
// outstanding; others fail with domain.ErrTransitionInFlight. Failures other
// than an expired session leave the record unchanged and set an error banner.
func (c *Controller) Submit(ctx context.Context, id domain.EntityID, target domain.LoanStatus) error {
	rec, ok := c.records.Lookup(id)
	if !ok {
		return domain.ErrLoanNotFound
	}
	if !c.cap.Offers(rec.Status, target) {
		return domain.ErrActionNotOffered
	}

	c.mu.Lock()
	if _, busy := c.inFlight[id]; busy {
		c.mu.Unlock()
		return domain.ErrTransitionInFlight
	}
	c.inFlight[id] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, id)
		c.mu.Unlock()
	}()

	log := c.log.With(zap.String("loan_id", id.String()), zap.String("target", string(target)))

	updated, err := c.send(ctx, id, target)
	if err != nil {
		if errors.Is(err, domain.ErrAuthExpired) {
			return err
		}
		log.Warn("status change rejected", zap.Error(err))
		c.setBanner(BannerError, "Error: "+failureMessage(err))
		return err
	}

	log.Info("✅ status changed")
	c.records.Applied(ctx, id, target, updated)
	c.setBanner(BannerSuccess, "Loan successfully "+string(target))
	return nil
}

func (c *Controller) send(ctx context.Context, id domain.EntityID, target domain.LoanStatus) (*domain.LoanRecord, error) {
	if target == domain.StatusVerified && c.cap.VerifyVia == VerifyViaEndpoint {
		return c.api.VerifyLoan(ctx, id)
	}
	update := domain.StatusUpdate{Status: target}
	if target == domain.StatusApproved {
		update.DisbursedDate, update.RepaymentDate = ApprovalDates(c.now(), c.window)
	}
	return c.api.UpdateStatus(ctx, id, update)
}

// InFlight reports whether a submission for id is outstanding
func (c *Controller) InFlight(id domain.EntityID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inFlight[id]
	return busy
}

// Busy reports whether any submission is outstanding
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inFlight) > 0
}

// Banner returns the current banner, or nil once it has expired
func (c *Controller) Banner() *Banner {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.banner == nil {
		return nil
	}
	if !c.now().Before(c.banner.ExpiresAt) {
		c.banner = nil
		return nil
	}
	cp := *c.banner
	return &cp
}

func (c *Controller) setBanner(kind BannerKind, msg string) {
	c.mu.Lock()
	c.banner = &Banner{Kind: kind, Message: msg, ExpiresAt: c.now().Add(c.linger)}
	c.mu.Unlock()
}

// ApprovalDates returns the disbursement date (today) and the repayment
// date windowDays later, both as UTC calendar dates
func ApprovalDates(now time.Time, windowDays int) (disbursed, repayment string) {
	today := now.UTC()
	return today.Format(dateLayout), today.AddDate(0, 0, windowDays).Format(dateLayout)
}

func confirmationFor(id domain.EntityID, target domain.LoanStatus) *Confirmation {
	var title, verb string
	switch target {
	case domain.StatusApproved:
		title, verb = "Confirm Approval", "approve"
	case domain.StatusRejected:
		title, verb = "Confirm Rejection", "reject"
	default:
		title, verb = "Confirm Verification", "verify"
	}
	return &Confirmation{
		LoanID:  id,
		Target:  target,
		Title:   title,
		Message: "Are you sure you want to " + verb + " this loan?",
		Note:    "This action cannot be undone.",
	}
}

func failureMessage(err error) string {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var netErr *domain.NetworkError
	if errors.As(err, &netErr) {
		return networkMessage
	}
	return err.Error()
}
