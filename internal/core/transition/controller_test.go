package transition

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"loan-console/internal/core/domain"
)

type stubSubmitter struct {
	mu       sync.Mutex
	updates  []domain.StatusUpdate
	verified []domain.EntityID
	err      error
	block    chan struct{}
	entered  chan struct{}
}

func (s *stubSubmitter) UpdateStatus(ctx context.Context, id domain.EntityID, u domain.StatusUpdate) (*domain.LoanRecord, error) {
	s.wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
	return nil, s.err
}

func (s *stubSubmitter) VerifyLoan(ctx context.Context, id domain.EntityID) (*domain.LoanRecord, error) {
	s.wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified = append(s.verified, id)
	return nil, s.err
}

func (s *stubSubmitter) wait() {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
}

type stubRecords struct {
	mu      sync.Mutex
	items   map[domain.EntityID]domain.LoanRecord
	applied int
}

func newRecords(recs ...domain.LoanRecord) *stubRecords {
	r := &stubRecords{items: make(map[domain.EntityID]domain.LoanRecord)}
	for _, rec := range recs {
		r.items[rec.ID] = rec
	}
	return r
}

func (r *stubRecords) Lookup(id domain.EntityID) (domain.LoanRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.items[id]
	return rec, ok
}

func (r *stubRecords) Applied(ctx context.Context, id domain.EntityID, status domain.LoanStatus, rec *domain.LoanRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := r.items[id]
	it.Status = status
	r.items[id] = it
	r.applied++
}

func (r *stubRecords) status(id domain.EntityID) domain.LoanStatus {
	rec, _ := r.Lookup(id)
	return rec.Status
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newController(capability Capability, sub Submitter, recs RecordSet, clk *clock) *Controller {
	return NewController(capability, sub, recs, Config{
		RepaymentWindowDays: 30,
		BannerDuration:      3 * time.Second,
		Now:                 clk.now,
	})
}

var march = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestCapabilityMenus(t *testing.T) {
	tests := []struct {
		name   string
		cap    Capability
		status domain.LoanStatus
		want   []string
	}{
		{"verifier pending", Verifier(6), domain.StatusPending, []string{"Verify"}},
		{"verifier approved", Verifier(6), domain.StatusApproved, []string{"View Details"}},
		{"verifier verified", Verifier(6), domain.StatusVerified, []string{"View Details"}},
		{"admin pending", Admin(6), domain.StatusPending, []string{"Verify", "Approve", "Reject"}},
		{"admin verified", Admin(6), domain.StatusVerified, []string{"Approve", "Reject"}},
		{"admin approved", Admin(6), domain.StatusApproved, []string{"View Details"}},
		{"admin rejected", Admin(6), domain.StatusRejected, []string{"View Details"}},
		{"user pending", User(5), domain.StatusPending, []string{"View Details"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cap.Actions(tt.status)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %+v", tt.want, got)
			}
			for i, a := range got {
				if a.Label != tt.want[i] {
					t.Fatalf("expected %v, got %+v", tt.want, got)
				}
			}
		})
	}

	if !User(5).ReadOnly() || Admin(6).ReadOnly() {
		t.Fatal("only the user dashboard is read-only")
	}
}

func TestOfferedActionsAreLegalTransitions(t *testing.T) {
	for _, capability := range []Capability{Admin(6), Verifier(6), User(5)} {
		for _, from := range domain.AllStatuses {
			for _, a := range capability.Actions(from) {
				if a.Target != "" && !domain.CanTransition(from, a.Target) {
					t.Errorf("%s offers illegal %s -> %s", capability.Name, from, a.Target)
				}
			}
		}
	}
}

func TestProposeConfirmationText(t *testing.T) {
	recs := newRecords(domain.LoanRecord{ID: "1", Status: domain.StatusPending})
	c := newController(Admin(6), &stubSubmitter{}, recs, &clock{t: march})

	conf, err := c.Propose("1", domain.StatusApproved)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if conf.Title != "Confirm Approval" || conf.Message != "Are you sure you want to approve this loan?" ||
		conf.Note != "This action cannot be undone." {
		t.Fatalf("unexpected confirmation %+v", conf)
	}

	c.Cancel()
	if c.Pending() != nil {
		t.Fatal("cancel should close the confirmation")
	}
	if err := c.Confirm(context.Background()); !errors.Is(err, domain.ErrNoPendingConfirmation) {
		t.Fatalf("expected ErrNoPendingConfirmation, got %v", err)
	}
}

func TestProposeRejectsUnofferedActions(t *testing.T) {
	recs := newRecords(
		domain.LoanRecord{ID: "1", Status: domain.StatusApproved},
		domain.LoanRecord{ID: "2", Status: domain.StatusPending},
	)
	verifier := newController(Verifier(6), &stubSubmitter{}, recs, &clock{t: march})

	if _, err := verifier.Propose("1", domain.StatusVerified); !errors.Is(err, domain.ErrActionNotOffered) {
		t.Fatalf("expected ErrActionNotOffered on approved loan, got %v", err)
	}
	if _, err := verifier.Propose("2", domain.StatusApproved); !errors.Is(err, domain.ErrActionNotOffered) {
		t.Fatalf("verifier must not approve, got %v", err)
	}
	if _, err := verifier.Propose("missing", domain.StatusVerified); !errors.Is(err, domain.ErrLoanNotFound) {
		t.Fatalf("expected ErrLoanNotFound, got %v", err)
	}

	user := newController(User(5), &stubSubmitter{}, recs, &clock{t: march})
	if _, err := user.Propose("2", domain.StatusVerified); !errors.Is(err, domain.ErrActionNotOffered) {
		t.Fatalf("user dashboard is read-only, got %v", err)
	}
}

func TestApproveSendsDates(t *testing.T) {
	for _, tenure := range []int{1, 12, 60} {
		sub := &stubSubmitter{}
		recs := newRecords(domain.LoanRecord{ID: "1", Status: domain.StatusPending, TenureMonths: tenure})
		c := newController(Admin(6), sub, recs, &clock{t: march})

		if err := c.Submit(context.Background(), "1", domain.StatusApproved); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		got := sub.updates[0]
		if got.DisbursedDate != "2024-03-01" || got.RepaymentDate != "2024-03-31" {
			t.Fatalf("tenure %d: unexpected dates %+v", tenure, got)
		}
	}
}

func TestRejectSendsNoDates(t *testing.T) {
	sub := &stubSubmitter{}
	recs := newRecords(domain.LoanRecord{ID: "1", Status: domain.StatusVerified})
	c := newController(Admin(6), sub, recs, &clock{t: march})

	if err := c.Submit(context.Background(), "1", domain.StatusRejected); err != nil {
		t.Fatal(err)
	}
	if u := sub.updates[0]; u.DisbursedDate != "" || u.RepaymentDate != "" || u.Status != domain.StatusRejected {
		t.Fatalf("unexpected update %+v", u)
	}
}

func TestVerifyRoutes(t *testing.T) {
	ctx := context.Background()

	sub := &stubSubmitter{}
	recs := newRecords(domain.LoanRecord{ID: "1", Status: domain.StatusPending})
	if err := newController(Verifier(6), sub, recs, &clock{t: march}).Submit(ctx, "1", domain.StatusVerified); err != nil {
		t.Fatal(err)
	}
	if len(sub.verified) != 1 || len(sub.updates) != 0 {
		t.Fatal("verifier should use the verify endpoint")
	}

	sub = &stubSubmitter{}
	recs = newRecords(domain.LoanRecord{ID: "1", Status: domain.StatusPending})
	if err := newController(Admin(6), sub, recs, &clock{t: march}).Submit(ctx, "1", domain.StatusVerified); err != nil {
		t.Fatal(err)
	}
	if len(sub.updates) != 1 || sub.updates[0].Status != domain.StatusVerified {
		t.Fatal("admin should use the status endpoint")
	}
}

func TestConfirmPatchesAndShowsBanner(t *testing.T) {
	clk := &clock{t: march}
	recs := newRecords(domain.LoanRecord{ID: "1", Status: domain.StatusPending})
	c := newController(Verifier(6), &stubSubmitter{}, recs, clk)

	if _, err := c.Propose("1", domain.StatusVerified); err != nil {
		t.Fatal(err)
	}
	if err := c.Confirm(context.Background()); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if recs.status("1") != domain.StatusVerified || recs.applied != 1 {
		t.Fatal("record should be patched once")
	}
	b := c.Banner()
	if b == nil || b.Kind != BannerSuccess || b.Message != "Loan successfully verified" {
		t.Fatalf("unexpected banner %+v", b)
	}

	clk.t = clk.t.Add(2999 * time.Millisecond)
	if c.Banner() == nil {
		t.Fatal("banner should still be visible")
	}
	clk.t = clk.t.Add(time.Millisecond)
	if c.Banner() != nil {
		t.Fatal("banner should be dismissed after 3s")
	}
}

func TestFailureLeavesStatusUnchanged(t *testing.T) {
	sub := &stubSubmitter{err: &domain.APIError{Status: 409, Message: "Loan already processed"}}
	recs := newRecords(domain.LoanRecord{ID: "1", Status: domain.StatusPending})
	c := newController(Admin(6), sub, recs, &clock{t: march})

	err := c.Submit(context.Background(), "1", domain.StatusApproved)
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if recs.status("1") != domain.StatusPending || recs.applied != 0 {
		t.Fatal("failed submission must not patch the record")
	}
	if b := c.Banner(); b == nil || b.Kind != BannerError || b.Message != "Error: Loan already processed" {
		t.Fatalf("unexpected banner %+v", b)
	}
}

func TestNetworkFailureBanner(t *testing.T) {
	sub := &stubSubmitter{err: &domain.NetworkError{Op: "update status", Err: errors.New("connection refused")}}
	recs := newRecords(domain.LoanRecord{ID: "1", Status: domain.StatusPending})
	c := newController(Admin(6), sub, recs, &clock{t: march})

	c.Submit(context.Background(), "1", domain.StatusRejected)
	if b := c.Banner(); b == nil || b.Message != "Error: "+networkMessage {
		t.Fatalf("unexpected banner %+v", b)
	}
}

func TestAuthExpiredHasNoBanner(t *testing.T) {
	sub := &stubSubmitter{err: domain.ErrAuthExpired}
	recs := newRecords(domain.LoanRecord{ID: "1", Status: domain.StatusPending})
	c := newController(Admin(6), sub, recs, &clock{t: march})

	if err := c.Submit(context.Background(), "1", domain.StatusApproved); !errors.Is(err, domain.ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
	if c.Banner() != nil {
		t.Fatal("auth expiry should redirect, not show a banner")
	}
}

func TestSecondSubmissionWhileInFlight(t *testing.T) {
	sub := &stubSubmitter{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	recs := newRecords(domain.LoanRecord{ID: "1", Status: domain.StatusPending})
	c := newController(Admin(6), sub, recs, &clock{t: march})

	done := make(chan error, 1)
	go func() {
		done <- c.Submit(context.Background(), "1", domain.StatusApproved)
	}()
	<-sub.entered

	if !c.InFlight("1") {
		t.Fatal("expected loan 1 in flight")
	}
	if err := c.Submit(context.Background(), "1", domain.StatusRejected); !errors.Is(err, domain.ErrTransitionInFlight) {
		t.Fatalf("expected ErrTransitionInFlight, got %v", err)
	}
	if _, err := c.Propose("1", domain.StatusRejected); !errors.Is(err, domain.ErrTransitionInFlight) {
		t.Fatalf("expected propose to be refused while in flight, got %v", err)
	}

	close(sub.block)
	if err := <-done; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	if c.InFlight("1") {
		t.Fatal("in-flight mark should be released")
	}
	if len(sub.updates) != 1 {
		t.Fatalf("expected exactly one request, got %d", len(sub.updates))
	}
}

func TestApprovalDatesUseUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	now := time.Date(2024, 1, 31, 8, 0, 0, 0, loc) // 2024-01-30 22:00 UTC
	d, r := ApprovalDates(now, 30)
	if d != "2024-01-30" || r != "2024-02-29" {
		t.Fatalf("unexpected dates %s %s", d, r)
	}
}
