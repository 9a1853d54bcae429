package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"loan-console/internal/adapters/persistence/repositories"
	"loan-console/internal/config"
	"loan-console/internal/core/domain"
	"loan-console/internal/core/guard"
	"loan-console/internal/core/session"
)

type stubAPI struct {
	mu        sync.Mutex
	calls     map[string]int
	session   *domain.Session
	loginErr  error
	loans     []domain.LoanRecord
	listErr   error
	statsErr  error
	updateErr error
	queries   []domain.LoanQuery
	created   []domain.LoanRequest
	store     *session.Store
}

func newStubAPI() *stubAPI {
	return &stubAPI{calls: make(map[string]int)}
}

func (s *stubAPI) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubAPI) record(name string) {
	s.mu.Lock()
	s.calls[name]++
	s.mu.Unlock()
}

// expire mimics the client: an auth failure clears the bound session
func (s *stubAPI) expire(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrAuthExpired) && s.store != nil {
		s.store.Clear(ctx)
	}
	return err
}

func (s *stubAPI) Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	s.record("login")
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.session, nil
}

func (s *stubAPI) Signup(ctx context.Context, req domain.SignupRequest) error {
	s.record("signup")
	return nil
}

func (s *stubAPI) Stats(ctx context.Context, path string) (*domain.DashboardStats, error) {
	s.record("stats")
	if s.statsErr != nil {
		return nil, s.expire(ctx, s.statsErr)
	}
	return &domain.DashboardStats{Loans: int64(len(s.loans))}, nil
}

func (s *stubAPI) LoanList(ctx context.Context, path string, q domain.LoanQuery) (*domain.LoanPage, error) {
	s.record("list")
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.expire(ctx, s.listErr)
	}
	return &domain.LoanPage{Items: s.loans, Total: len(s.loans)}, nil
}

func (s *stubAPI) UpdateStatus(ctx context.Context, id domain.EntityID, u domain.StatusUpdate) (*domain.LoanRecord, error) {
	s.record("update")
	return nil, s.updateErr
}

func (s *stubAPI) VerifyLoan(ctx context.Context, id domain.EntityID) (*domain.LoanRecord, error) {
	s.record("verify")
	return nil, s.updateErr
}

func (s *stubAPI) CreateLoan(ctx context.Context, req domain.LoanRequest) (*domain.LoanRecord, error) {
	s.record("create")
	s.mu.Lock()
	s.created = append(s.created, req)
	s.mu.Unlock()
	return &domain.LoanRecord{ID: "new", Status: domain.StatusPending}, nil
}

var dashCfg = config.DashboardConfig{
	AdminPageSize:       6,
	VerifierPageSize:    6,
	UserPageSize:        5,
	RepaymentWindowDays: 30,
	BannerDuration:      3 * time.Second,
	PollSchedule:        "@every 60s",
	WorkspaceIdle:       time.Hour,
}

func newTestRegistry(t *testing.T, api *stubAPI, poller *Poller, now func() time.Time) (*Registry, *repositories.MemoryStorageRepository) {
	t.Helper()
	repo := repositories.NewMemoryStorageRepository()
	reg := NewRegistry(repo, func(store *session.Store) LoanAPI {
		api.store = store
		return api
	}, poller, RegistryConfig{Dashboard: dashCfg, FetchLimit: 100, Now: now})
	return reg, repo
}

func loans(n int, status domain.LoanStatus) []domain.LoanRecord {
	out := make([]domain.LoanRecord, n)
	for i := range out {
		out[i] = domain.LoanRecord{
			ID:        domain.EntityID(string(rune('a' + i))),
			Amount:    decimal.NewFromInt(int64(1000 * (i + 1))),
			Status:    status,
			CreatedAt: time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
		}
	}
	return out
}

func TestAdminLoginScenario(t *testing.T) {
	ctx := context.Background()
	api := newStubAPI()
	api.session = &domain.Session{Token: "t1", User: domain.User{ID: "1", Role: domain.RoleAdmin}}
	reg, _ := newTestRegistry(t, api, nil, nil)
	ws := reg.Workspace("dev-1")

	home, err := NewAuthService(nil).Login(ctx, ws, domain.Credentials{Email: "admin@x.com", Password: "admin123"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if home != guard.RouteAdminDashboard {
		t.Fatalf("expected admin dashboard, got %s", home)
	}
	state := ws.Session(ctx)
	if !state.IsAuthenticated() || state.User.Role != domain.RoleAdmin {
		t.Fatalf("expected admin session, got %+v", state)
	}
	if ws.Store().Token(ctx) != "t1" {
		t.Fatal("expected token persisted")
	}
}

func TestLoginValidationSkipsNetwork(t *testing.T) {
	api := newStubAPI()
	reg, _ := newTestRegistry(t, api, nil, nil)

	_, err := NewAuthService(nil).Login(context.Background(), reg.Workspace("d"), domain.Credentials{Email: " "})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if api.count("login") != 0 {
		t.Fatal("no network call expected")
	}
}

func TestSignupFlashesMessage(t *testing.T) {
	api := newStubAPI()
	reg, _ := newTestRegistry(t, api, nil, nil)
	ws := reg.Workspace("d")
	auth := NewAuthService(nil)

	err := auth.Signup(context.Background(), ws, domain.SignupInput{
		FullName: "Ada", Email: "ada@x.com", Password: "secret1", ConfirmPassword: "secret2",
	})
	if err == nil || err.Error() != "Passwords do not match" || api.count("signup") != 0 {
		t.Fatalf("expected mismatch before network, got %v", err)
	}

	err = auth.Signup(context.Background(), ws, domain.SignupInput{
		FullName: "Ada", Email: "ada@x.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := ws.TakeFlash(); got != SignupSuccessMessage {
		t.Fatalf("unexpected flash %q", got)
	}
	if ws.TakeFlash() != "" {
		t.Fatal("flash should be consumed")
	}
}

func TestLoanFormInvalidAmountMakesNoCall(t *testing.T) {
	api := newStubAPI()
	reg, _ := newTestRegistry(t, api, nil, nil)

	_, err := NewLoanFormService(nil).Submit(context.Background(), reg.Workspace("d"), domain.LoanApplication{
		FullName: "Ada", Amount: "500", Tenure: "6", EmploymentStatus: "Employed",
		Reason: "Rent", EmploymentAddress: "1 Main St", AcceptTerms: true, AcceptDisclosure: true,
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields["amount"] != "Amount must be at least 1000" {
		t.Fatalf("expected amount validation error, got %v", err)
	}
	if api.count("create") != 0 {
		t.Fatal("no network call expected")
	}
}

func TestLoanFormRefreshesMountedDashboard(t *testing.T) {
	ctx := context.Background()
	api := newStubAPI()
	reg, _ := newTestRegistry(t, api, nil, nil)
	ws := reg.Workspace("d")

	if _, err := ws.Dashboard(ctx, guard.RouteUserDashboard); err != nil {
		t.Fatal(err)
	}
	before := api.count("list")

	_, err := NewLoanFormService(nil).Submit(ctx, ws, domain.LoanApplication{
		FullName: "Ada", Amount: "1500", Tenure: "6", EmploymentStatus: "Employed",
		Reason: "Rent", EmploymentAddress: "1 Main St", EmploymentAddress2: "Apt 4",
		AcceptTerms: true, AcceptDisclosure: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if api.created[0].EmploymentAddress != "1 Main St, Apt 4" {
		t.Fatalf("unexpected address %q", api.created[0].EmploymentAddress)
	}
	if api.count("list") != before+1 {
		t.Fatal("expected user dashboard refetch")
	}
	if ws.TakeFlash() != LoanSubmittedMessage {
		t.Fatal("expected submission flash")
	}
}

func TestDashboardStatusChangeRefetchesStatsOnly(t *testing.T) {
	ctx := context.Background()
	api := newStubAPI()
	api.loans = loans(3, domain.StatusPending)
	reg, _ := newTestRegistry(t, api, nil, nil)
	ws := reg.Workspace("d")

	d, err := ws.Dashboard(ctx, guard.RouteAdminDashboard)
	if err != nil {
		t.Fatal(err)
	}
	if api.count("stats") != 1 || api.count("list") != 1 {
		t.Fatalf("expected one stats and one list fetch, got %v", api.calls)
	}

	if _, err := d.Propose("b", domain.StatusApproved); err != nil {
		t.Fatal(err)
	}
	if err := d.Confirm(ctx); err != nil {
		t.Fatal(err)
	}

	if api.count("stats") != 2 || api.count("list") != 1 {
		t.Fatalf("expected stats refetch only, got %v", api.calls)
	}
	rec, _ := d.Lookup("b")
	if rec.Status != domain.StatusApproved {
		t.Fatalf("expected patched record, got %s", rec.Status)
	}
	view := d.View()
	if view.Banner == nil || view.Banner.Message != "Loan successfully approved" {
		t.Fatalf("unexpected banner %+v", view.Banner)
	}
}

func TestDashboardForwardsQuery(t *testing.T) {
	ctx := context.Background()
	api := newStubAPI()
	reg, _ := newTestRegistry(t, api, nil, nil)
	ws := reg.Workspace("d")

	d, _ := ws.Dashboard(ctx, guard.RouteVerifierDashboard)
	if err := d.SetStatusFilter(ctx, domain.StatusPending); err != nil {
		t.Fatal(err)
	}
	q := api.queries[len(api.queries)-1]
	if q.Status != domain.StatusPending || q.Page != 1 || q.Limit != 100 || q.SortBy != "createdAt" || q.SortOrder != "desc" {
		t.Fatalf("unexpected query %+v", q)
	}

	if err := d.SetStatusFilter(ctx, "archived"); !errors.Is(err, domain.ErrInvalidLoanStatus) {
		t.Fatalf("expected ErrInvalidLoanStatus, got %v", err)
	}
	if err := d.SetPageSize(7); err == nil {
		t.Fatal("expected unoffered page size to be refused")
	}
}

func TestDashboardInlineError(t *testing.T) {
	api := newStubAPI()
	api.listErr = &domain.APIError{Status: 500, Message: "Failed to fetch loans data"}
	reg, _ := newTestRegistry(t, api, nil, nil)

	d, err := reg.Workspace("d").Dashboard(context.Background(), guard.RouteAdminDashboard)
	if err != nil {
		t.Fatalf("non-auth failures must not be returned, got %v", err)
	}
	if v := d.View(); v.Error != "Failed to fetch loans data" || !v.Loading {
		t.Fatalf("unexpected view error %q loading=%v", v.Error, v.Loading)
	}
}

func TestAuthExpiryClearsSession(t *testing.T) {
	ctx := context.Background()
	api := newStubAPI()
	api.statsErr = domain.ErrAuthExpired
	reg, repo := newTestRegistry(t, api, nil, nil)
	ws := reg.Workspace("d")
	ws.Store().Save(ctx, domain.Session{Token: "t", User: domain.User{ID: "1", Role: domain.RoleAdmin}})

	if _, err := ws.Dashboard(ctx, guard.RouteAdminDashboard); !errors.Is(err, domain.ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
	if repo.Len("d") != 0 {
		t.Fatal("expected session cleared")
	}
	if ws.Session(ctx).IsAuthenticated() {
		t.Fatal("expected unauthenticated after expiry")
	}
	if len(ws.MountedRoutes()) != 0 {
		t.Fatal("expected dashboards unmounted")
	}
}

func TestUnknownDashboard(t *testing.T) {
	reg, _ := newTestRegistry(t, newStubAPI(), nil, nil)
	if _, err := reg.Workspace("d").Dashboard(context.Background(), "/reports"); !errors.Is(err, ErrUnknownDashboard) {
		t.Fatalf("expected ErrUnknownDashboard, got %v", err)
	}
}

func TestUserDashboardPollingLifecycle(t *testing.T) {
	ctx := context.Background()
	poller, err := NewPoller("@every 60s", nil)
	if err != nil {
		t.Fatal(err)
	}
	api := newStubAPI()
	api.session = &domain.Session{Token: "t", User: domain.User{ID: "1", Role: domain.RoleUser}}
	reg, _ := newTestRegistry(t, api, poller, nil)
	ws := reg.Workspace("d")
	auth := NewAuthService(nil)

	if _, err := auth.Login(ctx, ws, domain.Credentials{Email: "u@x.com", Password: "pw"}); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Dashboard(ctx, guard.RouteUserDashboard); err != nil {
		t.Fatal(err)
	}
	if !poller.Mounted(ws.pollKey(guard.RouteUserDashboard)) {
		t.Fatal("expected poll job mounted")
	}

	if err := auth.Logout(ctx, ws); err != nil {
		t.Fatal(err)
	}
	if poller.Mounted(ws.pollKey(guard.RouteUserDashboard)) {
		t.Fatal("expected poll job unmounted on logout")
	}
}

func TestPollExpiresWorkspace(t *testing.T) {
	ctx := context.Background()
	poller, _ := NewPoller("@every 60s", nil)
	api := newStubAPI()
	reg, _ := newTestRegistry(t, api, poller, nil)
	ws := reg.Workspace("d")
	ws.Store().Save(ctx, domain.Session{Token: "t", User: domain.User{ID: "1", Role: domain.RoleUser}})

	d, err := ws.Dashboard(ctx, guard.RouteUserDashboard)
	if err != nil {
		t.Fatal(err)
	}

	api.listErr = domain.ErrAuthExpired
	ws.poll(d)

	if poller.Mounted(ws.pollKey(guard.RouteUserDashboard)) {
		t.Fatal("expected poll job removed after auth expiry")
	}
	if ws.Session(ctx).IsAuthenticated() {
		t.Fatal("expected session cleared")
	}
}

func TestAdminDashboardIsNotPolled(t *testing.T) {
	poller, _ := NewPoller("@every 60s", nil)
	reg, _ := newTestRegistry(t, newStubAPI(), poller, nil)
	ws := reg.Workspace("d")
	ws.Dashboard(context.Background(), guard.RouteAdminDashboard)
	if poller.Mounted(ws.pollKey(guard.RouteAdminDashboard)) {
		t.Fatal("only the user dashboard polls")
	}
}

func TestRegistrySweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	reg, _ := newTestRegistry(t, newStubAPI(), nil, clock)

	reg.Workspace("old")
	now = now.Add(50 * time.Minute)
	reg.Workspace("new")
	now = now.Add(20 * time.Minute)

	if n := reg.Sweep(); n != 1 {
		t.Fatalf("expected one workspace swept, got %d", n)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one workspace left, got %d", reg.Len())
	}
}

func TestPollerRejectsBadSchedule(t *testing.T) {
	if _, err := NewPoller("every minute", nil); err == nil {
		t.Fatal("expected invalid schedule error")
	}
}
