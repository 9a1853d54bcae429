package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"loan-console/internal/core/domain"
	"loan-console/internal/core/listview"
	"loan-console/internal/core/transition"
)

// DashboardOptions holds the policy shared by every dashboard
type DashboardOptions struct {
	// FetchLimit is the page size requested from the service; the list is
	// fetched in one request and paginated locally
	FetchLimit          int
	RepaymentWindowDays int
	BannerDuration      time.Duration
	Now                 func() time.Time
	Logger              *zap.Logger
}

// Dashboard is one mounted dashboard: stats, the local list state and the
// status transition controller. Network calls are made without holding mu.
type Dashboard struct {
	cap  transition.Capability
	api  LoanAPI
	opts DashboardOptions
	log  *zap.Logger
	ctrl *transition.Controller

	mu        sync.Mutex
	list      *listview.State
	stats     *domain.DashboardStats
	statsErr  string
	listErr   string
	loaded    bool
	fetchedAt time.Time
}

// NewDashboard creates an unloaded dashboard for capability
func NewDashboard(capability transition.Capability, api LoanAPI, opts DashboardOptions) *Dashboard {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.FetchLimit < 1 {
		opts.FetchLimit = 100
	}
	d := &Dashboard{
		cap:  capability,
		api:  api,
		opts: opts,
		log:  opts.Logger.With(zap.String("dashboard", capability.Name)),
		list: listview.New(capability.PageSize),
	}
	d.ctrl = transition.NewController(capability, api, d, transition.Config{
		RepaymentWindowDays: opts.RepaymentWindowDays,
		BannerDuration:      opts.BannerDuration,
		Now:                 opts.Now,
		Logger:              opts.Logger,
	})
	return d
}

// Capability returns the dashboard's capability descriptor
func (d *Dashboard) Capability() transition.Capability {
	return d.cap
}

// Load fetches stats and list. Only domain.ErrAuthExpired is returned;
// other failures are kept as the inline error of the view.
func (d *Dashboard) Load(ctx context.Context) error {
	if err := d.RefreshStats(ctx); errors.Is(err, domain.ErrAuthExpired) {
		return err
	}
	if err := d.RefreshList(ctx); errors.Is(err, domain.ErrAuthExpired) {
		return err
	}
	return nil
}

// Loaded reports whether a list fetch has completed
func (d *Dashboard) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

// RefreshStats refetches the statistics aggregate
func (d *Dashboard) RefreshStats(ctx context.Context) error {
	if d.cap.StatsPath == "" {
		return nil
	}
	stats, err := d.api.Stats(ctx, d.cap.StatsPath)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.statsErr = inlineMessage(err)
		d.log.Warn("stats fetch failed", zap.Error(err))
		return err
	}
	d.stats = stats
	d.statsErr = ""
	return nil
}

// RefreshList refetches the loan list, keeping the list state
func (d *Dashboard) RefreshList(ctx context.Context) error {
	d.mu.Lock()
	q := domain.LoanQuery{Page: 1, Limit: d.opts.FetchLimit}
	if d.cap.ServerQuery {
		field, dir := d.list.Sort()
		q.SortBy, q.SortOrder = field, string(dir)
		q.Status = d.list.StatusFilter()
	}
	d.mu.Unlock()

	page, err := d.api.LoanList(ctx, d.cap.ListPath, q)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.listErr = inlineMessage(err)
		d.log.Warn("list fetch failed", zap.Error(err))
		return err
	}
	if page.Total > len(page.Items) {
		d.log.Warn("loan list truncated",
			zap.Int("fetched", len(page.Items)),
			zap.Int("total", page.Total),
			zap.Int("fetch_limit", d.opts.FetchLimit),
		)
	}
	d.list.SetItems(page.Items)
	d.listErr = ""
	d.loaded = true
	d.fetchedAt = d.opts.Now()
	return nil
}

// Refresh refetches stats and list
func (d *Dashboard) Refresh(ctx context.Context) error {
	return d.Load(ctx)
}

// SetPage moves to page
func (d *Dashboard) SetPage(page int) {
	d.mu.Lock()
	d.list.SetPage(page)
	d.mu.Unlock()
}

// SetPageSize changes the page size if it is one of the offered sizes
func (d *Dashboard) SetPageSize(size int) error {
	if !d.offersPageSize(size) {
		return fmt.Errorf("page size %d not offered (choose one of %v)", size, d.cap.PageSizes)
	}
	d.mu.Lock()
	d.list.SetPageSize(size)
	d.mu.Unlock()
	return nil
}

func (d *Dashboard) offersPageSize(size int) bool {
	if size == d.cap.PageSize {
		return true
	}
	for _, s := range d.cap.PageSizes {
		if s == size {
			return true
		}
	}
	return false
}

// ToggleSort toggles the sort on field. Dashboards that forward sort to the
// service refetch.
func (d *Dashboard) ToggleSort(ctx context.Context, field string) error {
	d.mu.Lock()
	d.list.ToggleSort(field)
	d.mu.Unlock()
	if d.cap.ServerQuery {
		return d.RefreshList(ctx)
	}
	return nil
}

// SetStatusFilter changes the status filter and refetches
func (d *Dashboard) SetStatusFilter(ctx context.Context, status domain.LoanStatus) error {
	if status != "" && !d.offersStatus(status) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidLoanStatus, status)
	}
	d.mu.Lock()
	d.list.SetStatusFilter(status)
	d.mu.Unlock()
	if d.cap.ServerQuery {
		return d.RefreshList(ctx)
	}
	return nil
}

func (d *Dashboard) offersStatus(status domain.LoanStatus) bool {
	for _, s := range d.cap.StatusFilters {
		if s == status {
			return true
		}
	}
	return false
}

// SetSearch sets the local text search
func (d *Dashboard) SetSearch(text string) {
	d.mu.Lock()
	d.list.SetSearch(text)
	d.mu.Unlock()
}

// Propose opens a confirmation for moving loan id to target
func (d *Dashboard) Propose(id domain.EntityID, target domain.LoanStatus) (*transition.Confirmation, error) {
	return d.ctrl.Propose(id, target)
}

// Cancel closes the open confirmation
func (d *Dashboard) Cancel() {
	d.ctrl.Cancel()
}

// Confirm submits the open confirmation
func (d *Dashboard) Confirm(ctx context.Context) error {
	return d.ctrl.Confirm(ctx)
}

// Lookup implements transition.RecordSet
func (d *Dashboard) Lookup(id domain.EntityID) (domain.LoanRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.list.Item(id)
}

// Applied implements transition.RecordSet: patch the record, then refetch
// stats but not the list
func (d *Dashboard) Applied(ctx context.Context, id domain.EntityID, status domain.LoanStatus, rec *domain.LoanRecord) {
	d.mu.Lock()
	if rec != nil && rec.ID == id && rec.Status == status {
		d.list.Replace(*rec)
	} else {
		d.list.Patch(id, status)
	}
	d.mu.Unlock()

	if err := d.RefreshStats(ctx); err != nil {
		d.log.Warn("stats refresh after status change failed", zap.Error(err))
	}
}

// Row is one rendered loan row
type Row struct {
	domain.LoanRecord
	Officer    string              `json:"loanOfficer"`
	Date       string              `json:"date"`
	Time       string              `json:"time"`
	LastUpdate string              `json:"lastUpdate"`
	Actions    []transition.Action `json:"actions"`
	InFlight   bool                `json:"inFlight"`
}

// DashboardView is the render model of a dashboard
type DashboardView struct {
	Dashboard    transition.Capability    `json:"dashboard"`
	Stats        *domain.DashboardStats   `json:"stats,omitempty"`
	List         listview.View            `json:"list"`
	Rows         []Row                    `json:"rows"`
	Confirmation *transition.Confirmation `json:"confirmation,omitempty"`
	Banner       *transition.Banner       `json:"banner,omitempty"`
	Busy         bool                     `json:"actionInProgress"`
	Loading      bool                     `json:"loading"`
	Error        string                   `json:"error,omitempty"`
	FetchedAt    *time.Time               `json:"fetchedAt,omitempty"`
}

// View renders the current page
func (d *Dashboard) View() DashboardView {
	d.mu.Lock()
	snap := d.list.Snapshot()
	view := DashboardView{
		Dashboard: d.cap,
		Loading:   !d.loaded,
		Error:     d.listErr,
	}
	if view.Error == "" {
		view.Error = d.statsErr
	}
	if d.stats != nil {
		s := *d.stats
		view.Stats = &s
	}
	if !d.fetchedAt.IsZero() {
		t := d.fetchedAt
		view.FetchedAt = &t
	}
	d.mu.Unlock()

	now := d.opts.Now()
	view.Rows = make([]Row, 0, len(snap.Items))
	for _, it := range snap.Items {
		view.Rows = append(view.Rows, Row{
			LoanRecord: it,
			Officer:    it.OfficerLabel(),
			Date:       it.CreatedAt.Format(listview.DateLayout),
			Time:       it.CreatedAt.Format("3:04 PM"),
			LastUpdate: lastUpdate(it.UpdatedAt, now),
			Actions:    d.cap.Actions(it.Status),
			InFlight:   d.ctrl.InFlight(it.ID),
		})
	}
	snap.Items = nil
	view.List = snap
	view.Confirmation = d.ctrl.Pending()
	view.Banner = d.ctrl.Banner()
	view.Busy = d.ctrl.Busy()
	return view
}

// lastUpdate renders the age of t in whole days
func lastUpdate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	days := int(now.Sub(t).Hours() / 24)
	switch days {
	case 0:
		return "today"
	case 1:
		return "yesterday"
	}
	return fmt.Sprintf("%d days ago", days)
}

// inlineMessage is the text shown in a dashboard's error slot
func inlineMessage(err error) string {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var netErr *domain.NetworkError
	if errors.As(err, &netErr) {
		return "Unable to reach the loan service. Please try again."
	}
	return err.Error()
}
