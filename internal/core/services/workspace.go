package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"loan-console/internal/adapters/persistence/repositories"
	"loan-console/internal/config"
	"loan-console/internal/core/domain"
	"loan-console/internal/core/session"
	"loan-console/internal/core/transition"
)

// ErrUnknownDashboard is returned for a dashboard name with no capability
var ErrUnknownDashboard = errors.New("unknown dashboard")

const pollTimeout = 30 * time.Second

// Capabilities builds the dashboard descriptors keyed by route
func Capabilities(cfg config.DashboardConfig) map[string]transition.Capability {
	caps := []transition.Capability{
		transition.Admin(cfg.AdminPageSize),
		transition.Verifier(cfg.VerifierPageSize),
		transition.User(cfg.UserPageSize),
	}
	out := make(map[string]transition.Capability, len(caps))
	for _, c := range caps {
		out[c.Route] = c
	}
	return out
}

// Workspace is everything the console keeps for one device: its session
// store, an API client bound to that session and the mounted dashboards
type Workspace struct {
	id     string
	store  SessionStore
	api    LoanAPI
	poller *Poller
	opts   DashboardOptions
	caps   map[string]transition.Capability
	log    *zap.Logger

	mu         sync.Mutex
	dashboards map[string]*Dashboard
	flash      string
	lastSeen   time.Time
}

// NewWorkspace creates a workspace. poller may be nil, which disables polling.
func NewWorkspace(id string, store SessionStore, api LoanAPI, poller *Poller, caps map[string]transition.Capability, opts DashboardOptions) *Workspace {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Logger = opts.Logger.With(zap.String("device", id))
	return &Workspace{
		id:         id,
		store:      store,
		api:        api,
		poller:     poller,
		opts:       opts,
		caps:       caps,
		log:        opts.Logger,
		dashboards: make(map[string]*Dashboard),
		lastSeen:   opts.Now(),
	}
}

// ID returns the device id
func (w *Workspace) ID() string {
	return w.id
}

// API returns the client bound to this workspace's session
func (w *Workspace) API() LoanAPI {
	return w.api
}

// Store returns the session store
func (w *Workspace) Store() SessionStore {
	return w.store
}

// Session restores the current session state from storage
func (w *Workspace) Session(ctx context.Context) domain.SessionState {
	w.touch()
	return w.store.Restore(ctx)
}

// Dashboard returns the dashboard mounted at route, mounting and loading it
// first if needed. A load rejected with domain.ErrAuthExpired expires the
// workspace.
func (w *Workspace) Dashboard(ctx context.Context, route string) (*Dashboard, error) {
	w.touch()
	route = "/" + strings.Trim(route, "/")
	capability, ok := w.caps[route]
	if !ok {
		return nil, ErrUnknownDashboard
	}

	w.mu.Lock()
	d, mounted := w.dashboards[route]
	if !mounted {
		d = NewDashboard(capability, w.api, w.opts)
		w.dashboards[route] = d
	}
	w.mu.Unlock()

	if mounted {
		return d, nil
	}

	w.log.Info("📊 dashboard mounted", zap.String("dashboard", capability.Name))
	if err := d.Load(ctx); err != nil {
		w.Expire(ctx)
		return nil, err
	}
	if capability.Polling && w.poller != nil {
		w.poller.Mount(w.pollKey(route), func() { w.poll(d) })
	}
	return d, nil
}

// Mounted returns the dashboard at route without mounting it
func (w *Workspace) Mounted(route string) (*Dashboard, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	d, ok := w.dashboards["/"+strings.Trim(route, "/")]
	return d, ok
}

// MountedRoutes lists mounted dashboard routes
func (w *Workspace) MountedRoutes() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.dashboards))
	for r := range w.dashboards {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func (w *Workspace) poll(d *Dashboard) {
	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()
	if err := d.RefreshList(ctx); errors.Is(err, domain.ErrAuthExpired) {
		w.log.Info("session expired during poll")
		w.Expire(ctx)
	}
}

// UnmountAll drops every dashboard and its polling job
func (w *Workspace) UnmountAll() {
	w.mu.Lock()
	routes := make([]string, 0, len(w.dashboards))
	for r := range w.dashboards {
		routes = append(routes, r)
	}
	w.dashboards = make(map[string]*Dashboard)
	w.mu.Unlock()

	if w.poller == nil {
		return
	}
	for _, r := range routes {
		w.poller.Unmount(w.pollKey(r))
	}
}

// Expire forgets the session and every dashboard
func (w *Workspace) Expire(ctx context.Context) {
	if err := w.store.Clear(ctx); err != nil {
		w.log.Warn("clear session failed", zap.Error(err))
	}
	w.UnmountAll()
}

// SetFlash stores a one-shot message for the next page
func (w *Workspace) SetFlash(msg string) {
	w.mu.Lock()
	w.flash = msg
	w.mu.Unlock()
}

// TakeFlash returns and clears the one-shot message
func (w *Workspace) TakeFlash() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := w.flash
	w.flash = ""
	return msg
}

func (w *Workspace) touch() {
	now := w.opts.Now()
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

func (w *Workspace) pollKey(route string) string {
	return w.id + route
}

// ============================================================
// Registry
// ============================================================

// APIFactory binds the loan service client to a device's session
type APIFactory func(store *session.Store) LoanAPI

// RegistryConfig holds registry settings
type RegistryConfig struct {
	Dashboard  config.DashboardConfig
	FetchLimit int
	Logger     *zap.Logger
	Now        func() time.Time
}

// Registry hands out one workspace per device id
type Registry struct {
	repo   repositories.StorageRepository
	newAPI APIFactory
	poller *Poller
	caps   map[string]transition.Capability
	opts   DashboardOptions
	idle   time.Duration
	log    *zap.Logger

	mu     sync.Mutex
	spaces map[string]*Workspace
}

// NewRegistry creates an empty registry
func NewRegistry(repo repositories.StorageRepository, newAPI APIFactory, poller *Poller, cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		repo:   repo,
		newAPI: newAPI,
		poller: poller,
		caps:   Capabilities(cfg.Dashboard),
		opts: DashboardOptions{
			FetchLimit:          cfg.FetchLimit,
			RepaymentWindowDays: cfg.Dashboard.RepaymentWindowDays,
			BannerDuration:      cfg.Dashboard.BannerDuration,
			Now:                 cfg.Now,
			Logger:              cfg.Logger,
		},
		idle:   cfg.Dashboard.WorkspaceIdle,
		log:    cfg.Logger,
		spaces: make(map[string]*Workspace),
	}
}

// Workspace returns the workspace of deviceID, creating it on first use
func (r *Registry) Workspace(deviceID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.spaces[deviceID]; ok {
		return ws
	}
	store := session.NewStore(r.repo, deviceID, session.WithLogger(r.log), session.WithClock(r.opts.Now))
	ws := NewWorkspace(deviceID, store, r.newAPI(store), r.poller, r.caps, r.opts)
	r.spaces[deviceID] = ws
	return ws
}

// Capability returns the descriptor for a dashboard route
func (r *Registry) Capability(route string) (transition.Capability, bool) {
	c, ok := r.caps["/"+strings.Trim(route, "/")]
	return c, ok
}

// Len returns the number of live workspaces
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spaces)
}

// Sweep drops workspaces idle for longer than the configured timeout. The
// persisted session survives; the next request rebuilds the workspace.
func (r *Registry) Sweep() int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.opts.Now().Add(-r.idle)

	r.mu.Lock()
	var stale []*Workspace
	for id, ws := range r.spaces {
		if ws.idleSince().Before(cutoff) {
			stale = append(stale, ws)
			delete(r.spaces, id)
		}
	}
	r.mu.Unlock()

	for _, ws := range stale {
		ws.UnmountAll()
	}
	if len(stale) > 0 {
		r.log.Info("🧹 swept idle workspaces", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Close unmounts every workspace
func (r *Registry) Close() {
	r.mu.Lock()
	spaces := r.spaces
	r.spaces = make(map[string]*Workspace)
	r.mu.Unlock()

	for _, ws := range spaces {
		ws.UnmountAll()
	}
}
