package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"loan-console/internal/config"
	"loan-console/internal/core/domain"
)

// Loan service paths
const (
	PathLogin         = "/login"
	PathSignup        = "/signup"
	PathAdminStats    = "/dashboard/admin"
	PathVerifierStats = "/dashboard/verifier"
	PathRecentLoans   = "/loans/recent"
	PathLoans         = "/loans"
	PathUserLoans     = "/user/loans"
)

// SessionStore is the part of the session store the client needs
type SessionStore interface {
	Token(ctx context.Context) string
	Clear(ctx context.Context) error
}

// Client talks to the remote loan service. A Client without a session only
// makes anonymous calls; use WithSession to bind one.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
	session SessionStore
}

// NewClient creates a loan service client from config
func NewClient(cfg config.APIConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	// Zero timeout keeps the transport default
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log.Named("api"),
	}
}

// WithSession returns a copy of the client bound to one session
func (c *Client) WithSession(s SessionStore) *Client {
	cp := *c
	cp.session = s
	return &cp
}

// request describes one call to the loan service
type request struct {
	op       string
	method   string
	path     string
	query    url.Values
	body     interface{}
	auth     bool
	fallback string
}

// do sends the request and decodes a 2xx body into out. Authenticated calls
// answered with 401/403 clear the session and return domain.ErrAuthExpired.
func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	var reader io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", r.op, err)
		}
		reader = bytes.NewReader(b)
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", r.op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.auth && c.session != nil {
		if token := c.session.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	log := c.log.With(
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.String("request_id", requestID),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("loan service unreachable", zap.Error(err))
		return &domain.NetworkError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("read response failed", zap.Error(err))
		return &domain.NetworkError{Op: r.op, Err: err}
	}
	log.Debug("loan service responded",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if r.auth && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		log.Info("🔒 session rejected by loan service, clearing", zap.Int("status", resp.StatusCode))
		if c.session != nil {
			if err := c.session.Clear(ctx); err != nil {
				log.Error("clear session failed", zap.Error(err))
			}
		}
		return domain.ErrAuthExpired
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.APIError{Status: resp.StatusCode, Message: errorMessage(body, r.fallback)}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Warn("unexpected response body", zap.Error(err))
		return &domain.APIError{Status: resp.StatusCode, Message: r.fallback}
	}
	return nil
}

// errorBody covers both error shapes the service sends
type errorBody struct {
	Error  string `json:"error"`
	Errors []struct {
		Msg string `json:"msg"`
	} `json:"errors"`
}

func errorMessage(body []byte, fallback string) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return fallback
	}
	if msg := strings.TrimSpace(eb.Error); msg != "" {
		return msg
	}
	if len(eb.Errors) > 0 && strings.TrimSpace(eb.Errors[0].Msg) != "" {
		return eb.Errors[0].Msg
	}
	return fallback
}

// ============================================================
// Auth
// ============================================================

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Login exchanges credentials for a session
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	var resp loginResponse
	err := c.do(ctx, request{
		op:       "login",
		method:   http.MethodPost,
		path:     PathLogin,
		body:     map[string]string{"email": creds.Email, "password": creds.Password},
		fallback: "Login failed",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &domain.APIError{Status: http.StatusOK, Message: "Login failed"}
	}
	role, err := domain.ParseRole(string(resp.User.Role))
	if err != nil {
		return nil, err
	}
	resp.User.Role = role
	return &domain.Session{Token: resp.Token, User: resp.User}, nil
}

// Signup registers a new account
func (c *Client) Signup(ctx context.Context, req domain.SignupRequest) error {
	return c.do(ctx, request{
		op:       "signup",
		method:   http.MethodPost,
		path:     PathSignup,
		body:     req,
		fallback: "Registration failed",
	}, nil)
}

// ============================================================
// Dashboards
// ============================================================

// Stats fetches dashboard statistics from path
func (c *Client) Stats(ctx context.Context, path string) (*domain.DashboardStats, error) {
	var stats domain.DashboardStats
	err := c.do(ctx, request{
		op:       "stats",
		method:   http.MethodGet,
		path:     path,
		auth:     true,
		fallback: "Failed to fetch dashboard data",
	}, &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// AdminStats fetches the admin dashboard statistics
func (c *Client) AdminStats(ctx context.Context) (*domain.DashboardStats, error) {
	return c.Stats(ctx, PathAdminStats)
}

// VerifierStats fetches the verifier dashboard statistics
func (c *Client) VerifierStats(ctx context.Context) (*domain.DashboardStats, error) {
	return c.Stats(ctx, PathVerifierStats)
}

// LoanList fetches a loan list from path, normalizing both response shapes
func (c *Client) LoanList(ctx context.Context, path string, q domain.LoanQuery) (*domain.LoanPage, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{
		op:       "list loans",
		method:   http.MethodGet,
		path:     path,
		query:    loanQueryValues(q),
		auth:     true,
		fallback: "Failed to fetch loans data",
	}, &raw)
	if err != nil {
		return nil, err
	}
	page, err := decodeLoanPage(raw)
	if err != nil {
		c.log.Warn("unexpected loan list shape", zap.String("path", path), zap.Error(err))
		return nil, &domain.APIError{Status: http.StatusOK, Message: "Failed to fetch loans data"}
	}
	return page, nil
}

// RecentLoans fetches the admin loan list
func (c *Client) RecentLoans(ctx context.Context, q domain.LoanQuery) (*domain.LoanPage, error) {
	return c.LoanList(ctx, PathRecentLoans, q)
}

// Loans fetches the verifier loan list
func (c *Client) Loans(ctx context.Context, q domain.LoanQuery) (*domain.LoanPage, error) {
	return c.LoanList(ctx, PathLoans, q)
}

// UserLoans fetches the caller's own loans
func (c *Client) UserLoans(ctx context.Context) (*domain.LoanPage, error) {
	return c.LoanList(ctx, PathUserLoans, domain.LoanQuery{})
}

func loanQueryValues(q domain.LoanQuery) url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != "" {
		v.Set("sortOrder", q.SortOrder)
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	return v
}

// ============================================================
// Loan mutations
// ============================================================

// UpdateStatus sets a loan's status. The returned record is nil when the
// service does not echo one.
func (c *Client) UpdateStatus(ctx context.Context, id domain.EntityID, update domain.StatusUpdate) (*domain.LoanRecord, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{
		op:       "update status",
		method:   http.MethodPut,
		path:     PathLoans + "/" + url.PathEscape(id.String()) + "/status",
		body:     update,
		auth:     true,
		fallback: "Failed to update loan status",
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeLoanRecord(raw), nil
}

// VerifyLoan marks a loan verified through the verifier endpoint
func (c *Client) VerifyLoan(ctx context.Context, id domain.EntityID) (*domain.LoanRecord, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{
		op:       "verify loan",
		method:   http.MethodPut,
		path:     PathLoans + "/" + url.PathEscape(id.String()) + "/verify",
		auth:     true,
		fallback: "Failed to verify loan",
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeLoanRecord(raw), nil
}

// CreateLoan submits a loan application
func (c *Client) CreateLoan(ctx context.Context, req domain.LoanRequest) (*domain.LoanRecord, error) {
	body := map[string]interface{}{
		"fullName":          req.FullName,
		"amount":            json.Number(req.Amount.String()),
		"tenure":            req.Tenure,
		"employmentStatus":  req.EmploymentStatus,
		"reason":            req.Reason,
		"employmentAddress": req.EmploymentAddress,
	}
	var raw json.RawMessage
	err := c.do(ctx, request{
		op:       "create loan",
		method:   http.MethodPost,
		path:     PathLoans,
		body:     body,
		auth:     true,
		fallback: "Failed to submit loan application",
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeLoanRecord(raw), nil
}
