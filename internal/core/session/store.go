package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"loan-console/internal/adapters/persistence/repositories"
	"loan-console/internal/core/domain"
	"loan-console/internal/pkg/jwt"
)

// Storage keys for the cached session
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Store persists one device's session in the storage repository. It keeps
// no in-memory copy, so every call reflects what is in storage.
type Store struct {
	repo      repositories.StorageRepository
	namespace string
	log       *zap.Logger
	now       func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for purge and storage warnings
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the clock used for token expiry checks
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a session store scoped to namespace
func NewStore(repo repositories.StorageRepository, namespace string, opts ...Option) *Store {
	s := &Store{
		repo:      repo,
		namespace: namespace,
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("device", namespace))
	return s
}

// Namespace returns the storage namespace of this store
func (s *Store) Namespace() string {
	return s.namespace
}

// Restore rebuilds the session state from storage. It never fails: anything
// unreadable, partial or expired is purged and reported as unauthenticated.
func (s *Store) Restore(ctx context.Context) domain.SessionState {
	token, hasToken, err := s.repo.Get(ctx, s.namespace, KeyToken)
	if err != nil {
		s.log.Warn("session restore: read token failed", zap.Error(err))
		return domain.Unauthenticated()
	}
	rawUser, hasUser, err := s.repo.Get(ctx, s.namespace, KeyUser)
	if err != nil {
		s.log.Warn("session restore: read user failed", zap.Error(err))
		return domain.Unauthenticated()
	}

	if !hasToken && !hasUser {
		return domain.Unauthenticated()
	}
	if !hasToken || !hasUser || strings.TrimSpace(token) == "" {
		s.purge(ctx, "partial session")
		return domain.Unauthenticated()
	}

	var user domain.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.purge(ctx, "malformed user")
		return domain.Unauthenticated()
	}
	if !user.Role.Valid() {
		s.purge(ctx, "unknown role")
		return domain.Unauthenticated()
	}
	if err := jwt.CheckExpiry(token, s.now()); err != nil {
		s.purge(ctx, "token expired")
		return domain.Unauthenticated()
	}

	return domain.Authenticated(user)
}

// Save writes token and user in a single storage call
func (s *Store) Save(ctx context.Context, sess domain.Session) error {
	if strings.TrimSpace(sess.Token) == "" {
		return fmt.Errorf("save session: empty token")
	}
	if !sess.User.Role.Valid() {
		return fmt.Errorf("save session: %w: %q", domain.ErrUnknownRole, sess.User.Role)
	}
	rawUser, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := s.repo.SetMany(ctx, s.namespace, map[string]string{
		KeyToken: sess.Token,
		KeyUser:  string(rawUser),
	}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes the cached session. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo.Delete(ctx, s.namespace, KeyToken, KeyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Token returns the persisted token, or "" when there is none
func (s *Store) Token(ctx context.Context) string {
	token, ok, err := s.repo.Get(ctx, s.namespace, KeyToken)
	if err != nil || !ok {
		return ""
	}
	return token
}

func (s *Store) purge(ctx context.Context, reason string) {
	s.log.Info("🧹 purging cached session", zap.String("reason", reason))
	if err := s.Clear(ctx); err != nil {
		s.log.Warn("session purge failed", zap.Error(err))
	}
}
