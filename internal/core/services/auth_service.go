package services

import (
	"context"

	"go.uber.org/zap"

	"loan-console/internal/core/domain"
	"loan-console/internal/core/guard"
)

// SignupSuccessMessage is flashed on the login page after registration
const SignupSuccessMessage = "Account created successfully! You can now log in."

// AuthService handles login, signup and logout for a workspace
type AuthService struct {
	log *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{log: log.Named("auth")}
}

// Login validates credentials, authenticates and persists the session. It
// returns the home route of the user's role.
func (s *AuthService) Login(ctx context.Context, ws *Workspace, creds domain.Credentials) (string, error) {
	if err := creds.Validate(); err != nil {
		return "", err
	}

	sess, err := ws.API().Login(ctx, creds)
	if err != nil {
		s.log.Info("login failed", zap.String("device", ws.ID()), zap.Error(err))
		return "", err
	}
	if err := ws.Store().Save(ctx, *sess); err != nil {
		s.log.Error("persist session failed", zap.String("device", ws.ID()), zap.Error(err))
		return "", err
	}

	// Dashboards mounted under a previous identity must not leak into this one
	ws.UnmountAll()

	s.log.Info("🔑 login",
		zap.String("device", ws.ID()),
		zap.String("user_id", sess.User.ID.String()),
		zap.String("role", string(sess.User.Role)),
	)
	return guard.HomeFor(sess.User.Role), nil
}

// Signup validates and registers a new account, leaving a flash message for
// the login page
func (s *AuthService) Signup(ctx context.Context, ws *Workspace, in domain.SignupInput) error {
	req, err := in.Validate()
	if err != nil {
		return err
	}
	if err := ws.API().Signup(ctx, *req); err != nil {
		s.log.Info("signup failed", zap.String("device", ws.ID()), zap.Error(err))
		return err
	}
	ws.SetFlash(SignupSuccessMessage)
	s.log.Info("📝 signup", zap.String("device", ws.ID()))
	return nil
}

// Logout clears the session and unmounts every dashboard
func (s *AuthService) Logout(ctx context.Context, ws *Workspace) error {
	ws.UnmountAll()
	if err := ws.Store().Clear(ctx); err != nil {
		return err
	}
	s.log.Info("👋 logout", zap.String("device", ws.ID()))
	return nil
}
