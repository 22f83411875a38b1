// Package login is the role login screen: pick a role, exchange it for a
// bearer token and leave a session behind for the dashboard.
package login

import (
	"context"
	"errors"
	"sync"

	"github.com/jwalitptl/innoguard/internal/apiclient"
	"github.com/jwalitptl/innoguard/internal/model"
	"github.com/jwalitptl/innoguard/internal/session"
	apperrors "github.com/jwalitptl/innoguard/pkg/errors"
	"github.com/jwalitptl/innoguard/pkg/logger"
	"github.com/jwalitptl/innoguard/pkg/metrics"
	"github.com/jwalitptl/innoguard/pkg/validator"
)

// DashboardRoute is where a successful login navigates to.
const DashboardRoute = "/patients"

// SubmittingLabel replaces the submit label while a login is in flight.
const SubmittingLabel = "Securing Session..."

var ErrLoginInProgress = errors.New("login already in progress")

// TokenRequester exchanges a role for an access token.
type TokenRequester interface {
	RequestToken(ctx context.Context, role model.Role) (*model.TokenResponse, error)
}

// Navigator moves the user to another screen.
type Navigator interface {
	Navigate(ctx context.Context, route string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, route string) error

func (f NavigatorFunc) Navigate(ctx context.Context, route string) error {
	return f(ctx, route)
}

// Screen holds the login state of one session.
type Screen struct {
	client    TokenRequester
	store     session.Store
	sessionID string
	nav       Navigator
	validate  validator.Validator
	metrics   *metrics.Metrics
	logger    *logger.Logger

	mu      sync.Mutex
	role    model.Role
	loading bool
	err     error
}

// Option configures a Screen.
type Option func(*Screen)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Screen) { s.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Screen) { s.logger = l }
}

// NewScreen builds a login screen that saves the session under sessionID in
// store. nav may be nil when the host navigates on its own.
func NewScreen(client TokenRequester, store session.Store, sessionID string, nav Navigator, opts ...Option) *Screen {
	s := &Screen{
		client:    client,
		store:     store,
		sessionID: sessionID,
		nav:       nav,
		validate:  validator.New(),
		logger:    logger.Nop(),
		role:      model.DefaultRole,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectRole changes the role the next login will request.
func (s *Screen) SelectRole(role model.Role) error {
	if err := s.validate.Validate(model.TokenRequest{Role: role}); err != nil {
		return apperrors.NewBadRequest("invalid role", err)
	}
	s.mu.Lock()
	s.role = role
	s.mu.Unlock()
	return nil
}

// Login requests a token for the selected role. On success the token and
// role are saved and the screen navigates to the dashboard. Any failure is
// returned and also kept as the screen's error; the store is left untouched.
func (s *Screen) Login(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrLoginInProgress
	}
	s.loading = true
	s.err = nil
	role := s.role
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	err := s.login(ctx, role)
	s.observe(role, err)

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if s.nav != nil {
		return s.nav.Navigate(ctx, DashboardRoute)
	}
	return nil
}

func (s *Screen) login(ctx context.Context, role model.Role) error {
	resp, err := s.client.RequestToken(ctx, role)
	if err != nil {
		if status := apiclient.StatusOf(err); status != 0 {
			return apperrors.NewLoginStatus(status)
		}
		return apperrors.NewLoginFailure(err)
	}
	if resp == nil || resp.AccessToken == "" {
		return apperrors.NewLoginNoToken()
	}

	if err := s.store.Save(ctx, s.sessionID, &model.Session{Token: resp.AccessToken, Role: role}); err != nil {
		return apperrors.NewLoginFailure(err)
	}
	return nil
}

func (s *Screen) observe(role model.Role, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		s.logger.Zerolog().Warn().Err(err).Str("role", role.String()).Msg("login failed")
	} else {
		s.logger.Zerolog().Info().Str("role", role.String()).Msg("login succeeded")
	}
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(role.String(), outcome).Inc()
	}
}

// Role is the currently selected role.
func (s *Screen) Role() model.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Loading reports whether a login is in flight.
func (s *Screen) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Error returns the last login failure, or nil.
func (s *Screen) Error() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ErrorMessage is the text of the error banner; empty when there is none.
func (s *Screen) ErrorMessage() string {
	return apperrors.MessageOf(s.Error())
}

// SubmitLabel is the submit button text for the current state.
func (s *Screen) SubmitLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return SubmittingLabel
	}
	return s.role.ContinueLabel()
}

// View is a snapshot of the screen for rendering.
type View struct {
	Roles       []RoleOption
	Role        model.Role
	Loading     bool
	SubmitLabel string
	Error       string
}

// RoleOption is one role button.
type RoleOption struct {
	Role     model.Role
	Label    string
	Selected bool
}

// View takes the snapshot under a single lock.
func (s *Screen) View() View {
	s.mu.Lock()
	role, loading, err := s.role, s.loading, s.err
	s.mu.Unlock()

	v := View{Role: role, Loading: loading, Error: apperrors.MessageOf(err)}
	v.SubmitLabel = role.ContinueLabel()
	if loading {
		v.SubmitLabel = SubmittingLabel
	}
	for _, r := range model.Roles {
		v.Roles = append(v.Roles, RoleOption{Role: r, Label: r.Label(), Selected: r == role})
	}
	return v
}
