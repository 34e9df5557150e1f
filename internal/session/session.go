// Package session owns the authentication state of the storefront: the
// durable bearer token and the profile resolved from it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/tokenstore"
	"github.com/utafrali/storefront/pkg/events"
	"github.com/utafrali/storefront/pkg/validator"
)

// State is the session lifecycle.
type State int

const (
	Unresolved State = iota
	Resolving
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Reason explains the latest transition to Anonymous.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonLoggedOut     Reason = "logged_out"
	ReasonExpired       Reason = "expired"
	ReasonResolveFailed Reason = "resolve_failed"
)

// EventChanged is published after every transition.
const EventChanged = "session.changed"

// ErrNoToken is returned by TokenClaims when no token is held.
var ErrNoToken = errors.New("no session token")

// Snapshot is a consistent view of the session. User is only meaningful
// when Loading is false. Seq grows with every transition, so a subscriber can
// drop a snapshot older than one it already applied.
type Snapshot struct {
	Seq     uint64
	State   State
	Token   string
	User    *domain.User
	Loading bool
	Reason  Reason
}

// IsAdmin reports an authenticated administrator.
func (s Snapshot) IsAdmin() bool {
	return s.State == Authenticated && s.User != nil && s.User.IsAdmin()
}

// API is the part of the backend the session talks to.
type API interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.LoginResponse, error)
	Me(ctx context.Context) (domain.User, error)
}

// Store is the single owner of session mutations. Readers take snapshots or
// subscribe; nothing else writes the token.
type Store struct {
	api    API
	tokens tokenstore.Store
	logger *slog.Logger
	bus    *events.Bus[Snapshot]

	mu     sync.Mutex
	state  State
	token  string
	user   *domain.User
	reason Reason
	gen    uint64 // bumped when the token changes; stale resolutions compare it
	seq    uint64 // bumped on every published transition
}

// New returns an Unresolved store. Call Init to resolve the stored token.
func New(api API, tokens tokenstore.Store, logger *slog.Logger) *Store {
	return &Store{
		api:    api,
		tokens: tokens,
		logger: logger,
		bus:    events.NewBus[Snapshot]("session"),
		state:  Unresolved,
	}
}

// Snapshot returns the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Seq:     s.seq,
		State:   s.state,
		Token:   s.token,
		Loading: s.state == Unresolved || s.state == Resolving,
		Reason:  s.reason,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Subscribe streams a snapshot after every transition.
func (s *Store) Subscribe() (<-chan events.Event[Snapshot], func()) {
	return s.bus.Subscribe()
}

// Close ends every subscription.
func (s *Store) Close() { s.bus.Close() }

// IsAdmin reports whether the resolved user holds the ADMIN role.
func (s *Store) IsAdmin() bool { return s.Snapshot().IsAdmin() }

// Init resolves the token found in durable storage. Without a token the
// session becomes Anonymous and no request is made. Calling Init again for
// the same token does nothing.
func (s *Store) Init(ctx context.Context) error {
	token, ok, err := s.tokens.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session token: %w", err)
	}

	s.mu.Lock()
	if !ok {
		if s.state == Anonymous {
			s.mu.Unlock()
			return nil
		}
		s.gen++
		s.state, s.token, s.user, s.reason = Anonymous, "", nil, ReasonNone
		s.commitLocked(ctx)
		s.mu.Unlock()
		return nil
	}
	if token == s.token && (s.state == Resolving || s.state == Authenticated) {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.resolve(ctx, token)
}

// Login validates creds, exchanges them for a token, stores it durably and
// resolves the profile. On failure the session is left as it was.
func (s *Store) Login(ctx context.Context, creds domain.Credentials) error {
	if err := validator.Validate(creds); err != nil {
		return err
	}
	resp, err := s.api.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" {
		return errors.New("login: backend returned an empty token")
	}
	if err := s.tokens.Save(ctx, resp.AccessToken); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	s.logger.InfoContext(ctx, "logged in", slog.String("email", creds.Email))
	return s.resolve(ctx, resp.AccessToken)
}

// Logout clears the token and profile without calling the backend.
func (s *Store) Logout(ctx context.Context) error {
	return s.drop(ctx, ReasonLoggedOut, true)
}

// Invalidate ends the session after the backend rejected the token. It is a
// no-op when no session is held, so a failed login attempt changes nothing.
func (s *Store) Invalidate(ctx context.Context) {
	if err := s.drop(ctx, ReasonExpired, false); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear token", slog.String("error", err.Error()))
	}
}

func (s *Store) drop(ctx context.Context, reason Reason, always bool) error {
	s.mu.Lock()
	if !always && s.token == "" && (s.state == Anonymous || s.state == Unresolved) {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	s.state, s.token, s.user, s.reason = Anonymous, "", nil, reason
	err := s.tokens.Clear(ctx)
	s.commitLocked(ctx)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "session ended", slog.String("reason", string(reason)))
	if err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	return nil
}

// resolve fetches the profile for token. A newer token change made while the
// request is in flight wins; the stale outcome is dropped.
func (s *Store) resolve(ctx context.Context, token string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state, s.token, s.user, s.reason = Resolving, token, nil, ReasonNone
	s.commitLocked(ctx)
	s.mu.Unlock()

	user, err := s.api.Me(ctx)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "discarding superseded profile resolution")
		if err != nil {
			return fmt.Errorf("resolve session: %w", err)
		}
		return nil
	}
	if err != nil {
		s.gen++
		s.state, s.token, s.user, s.reason = Anonymous, "", nil, ReasonResolveFailed
		clearErr := s.tokens.Clear(ctx)
		s.commitLocked(ctx)
		s.mu.Unlock()

		s.logger.WarnContext(ctx, "session token rejected, purged", slog.String("error", err.Error()))
		if clearErr != nil {
			s.logger.ErrorContext(ctx, "failed to clear token", slog.String("error", clearErr.Error()))
		}
		return fmt.Errorf("resolve session: %w", err)
	}
	s.state, s.user = Authenticated, &user
	s.commitLocked(ctx)
	s.mu.Unlock()
	return nil
}

// commitLocked numbers the current state and publishes it. Publishing under
// mu keeps subscribers seeing transitions in order; the bus never blocks.
func (s *Store) commitLocked(ctx context.Context) {
	s.seq++
	s.bus.Publish(events.New(ctx, EventChanged, "session", s.snapshotLocked()))
}

// Claims is the display subset of the bearer token's claims.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenClaims decodes the held token without verifying its signature; the
// result is only for display.
func (s *Store) TokenClaims() (Claims, error) {
	token := s.Snapshot().Token
	if token == "" {
		return Claims{}, ErrNoToken
	}
	return ParseClaims(token)
}

// ParseClaims decodes token's registered claims without verification.
func ParseClaims(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return Claims{}, fmt.Errorf("parse token claims: %w", err)
	}
	var c Claims
	c.Subject = rc.Subject
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, nil
}
