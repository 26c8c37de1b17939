// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session holds the stateful core of the client: one Manager per
// process that boots the session from cached state, exposes the public
// authentication operations with per-operation loading and error tracking,
// and keeps itself consistent with the rest of the application through the
// auth event bus.
//
// Boot never shows a flicker between logged-out and logged-in: either the
// quick path trusts a complete, recently verified cached profile and the very
// first observable state is Authenticated, or the session resolves through
// the network before Initialized is set.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bookline/cli/internal/autherrors"
	"bookline/cli/internal/events"
	"bookline/cli/internal/freshness"
	"bookline/cli/internal/identity"
	"bookline/cli/internal/profile"
	"bookline/cli/internal/storage"
)

// API is the slice of the identity client the manager depends on.
// Implementations may call the real HTTP service or provide fakes for tests.
type API interface {
	Login(ctx context.Context, email, password string, remember bool, scope profile.Role) (*profile.UserProfile, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (bool, error)
	CurrentUser(ctx context.Context, force bool) (*profile.UserProfile, error)
	Register(ctx context.Context, in identity.RegisterInput) error
	VerifyEmail(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, in identity.ProfileUpdate) (*profile.UserProfile, error)
	ChangePassword(ctx context.Context, current, updated string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

// Manager is the session orchestrator.
type Manager struct {
	client        API
	repo          *storage.Repository
	bus           *events.Bus
	log           zerolog.Logger
	refreshWindow time.Duration
	now           func() time.Time

	mu            sync.Mutex
	initialized   bool
	authenticated bool
	user          *profile.UserProfile
	loading       map[Operation]bool
	errs          map[Operation]error
	watchers      map[int]func(State)
	nextWatcher   int
	alive         bool

	initOnce sync.Once
	unsubs   []func()
}

// NewManager wires a manager to its collaborators and subscribes it to the
// cross-cutting auth events, so non-owning code (an HTTP 401 interceptor, a
// second window) can force a logout or a state update without calling back in.
func NewManager(client API, repo *storage.Repository, bus *events.Bus, refreshWindow time.Duration, log zerolog.Logger) *Manager {
	m := &Manager{
		client:        client,
		repo:          repo,
		bus:           bus,
		log:           log,
		refreshWindow: refreshWindow,
		now:           time.Now,
		loading:       map[Operation]bool{},
		errs:          map[Operation]error{},
		watchers:      map[int]func(State){},
		alive:         true,
	}
	m.unsubs = append(m.unsubs,
		bus.Subscribe(events.AuthFailure, func(e events.Event) { m.onForcedLogout(e) }),
		bus.Subscribe(events.TokenExpired, func(e events.Event) { m.onForcedLogout(e) }),
		bus.Subscribe(events.AuthSuccess, func(e events.Event) { m.onExternalAuth(e) }),
		bus.Subscribe(events.ProfileRefreshed, func(e events.Event) { m.onExternalAuth(e) }),
	)
	return m
}

// SetClock overrides the time source; test seam.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Close unsubscribes the manager and marks it dead: continuations that land
// afterward (a background reconciliation, a late bus event) skip their state
// mutation instead of writing into a torn-down manager.
func (m *Manager) Close() {
	m.mu.Lock()
	m.alive = false
	m.mu.Unlock()
	for _, unsub := range m.unsubs {
		unsub()
	}
}

// Initialize boots the session. Safe to call more than once; only the first
// call does work. Every path through boot ends with Initialized set, exactly
// once per manager lifetime.
func (m *Manager) Initialize(ctx context.Context) {
	m.initOnce.Do(func() { m.boot(ctx) })
}

// boot decides between the quick path (trust the cache, reconcile in the
// background) and the full path (validate over the network, tolerate
// transient failures by falling back to usable cached data).
func (m *Manager) boot(ctx context.Context) {
	cached := m.repo.Profile()
	token := m.repo.Token()

	// Quick path: a complete cached profile from a recent enough login is
	// trusted synchronously. The reconciliation fetch is fire-and-forget;
	// boot must never await it.
	if token != "" && cached.Complete() &&
		freshness.Within(m.repo.LastLogin(), m.now(), m.refreshWindow) {
		m.setSession(cached, true)
		m.markInitialized()
		m.bus.Publish(events.Event{Type: events.AuthSuccess, User: cached})
		go m.reconcile()
		return
	}

	if token == "" {
		m.setSession(nil, false)
		m.markInitialized()
		return
	}

	// Full path: we hold a credential but cannot trust the cache.
	p, err := m.client.CurrentUser(ctx, false)
	switch {
	case err == nil:
		m.setSession(p, true)
	case autherrors.IsAuthentication(err):
		// Definitive rejection. The client has already cleared storage.
		m.setSession(nil, false)
	default:
		// Transient failure (network, cancellation). Stale-but-available
		// beats bouncing the user to a login screen.
		if cached.Complete() {
			m.log.Warn().Err(err).Msg("session validation failed, keeping cached session")
			m.setSession(cached, true)
		} else {
			m.setSession(nil, false)
		}
	}
	m.markInitialized()
}

// reconcile is the quick path's background verification. Network failures are
// logged and never downgrade the already-authenticated state; only a
// definitive rejection does (and that arrives via the auth:failure event the
// client publishes, as well as here).
func (m *Manager) reconcile() {
	p, err := m.client.CurrentUser(context.Background(), true)
	if err != nil {
		if autherrors.IsAuthentication(err) {
			m.setSession(nil, false)
			return
		}
		m.log.Debug().Err(err).Msg("background session reconciliation failed")
		return
	}
	m.setSession(p, true)
	m.bus.Publish(events.Event{Type: events.ProfileRefreshed, User: p})
}

// Login authenticates and, on success, transitions to Authenticated.
func (m *Manager) Login(ctx context.Context, email, password string, remember bool, scope profile.Role) error {
	return m.run(OpLogin, func() error {
		p, err := m.client.Login(ctx, email, password, remember, scope)
		if err != nil {
			return err
		}
		m.setSession(p, true)
		return nil
	})
}

// Logout transitions to Unauthenticated immediately, before the client's
// best-effort server notification runs. A second logout is a no-op, not an
// error.
func (m *Manager) Logout(ctx context.Context) error {
	return m.run(OpLogout, func() error {
		m.setSession(nil, false)
		return m.client.Logout(ctx)
	})
}

// Register creates an account. It never authenticates the caller; the new
// account must verify and log in explicitly.
func (m *Manager) Register(ctx context.Context, in identity.RegisterInput) error {
	return m.run(OpRegister, func() error {
		return m.client.Register(ctx, in)
	})
}

// ForgotPassword requests a reset mail.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	return m.run(OpForgotPassword, func() error {
		return m.client.ForgotPassword(ctx, email)
	})
}

// ResetPassword completes a reset with the mailed token.
func (m *Manager) ResetPassword(ctx context.Context, token, password string) error {
	return m.run(OpResetPassword, func() error {
		return m.client.ResetPassword(ctx, token, password)
	})
}

// VerifyEmail confirms the account email and updates the in-memory user.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	return m.run(OpVerifyEmail, func() error {
		if err := m.client.VerifyEmail(ctx, token); err != nil {
			return err
		}
		m.mu.Lock()
		if m.alive && m.user != nil {
			u := *m.user
			u.Verified = true
			m.user = &u
		}
		m.mu.Unlock()
		m.notify()
		return nil
	})
}

// UpdateProfile applies a partial profile change and adopts the merged result.
func (m *Manager) UpdateProfile(ctx context.Context, in identity.ProfileUpdate) error {
	return m.run(OpUpdateProfile, func() error {
		p, err := m.client.UpdateProfile(ctx, in)
		if err != nil {
			return err
		}
		m.setSession(p, true)
		return nil
	})
}

// ChangePassword replaces the account password.
func (m *Manager) ChangePassword(ctx context.Context, current, updated string) error {
	return m.run(OpChangePassword, func() error {
		return m.client.ChangePassword(ctx, current, updated)
	})
}

// RefreshUserData forces a profile refetch. A cancelled fetch is swallowed:
// it is not a failure, and previously loaded state stays as it was.
func (m *Manager) RefreshUserData(ctx context.Context) error {
	return m.run(OpRefreshUserData, func() error {
		p, err := m.client.CurrentUser(ctx, true)
		if err != nil {
			if autherrors.IsCancelled(err) {
				return nil
			}
			if autherrors.IsAuthentication(err) {
				m.setSession(nil, false)
			}
			return err
		}
		m.setSession(p, true)
		m.bus.Publish(events.Event{Type: events.ProfileRefreshed, User: p})
		return nil
	})
}

// RefreshSession exchanges the stored credential for a fresh one. No loading
// flag: this is plumbing for schedulers and interceptors, not a user action.
func (m *Manager) RefreshSession(ctx context.Context) (bool, error) {
	ok, err := m.client.Refresh(ctx)
	if err != nil && autherrors.IsAuthentication(err) {
		m.setSession(nil, false)
	}
	return ok, err
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() State {
	s := State{
		Initialized:   m.initialized,
		Authenticated: m.authenticated,
		Loading:       make(map[Operation]bool, len(m.loading)),
		Errors:        make(map[Operation]error, len(m.errs)),
	}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	for k, v := range m.loading {
		s.Loading[k] = v
	}
	for k, v := range m.errs {
		s.Errors[k] = v
	}
	return s
}

// Watch registers fn to be called with a fresh snapshot after every state
// change. Returns the unregister function.
func (m *Manager) Watch(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextWatcher
	m.nextWatcher++
	m.watchers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

// run wraps a public operation: loading flag up and error cleared before the
// delegate runs, error recorded and flag cleared after. The clear is
// deferred so it happens on every outcome.
func (m *Manager) run(op Operation, fn func() error) (err error) {
	m.mu.Lock()
	m.loading[op] = true
	delete(m.errs, op)
	m.mu.Unlock()
	m.notify()

	defer func() {
		m.mu.Lock()
		m.loading[op] = false
		if err != nil {
			m.errs[op] = err
		}
		m.mu.Unlock()
		m.notify()
	}()

	return fn()
}

// setSession updates the authenticated/user pair, skipping the mutation when
// the manager is already closed.
func (m *Manager) setSession(p *profile.UserProfile, authenticated bool) {
	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return
	}
	m.authenticated = authenticated
	if p != nil {
		u := *p
		m.user = &u
	} else {
		m.user = nil
	}
	m.mu.Unlock()
	m.notify()
}

// markInitialized flips the terminal Initialized flag.
func (m *Manager) markInitialized() {
	m.mu.Lock()
	m.initialized = true
	m.mu.Unlock()
	m.notify()
}

// notify fans the current snapshot out to watchers.
func (m *Manager) notify() {
	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return
	}
	s := m.snapshotLocked()
	fns := make([]func(State), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// onForcedLogout handles auth:failure and token:expired published by anyone,
// including code with no reference to the manager. Storage is cleared again
// here; the publisher usually already did, and ClearAll is idempotent.
func (m *Manager) onForcedLogout(e events.Event) {
	m.mu.Lock()
	alive := m.alive
	m.mu.Unlock()
	if !alive {
		return
	}
	m.log.Info().Str("event", string(e.Type)).Str("reason", e.Reason).Msg("session ended by auth event")
	m.repo.ClearAll()
	m.setSession(nil, false)
}

// onExternalAuth adopts a profile carried by auth:success or
// profile:refreshed, so a login performed elsewhere updates this manager too.
func (m *Manager) onExternalAuth(e events.Event) {
	if e.User == nil {
		return
	}
	m.setSession(e.User, true)
}
