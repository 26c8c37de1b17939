// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookline/cli/internal/autherrors"
	"bookline/cli/internal/events"
	"bookline/cli/internal/profile"
	"bookline/cli/internal/storage"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	client   *Client
	repo     *storage.Repository
	remember *storage.MemoryBackend
	session  *storage.MemoryBackend
	bus      *events.Bus
	requests *atomic.Int64
}

// newTestEnv wires a client against an httptest server, with in-memory
// backends and a frozen clock.
func newTestEnv(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()

	env := &testEnv{
		remember: storage.NewMemoryBackend(),
		session:  storage.NewMemoryBackend(),
		bus:      events.NewBus(),
		requests: &atomic.Int64{},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.requests.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	env.repo = storage.New(env.remember, env.session, 30*time.Second, zerolog.Nop())
	env.repo.SetClock(func() time.Time { return testNow })

	env.client = New(srv.URL, DefaultEndpoints(), env.repo, env.bus, Options{
		RefreshWindow:  time.Hour,
		RequestTimeout: 5 * time.Second,
		LogoutTimeout:  time.Second,
	}, zerolog.Nop())
	env.client.SetClock(func() time.Time { return testNow })
	return env
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func loginOK(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      "tok-live",
		"expires_in": 1800,
		"user": map[string]any{
			"id":         42,
			"email":      "jane@bookline.app",
			"first_name": "Jane",
			"last_name":  "Doe",
			"role":       "client",
			"verified":   true,
		},
	})
}

func TestLoginRemember(t *testing.T) {
	env := newTestEnv(t, loginOK)

	var successes []events.Event
	env.bus.Subscribe(events.AuthSuccess, func(e events.Event) { successes = append(successes, e) })

	p, err := env.client.Login(context.Background(), "jane@bookline.app", "pw", true, "")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Jane Doe", p.FullName)

	// Credential, profile and login stamp are all persisted before the call
	// returns, with the remember backend holding the credential.
	assert.Equal(t, "tok-live", env.repo.Token())
	assert.True(t, env.repo.Preference())
	assert.False(t, env.repo.Expired())
	exp, ok := env.repo.Expiry()
	require.True(t, ok)
	assert.True(t, exp.Equal(testNow.Add(30*time.Minute)))
	assert.True(t, env.repo.LastLogin().Equal(testNow))

	cached := env.repo.Profile()
	require.NotNil(t, cached)
	assert.True(t, cached.Complete())

	require.Len(t, successes, 1)
	assert.Equal(t, int64(42), successes[0].User.ID)
}

func TestLoginSessionOnly(t *testing.T) {
	env := newTestEnv(t, loginOK)

	_, err := env.client.Login(context.Background(), "jane@bookline.app", "pw", false, "")
	require.NoError(t, err)

	assert.False(t, env.repo.Preference())
	assert.Equal(t, "tok-live", env.repo.Token())
	// Nothing credential-shaped may remain in the remember backend; the
	// last-login stamp is the only value recorded on both sides.
	_, err = env.remember.Get("auth_token")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = env.remember.Get("auth_token_expiry")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = env.remember.Get("auth_user")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid credentials"})
	})

	_, err := env.client.Login(context.Background(), "jane@bookline.app", "nope", false, "")
	require.Error(t, err)
	assert.True(t, autherrors.IsAuthentication(err))
	assert.False(t, autherrors.IsRoleNotAllowed(err), "a wrong password is not a role rejection")
	assert.Equal(t, 1, env.repo.FailedAttempts())
	assert.Equal(t, "", env.repo.Token())
}

func TestLoginRejectionsAccumulateUntilSuccess(t *testing.T) {
	reject := true
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if reject {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid credentials"})
			return
		}
		loginOK(w, r)
	})

	for i := 1; i <= 3; i++ {
		_, err := env.client.Login(context.Background(), "jane@bookline.app", "nope", false, "")
		require.Error(t, err)
		assert.Equal(t, i, env.repo.FailedAttempts())
	}

	reject = false
	_, err := env.client.Login(context.Background(), "jane@bookline.app", "pw", false, "")
	require.NoError(t, err)
	assert.Zero(t, env.repo.FailedAttempts(), "a successful login ends the streak")
}

func TestLoginScopeRejectedByServer(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/client/login", r.URL.Path)
		writeJSON(w, http.StatusForbidden, map[string]any{"message": "admin accounts cannot use the client login"})
	})

	_, err := env.client.Login(context.Background(), "admin@bookline.app", "pw", false, profile.RoleClient)
	require.Error(t, err)
	assert.True(t, autherrors.IsRoleNotAllowed(err))
	assert.Equal(t, "", env.repo.Token())
	assert.Nil(t, env.repo.Profile())
}

func TestLoginScopeRejectedLocally(t *testing.T) {
	// The server misbehaves and hands an admin session to the client-scoped
	// endpoint; the local role check refuses it and stores nothing.
	env := newTestEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "tok-admin",
			"user": map[string]any{
				"id": 1, "email": "admin@bookline.app",
				"first_name": "Root", "last_name": "Admin", "role": "admin",
			},
		})
	})

	var successes int
	env.bus.Subscribe(events.AuthSuccess, func(events.Event) { successes++ })

	_, err := env.client.Login(context.Background(), "admin@bookline.app", "pw", false, profile.RoleClient)
	require.Error(t, err)
	assert.True(t, autherrors.IsRoleNotAllowed(err))
	assert.Equal(t, "", env.repo.Token())
	assert.Nil(t, env.repo.Profile())
	assert.Zero(t, successes)
}

func TestLoginValidatesBeforeRequest(t *testing.T) {
	env := newTestEnv(t, loginOK)

	_, err := env.client.Login(context.Background(), "", "", false, "")
	require.Error(t, err)
	assert.True(t, autherrors.IsValidation(err))
	fields := autherrors.FieldMessages(err)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
	assert.Zero(t, env.requests.Load())
}

func TestLogout(t *testing.T) {
	var gotBearer string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/logout", r.URL.Path)
		gotBearer = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	})

	env.repo.StoreCredential("tok-live", 30*time.Minute, boolPtr(true))
	var logouts int
	env.bus.Subscribe(events.AuthLogout, func(events.Event) { logouts++ })

	require.NoError(t, env.client.Logout(context.Background()))

	assert.Equal(t, "", env.repo.Token())
	assert.Equal(t, 1, logouts)
	assert.Equal(t, "Bearer tok-live", gotBearer)
	assert.True(t, env.repo.Preference(), "preference survives logout")
}

func TestLogoutWithoutCredentialSkipsServer(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, env.client.Logout(context.Background()))
	assert.Zero(t, env.requests.Load())
}

func TestLogoutSwallowsServerFailure(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	env.repo.StoreCredential("tok-live", 30*time.Minute, boolPtr(false))
	assert.NoError(t, env.client.Logout(context.Background()))
	assert.Equal(t, "", env.repo.Token())
}

func TestRefreshWithoutCredentialIsNoop(t *testing.T) {
	env := newTestEnv(t, loginOK)

	ok, err := env.client.Refresh(context.Background())
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Zero(t, env.requests.Load(), "no stored credential means no request")
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/refresh", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"token": "tok-fresh", "expires_in": 3600})
	})

	env.repo.StoreCredential("tok-old", time.Minute, boolPtr(true))

	ok, err := env.client.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-fresh", env.repo.Token())
	assert.True(t, env.repo.Preference(), "refresh never changes the remember preference")

	exp, found := env.repo.Expiry()
	require.True(t, found)
	assert.True(t, exp.Equal(testNow.Add(time.Hour)))
}

func TestRefreshRejectionClearsSession(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	env.repo.StoreCredential("tok-stale", time.Minute, boolPtr(false))
	var expired int
	env.bus.Subscribe(events.TokenExpired, func(events.Event) { expired++ })

	ok, err := env.client.Refresh(context.Background())
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, autherrors.IsAuthentication(err))
	assert.Equal(t, "", env.repo.Token())
	assert.Equal(t, 1, expired)
}

func boolPtr(b bool) *bool { return &b }
