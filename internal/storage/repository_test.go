// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package storage

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookline/cli/internal/profile"
)

func newTestRepo(t *testing.T) (*Repository, *MemoryBackend, *MemoryBackend) {
	t.Helper()
	remember := NewMemoryBackend()
	session := NewMemoryBackend()
	r := New(remember, session, 30*time.Second, zerolog.Nop())
	r.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	return r, remember, session
}

func boolPtr(b bool) *bool { return &b }

func TestStoreCredentialRoundTrip(t *testing.T) {
	r, remember, session := newTestRepo(t)

	r.StoreCredential("tok-123", 30*time.Minute, boolPtr(true))

	assert.Equal(t, "tok-123", r.Token())
	assert.False(t, r.Expired())
	assert.True(t, r.Preference())

	// Remember-me sessions live in the remember backend only.
	v, err := remember.Get(keyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", v)
	_, err = session.Get(keyToken)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = session.Get(keyExpiry)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreCredentialSessionOnly(t *testing.T) {
	r, remember, session := newTestRepo(t)

	r.StoreCredential("tok-eph", 30*time.Minute, boolPtr(false))

	assert.Equal(t, "tok-eph", r.Token())
	assert.False(t, r.Preference())

	v, err := session.Get(keyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-eph", v)
	_, err = remember.Get(keyToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSingleAuthorityAcrossPreferenceFlips(t *testing.T) {
	r, remember, session := newTestRepo(t)

	// A remember login followed by a session-only login must leave no
	// credential residue in the remember backend.
	r.StoreCredential("tok-1", 30*time.Minute, boolPtr(true))
	r.StoreCredential("tok-2", 30*time.Minute, boolPtr(false))

	assert.Equal(t, "tok-2", r.Token())
	_, err := remember.Get(keyToken)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = remember.Get(keyExpiry)
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := session.Get(keyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", v)
}

func TestPreferenceFlipClearsProfileFromLosingBackend(t *testing.T) {
	r, _, session := newTestRepo(t)

	// A session-only user leaves a cached profile in the session backend. A
	// remember login afterward must not leave that profile behind, or a later
	// fallback read would resurrect the old user.
	r.StoreCredential("tok-a", 30*time.Minute, boolPtr(false))
	r.StoreProfile(profile.UserProfile{ID: 1, Email: "a@b.co", FirstName: "A", LastName: "B", Role: profile.RoleClient})

	r.StoreCredential("tok-b", 30*time.Minute, boolPtr(true))

	_, err := session.Get(keyProfile)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = session.Get(keyToken)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = session.Get(keyExpiry)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, "tok-b", r.Token())
	assert.Nil(t, r.Profile(), "the old user's profile must not survive the flip")
}

func TestSetPreferenceClearsLosingBackend(t *testing.T) {
	r, remember, _ := newTestRepo(t)

	r.StoreCredential("tok-1", 30*time.Minute, boolPtr(true))
	r.StoreProfile(profile.UserProfile{ID: 1, Email: "a@b.co", FirstName: "A", LastName: "B", Role: profile.RoleClient})

	r.SetPreference(false)

	_, err := remember.Get(keyToken)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = remember.Get(keyProfile)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiredWithoutExpiry(t *testing.T) {
	r, _, _ := newTestRepo(t)
	assert.True(t, r.Expired(), "no recorded expiry counts as expired")
}

func TestExpiredHonorsSafetyMargin(t *testing.T) {
	r, _, _ := newTestRepo(t)

	// Expiry 20s out with a 30s margin: already unusable.
	r.StoreCredential("tok", 20*time.Second, boolPtr(false))
	assert.True(t, r.Expired())

	r.StoreCredential("tok", 2*time.Minute, boolPtr(false))
	assert.False(t, r.Expired())
}

func TestNegativeTTLIsExpired(t *testing.T) {
	r, _, _ := newTestRepo(t)
	r.StoreCredential("tok", -time.Second, boolPtr(false))
	assert.True(t, r.Expired())
}

func TestReadSelfHealsIntoPreferredBackend(t *testing.T) {
	r, remember, session := newTestRepo(t)

	// Data stranded in the non-preferred backend (an earlier run with the
	// other preference) must still be found, and copied home.
	require.NoError(t, session.Set(keyRemember, "true"))
	require.NoError(t, session.Set(keyToken, "stranded"))

	assert.Equal(t, "stranded", r.Token())

	v, err := remember.Get(keyToken)
	require.NoError(t, err)
	assert.Equal(t, "stranded", v)
}

func TestLegacyNullLiteralsAreAbsent(t *testing.T) {
	r, _, session := newTestRepo(t)

	require.NoError(t, session.Set(keyToken, "null"))
	assert.Equal(t, "", r.Token())

	require.NoError(t, session.Set(keyToken, "undefined"))
	assert.Equal(t, "", r.Token())
}

func TestStoreProfilePreservesExistingStamps(t *testing.T) {
	r, _, _ := newTestRepo(t)

	fetched := time.Date(2025, 5, 30, 8, 0, 0, 0, time.UTC)
	p := profile.UserProfile{
		ID: 1, Email: "a@b.co", FirstName: "A", LastName: "B", Role: profile.RoleClient,
		FetchedAt: fetched, UpdatedAt: fetched,
	}
	r.StoreProfile(p)

	got := r.Profile()
	require.NotNil(t, got)
	// Re-saving must not make the profile look fresher than it is.
	assert.True(t, got.FetchedAt.Equal(fetched))
	assert.True(t, got.UpdatedAt.Equal(fetched))
}

func TestStoreProfileStampsWhenZero(t *testing.T) {
	r, _, _ := newTestRepo(t)

	r.StoreProfile(profile.UserProfile{ID: 1, Email: "a@b.co", FirstName: "A", LastName: "B", Role: profile.RoleClient})

	got := r.Profile()
	require.NotNil(t, got)
	assert.False(t, got.FetchedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestProfileCorruptedIsAbsent(t *testing.T) {
	r, _, session := newTestRepo(t)

	require.NoError(t, session.Set(keyProfile, "{not json"))
	assert.Nil(t, r.Profile())
}

func TestRecordLoginSuccess(t *testing.T) {
	r, remember, session := newTestRepo(t)

	r.RecordFailedAttempt()
	r.RecordFailedAttempt()
	require.Equal(t, 2, r.FailedAttempts())

	when := time.Date(2025, 6, 1, 11, 59, 0, 0, time.UTC)
	r.RecordLoginSuccess(when)

	assert.True(t, r.LastLogin().Equal(when))
	assert.Zero(t, r.FailedAttempts(), "a successful login resets the rate-limit counter")

	// The stamp lands in both backends so it survives a preference flip.
	_, err := remember.Get(keyLastLogin)
	assert.NoError(t, err)
	_, err = session.Get(keyLastLogin)
	assert.NoError(t, err)
}

func TestClearAllLeavesPreference(t *testing.T) {
	r, remember, session := newTestRepo(t)

	r.StoreCredential("tok", 30*time.Minute, boolPtr(true))
	r.StoreProfile(profile.UserProfile{ID: 1, Email: "a@b.co", FirstName: "A", LastName: "B", Role: profile.RoleClient})
	r.RecordLoginSuccess(time.Now())
	r.RecordFailedAttempt()

	r.ClearAll()

	assert.Equal(t, "", r.Token())
	assert.Nil(t, r.Profile())
	assert.True(t, r.LastLogin().IsZero())
	assert.Zero(t, r.FailedAttempts())
	assert.True(t, r.Preference(), "remember-me preference survives a logout")

	assert.Zero(t, remember.Len())
	assert.Equal(t, 1, session.Len(), "only the preference key remains")
}

func TestStorageFailuresNeverEscape(t *testing.T) {
	remember := NewMemoryBackend()
	session := NewMemoryBackend()
	remember.FailWrites = true
	session.FailWrites = true
	r := New(remember, session, 30*time.Second, zerolog.Nop())

	// Disabled storage degrades to a memory-only session: calls log and
	// carry on, nothing panics, reads come back absent.
	r.StoreCredential("tok", 30*time.Minute, boolPtr(true))
	r.StoreProfile(profile.UserProfile{ID: 1})
	r.RecordLoginSuccess(time.Now())
	r.SetPreference(true)
	r.ClearAll()

	assert.Equal(t, "", r.Token())
	assert.Nil(t, r.Profile())
	assert.False(t, r.Preference())
}
