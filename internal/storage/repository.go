// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package storage

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"bookline/cli/internal/profile"
)

// Keys used in both backends. All values are strings; epochs are stored as
// millisecond strings for compatibility with earlier client releases.
const (
	keyToken         = "auth_token"
	keyExpiry        = "auth_token_expiry"
	keyProfile       = "auth_user"
	keyRemember      = "remember_me"
	keyLastLogin     = "last_login_at"
	keyLoginAttempts = "login_attempts"
)

// credentialKeys are the keys covered by the single-authority invariant.
var credentialKeys = []string{keyToken, keyExpiry, keyProfile}

// Repository reconciles session data across the two backends.
//
// Every read prefers the backend selected by the persisted remember-me
// preference, falls back to the other, and self-heals by copying a fallback
// hit into the preferred backend. Every credential write clears the
// non-preferred backend, so at most one backend holds live data at any time.
//
// The repository never returns storage errors to callers: backend failures
// (locked keychain, unwritable state dir, quota) are logged and treated as
// "data absent".
type Repository struct {
	remember Backend
	session  Backend
	log      zerolog.Logger
	margin   time.Duration
	now      func() time.Time
}

// New builds a repository over the given backends. margin is the expiry
// safety margin: a token within margin of its recorded expiry is already
// considered expired, so a request started just before the deadline does not
// race the server's clock.
func New(remember, session Backend, margin time.Duration, log zerolog.Logger) *Repository {
	return &Repository{
		remember: remember,
		session:  session,
		log:      log,
		margin:   margin,
		now:      time.Now,
	}
}

// SetClock overrides the time source; test seam.
func (r *Repository) SetClock(now func() time.Time) { r.now = now }

// Preference reports the persisted remember-me preference. The flag lives in
// the session-file backend regardless of which backend holds credentials, so
// it stays readable even when the OS keychain is locked.
func (r *Repository) Preference() bool {
	v, err := r.session.Get(keyRemember)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.log.Warn().Err(err).Msg("reading remember preference failed, assuming session-only")
		}
		return false
	}
	return v == "true"
}

// SetPreference persists the remember-me preference and proactively clears
// credential data from the backend that just lost authority.
func (r *Repository) SetPreference(remember bool) {
	if err := r.session.Set(keyRemember, strconv.FormatBool(remember)); err != nil {
		r.log.Warn().Err(err).Msg("persisting remember preference failed")
	}
	_, fallback := r.backends()
	r.clearKeys(fallback, credentialKeys...)
}

// backends returns (preferred, fallback) per the current preference.
func (r *Repository) backends() (Backend, Backend) {
	if r.Preference() {
		return r.remember, r.session
	}
	return r.session, r.remember
}

// absent reports whether a stored value should be treated as missing.
// Earlier client releases wrote the literals "null" and "undefined".
func absent(v string) bool {
	return v == "" || v == "null" || v == "undefined"
}

// get reads key from b, mapping every failure to "absent".
func (r *Repository) get(b Backend, key string) string {
	v, err := b.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.log.Warn().Err(err).Str("key", key).Msg("storage read failed, treating as absent")
		}
		return ""
	}
	if absent(v) {
		return ""
	}
	return v
}

// read implements the preferred-then-fallback-with-self-heal strategy shared
// by all credential reads.
func (r *Repository) read(key string) string {
	preferred, fallback := r.backends()
	if v := r.get(preferred, key); v != "" {
		return v
	}
	v := r.get(fallback, key)
	if v == "" {
		return ""
	}
	if err := preferred.Set(key, v); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("self-heal copy failed")
	}
	return v
}

// Token returns the stored bearer token, or "" when absent.
func (r *Repository) Token() string { return r.read(keyToken) }

// Expiry returns the recorded token expiry. ok is false when no expiry is
// recorded or the stored value is not numeric.
func (r *Repository) Expiry() (time.Time, bool) {
	v := r.read(keyExpiry)
	if v == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.log.Warn().Str("value", v).Msg("non-numeric expiry in storage, treating as absent")
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Expired reports whether the stored credential should no longer be used.
// No recorded expiry counts as expired; otherwise the safety margin is
// subtracted so a request started just before the deadline cannot race it.
func (r *Repository) Expired() bool {
	exp, ok := r.Expiry()
	if !ok {
		return true
	}
	return r.now().After(exp.Add(-r.margin))
}

// StoreCredential persists token with expiry now+ttl. When remember is
// non-nil the persisted preference is overwritten first, which also clears
// every credential key (profile included) from the backend that just lost
// authority. The backend that is not preferred afterward is cleared
// unconditionally.
func (r *Repository) StoreCredential(token string, ttl time.Duration, remember *bool) {
	if remember != nil {
		r.SetPreference(*remember)
	}

	expiry := r.now().Add(ttl).UnixMilli()
	preferred, fallback := r.backends()
	if err := preferred.Set(keyToken, token); err != nil {
		r.log.Error().Err(err).Msg("storing token failed")
	}
	if err := preferred.Set(keyExpiry, strconv.FormatInt(expiry, 10)); err != nil {
		r.log.Error().Err(err).Msg("storing expiry failed")
	}
	// Single-authority invariant: live credential data exists in at most one
	// backend at any time.
	r.clearKeys(fallback, keyToken, keyExpiry)
}

// StoreProfile serializes p into the preferred backend. Bookkeeping stamps are
// set only when absent; re-saving a profile must not make it look fresher than
// it is. The write is verified by re-reading and comparing stamps, with one
// retry on mismatch.
func (r *Repository) StoreProfile(p profile.UserProfile) {
	now := r.now()
	if p.FetchedAt.IsZero() {
		p.FetchedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	data, err := json.Marshal(p)
	if err != nil {
		r.log.Error().Err(err).Msg("serializing profile failed")
		return
	}

	preferred, _ := r.backends()
	for attempt := 0; attempt < 2; attempt++ {
		if err := preferred.Set(keyProfile, string(data)); err != nil {
			r.log.Error().Err(err).Msg("storing profile failed")
			return
		}
		if r.verifyProfileWrite(preferred, p) {
			return
		}
		r.log.Warn().Int("attempt", attempt+1).Msg("profile write verification failed")
	}
}

// verifyProfileWrite re-reads the stored profile and checks that the
// bookkeeping stamps survived the round-trip.
func (r *Repository) verifyProfileWrite(b Backend, want profile.UserProfile) bool {
	raw := r.get(b, keyProfile)
	if raw == "" {
		return false
	}
	var got profile.UserProfile
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		return false
	}
	return got.FetchedAt.Equal(want.FetchedAt) && got.UpdatedAt.Equal(want.UpdatedAt)
}

// Profile returns the cached profile, or nil when absent or unreadable.
// Missing bookkeeping stamps are filled on the returned value so every result
// is usable for freshness comparisons.
func (r *Repository) Profile() *profile.UserProfile {
	raw := r.read(keyProfile)
	if raw == "" {
		return nil
	}
	var p profile.UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		r.log.Warn().Err(err).Msg("cached profile is corrupted, treating as absent")
		return nil
	}
	now := r.now()
	if p.FetchedAt.IsZero() {
		p.FetchedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	return &p
}

// RecordLoginSuccess writes the last-successful-login stamp into both
// backends: whichever backend later becomes authoritative, the quick-path
// gate must still find it.
func (r *Repository) RecordLoginSuccess(t time.Time) {
	v := strconv.FormatInt(t.UnixMilli(), 10)
	if err := r.remember.Set(keyLastLogin, v); err != nil {
		r.log.Warn().Err(err).Msg("recording login success in remember store failed")
	}
	if err := r.session.Set(keyLastLogin, v); err != nil {
		r.log.Warn().Err(err).Msg("recording login success in session store failed")
	}
	// A successful login ends the current rate-limit window.
	r.clearKeys(r.session, keyLoginAttempts)
}

// LastLogin returns the last-successful-login stamp, or the zero time when
// none is recorded.
func (r *Repository) LastLogin() time.Time {
	v := r.read(keyLastLogin)
	if v == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// FailedAttempts returns the login rate-limit counter.
func (r *Repository) FailedAttempts() int {
	v := r.get(r.session, keyLoginAttempts)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// RecordFailedAttempt increments the rate-limit counter and returns it.
func (r *Repository) RecordFailedAttempt() int {
	n := r.FailedAttempts() + 1
	if err := r.session.Set(keyLoginAttempts, strconv.Itoa(n)); err != nil {
		r.log.Warn().Err(err).Msg("recording failed login attempt failed")
	}
	return n
}

// ClearAll removes credential, expiry, profile, last-login and rate-limit
// bookkeeping from both backends. The remember-me preference survives. Never
// returns an error: storage failures are logged and swallowed.
func (r *Repository) ClearAll() {
	keys := []string{keyToken, keyExpiry, keyProfile, keyLastLogin, keyLoginAttempts}
	r.clearKeys(r.remember, keys...)
	r.clearKeys(r.session, keys...)
}

func (r *Repository) clearKeys(b Backend, keys ...string) {
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			r.log.Warn().Err(err).Str("key", k).Msg("clearing storage key failed")
		}
	}
}
