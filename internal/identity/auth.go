// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package identity

import (
	"context"
	"net/http"

	"bookline/cli/internal/autherrors"
	"bookline/cli/internal/events"
	"bookline/cli/internal/profile"
)

// Login authenticates email/password against the endpoint variant selected by
// scope ("" for the generic endpoint, otherwise the role-scoped one).
//
// The scoped endpoints are a security boundary, not routing sugar: the
// client-only endpoint rejects admin accounts server-side, and that rejection
// is surfaced as a role-boundary error, distinct from a wrong password. The
// same check is repeated locally on the returned profile so a misconfigured
// server cannot hand an admin session to a client-scoped caller.
//
// On success the credential is persisted with the caller's remember
// preference, the normalized profile is cached, the last-successful-login
// stamp is recorded in both backends, and auth:success is published. That
// order is fixed, and all of it happens before Login returns.
func (c *Client) Login(ctx context.Context, email, password string, remember bool, scope profile.Role) (*profile.UserProfile, error) {
	fields := map[string]string{}
	if email == "" {
		fields["email"] = "email is required"
	}
	if password == "" {
		fields["password"] = "password is required"
	}
	if len(fields) > 0 {
		return nil, autherrors.Invalid("missing credentials", fields)
	}

	path := c.endpoints.Login
	switch scope {
	case profile.RoleAdmin:
		path = c.endpoints.LoginAdmin
	case profile.RoleClient:
		path = c.endpoints.LoginClient
	}

	raw, status, err := c.do(ctx, http.MethodPost, path, map[string]string{
		"email":    email,
		"password": password,
	}, "", "login")
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		// fall through to token handling
	case status == http.StatusUnauthorized:
		attempts := c.repo.RecordFailedAttempt()
		c.log.Debug().Int("attempts", attempts).Msg("login rejected")
		return nil, autherrors.New(autherrors.KindAuthentication, serverMessage(raw, "invalid credentials"))
	case status == http.StatusForbidden && scope != "":
		return nil, autherrors.New(autherrors.KindRoleNotAllowed,
			serverMessage(raw, "account not permitted on this login"))
	default:
		return nil, c.statusError(status, raw, "login")
	}

	token := extractToken(raw)
	if token == "" {
		return nil, autherrors.New(autherrors.KindNetwork, "login response carried no token")
	}

	p := profile.Normalize(userPayload(raw), c.log)
	if scope != "" && p.Role != scope {
		// Server let the wrong role through; refuse the session locally and
		// store nothing.
		return nil, autherrors.New(autherrors.KindRoleNotAllowed,
			"account role is not permitted on this login")
	}

	now := c.now()
	c.repo.StoreCredential(token, extractExpiresIn(raw), &remember)
	p.FetchedAt = now
	p.UpdatedAt = now
	c.repo.StoreProfile(p)
	c.repo.RecordLoginSuccess(now)
	c.bus.Publish(events.Event{Type: events.AuthSuccess, User: &p})
	return &p, nil
}

// Logout clears local session state first, so the caller observes a
// logged-out state immediately, then notifies the server on a best-effort
// basis with a short timeout. The notification is allowed to fail silently;
// local logout never blocks on the network. Always returns nil.
func (c *Client) Logout(ctx context.Context) error {
	token := c.repo.Token()
	c.repo.ClearAll()
	c.bus.Publish(events.Event{Type: events.AuthLogout})

	if token == "" {
		return nil
	}
	nctx, cancel := context.WithTimeout(ctx, c.logoutTimeout)
	defer cancel()
	if _, _, err := c.do(nctx, http.MethodPost, c.endpoints.Logout, nil, token, "logout"); err != nil {
		c.log.Debug().Err(err).Msg("server logout notification failed")
	}
	return nil
}

// Refresh exchanges the stored credential for a fresh one. Returns false with
// no error when nothing is stored locally; calling the server then would be a
// guaranteed 401. A 401/403 response means the credential is permanently
// invalid: all local state is cleared and token:expired is published. Network
// failures and cancellations leave stored state untouched.
func (c *Client) Refresh(ctx context.Context) (bool, error) {
	token := c.repo.Token()
	if token == "" {
		return false, nil
	}

	raw, status, err := c.do(ctx, http.MethodPost, c.endpoints.Refresh, nil, token, "token refresh")
	if err != nil {
		return false, err
	}

	switch status {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnauthorized, http.StatusForbidden:
		c.repo.ClearAll()
		c.bus.Publish(events.Event{Type: events.TokenExpired})
		return false, autherrors.New(autherrors.KindAuthentication, "refresh credential is no longer valid")
	default:
		return false, c.statusError(status, raw, "token refresh")
	}

	fresh := extractToken(raw)
	if fresh == "" {
		return false, autherrors.New(autherrors.KindNetwork, "refresh response carried no token")
	}
	c.repo.StoreCredential(fresh, extractExpiresIn(raw), nil)

	if user := userPayload(raw); user != nil {
		p := profile.Normalize(user, c.log)
		now := c.now()
		p.FetchedAt = now
		p.UpdatedAt = now
		c.repo.StoreProfile(p)
	}
	return true, nil
}
