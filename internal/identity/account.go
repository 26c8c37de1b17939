// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package identity

import (
	"context"
	"net/http"

	"bookline/cli/internal/autherrors"
	"bookline/cli/internal/events"
	"bookline/cli/internal/freshness"
	"bookline/cli/internal/profile"
)

// CurrentUser returns the authenticated user's profile.
//
// Unless force is set, a complete cached profile whose last successful login
// is still inside the refresh window is returned without any network call.
// This quick path is what keeps every CLI invocation from hammering the
// identity service. Otherwise the profile is fetched, normalized, persisted
// with freshly generated bookkeeping stamps (overwritten here, unlike ordinary
// stores) and returned.
//
// A 401 clears all local state and publishes auth:failure. A cancelled
// request returns a cancelled-kind error and leaves stored state untouched;
// callers on boot/refresh paths swallow it.
func (c *Client) CurrentUser(ctx context.Context, force bool) (*profile.UserProfile, error) {
	if !force {
		if cached := c.repo.Profile(); cached.Complete() &&
			freshness.Within(c.repo.LastLogin(), c.now(), c.refreshWindow) {
			return cached, nil
		}
	}

	token := c.repo.Token()
	if token == "" {
		return nil, autherrors.New(autherrors.KindAuthentication, "no credential stored")
	}

	raw, status, err := c.do(ctx, http.MethodGet, c.endpoints.Me, nil, token, "fetching user")
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusUnauthorized:
		c.repo.ClearAll()
		c.bus.Publish(events.Event{Type: events.AuthFailure, Reason: "session expired"})
		return nil, autherrors.New(autherrors.KindAuthentication, "session expired")
	default:
		return nil, c.statusError(status, raw, "fetching user")
	}

	p := profile.Normalize(userPayload(raw), c.log)
	now := c.now()
	p.FetchedAt = now
	p.UpdatedAt = now
	c.repo.StoreProfile(p)
	return &p, nil
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
	Company   string
}

// Register creates a new account. By policy it never persists a credential or
// authenticates the caller, even when the server includes a token in its
// response: a fresh account must complete verification and an explicit login.
func (c *Client) Register(ctx context.Context, in RegisterInput) error {
	fields := map[string]string{}
	if in.FirstName == "" {
		fields["firstName"] = "first name is required"
	}
	if in.LastName == "" {
		fields["lastName"] = "last name is required"
	}
	if in.Email == "" {
		fields["email"] = "email is required"
	}
	if in.Password == "" {
		fields["password"] = "password is required"
	}
	if len(fields) > 0 {
		return autherrors.Invalid("missing registration fields", fields)
	}

	// The server speaks snake_case on write paths.
	payload := map[string]string{
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"email":      in.Email,
		"password":   in.Password,
	}
	if in.Phone != "" {
		payload["phone"] = in.Phone
	}
	if in.Company != "" {
		payload["company"] = in.Company
	}

	raw, status, err := c.do(ctx, http.MethodPost, c.endpoints.Register, payload, "", "registration")
	if err != nil {
		return err
	}
	if status == http.StatusOK || status == http.StatusCreated {
		return nil
	}
	return c.statusError(status, raw, "registration")
}

// VerifyEmail confirms an email address with the token from the verification
// mail. When a profile is cached, its verified flag is updated in place.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return autherrors.Invalid("missing verification token",
			map[string]string{"token": "verification token is required"})
	}

	raw, status, err := c.do(ctx, http.MethodPost, c.endpoints.VerifyEmail,
		map[string]string{"token": token}, c.repo.Token(), "email verification")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return c.statusError(status, raw, "email verification")
	}

	if cached := c.repo.Profile(); cached != nil && !cached.Verified {
		cached.Verified = true
		c.repo.StoreProfile(*cached)
	}
	return nil
}

// ProfileUpdate names the fields UpdateProfile may change. Nil means
// "leave unchanged".
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Company   *string
}

// UpdateProfile sends the changed fields and merges the server's response into
// the cached profile. The response is authoritative only for the fields it
// returns: cached fields the server omits (a company set long ago, say)
// survive the merge. The UpdatedAt stamp is always regenerated so consumers
// can detect the change.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdate) (*profile.UserProfile, error) {
	payload := map[string]string{}
	if in.FirstName != nil {
		payload["first_name"] = *in.FirstName
	}
	if in.LastName != nil {
		payload["last_name"] = *in.LastName
	}
	if in.Phone != nil {
		payload["phone"] = *in.Phone
	}
	if in.Company != nil {
		payload["company"] = *in.Company
	}
	if len(payload) == 0 {
		return nil, autherrors.Invalid("nothing to update", nil)
	}

	token := c.repo.Token()
	if token == "" {
		return nil, autherrors.New(autherrors.KindAuthentication, "no credential stored")
	}

	raw, status, err := c.do(ctx, http.MethodPut, c.endpoints.Profile, payload, token, "profile update")
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusUnauthorized:
		c.repo.ClearAll()
		c.bus.Publish(events.Event{Type: events.AuthFailure, Reason: "session expired"})
		return nil, autherrors.New(autherrors.KindAuthentication, "session expired")
	default:
		return nil, c.statusError(status, raw, "profile update")
	}

	var merged profile.UserProfile
	cached := c.repo.Profile()
	if cached != nil {
		merged = *cached
	}
	if user := userPayload(raw); user != nil {
		// The echo is partial; placeholder substitution here would clobber
		// cached fields the server simply omitted.
		merged = merged.Merge(profile.Partial(user))
	} else {
		// No echo from the server; apply the requested changes locally.
		merged = merged.Merge(profile.UserProfile{
			FirstName: deref(in.FirstName),
			LastName:  deref(in.LastName),
			Phone:     deref(in.Phone),
			Company:   deref(in.Company),
			Synthetic: true,
		})
	}
	merged.UpdatedAt = c.now()
	c.repo.StoreProfile(merged)
	return &merged, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ChangePassword replaces the account password. A 401 means the bearer
// credential itself is invalid and clears local state; a wrong current
// password comes back as a validation error instead.
func (c *Client) ChangePassword(ctx context.Context, current, updated string) error {
	fields := map[string]string{}
	if current == "" {
		fields["currentPassword"] = "current password is required"
	}
	if updated == "" {
		fields["newPassword"] = "new password is required"
	}
	if len(fields) > 0 {
		return autherrors.Invalid("missing password fields", fields)
	}

	token := c.repo.Token()
	if token == "" {
		return autherrors.New(autherrors.KindAuthentication, "no credential stored")
	}

	raw, status, err := c.do(ctx, http.MethodPut, c.endpoints.Password, map[string]string{
		"current_password": current,
		"new_password":     updated,
	}, token, "password change")
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized:
		c.repo.ClearAll()
		c.bus.Publish(events.Event{Type: events.AuthFailure, Reason: "session expired"})
		return autherrors.New(autherrors.KindAuthentication, "session expired")
	default:
		return c.statusError(status, raw, "password change")
	}
}

// ForgotPassword requests a password reset mail. Unauthenticated.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return autherrors.Invalid("missing email",
			map[string]string{"email": "email is required"})
	}
	raw, status, err := c.do(ctx, http.MethodPost, c.endpoints.ForgotPassword,
		map[string]string{"email": email}, "", "password reset request")
	if err != nil {
		return err
	}
	if status == http.StatusOK || status == http.StatusNoContent {
		return nil
	}
	return c.statusError(status, raw, "password reset request")
}

// ResetPassword completes a reset with the token from the reset mail.
// Does not authenticate the caller.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	fields := map[string]string{}
	if token == "" {
		fields["token"] = "reset token is required"
	}
	if password == "" {
		fields["password"] = "new password is required"
	}
	if len(fields) > 0 {
		return autherrors.Invalid("missing reset fields", fields)
	}

	raw, status, err := c.do(ctx, http.MethodPost, c.endpoints.ResetPassword, map[string]string{
		"token":    token,
		"password": password,
	}, "", "password reset")
	if err != nil {
		return err
	}
	if status == http.StatusOK || status == http.StatusNoContent {
		return nil
	}
	return c.statusError(status, raw, "password reset")
}
