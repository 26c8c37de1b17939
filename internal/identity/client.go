// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package identity is the stateless façade over the Bookline identity service.
//
// Each operation performs one network call, converts every transport failure
// into the session error taxonomy before returning, and persists results
// through the token repository so callers observe consistent storage as soon
// as the call returns. Ordering within an operation is fixed: credential
// persistence happens before profile persistence, which happens before the
// success event, which happens before the call returns.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bookline/cli/internal/autherrors"
	"bookline/cli/internal/events"
	"bookline/cli/internal/httperrors"
	"bookline/cli/internal/storage"
)

// defaultExpiresIn is used when the server omits expires_in on login/refresh.
const defaultExpiresIn = 30 * time.Minute

// Options tune the client's timing behavior. Zero values pick defaults.
type Options struct {
	// RefreshWindow bounds the quick path in CurrentUser: a cached complete
	// profile is trusted without a network call only while the last successful
	// login is younger than this.
	RefreshWindow time.Duration
	// RequestTimeout applies to every call except the logout notification.
	RequestTimeout time.Duration
	// LogoutTimeout bounds the best-effort server logout notification.
	LogoutTimeout time.Duration
}

// Client performs the identity service network operations and keeps the token
// repository in sync with their results.
type Client struct {
	baseURL   string
	endpoints Endpoints
	http      *http.Client
	repo      *storage.Repository
	bus       *events.Bus
	log       zerolog.Logger

	refreshWindow time.Duration
	logoutTimeout time.Duration
	now           func() time.Time
}

// New builds a client against baseURL.
func New(baseURL string, endpoints Endpoints, repo *storage.Repository, bus *events.Bus, opts Options, log zerolog.Logger) *Client {
	if opts.RefreshWindow <= 0 {
		opts.RefreshWindow = 60 * time.Minute
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.LogoutTimeout <= 0 {
		opts.LogoutTimeout = 3 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		endpoints:     endpoints,
		http:          &http.Client{Timeout: opts.RequestTimeout},
		repo:          repo,
		bus:           bus,
		log:           log,
		refreshWindow: opts.RefreshWindow,
		logoutTimeout: opts.LogoutTimeout,
		now:           time.Now,
	}
}

// SetClock overrides the time source; test seam.
func (c *Client) SetClock(now func() time.Time) { c.now = now }

// do sends a JSON request and returns the decoded body alongside the HTTP
// status. Transport failures come back already classified; HTTP error statuses
// do not, callers map those per operation.
func (c *Client) do(ctx context.Context, method, path string, body any, bearer string, operation string) (map[string]any, int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, autherrors.Wrap(autherrors.KindNetwork, "encoding "+operation+" request", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, autherrors.Wrap(autherrors.KindNetwork, "building "+operation+" request", err)
	}
	req.Header.Set("Accept", "application/json, */*")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, httperrors.Classify(ctx, err, operation)
	}
	defer resp.Body.Close()

	// Be liberal in what we accept: decode into a map. Empty and non-JSON
	// bodies are fine for statuses that carry no payload.
	var raw map[string]any
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &raw)
	}
	return raw, resp.StatusCode, nil
}

// statusError maps a non-2xx status to the taxonomy. Login-specific mappings
// (403 as a role-boundary rejection) are layered on top by the caller.
func (c *Client) statusError(status int, raw map[string]any, operation string) error {
	switch {
	case status == http.StatusUnauthorized:
		return autherrors.New(autherrors.KindAuthentication, serverMessage(raw, "invalid credentials"))
	case status == http.StatusForbidden:
		return autherrors.New(autherrors.KindAuthentication, serverMessage(raw, "forbidden"))
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return autherrors.Invalid(serverMessage(raw, operation+" rejected"), fieldMessages(raw))
	default:
		// 5xx and anything unexpected: no usable response, retryable.
		return autherrors.New(autherrors.KindNetwork,
			fmt.Sprintf("%s failed with status %d", operation, status))
	}
}

// serverMessage extracts the human message from an error payload.
func serverMessage(raw map[string]any, fallback string) string {
	for _, k := range []string{"message", "error", "detail"} {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return fallback
}

// fieldMessages extracts per-field validation messages from an error payload.
// Accepts {"errors": {"email": "taken"}} and {"errors": {"email": ["taken"]}}.
func fieldMessages(raw map[string]any) map[string]string {
	errs, ok := raw["errors"].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(errs))
	for field, v := range errs {
		switch m := v.(type) {
		case string:
			out[field] = m
		case []any:
			if len(m) > 0 {
				if s, ok := m[0].(string); ok {
					out[field] = s
				}
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// extractToken pulls the bearer token out of a login/refresh payload,
// tolerating the field-name conventions the service has used over time.
func extractToken(raw map[string]any) string {
	for _, k := range []string{"token", "access_token", "accessToken"} {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// extractExpiresIn returns the token lifetime, defaulting when absent.
func extractExpiresIn(raw map[string]any) time.Duration {
	for _, k := range []string{"expires_in", "expiresIn"} {
		if v, ok := raw[k].(float64); ok && v != 0 {
			return time.Duration(v) * time.Second
		}
	}
	return defaultExpiresIn
}

// userPayload returns the user object from a response, whether nested under
// "user"/"data" or inlined at the top level.
func userPayload(raw map[string]any) map[string]any {
	for _, k := range []string{"user", "data"} {
		if m, ok := raw[k].(map[string]any); ok {
			return m
		}
	}
	if _, ok := raw["email"]; ok {
		return raw
	}
	if _, ok := raw["id"]; ok {
		return raw
	}
	return nil
}
