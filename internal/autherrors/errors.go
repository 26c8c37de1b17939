// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package autherrors defines the typed error taxonomy for the session core.
// Every failure that crosses the identity-client boundary is converted into one
// of these kinds before it reaches the session orchestrator, so the orchestrator
// never inspects raw transport errors.
//
// The kinds carry policy, not just labels: network errors are retryable and never
// clear credentials, authentication errors are terminal for the current session,
// validation errors carry field-level messages, cancelled errors are swallowed by
// boot/refresh paths, and storage errors never escape the token repository.
package autherrors

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// KindNetwork indicates no usable response reached us (timeout, DNS,
	// connection failure, 5xx). Retryable; stored credentials stay untouched.
	KindNetwork Kind = "network"
	// KindAuthentication indicates the server definitively rejected the
	// credential (401 or explicit invalid-credentials). Local credentials are
	// cleared by the caller; the current session is over.
	KindAuthentication Kind = "authentication"
	// KindRoleNotAllowed indicates the account exists but is not permitted on
	// the requested login scope (e.g. an admin account on the client-only
	// endpoint). Must stay distinguishable from a wrong password.
	KindRoleNotAllowed Kind = "role_not_allowed"
	// KindValidation indicates rejected input (HTTP 422 or a local pre-flight
	// check). Carries field messages; never touches stored credentials.
	KindValidation Kind = "validation"
	// KindCancelled indicates the request was aborted by its caller (context
	// cancellation, navigation, shutdown). Not a user-visible failure.
	KindCancelled Kind = "cancelled"
	// KindStorage indicates a storage backend read/write threw. Logged and
	// treated as "data absent" inside the token repository.
	KindStorage Kind = "storage"
)

// E wraps an error with a kind, a human-friendly message and optional
// per-field validation messages.
type E struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/errors.As.
func (e *E) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, msg string) *E { return &E{Kind: kind, Message: msg} }

// Wrap creates an error of the given kind around an underlying cause.
func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }

// Invalid creates a validation error carrying field-level messages.
func Invalid(msg string, fields map[string]string) *E {
	return &E{Kind: KindValidation, Message: msg, Fields: fields}
}

// KindOf returns the kind of err, or "" when err is not a taxonomy error.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNetwork reports whether err is a retryable transport failure.
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

// IsAuthentication reports whether err is a definitive credential rejection.
// Role-boundary rejections count: they also terminate the login attempt.
func IsAuthentication(err error) bool {
	k := KindOf(err)
	return k == KindAuthentication || k == KindRoleNotAllowed
}

// IsRoleNotAllowed reports whether err is specifically a login-scope rejection.
func IsRoleNotAllowed(err error) bool { return KindOf(err) == KindRoleNotAllowed }

// IsValidation reports whether err is a rejected-input error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsCancelled reports whether err is a caller-initiated abort.
func IsCancelled(err error) bool { return KindOf(err) == KindCancelled }

// FieldMessages returns the per-field validation messages attached to err,
// or nil when there are none.
func FieldMessages(err error) map[string]string {
	var e *E
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
