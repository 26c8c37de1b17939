// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package autherrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"network error", New(KindNetwork, "timeout"), KindNetwork},
		{"authentication error", New(KindAuthentication, "invalid credentials"), KindAuthentication},
		{"wrapped taxonomy error", fmt.Errorf("login: %w", New(KindValidation, "bad input")), KindValidation},
		{"plain error", errors.New("boom"), Kind("")},
		{"nil", nil, Kind("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.expected {
				t.Errorf("KindOf() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestIsAuthenticationIncludesRoleBoundary(t *testing.T) {
	err := New(KindRoleNotAllowed, "admin account on client login")
	if !IsAuthentication(err) {
		t.Error("role-boundary rejection must count as an authentication failure")
	}
	if !IsRoleNotAllowed(err) {
		t.Error("role-boundary rejection must stay individually detectable")
	}
	if IsRoleNotAllowed(New(KindAuthentication, "wrong password")) {
		t.Error("a wrong password is not a role-boundary rejection")
	}
}

func TestFieldMessages(t *testing.T) {
	err := Invalid("rejected", map[string]string{"email": "already taken"})
	fields := FieldMessages(err)
	if fields["email"] != "already taken" {
		t.Errorf("FieldMessages() = %v, want email message", fields)
	}
	if FieldMessages(errors.New("boom")) != nil {
		t.Error("plain errors carry no field messages")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindNetwork, "fetching user", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped cause must be reachable through errors.Is")
	}
}
