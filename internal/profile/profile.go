// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package profile defines the canonical user identity record and the
// transformer that maps heterogeneous server payloads onto it.
//
// The identity service has grown several response shapes over time (snake_case
// and camelCase field names, verified flags under three different keys), so the
// transformer is deliberately liberal in what it accepts and always produces a
// renderable profile: required fields that are missing server-side are replaced
// with clearly-synthetic placeholders and the profile is flagged as synthetic
// so it can never satisfy the quick-path completeness gate.
package profile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleClient }

// UserProfile is the canonical identity record cached by the session store.
//
// UpdatedAt and FetchedAt are bookkeeping stamps used only to let consumers
// detect refreshes; they carry no business meaning.
type UserProfile struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	FullName  string    `json:"fullName"`
	Role      Role      `json:"role"`
	Verified  bool      `json:"verified"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Synthetic bool      `json:"synthetic,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Complete reports whether the profile satisfies the quick-path invariant:
// id, email, first name, last name and role are all populated, and none of
// them came from placeholder substitution.
func (p *UserProfile) Complete() bool {
	if p == nil || p.Synthetic {
		return false
	}
	return p.ID != 0 && p.Email != "" && p.FirstName != "" && p.LastName != "" && p.Role.Valid()
}

// Merge applies the populated fields of fresh onto p, preserving any cached
// fields the server response omitted (a profile-update response is only
// authoritative for the fields it returns). Verified is sticky: it is never
// revoked by a partial response. Returns the merged profile.
func (p UserProfile) Merge(fresh UserProfile) UserProfile {
	if fresh.ID != 0 {
		p.ID = fresh.ID
	}
	if fresh.Email != "" {
		p.Email = fresh.Email
	}
	if fresh.FirstName != "" {
		p.FirstName = fresh.FirstName
	}
	if fresh.LastName != "" {
		p.LastName = fresh.LastName
	}
	if fresh.Role.Valid() {
		p.Role = fresh.Role
	}
	if fresh.Phone != "" {
		p.Phone = fresh.Phone
	}
	if fresh.Company != "" {
		p.Company = fresh.Company
	}
	if fresh.Verified {
		p.Verified = true
	}
	p.Synthetic = p.Synthetic && fresh.Synthetic
	p.FullName = deriveFullName(p.FirstName, p.LastName, p.ID)
	return p
}

// Normalize maps a raw server payload onto the canonical profile shape.
// Missing required fields are substituted with id-derived placeholders and the
// substitution is logged; the result is marked Synthetic so callers can tell a
// rendered-from-partial-data profile from a trustworthy one. Unrecognized
// roles downgrade to the lower-privilege client role.
//
// The bookkeeping stamps are left zero; callers stamp them when persisting.
func Normalize(raw map[string]any, log zerolog.Logger) UserProfile {
	p := UserProfile{
		ID:        pickID(raw),
		Email:     strings.TrimSpace(pickString(raw, "email", "email_address", "emailAddress")),
		FirstName: strings.TrimSpace(pickString(raw, "firstName", "first_name")),
		LastName:  strings.TrimSpace(pickString(raw, "lastName", "last_name")),
		Phone:     strings.TrimSpace(pickString(raw, "phone", "phone_number", "phoneNumber")),
		Company:   strings.TrimSpace(pickString(raw, "company", "company_name", "companyName")),
		Verified:  pickBool(raw, "verified", "email_verified", "emailVerified", "is_verified"),
	}

	role := Role(strings.ToLower(strings.TrimSpace(pickString(raw, "role", "user_role", "userRole"))))
	if role.Valid() {
		p.Role = role
	} else {
		if role != "" {
			log.Warn().Str("role", string(role)).Msg("unrecognized role, defaulting to client")
		}
		p.Role = RoleClient
	}

	if p.ID == 0 {
		p.Synthetic = true
		log.Warn().Msg("profile payload missing id")
	}
	if p.Email == "" {
		p.Email = fmt.Sprintf("user-%d@placeholder.invalid", p.ID)
		p.Synthetic = true
		log.Warn().Int64("id", p.ID).Msg("profile payload missing email, substituting placeholder")
	}
	if p.FirstName == "" {
		p.FirstName = "User"
		p.Synthetic = true
		log.Warn().Int64("id", p.ID).Msg("profile payload missing first name, substituting placeholder")
	}
	if p.LastName == "" {
		p.LastName = fmt.Sprintf("#%d", p.ID)
		p.Synthetic = true
		log.Warn().Int64("id", p.ID).Msg("profile payload missing last name, substituting placeholder")
	}

	p.FullName = deriveFullName(p.FirstName, p.LastName, p.ID)
	return p
}

// Partial maps a raw payload onto the profile shape without placeholder
// substitution: fields the payload omits stay zero, so the result can be
// merged onto a cached profile touching only what the server actually sent.
// Synthetic is set so Merge keeps the cached profile's own flag.
func Partial(raw map[string]any) UserProfile {
	p := UserProfile{
		ID:        pickID(raw),
		Email:     strings.TrimSpace(pickString(raw, "email", "email_address", "emailAddress")),
		FirstName: strings.TrimSpace(pickString(raw, "firstName", "first_name")),
		LastName:  strings.TrimSpace(pickString(raw, "lastName", "last_name")),
		Phone:     strings.TrimSpace(pickString(raw, "phone", "phone_number", "phoneNumber")),
		Company:   strings.TrimSpace(pickString(raw, "company", "company_name", "companyName")),
		Verified:  pickBool(raw, "verified", "email_verified", "emailVerified", "is_verified"),
		Synthetic: true,
	}
	if role := Role(strings.ToLower(strings.TrimSpace(pickString(raw, "role", "user_role", "userRole")))); role.Valid() {
		p.Role = role
	}
	return p
}

func deriveFullName(first, last string, id int64) string {
	full := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if full == "" {
		return fmt.Sprintf("User #%d", id)
	}
	return full
}

// pickString returns the first non-empty string value among keys.
func pickString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// pickBool returns the first boolean value among keys, accepting the string
// forms "true"/"false" the legacy API sometimes emits.
func pickBool(raw map[string]any, keys ...string) bool {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	}
	return false
}

// pickID extracts the numeric id, tolerating JSON numbers and numeric strings
// under either naming convention.
func pickID(raw map[string]any) int64 {
	for _, k := range []string{"id", "user_id", "userId"} {
		switch v := raw[k].(type) {
		case float64:
			return int64(v)
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}
