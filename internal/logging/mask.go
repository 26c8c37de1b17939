// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logging provides the structured logger for the session core and
// utilities for keeping secrets out of log output.
//
// Everything the session manager logs can plausibly contain a bearer token or
// a password (storage dumps, request errors, echoed payloads), so all free-form
// strings must pass through Mask before they are written anywhere.
package logging

import (
	"regexp"
)

var (
	rePassword = regexp.MustCompile(`(?i)("?password"?\s*[=:]\s*"?)([^\s";,}]+)`)
	reToken    = regexp.MustCompile(`(?i)(token"?\s*[=:]\s*"?|bearer\s+)([A-Za-z0-9._-]+)`)
	reAPIKey   = regexp.MustCompile(`(?i)(apikey=|api_key=)([^\s;]+)`)
)

// Mask replaces sensitive values in the input string with "***".
// It covers password and token key/value pairs in both query-string and JSON
// notation, Authorization bearer values, and api-key pairs.
func Mask(s string) string {
	out := s
	out = rePassword.ReplaceAllString(out, "$1***")
	out = reToken.ReplaceAllString(out, "$1***")
	out = reAPIKey.ReplaceAllString(out, "$1***")
	return out
}
