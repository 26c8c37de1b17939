// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors converts transport-level failures into the session error
// taxonomy and renders user-friendly guidance for the CLI.
//
// Classification runs before any error leaves the identity client: callers
// above it only ever see taxonomy kinds, never raw net/http errors. The one
// distinction that matters most is cancellation vs. timeout: an aborted
// request (shutdown, Ctrl-C) must never be reported as a network failure,
// because network failures trigger retry/stale-data policies and cancellations
// must be silent.
package httperrors

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	"bookline/cli/internal/autherrors"
)

// Classify converts a transport error into the taxonomy. ctx is the request
// context; it is consulted to tell caller-initiated aborts from timeouts.
func Classify(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	// Caller-initiated abort. Checked first: an aborted request usually also
	// looks like a generic URL error.
	if errors.Is(err, context.Canceled) || (ctx != nil && ctx.Err() == context.Canceled) {
		return autherrors.Wrap(autherrors.KindCancelled, operation+" aborted", err)
	}

	// Everything else that prevented a response is a network failure:
	// timeouts, DNS, refused connections, TLS trouble.
	return autherrors.Wrap(autherrors.KindNetwork, operation+" failed", err)
}

// IsTimeout checks if the error is a timeout error.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// IsDNS checks if the error is a DNS resolution error.
func IsDNS(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// IsConnectionRefused checks if the error is a connection refused error.
func IsConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// IsTLS checks if the error is an SSL/TLS error.
func IsTLS(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "tls") ||
		strings.Contains(s, "ssl") ||
		strings.Contains(s, "certificate") ||
		strings.Contains(s, "handshake")
}

// Present shows a formatted, actionable message for a network-kind failure.
// Non-network errors are shown as a single error line.
func Present(err error, operation string) {
	if err == nil {
		return
	}
	if !autherrors.IsNetwork(err) {
		pterm.Error.Printf("%s: %v\n", operation, err)
		return
	}

	cause := errors.Unwrap(err)
	if cause == nil {
		cause = err
	}

	switch {
	case IsTimeout(cause):
		pterm.Printf("⏱️  Connection timeout while %s\n", operation)
		pterm.Println()
		pterm.Println("The server took too long to respond. This could mean:")
		pterm.Println("  • Slow internet connection")
		pterm.Println("  • Server is under heavy load")
		pterm.Println()
		pterm.Println("Please try again in a few moments.")
	case IsDNS(cause):
		pterm.Printf("🌐 Cannot resolve server address while %s\n", operation)
		pterm.Println()
		pterm.Println("Please check:")
		pterm.Println("  • Your internet connection is working")
		pterm.Println("  • DNS settings are correct")
	case IsConnectionRefused(cause):
		pterm.Printf("🚫 Connection refused while %s\n", operation)
		pterm.Println()
		pterm.Println("The server is not accepting connections. Please try again")
		pterm.Println("later or contact support.")
	case IsTLS(cause):
		pterm.Printf("🔒 Secure connection failed while %s\n", operation)
		pterm.Println()
		pterm.Println("Cannot establish a secure HTTPS connection. Try:")
		pterm.Println("  • Check your system date and time")
		pterm.Println("  • Verify network proxy settings")
	default:
		pterm.Printf("❌ Cannot reach the Bookline service while %s\n", operation)
		pterm.Println()
		pterm.Println("Please check:")
		pterm.Println("  • Your internet connection")
		pterm.Println("  • Firewall settings that might block HTTPS requests")
	}
	pterm.Println()
}
