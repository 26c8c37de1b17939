// Package freshness decides whether a prior successful login is recent enough
// to trust the cached profile without a network round-trip (the "quick path").
package freshness

import "time"

// Within reports whether last falls inside the refresh window ending at now.
// A zero last means no prior success was ever recorded, which never qualifies.
// A future last (clock skew, restored backup) is treated as fresh rather than
// punting the user to the network path.
func Within(last, now time.Time, window time.Duration) bool {
	if last.IsZero() || window <= 0 {
		return false
	}
	return now.Sub(last) <= window
}
