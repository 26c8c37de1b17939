// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bookline/cli/internal/profile"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe(AuthSuccess, func(e Event) { got = append(got, e) })

	u := &profile.UserProfile{ID: 7, Email: "a@b.co"}
	bus.Publish(Event{Type: AuthSuccess, User: u})

	assert.Len(t, got, 1)
	assert.Equal(t, AuthSuccess, got[0].Type)
	assert.Equal(t, int64(7), got[0].User.ID)
}

func TestBusFiltersByType(t *testing.T) {
	bus := NewBus()

	var logouts int
	bus.Subscribe(AuthLogout, func(Event) { logouts++ })

	bus.Publish(Event{Type: AuthSuccess})
	bus.Publish(Event{Type: TokenExpired})
	assert.Zero(t, logouts)

	bus.Publish(Event{Type: AuthLogout})
	assert.Equal(t, 1, logouts)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	var calls int
	unsub := bus.Subscribe(AuthFailure, func(Event) { calls++ })

	bus.Publish(Event{Type: AuthFailure, Reason: "session expired"})
	unsub()
	bus.Publish(Event{Type: AuthFailure, Reason: "session expired"})
	// Double unsubscribe is harmless.
	unsub()

	assert.Equal(t, 1, calls)
}

func TestBusHandlerMayUnsubscribeDuringDispatch(t *testing.T) {
	bus := NewBus()

	var calls int
	var unsub func()
	unsub = bus.Subscribe(ProfileRefreshed, func(Event) {
		calls++
		unsub()
	})

	bus.Publish(Event{Type: ProfileRefreshed})
	bus.Publish(Event{Type: ProfileRefreshed})

	assert.Equal(t, 1, calls)
}
