// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package events carries the process-wide authentication events.
//
// The session core both publishes these (so non-owning code such as an HTTP
// 401 interceptor or a status display can react to auth changes) and consumes
// them (so that same non-owning code can force a logout without a direct call
// back into the session manager). Subscriptions return an unsubscribe func;
// holders must call it on teardown to avoid leaking handlers across restarts.
package events

import (
	"sync"

	"bookline/cli/internal/profile"
)

// Type enumerates the named authentication events.
type Type string

const (
	// AuthSuccess fires after a login or a successful session restore; carries
	// the authenticated profile.
	AuthSuccess Type = "auth:success"
	// AuthLogout fires once local session state has been cleared.
	AuthLogout Type = "auth:logout"
	// AuthFailure signals a definitive credential rejection; carries a reason.
	AuthFailure Type = "auth:failure"
	// TokenExpired signals that the stored credential is no longer usable.
	TokenExpired Type = "token:expired"
	// ProfileRefreshed fires when a background reconciliation produced a newer
	// profile; carries the refreshed profile.
	ProfileRefreshed Type = "profile:refreshed"
)

// Event is the payload delivered to handlers. Only the fields relevant to the
// event type are set.
type Event struct {
	Type   Type
	User   *profile.UserProfile
	Reason string
}

// Handler receives published events. Handlers are invoked synchronously in
// subscription order on the publisher's goroutine and must not block.
type Handler func(Event)

// Bus is a typed publish/subscribe channel for auth events.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[Type]map[int]Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: map[Type]map[int]Handler{}}
}

// Subscribe registers h for events of type t and returns the matching
// unsubscribe function. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(t Type, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[t] == nil {
		b.subs[t] = map[int]Handler{}
	}
	id := b.next
	b.next++
	b.subs[t][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[t], id)
	}
}

// Publish delivers e to every handler subscribed to its type. Handlers are
// snapshotted first so a handler may unsubscribe (itself or others) without
// deadlocking the dispatch.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Type]))
	for _, h := range b.subs[e.Type] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// Process-wide default bus. Collaborators that cannot be handed a bus
// explicitly (CLI command wiring) share this instance.
var (
	defaultBus  *Bus
	defaultOnce sync.Once
)

// Default returns the process-wide bus.
func Default() *Bus {
	defaultOnce.Do(func() { defaultBus = NewBus() })
	return defaultBus
}
