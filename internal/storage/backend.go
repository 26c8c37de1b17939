// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package storage implements the dual-store session repository: one long-lived
// "remember" backend in the OS keychain and one ephemeral "session" backend in
// the XDG state dir. The repository always normalizes data toward the backend
// selected by the persisted remember-me preference and keeps the invariant
// that at most one backend holds live credential data at a time.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"bookline/cli/internal/keychain"
	"bookline/cli/internal/xdg"
)

// ErrNotFound is returned by Backend.Get when the key has never been stored.
var ErrNotFound = errors.New("storage: key not found")

// Backend is a minimal string key/value store. All repository semantics
// (fallback, self-healing, single authority) live above this seam, which keeps
// backends trivial and the repository testable with in-memory fakes.
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// keyringBackend adapts the OS keychain manager to the Backend seam.
type keyringBackend struct {
	km *keychain.Manager
}

// NewKeyringBackend opens the OS keychain as the remember backend.
func NewKeyringBackend() (Backend, error) {
	km, err := keychain.GetManager()
	if err != nil {
		return nil, err
	}
	return &keyringBackend{km: km}, nil
}

func (b *keyringBackend) Get(key string) (string, error) {
	v, err := b.km.Get(key)
	if errors.Is(err, keychain.ErrNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

func (b *keyringBackend) Set(key, value string) error { return b.km.Set(key, value) }
func (b *keyringBackend) Delete(key string) error     { return b.km.Delete(key) }

// fileBackend is the ephemeral session backend: a JSON object in the XDG state
// dir. It is rewritten whole on every mutation; the session store holds a
// handful of short strings, so simplicity wins over write amplification.
type fileBackend struct {
	mu   sync.Mutex
	path string
}

// NewFileBackend creates the session backend under the XDG state dir.
func NewFileBackend() (Backend, error) {
	dir, err := xdg.StateDir()
	if err != nil {
		return nil, err
	}
	return &fileBackend{path: filepath.Join(dir, "session.json")}, nil
}

func (b *fileBackend) load() (map[string]string, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		// A corrupted session file is treated as empty; it will be rewritten
		// on the next Set.
		return map[string]string{}, nil
	}
	return m, nil
}

func (b *fileBackend) save(m map[string]string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, data, 0o600)
}

func (b *fileBackend) Get(key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := b.load()
	if err != nil {
		return "", err
	}
	v, ok := m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (b *fileBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := b.load()
	if err != nil {
		return err
	}
	m[key] = value
	return b.save(m)
}

func (b *fileBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, err := b.load()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return b.save(m)
}

// MemoryBackend is an in-memory Backend for tests and a last-resort session
// store when the state dir is unavailable.
type MemoryBackend struct {
	mu sync.RWMutex
	m  map[string]string
	// FailWrites makes Set/Delete return an error, simulating disabled storage.
	FailWrites bool
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{m: map[string]string{}}
}

func (b *MemoryBackend) Get(key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (b *MemoryBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailWrites {
		return errors.New("storage write disabled")
	}
	b.m[key] = value
	return nil
}

func (b *MemoryBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailWrites {
		return errors.New("storage write disabled")
	}
	delete(b.m, key)
	return nil
}

// Len reports the number of stored keys; used by invariant tests.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.m)
}
