// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe access to the OS
// keychain/credential store. It backs the long-lived "remember" side of the
// session store: bearer tokens and profile data survive reboots here, guarded
// by whatever unlock policy the platform enforces.
//
// The package supports the macOS Keychain, Windows Credential Manager and the
// Linux Secret Service / pass backends through 99designs/keyring, and falls
// back to an encrypted file store when no native backend is available.
package keychain

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/99designs/keyring"

	"bookline/cli/internal/xdg"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "bookline"

// ErrNotFound is returned by Get when the key has never been stored.
var ErrNotFound = errors.New("keychain: key not found")

// Global keychain manager instance
var (
	globalManager *Manager
	globalErr     error
	mu            sync.Mutex
)

// Manager provides thread-safe string key/value operations on the OS keychain.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// NewManager opens the OS keyring and returns a manager bound to it.
func NewManager() (*Manager, error) {
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return &Manager{ring: ring}, nil
}

// GetManager returns the process-wide keychain manager, initializing it on
// first call. A failed initialization is retried on subsequent calls rather
// than being cached forever.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}
	globalManager, globalErr = NewManager()
	if globalErr != nil {
		globalManager = nil
		return nil, globalErr
	}
	return globalManager, nil
}

// openRing opens the OS keyring, preferring native platform backends and
// falling back to keyring's encrypted file store inside the XDG state dir so
// that headless Linux hosts still get a working remember store.
func openRing() (keyring.Keyring, error) {
	fileDir := ""
	if dir, err := xdg.StateDir(); err == nil {
		fileDir = filepath.Join(dir, "keyring")
	}

	cfg := keyring.Config{
		ServiceName: ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.SecretServiceBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		PassPrefix:               ServiceName,
		WinCredPrefix:            ServiceName,
		LibSecretCollectionName:  ServiceName,
		FileDir:                  fileDir,
		KeychainTrustApplication: true,
	}
	return keyring.Open(cfg)
}

// Get retrieves a value. Returns ErrNotFound when the key was never stored.
func (m *Manager) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, err := m.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(it.Data), nil
}

// Set stores a value under key, replacing any previous value.
func (m *Manager) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
}

// Delete removes a key. Deleting a missing key is not an error.
func (m *Manager) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}
