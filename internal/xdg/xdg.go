// Package xdg resolves XDG Base Directory paths for bookline.
// Config (settings file) and state (the ephemeral session store) live in
// separate directories so that wiping session state never touches settings.
// Both directories are created with private permissions on first use.
package xdg

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the XDG config directory for bookline.
// Falls back to ~/.config/bookline when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return appDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for bookline.
// Falls back to ~/.local/state/bookline when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return appDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func appDir(envVar, fallback string) (string, error) {
	base := os.Getenv(envVar)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	dir := filepath.Join(base, "bookline")
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
