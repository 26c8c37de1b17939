// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings live here; credentials go to the session store.
// Environment variables (BOOKLINE_*) override file values.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"

	"bookline/cli/internal/xdg"
)

// Config holds non-sensitive CLI settings.
//
// RefreshWindow and ExpiryMargin are deliberately configuration rather than
// constants: RefreshWindow bounds how old a prior successful login may be for
// the cached profile to be trusted without a network call, and ExpiryMargin is
// subtracted from the recorded token expiry so in-flight requests do not race
// it. Durations serialize as nanoseconds in the JSON file and accept Go
// duration strings ("45m", "30s") from the environment.
type Config struct {
	BaseURL        string        `json:"base_url" env:"BOOKLINE_BASE_URL"`
	LogLevel       string        `json:"log_level" env:"BOOKLINE_LOG_LEVEL"`
	RefreshWindow  time.Duration `json:"refresh_window" env:"BOOKLINE_REFRESH_WINDOW"`
	ExpiryMargin   time.Duration `json:"expiry_margin" env:"BOOKLINE_EXPIRY_MARGIN"`
	RequestTimeout time.Duration `json:"request_timeout" env:"BOOKLINE_REQUEST_TIMEOUT"`
	LogoutTimeout  time.Duration `json:"logout_timeout" env:"BOOKLINE_LOGOUT_TIMEOUT"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseURL:        "https://api.bookline.app",
		LogLevel:       "info",
		RefreshWindow:  60 * time.Minute,
		ExpiryMargin:   30 * time.Second,
		RequestTimeout: 15 * time.Second,
		LogoutTimeout:  3 * time.Second,
	}
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration: defaults, overlaid with the config file when it
// exists, overlaid with BOOKLINE_* environment variables.
func Load(ctx context.Context) (Config, error) {
	c := Default()

	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return c, err
	}
	if err == nil {
		if uerr := json.Unmarshal(data, &c); uerr != nil {
			return c, uerr
		}
	}

	if err := envconfig.Process(ctx, &c); err != nil {
		return c, err
	}
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
