// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"bookline/cli/internal/config"
	"bookline/cli/internal/events"
	"bookline/cli/internal/identity"
	"bookline/cli/internal/logging"
	"bookline/cli/internal/session"
	"bookline/cli/internal/storage"
)

// app bundles the wired session stack shared by all commands.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	repo    *storage.Repository
	client  *identity.Client
	manager *session.Manager
}

var (
	appOnce sync.Once
	appInst *app
	appErr  error
)

// getApp builds the session stack once per process: config, logger, the
// dual-store repository (keyring + state file), the identity client and the
// session manager, all sharing the process-wide event bus.
func getApp(ctx context.Context) (*app, error) {
	appOnce.Do(func() {
		cfg, err := config.Load(ctx)
		if err != nil {
			appErr = err
			return
		}
		log := logging.New(cfg.LogLevel)

		remember, err := storage.NewKeyringBackend()
		if err != nil {
			// A locked or absent keychain must not strand the user: fall back
			// to an in-memory remember store for this invocation.
			log.Warn().Err(err).Msg("OS keychain unavailable, remember-me disabled for this run")
			remember = storage.NewMemoryBackend()
		}
		sessionStore, err := storage.NewFileBackend()
		if err != nil {
			log.Warn().Err(err).Msg("state dir unavailable, session will not persist")
			sessionStore = storage.NewMemoryBackend()
		}

		repo := storage.New(remember, sessionStore, cfg.ExpiryMargin, log)
		bus := events.Default()
		client := identity.New(cfg.BaseURL, identity.DefaultEndpoints(), repo, bus, identity.Options{
			RefreshWindow:  cfg.RefreshWindow,
			RequestTimeout: cfg.RequestTimeout,
			LogoutTimeout:  cfg.LogoutTimeout,
		}, log)
		manager := session.NewManager(client, repo, bus, cfg.RefreshWindow, log)

		appInst = &app{cfg: cfg, log: log, repo: repo, client: client, manager: manager}
	})
	return appInst, appErr
}

// bootSession wires the stack and runs session boot. Most commands start here.
func bootSession(ctx context.Context) (*app, session.State, error) {
	a, err := getApp(ctx)
	if err != nil {
		return nil, session.State{}, err
	}
	a.manager.Initialize(ctx)
	return a, a.manager.Snapshot(), nil
}
