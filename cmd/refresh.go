// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bookline/cli/internal/httperrors"
)

var refreshProfile bool

// refreshCmd renews the stored session token, and optionally the cached
// profile, without going through a full login.
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Renew your session token",

	RunE: func(cmd *cobra.Command, args []string) error {
		a, state, err := bootSession(cmd.Context())
		if err != nil {
			return err
		}
		if !state.Authenticated {
			fmt.Println("🔒 You're not logged in yet! Run 'bookline login' first.")
			return nil
		}

		stop := startInlineSpinner(os.Stdout, "Renewing session", spinnerFrames, 120*time.Millisecond)
		renewed, err := a.manager.RefreshSession(cmd.Context())
		if err == nil && refreshProfile {
			err = a.manager.RefreshUserData(cmd.Context())
		}
		stop()
		if err == nil && !renewed {
			fmt.Println("🔒 No stored session to renew. Run 'bookline login' first.")
			return nil
		}
		if err != nil {
			httperrors.Present(err, "renewing your session")
			return err
		}

		if state := a.manager.Snapshot(); !state.Authenticated {
			fmt.Println("🔒 Your session has expired. Run 'bookline login' to sign in again.")
			return nil
		}
		fmt.Println("🔄 Session renewed.")
		return nil
	},
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshProfile, "profile", false, "also refetch your profile")
	rootCmd.AddCommand(refreshCmd)
}
