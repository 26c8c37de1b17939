// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// logoutCmd clears the local session and notifies the server best-effort.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove the stored session",
	Long: `The logout command removes the stored credential, expiry, cached profile and
session bookkeeping from both the OS keychain and the local state file, then
notifies the Bookline platform to invalidate the session. The notification is
best-effort: local logout succeeds even when the server is unreachable.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := bootSession(cmd.Context())
		if err != nil {
			return err
		}
		_ = a.manager.Logout(cmd.Context()) // local logout never fails

		fmt.Println("✅ Signed out, all local session data removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
