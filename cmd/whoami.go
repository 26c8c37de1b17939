// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// whoamiCmd shows the current session.
// Thanks to the quick path this usually answers without a network call: a
// complete cached profile from a recent login is displayed as-is and verified
// in the background.
var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Aliases: []string{"me"},
	Short:   "Show the current signed-in account",
	Long: `The whoami command displays the account currently signed in on this machine.

When the cached profile is complete and the last login is recent, the answer
comes from the local session store without touching the network. Otherwise the
session is validated against the Bookline platform first.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := bootSession(cmd.Context())
		if err != nil {
			return err
		}

		if !st.Authenticated || st.User == nil {
			fmt.Println("🔒 You're not logged in yet!")
			fmt.Println("   Run 'bookline login' to get started.")
			return nil
		}

		u := st.User
		fmt.Printf("👤 %s <%s>\n", u.FullName, u.Email)
		fmt.Printf("   role: %s", u.Role)
		if !u.Verified {
			fmt.Print("  (email not verified)")
		}
		fmt.Println()
		if u.Company != "" {
			fmt.Printf("   company: %s\n", u.Company)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
