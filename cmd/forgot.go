// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookline/cli/internal/httperrors"
)

// forgotCmd requests a password reset mail.
var forgotCmd = &cobra.Command{
	Use:   "forgot <email>",
	Short: "Request a password reset mail",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := bootSession(cmd.Context())
		if err != nil {
			return err
		}

		if err := a.manager.ForgotPassword(cmd.Context(), args[0]); err != nil {
			httperrors.Present(err, "requesting the reset mail")
			return err
		}
		fmt.Println("📬 If that address has an account, a reset mail is on its way.")
		fmt.Println("   Complete the reset with 'bookline reset <token>'.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forgotCmd)
}
