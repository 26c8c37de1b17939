// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookline/cli/internal/httperrors"
)

// verifyCmd confirms an email address with the token from the verification mail.
var verifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify your email address",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := bootSession(cmd.Context())
		if err != nil {
			return err
		}

		if err := a.manager.VerifyEmail(cmd.Context(), args[0]); err != nil {
			httperrors.Present(err, "verifying your email")
			return err
		}
		fmt.Println("✅ Email verified!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
