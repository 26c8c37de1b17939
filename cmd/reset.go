// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bookline/cli/internal/autherrors"
	"bookline/cli/internal/httperrors"
)

// resetCmd completes a password reset with the token from the reset mail.
// The reset does not sign the account in.
var resetCmd = &cobra.Command{
	Use:   "reset <token>",
	Short: "Reset your password with a mailed token",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := bootSession(cmd.Context())
		if err != nil {
			return err
		}

		password, err := promptPassword("New password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Repeat new password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return errors.New("passwords do not match")
		}

		if err := a.manager.ResetPassword(cmd.Context(), args[0], password); err != nil {
			if autherrors.IsValidation(err) {
				for field, msg := range autherrors.FieldMessages(err) {
					fmt.Printf("  • %s: %s\n", field, msg)
				}
			} else {
				httperrors.Present(err, "resetting your password")
			}
			return err
		}
		fmt.Println("✅ Password reset. Sign in with 'bookline login'.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
