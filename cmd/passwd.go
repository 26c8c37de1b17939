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

// passwdCmd changes the account password for the signed-in user.
var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change your account password",

	RunE: func(cmd *cobra.Command, args []string) error {
		a, st, err := bootSession(cmd.Context())
		if err != nil {
			return err
		}
		if !st.Authenticated {
			fmt.Println("🔒 You're not logged in yet!")
			return nil
		}

		current, err := promptPassword("Current password: ")
		if err != nil {
			return err
		}
		updated, err := promptPassword("New password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Repeat new password: ")
		if err != nil {
			return err
		}
		if updated != confirm {
			return errors.New("passwords do not match")
		}

		if err := a.manager.ChangePassword(cmd.Context(), current, updated); err != nil {
			if autherrors.IsValidation(err) {
				for field, msg := range autherrors.FieldMessages(err) {
					fmt.Printf("  • %s: %s\n", field, msg)
				}
			} else {
				httperrors.Present(err, "changing your password")
			}
			return err
		}
		fmt.Println("✅ Password changed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(passwdCmd)
}
