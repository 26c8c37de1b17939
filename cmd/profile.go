// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookline/cli/internal/autherrors"
	"bookline/cli/internal/httperrors"
	"bookline/cli/internal/identity"
)

var (
	profFirstName string
	profLastName  string
	profPhone     string
	profCompany   string
)

// profileCmd updates account profile fields. Only the flags given are sent;
// everything else keeps its current value.
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update your profile",
	Long: `The profile command changes account profile fields on the Bookline platform.
Only the fields passed as flags are changed; omitted fields keep their
current value, locally and server-side.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		a, st, err := bootSession(cmd.Context())
		if err != nil {
			return err
		}
		if !st.Authenticated {
			fmt.Println("🔒 You're not logged in yet!")
			return nil
		}

		in := identity.ProfileUpdate{}
		if cmd.Flags().Changed("first-name") {
			in.FirstName = &profFirstName
		}
		if cmd.Flags().Changed("last-name") {
			in.LastName = &profLastName
		}
		if cmd.Flags().Changed("phone") {
			in.Phone = &profPhone
		}
		if cmd.Flags().Changed("company") {
			in.Company = &profCompany
		}

		if err := a.manager.UpdateProfile(cmd.Context(), in); err != nil {
			if autherrors.IsValidation(err) {
				for field, msg := range autherrors.FieldMessages(err) {
					fmt.Printf("  • %s: %s\n", field, msg)
				}
			} else {
				httperrors.Present(err, "updating your profile")
			}
			return err
		}

		if user := a.manager.Snapshot().User; user != nil {
			fmt.Printf("✅ Profile updated: %s\n", user.FullName)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVar(&profFirstName, "first-name", "", "New first name")
	profileCmd.Flags().StringVar(&profLastName, "last-name", "", "New last name")
	profileCmd.Flags().StringVar(&profPhone, "phone", "", "New phone number")
	profileCmd.Flags().StringVar(&profCompany, "company", "", "New company name")
}
