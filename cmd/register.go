// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bookline/cli/internal/autherrors"
	"bookline/cli/internal/httperrors"
	"bookline/cli/internal/identity"
)

var (
	regFirstName string
	regLastName  string
	regEmail     string
	regPhone     string
	regCompany   string
)

// registerCmd creates a new Bookline account. Registration never signs the
// new account in: the verification mail and an explicit login come first.
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new Bookline account",
	Long: `The register command creates a new account on the Bookline platform.

The new account is not signed in automatically. Check your inbox for the
verification mail, confirm it with 'bookline verify <token>', then sign in
with 'bookline login'.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := bootSession(cmd.Context())
		if err != nil {
			return err
		}

		password, err := promptPassword("Choose a password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Repeat the password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return errors.New("passwords do not match")
		}

		err = a.manager.Register(cmd.Context(), identity.RegisterInput{
			FirstName: regFirstName,
			LastName:  regLastName,
			Email:     regEmail,
			Password:  password,
			Phone:     regPhone,
			Company:   regCompany,
		})
		if err != nil {
			if autherrors.IsValidation(err) {
				fmt.Println("Registration was rejected:")
				for field, msg := range autherrors.FieldMessages(err) {
					fmt.Printf("  • %s: %s\n", field, msg)
				}
			} else {
				httperrors.Present(err, "registering")
			}
			return err
		}

		fmt.Println("✅ Account created! Check your inbox for the verification mail,")
		fmt.Println("   then run 'bookline login' to sign in.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVar(&regFirstName, "first-name", "", "First name (required)")
	registerCmd.Flags().StringVar(&regLastName, "last-name", "", "Last name (required)")
	registerCmd.Flags().StringVar(&regEmail, "email", "", "Account email (required)")
	registerCmd.Flags().StringVar(&regPhone, "phone", "", "Phone number")
	registerCmd.Flags().StringVar(&regCompany, "company", "", "Company name")
	_ = registerCmd.MarkFlagRequired("first-name")
	_ = registerCmd.MarkFlagRequired("last-name")
	_ = registerCmd.MarkFlagRequired("email")
}
