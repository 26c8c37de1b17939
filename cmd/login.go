// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bookline/cli/internal/autherrors"
	"bookline/cli/internal/httperrors"
	"bookline/cli/internal/profile"
)

var (
	loginRemember bool
	loginScope    string
	loginEmail    string
)

// failedAttemptsWarnAt is how many rejected logins in a row trigger the
// forgot-password hint.
const failedAttemptsWarnAt = 3

// loginCmd signs the user in with email and password.
// Credentials end up in the OS keychain when --remember is set, otherwise in
// the per-machine session store.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Sign in to Bookline",
	Long: `The login command authenticates you against the Bookline platform with your
email and password and stores the resulting session locally.

With --remember the credential is stored in the OS keychain and survives
reboots; without it the session lives in a local state file only. The --as
flag restricts the login to a role-scoped endpoint: '--as client' is rejected
for staff accounts, and '--as admin' for customer accounts.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, st, err := bootSession(ctx)
		if err != nil {
			return err
		}

		// Already holding a live session? Don't ask for credentials again.
		if st.Authenticated && st.User != nil {
			fmt.Printf("Already logged in as %s\n", st.User.Email)
			return nil
		}

		scope := profile.Role(loginScope)
		if loginScope != "" && !scope.Valid() {
			return fmt.Errorf("unknown role %q: use 'admin' or 'client'", loginScope)
		}

		email := loginEmail
		if email == "" {
			if email, err = promptLine("Email: "); err != nil {
				return err
			}
		}
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}

		stopSpinner := startInlineSpinner(os.Stdout, "Signing in", spinnerFrames, 120*time.Millisecond)
		err = a.manager.Login(ctx, email, password, loginRemember, scope)
		stopSpinner()

		if err != nil {
			switch {
			case autherrors.IsRoleNotAllowed(err):
				fmt.Println("🚫 This account is not permitted on the selected login.")
			case autherrors.IsValidation(err):
				for field, msg := range autherrors.FieldMessages(err) {
					fmt.Printf("  • %s: %s\n", field, msg)
				}
			case autherrors.IsAuthentication(err):
				fmt.Println("🔒 Invalid email or password.")
				if n := a.repo.FailedAttempts(); n >= failedAttemptsWarnAt {
					fmt.Printf("⚠️  %d failed attempts in a row.\n", n)
					fmt.Println("   Forgot your password? Run 'bookline forgot <email>'.")
				}
			default:
				httperrors.Present(err, "signing in")
			}
			return err
		}

		if user := a.manager.Snapshot().User; user != nil {
			fmt.Printf("🎉 Welcome back, %s!\n", user.FullName)
		} else {
			fmt.Println("✅ Login successful!")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&loginRemember, "remember", false, "Keep me signed in across reboots")
	loginCmd.Flags().StringVar(&loginScope, "as", "", "Restrict login to a role: admin or client")
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (prompted when omitted)")
}
