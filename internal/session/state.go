// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"bookline/cli/internal/profile"
)

// Operation names a public session operation with its own loading flag and
// error slot. Keeping them per-operation means a failed password change never
// clobbers an unrelated login error.
type Operation string

const (
	OpLogin           Operation = "login"
	OpLogout          Operation = "logout"
	OpRegister        Operation = "register"
	OpForgotPassword  Operation = "forgotPassword"
	OpResetPassword   Operation = "resetPassword"
	OpVerifyEmail     Operation = "verifyEmail"
	OpUpdateProfile   Operation = "updateProfile"
	OpChangePassword  Operation = "changePassword"
	OpRefreshUserData Operation = "refreshUserData"
)

// operations lists every operation in document order; FirstError scans it so
// "the first error, whatever it is" is deterministic.
var operations = []Operation{
	OpLogin, OpLogout, OpRegister, OpForgotPassword, OpResetPassword,
	OpVerifyEmail, OpUpdateProfile, OpChangePassword, OpRefreshUserData,
}

// State is a point-in-time snapshot of the session.
//
// Initialized becomes true exactly once per manager lifetime and never
// reverts; Authenticated and User toggle freely afterward.
type State struct {
	Initialized   bool
	Authenticated bool
	User          *profile.UserProfile
	Loading       map[Operation]bool
	Errors        map[Operation]error
}

// IsLoading reports whether any operation is in flight.
func (s State) IsLoading() bool {
	for _, v := range s.Loading {
		if v {
			return true
		}
	}
	return false
}

// FirstError returns the first recorded operation error in document order,
// or nil. Simple consumers that want "the error" use this; anything smarter
// reads Errors directly.
func (s State) FirstError() error {
	for _, op := range operations {
		if err := s.Errors[op]; err != nil {
			return err
		}
	}
	return nil
}
