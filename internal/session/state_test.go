// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bookline/cli/internal/autherrors"
)

func TestIsLoading(t *testing.T) {
	s := State{Loading: map[Operation]bool{OpLogin: false, OpRegister: false}}
	assert.False(t, s.IsLoading())

	s.Loading[OpRegister] = true
	assert.True(t, s.IsLoading())
}

func TestFirstErrorIsDeterministic(t *testing.T) {
	loginErr := autherrors.New(autherrors.KindAuthentication, "invalid credentials")
	pwErr := autherrors.New(autherrors.KindValidation, "too short")

	s := State{Errors: map[Operation]error{
		OpChangePassword: pwErr,
		OpLogin:          loginErr,
	}}

	// Login precedes password change in operation order, regardless of map
	// iteration order.
	assert.Equal(t, error(loginErr), s.FirstError())

	delete(s.Errors, OpLogin)
	assert.Equal(t, error(pwErr), s.FirstError())

	delete(s.Errors, OpChangePassword)
	assert.Nil(t, s.FirstError())
}
