// Copyright (c) 2025 Bookline
// Licensed under the MIT License. See LICENSE file in the project root for details.

package identity

// Endpoints contains the identity service REST paths. They are configurable
// as a unit so test servers and staging deployments can rebase them.
type Endpoints struct {
	Login          string `json:"login"`           // generic login, any role
	LoginAdmin     string `json:"login_admin"`     // admin-only variant
	LoginClient    string `json:"login_client"`    // client-only variant
	Logout         string `json:"logout"`
	Refresh        string `json:"token_refresh"`
	Me             string `json:"account_me"`
	Register       string `json:"register"`
	VerifyEmail    string `json:"verify_email"`
	Profile        string `json:"profile"`
	Password       string `json:"password"`
	ForgotPassword string `json:"password_forgot"`
	ResetPassword  string `json:"password_reset"`
}

// DefaultEndpoints returns the production identity service paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:          "/api/auth/login",
		LoginAdmin:     "/api/auth/admin/login",
		LoginClient:    "/api/auth/client/login",
		Logout:         "/api/auth/logout",
		Refresh:        "/api/auth/refresh",
		Me:             "/api/auth/me",
		Register:       "/api/auth/register",
		VerifyEmail:    "/api/auth/verify-email",
		Profile:        "/api/auth/profile",
		Password:       "/api/auth/password",
		ForgotPassword: "/api/auth/forgot-password",
		ResetPassword:  "/api/auth/reset-password",
	}
}
