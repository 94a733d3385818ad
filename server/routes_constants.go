package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Auth Routes - Password Management
	RouteAuthNewPassword    = "/auth/new-password"
	RouteAuthForgotPassword = "/auth/forgot-password"
	RouteAuthResetPassword  = "/auth/reset-password"

	// User Routes
	RouteUsersMe = "/users/me"

	// Service Routes
	RouteHealth = "/health"
	RouteIndex  = "/"
)
