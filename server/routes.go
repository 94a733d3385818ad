package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteIndex, s.IndexHandler())
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// LOGIN / LOGOUT
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// PASSWORD MANAGEMENT
	s.RegisterRouteHandler("POST "+RouteAuthNewPassword, ChainMiddleware(s.NewPasswordHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthResetPassword, ChainMiddleware(s.ResetPasswordHandler(), s.APIMiddleware()...))

	// PROTECTED
	s.RegisterRouteHandler("GET "+RouteUsersMe, ChainMiddleware(s.CurrentUserHandler(), s.APIMiddleware(s.RequireAuth())...))
}
