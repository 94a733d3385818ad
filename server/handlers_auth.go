package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/restevean/go-cognito-backend/auth"
)

// AuthResponse is the body returned by every credential-flow endpoint. The
// message stays generic on failure so the API cannot be used to probe which
// accounts exist or which check failed.
type AuthResponse struct {
	Message             string `json:"message"`
	Email               string `json:"email,omitempty"`
	RequiresNewPassword bool   `json:"requires_new_password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type NewPasswordRequest struct {
	Email             string `json:"email"`
	TemporaryPassword string `json:"temporary_password"`
	NewPassword       string `json:"new_password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// LoginHandler authenticates against the user pool and issues the session
// cookie carrying the pool's ID token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !s.decodeAuthRequest(w, r, &req) {
			return
		}

		result, err := s.auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			log.Warn().Err(err).Msg("login failed")
			writeJSONError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		if result.RequiresNewPassword {
			writeJSON(w, http.StatusOK, AuthResponse{
				Message:             "a new password is required",
				Email:               req.Email,
				RequiresNewPassword: true,
			})
			return
		}

		s.setSessionCookie(w, result.Token, result.ExpiresIn)
		writeJSON(w, http.StatusOK, AuthResponse{Message: "login successful", Email: req.Email})
	}
}

// NewPasswordHandler completes the first-login password challenge.
func (s *Server) NewPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NewPasswordRequest
		if !s.decodeAuthRequest(w, r, &req) {
			return
		}

		result, err := s.auth.SetNewPassword(r.Context(), req.Email, req.TemporaryPassword, req.NewPassword)
		if err != nil {
			log.Warn().Err(err).Msg("new password failed")
			if errors.Is(err, auth.ErrPolicyViolation) {
				writeJSONError(w, http.StatusBadRequest, "password does not meet the requirements")
				return
			}
			writeJSONError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		s.setSessionCookie(w, result.Token, result.ExpiresIn)
		writeJSON(w, http.StatusOK, AuthResponse{Message: "password set successfully", Email: req.Email})
	}
}

// ForgotPasswordHandler starts the reset flow. It acknowledges regardless of
// whether the account exists.
func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ForgotPasswordRequest
		if !s.decodeAuthRequest(w, r, &req) {
			return
		}

		if err := s.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
			// Still acknowledge: the response must not reveal anything about
			// the account, and the caller can retry the code entry anyway.
			log.Error().Err(err).Msg("password reset request failed")
		}

		writeJSON(w, http.StatusOK, AuthResponse{
			Message: "if the account exists, a verification code has been sent",
			Email:   req.Email,
		})
	}
}

// ResetPasswordHandler completes the reset flow with the emailed code.
func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetPasswordRequest
		if !s.decodeAuthRequest(w, r, &req) {
			return
		}

		if err := s.auth.ConfirmPasswordReset(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
			log.Warn().Err(err).Msg("password reset failed")
			if errors.Is(err, auth.ErrPolicyViolation) {
				writeJSONError(w, http.StatusBadRequest, "password does not meet the requirements")
				return
			}
			writeJSONError(w, http.StatusBadRequest, "invalid or expired verification code")
			return
		}

		writeJSON(w, http.StatusOK, AuthResponse{Message: "password reset successfully", Email: req.Email})
	}
}

// LogoutHandler clears the session cookie.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.clearSessionCookie(w)
		writeJSON(w, http.StatusOK, AuthResponse{Message: "logged out"})
	}
}

// decodeAuthRequest parses the JSON body and rejects credential-flow calls
// when no user pool is configured. Returns false if the response was already
// written.
func (s *Server) decodeAuthRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if s.auth == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "identity provider is not configured")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, tokenValue string, expiresIn time.Duration) {
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    tokenValue,
		Path:     "/",
		MaxAge:   int(expiresIn.Seconds()),
		HttpOnly: true,
		Secure:   s.config.GetSecureCookies(),
		SameSite: s.config.GetCookieSameSite(),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.GetSecureCookies(),
		SameSite: s.config.GetCookieSameSite(),
	})
}
