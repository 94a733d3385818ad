package server

import "net/http"

// CurrentUserProfile is the response of the profile endpoint, mirroring the
// claims shape of the validated token.
type CurrentUserProfile struct {
	Sub      string `json:"sub"`
	Email    string `json:"email"`
	TokenUse string `json:"token_use"`
}

// CurrentUserHandler returns the authenticated identity. Chained after
// RequireAuth, so the claims are always present.
func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		writeJSON(w, http.StatusOK, CurrentUserProfile{
			Sub:      claims.Subject,
			Email:    claims.Email,
			TokenUse: claims.TokenUse,
		})
	}
}
