package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/restevean/go-cognito-backend/auth"
	"github.com/restevean/go-cognito-backend/internal/config"
	"github.com/restevean/go-cognito-backend/token"
)

// Deps holds the wiring selected at startup. Auth is nil when no user pool
// is configured; the credential endpoints then answer 503 while protected
// endpoints run against the mock validator.
type Deps struct {
	Auth      *auth.AuthenticationService
	Validator token.Validator
}

type Server struct {
	env       string
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	auth      *auth.AuthenticationService
	validator token.Validator
}

func New(config config.Config, deps Deps) (*Server, error) {
	if deps.Validator == nil {
		return nil, fmt.Errorf("[Server New] validator is required")
	}

	s := &Server{
		mux:       http.NewServeMux(),
		config:    config,
		auth:      deps.Auth,
		validator: deps.Validator,
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
