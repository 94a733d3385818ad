package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/restevean/go-cognito-backend/auth"
	"github.com/restevean/go-cognito-backend/cognito"
	"github.com/restevean/go-cognito-backend/internal/config"
	"github.com/restevean/go-cognito-backend/jwks"
	"github.com/restevean/go-cognito-backend/server"
	"github.com/restevean/go-cognito-backend/token"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	deps, err := buildDeps(context.Background(), c)
	if err != nil {
		return fmt.Errorf("buildDeps: %w", err)
	}

	srv, err := server.New(c, deps)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// buildDeps selects the validation strategy once at startup: the real
// Cognito-backed stack when a user pool is configured, the fixed mock
// identity otherwise.
func buildDeps(ctx context.Context, c config.Config) (server.Deps, error) {
	if !c.IsCognitoConfigured() {
		log.Warn().Msg("Cognito is not configured, running in mock mode")
		return server.Deps{Validator: token.NewMockValidator()}, nil
	}

	client, err := cognito.NewClient(ctx, c.GetAWSRegion())
	if err != nil {
		return server.Deps{}, fmt.Errorf("cognito.NewClient: %w", err)
	}

	authService, err := auth.NewAuthenticationService(client, c.GetClientID())
	if err != nil {
		return server.Deps{}, fmt.Errorf("auth.NewAuthenticationService: %w", err)
	}

	keyCache := jwks.NewCache(
		c.GetJWKSURL(),
		jwks.WithTTL(c.GetJWKSCacheTTL()),
		jwks.WithHTTPClient(&http.Client{Timeout: c.GetJWKSFetchTimeout()}),
	)

	return server.Deps{
		Auth:      authService,
		Validator: token.NewCognitoValidator(keyCache, c.GetIssuer(), c.GetClientID()),
	}, nil
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
