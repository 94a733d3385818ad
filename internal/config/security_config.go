package config

import (
	"net/http"
	"time"
)

type SecurityConfig interface {
	GetSessionCookieName() string
	GetCookieSameSite() http.SameSite
	GetSecureCookies() bool
	GetJWKSCacheTTL() time.Duration
	GetJWKSFetchTimeout() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetSessionCookieName() string {
	return "access_token"
}

func (Security) GetCookieSameSite() http.SameSite {
	return http.SameSiteLaxMode
}

// GetSecureCookies returns true outside DEV so the session cookie is only
// sent over HTTPS in deployed environments.
func (s Security) GetSecureCookies() bool {
	return EnvVars{}.GetEnv() != "DEV"
}

func (Security) GetJWKSCacheTTL() time.Duration {
	return 1 * time.Hour
}

func (Security) GetJWKSFetchTimeout() time.Duration {
	return 10 * time.Second
}
