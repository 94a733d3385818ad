package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	appVersionVar = "APP_VERSION"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Cognito Backend")
}

func (EnvVars) GetAppVersion() string {
	return GetEnv(appVersionVar, "0.1.0")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
