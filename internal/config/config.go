package config

type Config interface {
	EnvConfig
	CorsConfig
	CognitoConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetAppVersion() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Cognito
	Security
}

func New() Config {
	return mainConfig{}
}
