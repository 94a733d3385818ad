package config

import "fmt"

const (
	userPoolIDVar = "COGNITO_USER_POOL_ID"
	clientIDVar   = "COGNITO_CLIENT_ID"
	awsRegionVar  = "AWS_REGION"
)

type CognitoConfig interface {
	GetUserPoolID() string
	GetClientID() string
	GetAWSRegion() string
	GetIssuer() string
	GetJWKSURL() string
	IsCognitoConfigured() bool
}

type Cognito struct{}

var _ CognitoConfig = Cognito{}

func (Cognito) GetUserPoolID() string {
	return GetEnv(userPoolIDVar, "")
}

func (Cognito) GetClientID() string {
	return GetEnv(clientIDVar, "")
}

func (Cognito) GetAWSRegion() string {
	return GetEnv(awsRegionVar, "eu-west-1")
}

// GetIssuer returns the token issuer URL for the configured user pool.
func (c Cognito) GetIssuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.GetAWSRegion(), c.GetUserPoolID())
}

// GetJWKSURL returns the published key-set URL used for JWT validation.
func (c Cognito) GetJWKSURL() string {
	return c.GetIssuer() + "/.well-known/jwks.json"
}

// IsCognitoConfigured reports whether a user pool is available. When false the
// service runs in mock mode and every protected request resolves to a fixed
// development identity.
func (c Cognito) IsCognitoConfigured() bool {
	return c.GetUserPoolID() != "" && c.GetClientID() != ""
}
