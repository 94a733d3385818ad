package token

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims holds the identity extracted from a successfully validated token.
// Only a Validator constructs these.
type Claims struct {
	Subject   string
	Email     string
	TokenUse  string
	ExpiresAt time.Time
	Issuer    string
	Audience  string
}

// Validator checks a raw token string and returns the identity it carries.
// The concrete implementation is chosen once at startup: CognitoValidator
// when a user pool is configured, MockValidator otherwise.
type Validator interface {
	Validate(ctx context.Context, tokenString string) (*Claims, error)
}

// KeyResolver resolves a key id to the provider's public signing key.
// Implemented by *jwks.Cache.
type KeyResolver interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// CognitoValidator validates RS256 tokens issued by a Cognito user pool.
// Each check is a hard gate, evaluated in order: header parse, key lookup,
// signature, expiry, issuer, audience, token use. Nothing is cached here;
// the key lookup behind KeyResolver is the only amortized cost.
type CognitoValidator struct {
	keys             KeyResolver
	issuer           string
	clientID         string
	acceptedTokenUse map[string]struct{}
	parser           *jwtlib.Parser
}

// ValidatorOption customizes a CognitoValidator.
type ValidatorOption func(*CognitoValidator)

// WithAcceptedTokenUse overrides which token_use values are accepted.
// The default accepts only "id", the token issued into the session cookie.
func WithAcceptedTokenUse(uses ...string) ValidatorOption {
	return func(v *CognitoValidator) {
		v.acceptedTokenUse = make(map[string]struct{}, len(uses))
		for _, use := range uses {
			v.acceptedTokenUse[use] = struct{}{}
		}
	}
}

// NewCognitoValidator builds a validator for the given issuer and client id.
func NewCognitoValidator(keys KeyResolver, issuer, clientID string, options ...ValidatorOption) *CognitoValidator {
	v := &CognitoValidator{
		keys:             keys,
		issuer:           issuer,
		clientID:         clientID,
		acceptedTokenUse: map[string]struct{}{"id": {}},
		parser: jwtlib.NewParser(
			jwtlib.WithValidMethods([]string{"RS256"}),
			// Claim checks run manually below so each failure maps to a
			// distinct error and expiry is checked before issuer/audience.
			jwtlib.WithoutClaimsValidation(),
		),
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// Validate implements Validator.
func (v *CognitoValidator) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrMalformed)
	}

	claims := jwtlib.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(tokenString, claims, v.keyFunc(ctx))
	if err != nil {
		return nil, classifyParseError(err)
	}
	if !parsed.Valid {
		return nil, ErrBadSignature
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing expiry claim", ErrMalformed)
	}
	if exp.Before(NowTimeFunc()) {
		return nil, ErrExpired
	}

	issuer, err := claims.GetIssuer()
	if err != nil || issuer != v.issuer {
		return nil, fmt.Errorf("%w: got %q", ErrBadIssuer, issuer)
	}

	if !v.audienceMatches(claims) {
		return nil, ErrBadAudience
	}

	tokenUse, _ := claims["token_use"].(string)
	if _, ok := v.acceptedTokenUse[tokenUse]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadTokenUse, tokenUse)
	}

	subject, _ := claims.GetSubject()
	email, _ := claims["email"].(string)

	return &Claims{
		Subject:   subject,
		Email:     email,
		TokenUse:  tokenUse,
		ExpiresAt: exp.Time,
		Issuer:    issuer,
		Audience:  v.clientID,
	}, nil
}

func (v *CognitoValidator) keyFunc(ctx context.Context) jwtlib.Keyfunc {
	return func(t *jwtlib.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrMalformed)
		}
		return v.keys.Key(ctx, kid)
	}
}

// audienceMatches accepts either the aud claim (ID tokens) or the client_id
// claim (Cognito access tokens) matching the configured client id.
func (v *CognitoValidator) audienceMatches(claims jwtlib.MapClaims) bool {
	if auds, err := claims.GetAudience(); err == nil {
		for _, aud := range auds {
			if aud == v.clientID {
				return true
			}
		}
	}
	if clientID, ok := claims["client_id"].(string); ok && clientID == v.clientID {
		return true
	}
	return false
}

// classifyParseError maps golang-jwt parse failures onto this package's
// sentinel errors, letting key-resolution failures pass through untouched.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, ErrMalformed):
		return err
	case errors.Is(err, jwtlib.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwtlib.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case errors.Is(err, jwtlib.ErrTokenUnverifiable):
		// Keyfunc failures (key not found, jwks fetch errors) arrive wrapped
		// in ErrTokenUnverifiable; keep the chain intact so callers can still
		// match the underlying jwks error.
		return err
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
