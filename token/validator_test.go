package token_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restevean/go-cognito-backend/token"
)

const (
	testIssuer   = "https://cognito-idp.eu-west-1.amazonaws.com/eu-west-1_TestPool"
	testClientID = "test-client-id"
	testKid      = "test-key-1"
	testSubject  = "user-1234"
	testEmail    = "john.doe@example.com"
)

// fakeResolver resolves kids from a local map, counting lookups.
type fakeResolver struct {
	keys    map[string]*rsa.PublicKey
	err     error
	lookups int
}

func (f *fakeResolver) Key(_ context.Context, kid string) (*rsa.PublicKey, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	key, ok := f.keys[kid]
	if !ok {
		return nil, errors.New("signing key not found")
	}
	return key, nil
}

type fixture struct {
	key      *rsa.PrivateKey
	resolver *fakeResolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &fixture{
		key: key,
		resolver: &fakeResolver{
			keys: map[string]*rsa.PublicKey{testKid: key.Public().(*rsa.PublicKey)},
		},
	}
}

func (f *fixture) validator(options ...token.ValidatorOption) *token.CognitoValidator {
	return token.NewCognitoValidator(f.resolver, testIssuer, testClientID, options...)
}

// sign produces an RS256 token with sensible defaults, letting each test
// override individual claims.
func (f *fixture) sign(t *testing.T, overrides map[string]any) string {
	t.Helper()
	claims := jwtlib.MapClaims{
		"sub":       testSubject,
		"email":     testEmail,
		"iss":       testIssuer,
		"aud":       testClientID,
		"token_use": "id",
		"exp":       time.Now().Add(time.Hour).Unix(),
		"iat":       time.Now().Unix(),
	}
	for k, v := range overrides {
		if v == nil {
			delete(claims, k)
			continue
		}
		claims[k] = v
	}
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	tok.Header["kid"] = testKid
	signed, err := tok.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func TestValidateGoodToken(t *testing.T) {
	f := newFixture(t)

	claims, err := f.validator().Validate(context.Background(), f.sign(t, nil))
	require.NoError(t, err)

	assert.Equal(t, testSubject, claims.Subject)
	assert.Equal(t, testEmail, claims.Email)
	assert.Equal(t, "id", claims.TokenUse)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.Equal(t, testClientID, claims.Audience)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestValidateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	v := f.validator()
	signed := f.sign(t, nil)

	first, err := v.Validate(context.Background(), signed)
	require.NoError(t, err)
	second, err := v.Validate(context.Background(), signed)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestValidateExpiredToken(t *testing.T) {
	f := newFixture(t)

	signed := f.sign(t, map[string]any{"exp": time.Now().Add(-time.Minute).Unix()})

	_, err := f.validator().Validate(context.Background(), signed)
	assert.ErrorIs(t, err, token.ErrExpired)
}

func TestValidateWrongIssuer(t *testing.T) {
	f := newFixture(t)

	// Correctly signed, wrong issuer: the issuer gate must still fail it.
	signed := f.sign(t, map[string]any{"iss": "https://cognito-idp.eu-west-1.amazonaws.com/eu-west-1_OtherPool"})

	_, err := f.validator().Validate(context.Background(), signed)
	assert.ErrorIs(t, err, token.ErrBadIssuer)
}

func TestValidateWrongAudience(t *testing.T) {
	f := newFixture(t)

	signed := f.sign(t, map[string]any{"aud": "another-client"})

	_, err := f.validator().Validate(context.Background(), signed)
	assert.ErrorIs(t, err, token.ErrBadAudience)
}

func TestValidateAccessTokenClientIDClaim(t *testing.T) {
	f := newFixture(t)

	// Cognito access tokens carry client_id instead of aud.
	signed := f.sign(t, map[string]any{
		"aud":       nil,
		"client_id": testClientID,
		"token_use": "access",
	})

	v := f.validator(token.WithAcceptedTokenUse("id", "access"))
	claims, err := v.Validate(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "access", claims.TokenUse)
}

func TestValidateRejectedTokenUse(t *testing.T) {
	f := newFixture(t)

	signed := f.sign(t, map[string]any{"token_use": "access", "client_id": testClientID})

	_, err := f.validator().Validate(context.Background(), signed)
	assert.ErrorIs(t, err, token.ErrBadTokenUse)
}

func TestValidateMissingTokenUse(t *testing.T) {
	f := newFixture(t)

	signed := f.sign(t, map[string]any{"token_use": nil})

	_, err := f.validator().Validate(context.Background(), signed)
	assert.ErrorIs(t, err, token.ErrBadTokenUse)
}

func TestValidateTamperedSignature(t *testing.T) {
	f := newFixture(t)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, jwtlib.MapClaims{
		"sub": testSubject,
		"iss": testIssuer,
		"aud": testClientID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tok.Header["kid"] = testKid
	signed, err := tok.SignedString(otherKey)
	require.NoError(t, err)

	_, verr := f.validator().Validate(context.Background(), signed)
	assert.ErrorIs(t, verr, token.ErrBadSignature)
}

func TestValidateGarbage(t *testing.T) {
	f := newFixture(t)

	for _, bad := range []string{"", "garbage", "a.b", "a.b.c"} {
		_, err := f.validator().Validate(context.Background(), bad)
		assert.ErrorIs(t, err, token.ErrMalformed, "token %q", bad)
	}
}

func TestValidateMissingKidHeader(t *testing.T) {
	f := newFixture(t)

	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, jwtlib.MapClaims{
		"sub": testSubject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString(f.key)
	require.NoError(t, err)

	_, verr := f.validator().Validate(context.Background(), signed)
	assert.ErrorIs(t, verr, token.ErrMalformed)
}

func TestValidatePropagatesKeyResolutionErrors(t *testing.T) {
	f := newFixture(t)
	resolverErr := errors.New("jwks unavailable")
	f.resolver.err = resolverErr

	_, err := f.validator().Validate(context.Background(), f.sign(t, nil))
	assert.ErrorIs(t, err, resolverErr)
}

func TestValidateExpiryCheckedBeforeIssuer(t *testing.T) {
	f := newFixture(t)

	signed := f.sign(t, map[string]any{
		"exp": time.Now().Add(-time.Minute).Unix(),
		"iss": "https://wrong-issuer",
	})

	_, err := f.validator().Validate(context.Background(), signed)
	assert.ErrorIs(t, err, token.ErrExpired)
}

func TestMockValidatorFixedIdentity(t *testing.T) {
	v := token.NewMockValidator()

	for _, raw := range []string{"", "anything", "expired.or.garbage"} {
		claims, err := v.Validate(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, token.MockSubject, claims.Subject)
		assert.Equal(t, token.MockEmail, claims.Email)
	}
}
