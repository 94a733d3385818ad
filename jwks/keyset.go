package jwks

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"
)

// JWK is a single JSON Web Key as published by the provider, RFC 7517.
// Only the RSA members are used; Cognito signs with RS256.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
}

// JWKS is the document served at /.well-known/jwks.json.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// PublicKey converts the JWK's modulus and exponent into an RSA public key.
func (k JWK) PublicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %q", k.Kty)
	}
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	if len(nBytes) == 0 || len(eBytes) == 0 {
		return nil, fmt.Errorf("empty modulus or exponent")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

// keySet is one immutable fetched generation of the provider's keys.
// A refresh builds a new keySet and replaces the pointer wholesale, so
// readers never observe a partially written set.
type keySet struct {
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func (ks *keySet) lookup(kid string) (*rsa.PublicKey, bool) {
	if ks == nil {
		return nil, false
	}
	key, ok := ks.keys[kid]
	return key, ok
}
