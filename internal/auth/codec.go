package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Codec signs and verifies PS256 tokens, one RSA key pair per token kind.
type Codec struct {
	keys *KeyMaterial
	now  func() time.Time
}

type CodecOption func(*Codec)

func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

func NewCodec(keys *KeyMaterial, opts ...CodecOption) *Codec {
	c := &Codec{keys: keys, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// VerifiedClaims can only be produced by Codec.Decode.
type VerifiedClaims struct {
	claims   Claims
	verified bool
}

func (v VerifiedClaims) Claims() Claims { return v.claims }

func (c *Codec) Encode(claims Claims, kind Kind) (string, error) {
	if claims.TokenType.Kind != kind {
		return "", fmt.Errorf("%w: claims carry %s, asked for %s", ErrSigning, claims.TokenType.Kind, kind)
	}
	pair, err := c.keys.pair(kind)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	if pair.Private == nil {
		return "", fmt.Errorf("%w: no private key for %s", ErrSigning, kind)
	}
	claims.PrivateID = nil

	signed, err := jwt.NewWithClaims(jwt.SigningMethodPS256, claims).SignedString(pair.Private)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

func (c *Codec) Decode(raw string, kind Kind) (VerifiedClaims, error) {
	pair, err := c.keys.pair(kind)
	if err != nil {
		return VerifiedClaims{}, invalidToken("%v", err)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodPS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)

	if pair.Public == nil {
		return VerifiedClaims{}, invalidToken("no public key for %s", kind)
	}

	var claims Claims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return pair.Public, nil
	}); err != nil {
		return VerifiedClaims{}, invalidToken("%v", err)
	}

	if claims.TokenType.Kind != kind {
		return VerifiedClaims{}, invalidToken("token kind %s, expected %s", claims.TokenType.Kind, kind)
	}
	switch claims.CustomerType {
	case CustomerKnown:
		if claims.Sub == nil {
			return VerifiedClaims{}, invalidToken("known customer without subject")
		}
	case CustomerAnonymous:
		if claims.Sub != nil {
			return VerifiedClaims{}, invalidToken("anonymous customer with subject")
		}
	default:
		return VerifiedClaims{}, invalidToken("customer type %q", claims.CustomerType)
	}
	claims.PrivateID = nil

	return VerifiedClaims{claims: claims, verified: true}, nil
}
