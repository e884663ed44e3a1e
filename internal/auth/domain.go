package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 28 * 24 * time.Hour

	// RenewalThreshold is the remaining refresh lifetime below which a refresh
	// also rotates the refresh token.
	RenewalThreshold = 7 * 24 * time.Hour

	// AnonymousCounter is embedded into anonymous refresh tokens. Anonymous
	// sessions have no stored counter, so the value is never compared.
	AnonymousCounter int32 = 0
)

type CustomerType string

const (
	CustomerKnown     CustomerType = "KNOWN"
	CustomerAnonymous CustomerType = "ANONYMOUS"
)

func (t CustomerType) Valid() bool {
	return t == CustomerKnown || t == CustomerAnonymous
}

type Kind uint8

const (
	KindAccess Kind = iota + 1
	KindRefresh
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "ACCESS"
	case KindRefresh:
		return "REFRESH"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// TokenType is the kind a token was minted for. Refresh tokens carry the
// customer's refresh counter at issuance.
type TokenType struct {
	Kind    Kind
	Counter int32
}

func AccessToken() TokenType { return TokenType{Kind: KindAccess} }

func RefreshToken(counter int32) TokenType {
	return TokenType{Kind: KindRefresh, Counter: counter}
}

// MarshalJSON encodes access as "ACCESS" and refresh as {"REFRESH": n}.
func (t TokenType) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case KindAccess:
		return json.Marshal(KindAccess.String())
	case KindRefresh:
		return json.Marshal(map[string]int32{KindRefresh.String(): t.Counter})
	default:
		return nil, fmt.Errorf("marshal token type: unknown kind %d", t.Kind)
	}
}

func (t *TokenType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != KindAccess.String() {
			return fmt.Errorf("unmarshal token type: unexpected %q", s)
		}
		*t = AccessToken()
		return nil
	}
	var m map[string]int32
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("unmarshal token type: %w", err)
	}
	n, ok := m[KindRefresh.String()]
	if !ok || len(m) != 1 {
		return fmt.Errorf("unmarshal token type: unexpected object %s", b)
	}
	*t = RefreshToken(n)
	return nil
}

// Claims is the signed payload of both token kinds. Sub is the customer's
// public id and is nil for anonymous sessions. PrivateID never leaves the
// process and is always nil on a decoded token.
type Claims struct {
	Sub          *uuid.UUID   `json:"sub"`
	CustomerType CustomerType `json:"customerType"`
	CartID       uuid.UUID    `json:"cartId"`
	IssuedAt     int64        `json:"iat"`
	ExpiresAt    int64        `json:"exp"`
	TokenType    TokenType    `json:"tokenType"`
	PrivateID    *uuid.UUID   `json:"-"`
}

var _ jwt.Claims = Claims{}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c Claims) GetIssuer() (string, error)              { return "", nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

func (c Claims) GetSubject() (string, error) {
	if c.Sub == nil {
		return "", nil
	}
	return c.Sub.String(), nil
}

// Tokens is the outcome of an issuance or rotation.
type Tokens struct {
	IssuedAt         time.Time
	Access           string
	AccessExpiresIn  time.Duration
	Refresh          string
	RefreshExpiresIn time.Duration
	// RefreshRotated is false when Refresh is the caller's unchanged token.
	RefreshRotated bool
}
