package auth

import (
	"time"

	"github.com/google/uuid"
)

// Token is a verified token whose subject has been resolved to the
// customer's private id. The public id is deliberately not exposed as a
// field; use PublicIDOf.
type Token struct {
	privateID    *uuid.UUID
	sub          *uuid.UUID
	customerType CustomerType
	cartID       uuid.UUID
	issuedAt     int64
	expiresAt    int64
	tokenType    TokenType
}

// Sanitize converts verified claims into a Token. privateID must be the
// server-side mapping of the claims' subject, nil for anonymous sessions.
func Sanitize(v VerifiedClaims, privateID *uuid.UUID) (Token, error) {
	if !v.verified {
		return Token{}, invalidToken("claims were not verified")
	}
	c := v.claims
	if c.CustomerType == CustomerKnown && privateID == nil {
		return Token{}, invalidToken("known customer without private id")
	}
	if c.CustomerType == CustomerAnonymous {
		privateID = nil
	}
	return Token{
		privateID:    cloneID(privateID),
		sub:          cloneID(c.Sub),
		customerType: c.CustomerType,
		cartID:       c.CartID,
		issuedAt:     c.IssuedAt,
		expiresAt:    c.ExpiresAt,
		tokenType:    c.TokenType,
	}, nil
}

// PublicIDOf is the only way to read the public id back out of a Token.
func PublicIDOf(t Token) (uuid.UUID, bool) {
	if t.sub == nil {
		return uuid.Nil, false
	}
	return *t.sub, true
}

func (t Token) PrivateID() *uuid.UUID      { return cloneID(t.privateID) }
func (t Token) CustomerType() CustomerType { return t.customerType }
func (t Token) IsKnown() bool              { return t.customerType == CustomerKnown }
func (t Token) CartID() uuid.UUID          { return t.cartID }
func (t Token) TokenType() TokenType       { return t.tokenType }
func (t Token) IssuedAt() time.Time        { return time.Unix(t.issuedAt, 0) }
func (t Token) ExpiresAt() time.Time       { return time.Unix(t.expiresAt, 0) }

func (t Token) TimeToExpiry(now time.Time) time.Duration { return t.ExpiresAt().Sub(now) }

// RefreshCounter is only meaningful on refresh tokens of known customers.
func (t Token) RefreshCounter() int32 { return t.tokenType.Counter }

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
