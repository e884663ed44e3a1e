package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/bazaar/internal/auth"
	"github.com/NordCoder/bazaar/internal/domain/customer"
	"github.com/NordCoder/bazaar/internal/obs"
)

type IdentityLookup interface {
	MapPublicToPrivate(ctx context.Context, publicID uuid.UUID) (uuid.UUID, error)
}

// IdentityResolver turns raw tokens into sanitized ones and is the only
// place where public ids are translated to private ids.
type IdentityResolver struct {
	codec  *auth.Codec
	lookup IdentityLookup
	log    *zap.Logger
}

func NewIdentityResolver(codec *auth.Codec, lookup IdentityLookup, log *zap.Logger) *IdentityResolver {
	return &IdentityResolver{codec: codec, lookup: lookup, log: log.Named("identity")}
}

// MapPublicToPrivate returns nil for a nil public id and for an id that maps
// to no customer.
func (r *IdentityResolver) MapPublicToPrivate(ctx context.Context, publicID *uuid.UUID) (*uuid.UUID, error) {
	if publicID == nil {
		return nil, nil
	}
	id, err := r.lookup.MapPublicToPrivate(ctx, *publicID)
	if errors.Is(err, customer.ErrNotFound) {
		obs.WithTrace(ctx, r.log).Warn("public id maps to no customer", zap.Stringer("public_id", publicID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: map public id: %v", auth.ErrDatabase, err)
	}
	return &id, nil
}

// PublicIDOf returns the token's public id, or uuid.Nil for anonymous tokens.
func (r *IdentityResolver) PublicIDOf(t auth.Token) uuid.UUID {
	id, ok := auth.PublicIDOf(t)
	if !ok && t.IsKnown() {
		r.log.Error("known token without public id", zap.Stringer("cart_id", t.CartID()))
	}
	return id
}

// Resolve verifies raw as a token of the given kind and maps its subject.
func (r *IdentityResolver) Resolve(ctx context.Context, raw string, kind auth.Kind) (auth.Token, error) {
	verified, err := r.codec.Decode(raw, kind)
	if err != nil {
		obs.TokensRejected.WithLabelValues(kind.String(), "decode").Inc()
		obs.WithTrace(ctx, r.log).Debug("token rejected", zap.Stringer("kind", kind), zap.Error(err))
		return auth.Token{}, err
	}
	claims := verified.Claims()

	privateID, err := r.MapPublicToPrivate(ctx, claims.Sub)
	if err != nil {
		return auth.Token{}, err
	}
	tok, err := auth.Sanitize(verified, privateID)
	if err != nil {
		obs.TokensRejected.WithLabelValues(kind.String(), "subject").Inc()
		return auth.Token{}, err
	}
	return tok, nil
}
