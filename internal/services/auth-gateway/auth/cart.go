package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/bazaar/internal/auth"
	"github.com/NordCoder/bazaar/internal/domain/cart"
	"github.com/NordCoder/bazaar/internal/obs"
)

// CartCoordinator decides what happens to an anonymous cart when its owner
// identifies.
type CartCoordinator struct {
	carts cart.Repo
	log   *zap.Logger
}

func NewCartCoordinator(carts cart.Repo, log *zap.Logger) *CartCoordinator {
	return &CartCoordinator{carts: carts, log: log.Named("cart")}
}

// OnLogin merges the anonymous cart into the known one and returns the cart
// the new tokens must carry. Merging a cart that is already gone is a no-op,
// so a retried login is safe.
func (c *CartCoordinator) OnLogin(ctx context.Context, knownCartID uuid.UUID, anonymousCartID *uuid.UUID) (uuid.UUID, error) {
	if anonymousCartID == nil || *anonymousCartID == knownCartID {
		return knownCartID, nil
	}
	if err := c.carts.Merge(ctx, knownCartID, *anonymousCartID); err != nil {
		return uuid.Nil, fmt.Errorf("%w: merge carts: %v", auth.ErrDatabase, err)
	}
	obs.CartTransitions.WithLabelValues("merge").Inc()
	obs.WithTrace(ctx, c.log).Info("anonymous cart merged",
		zap.Stringer("cart_id", knownCartID), zap.Stringer("from_cart_id", anonymousCartID))
	return knownCartID, nil
}

// OnSignup promotes the anonymous cart to the new customer, or creates an
// empty known cart when there is none to promote.
func (c *CartCoordinator) OnSignup(ctx context.Context, customerID uuid.UUID, anonymousCartID *uuid.UUID, currency cart.Currency) (uuid.UUID, error) {
	if anonymousCartID != nil {
		err := c.carts.Promote(ctx, *anonymousCartID, customerID)
		if err == nil {
			obs.CartTransitions.WithLabelValues("promote").Inc()
			return *anonymousCartID, nil
		}
		if !errors.Is(err, cart.ErrNotFound) {
			return uuid.Nil, fmt.Errorf("%w: promote cart: %v", auth.ErrDatabase, err)
		}
		obs.WithTrace(ctx, c.log).Warn("anonymous cart to promote is gone", zap.Stringer("cart_id", anonymousCartID))
	}
	id, err := c.carts.CreateKnown(ctx, customerID, currency)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: create cart: %v", auth.ErrDatabase, err)
	}
	obs.CartTransitions.WithLabelValues("create").Inc()
	return id, nil
}
