package cart

import (
	"context"

	"github.com/google/uuid"
)

type Repo interface {
	FindIDByCustomer(ctx context.Context, customerID uuid.UUID) (uuid.UUID, error)

	CreateAnonymous(ctx context.Context, currency Currency) (uuid.UUID, error)
	CreateKnown(ctx context.Context, customerID uuid.UUID, currency Currency) (uuid.UUID, error)

	// Merge moves the anonymous cart's items into the known cart and deletes
	// the anonymous cart. A missing anonymous cart is a no-op.
	Merge(ctx context.Context, knownID, anonymousID uuid.UUID) error
	// Promote turns an anonymous cart into the customer's known cart. It
	// returns ErrNotFound when no anonymous cart with that id exists.
	Promote(ctx context.Context, cartID, customerID uuid.UUID) error
}
