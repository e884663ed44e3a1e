package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NordCoder/bazaar/internal/domain/cart"
)

var _ cart.Repo = (*CartRepo)(nil)

type CartRepo struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*cart.Cart
}

func NewCartRepo() *CartRepo {
	return &CartRepo{carts: map[uuid.UUID]*cart.Cart{}}
}

// GetByID returns a copy of the cart. It is not part of cart.Repo; tests use
// it to inspect merge and promotion results.
func (r *CartRepo) GetByID(_ context.Context, id uuid.UUID) (*cart.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[id]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return clone(c), nil
}

func (r *CartRepo) FindIDByCustomer(_ context.Context, customerID uuid.UUID) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.carts {
		if c.Type == cart.TypeKnown && c.CustomerID != nil && *c.CustomerID == customerID {
			return id, nil
		}
	}
	return uuid.Nil, cart.ErrNotFound
}

func (r *CartRepo) CreateAnonymous(_ context.Context, currency cart.Currency) (uuid.UUID, error) {
	return r.insert(nil, cart.TypeAnonymous, currency), nil
}

func (r *CartRepo) CreateKnown(_ context.Context, customerID uuid.UUID, currency cart.Currency) (uuid.UUID, error) {
	return r.insert(&customerID, cart.TypeKnown, currency), nil
}

func (r *CartRepo) insert(customerID *uuid.UUID, typ cart.Type, currency cart.Currency) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	id := uuid.New()
	r.carts[id] = &cart.Cart{
		ID:         id,
		CustomerID: customerID,
		Type:       typ,
		Currency:   currency,
		Items:      []cart.Item{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return id
}

// SetItems replaces a cart's items. Cart contents are owned by the cart
// service; this seeds fixtures.
func (r *CartRepo) SetItems(_ context.Context, id uuid.UUID, items []cart.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[id]
	if !ok {
		return cart.ErrNotFound
	}
	c.Items = append([]cart.Item(nil), items...)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *CartRepo) Merge(_ context.Context, knownID, anonymousID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	known, ok := r.carts[knownID]
	if !ok || known.Type != cart.TypeKnown {
		return cart.ErrNotFound
	}
	anon, ok := r.carts[anonymousID]
	if !ok || anon.Type != cart.TypeAnonymous {
		return nil
	}
	known.Items = cart.MergeItems(known.Items, anon.Items)
	known.UpdatedAt = time.Now().UTC()
	delete(r.carts, anonymousID)
	return nil
}

func (r *CartRepo) Promote(_ context.Context, cartID, customerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[cartID]
	if !ok || c.Type != cart.TypeAnonymous {
		return cart.ErrNotFound
	}
	for _, other := range r.carts {
		if other.Type == cart.TypeKnown && other.CustomerID != nil && *other.CustomerID == customerID {
			return fmt.Errorf("customer %s already owns cart %s", customerID, other.ID)
		}
	}
	c.Type = cart.TypeKnown
	c.CustomerID = &customerID
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func clone(c *cart.Cart) *cart.Cart {
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	if c.CustomerID != nil {
		id := *c.CustomerID
		cp.CustomerID = &id
	}
	return &cp
}
