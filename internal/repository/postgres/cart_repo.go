package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/NordCoder/bazaar/internal/domain/cart"
)

var _ cart.Repo = (*CartRepo)(nil)

type CartRepo struct {
	db *DB
	tx Transactor
}

func NewCartRepo(db *DB, tx Transactor) *CartRepo { return &CartRepo{db: db, tx: tx} }

const (
	qCartByID = `
SELECT id, customer_id, cart_type, currency, items, created_at, updated_at
FROM shopping_carts
WHERE id = $1;`

	qCartIDByCustomer = `
SELECT id
FROM shopping_carts
WHERE customer_id = $1 AND cart_type = 'KNOWN';`

	qCartInsert = `
INSERT INTO shopping_carts (id, customer_id, cart_type, currency, items)
VALUES ($1, $2, $3, $4, '[]'::jsonb);`

	qCartLockItems = `
SELECT items
FROM shopping_carts
WHERE id = $1 AND cart_type = $2
FOR UPDATE;`

	qCartSetItems = `
UPDATE shopping_carts
SET items      = $2::jsonb,
    updated_at = NOW()
WHERE id = $1;`

	qCartDelete = `
DELETE FROM shopping_carts
WHERE id = $1;`

	qCartPromote = `
UPDATE shopping_carts
SET cart_type   = 'KNOWN',
    customer_id = $2,
    updated_at  = NOW()
WHERE id = $1 AND cart_type = 'ANONYMOUS';`
)

// GetByID is an inspection helper outside cart.Repo, used by integration
// tests.
func (r *CartRepo) GetByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		c     cart.Cart
		items []byte
	)
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qCartByID, id).
		Scan(&c.ID, &c.CustomerID, &c.Type, &c.Currency, &items, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("cart by id: %w", err)
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, fmt.Errorf("cart items: %w", err)
	}
	return &c, nil
}

func (r *CartRepo) FindIDByCustomer(ctx context.Context, customerID uuid.UUID) (uuid.UUID, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var id uuid.UUID
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qCartIDByCustomer, customerID).Scan(&id); err != nil {
		if isNoRows(err) {
			return uuid.Nil, cart.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("cart by customer: %w", err)
	}
	return id, nil
}

func (r *CartRepo) CreateAnonymous(ctx context.Context, currency cart.Currency) (uuid.UUID, error) {
	return r.insert(ctx, nil, cart.TypeAnonymous, currency)
}

func (r *CartRepo) CreateKnown(ctx context.Context, customerID uuid.UUID, currency cart.Currency) (uuid.UUID, error) {
	return r.insert(ctx, &customerID, cart.TypeKnown, currency)
}

func (r *CartRepo) insert(ctx context.Context, customerID *uuid.UUID, typ cart.Type, currency cart.Currency) (uuid.UUID, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	id := uuid.New()
	if _, err := r.db.execQueryer(ctx).Exec(ctx, qCartInsert, id, customerID, typ, currency); err != nil {
		return uuid.Nil, fmt.Errorf("cart insert: %w", err)
	}
	return id, nil
}

// Merge locks both rows, writes the merged items to the known cart and drops
// the anonymous one in a single transaction.
func (r *CartRepo) Merge(ctx context.Context, knownID, anonymousID uuid.UUID) error {
	return r.tx.WithTx(ctx, func(ctx context.Context) error {
		known, err := r.lockItems(ctx, knownID, cart.TypeKnown)
		if err != nil {
			return err
		}
		anonymous, err := r.lockItems(ctx, anonymousID, cart.TypeAnonymous)
		if errors.Is(err, cart.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		merged, err := json.Marshal(cart.MergeItems(known, anonymous))
		if err != nil {
			return fmt.Errorf("encode merged items: %w", err)
		}

		ctx, cancel := r.db.withTimeout(ctx)
		defer cancel()
		q := r.db.execQueryer(ctx)
		if _, err := q.Exec(ctx, qCartSetItems, knownID, string(merged)); err != nil {
			return fmt.Errorf("cart set items: %w", err)
		}
		if _, err := q.Exec(ctx, qCartDelete, anonymousID); err != nil {
			return fmt.Errorf("cart delete: %w", err)
		}
		return nil
	})
}

func (r *CartRepo) lockItems(ctx context.Context, id uuid.UUID, typ cart.Type) ([]cart.Item, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var raw []byte
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qCartLockItems, id, typ).Scan(&raw); err != nil {
		if isNoRows(err) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("cart lock: %w", err)
	}
	var items []cart.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("cart items: %w", err)
	}
	return items, nil
}

// SetItems replaces a cart's items. Cart contents are owned by the cart
// service; this seeds fixtures.
func (r *CartRepo) SetItems(ctx context.Context, id uuid.UUID, items []cart.Item) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if items == nil {
		items = []cart.Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	tag, err := r.db.execQueryer(ctx).Exec(ctx, qCartSetItems, id, string(raw))
	if err != nil {
		return fmt.Errorf("cart set items: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

func (r *CartRepo) Promote(ctx context.Context, cartID, customerID uuid.UUID) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qCartPromote, cartID, customerID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("customer already owns a cart: %w", err)
		}
		return fmt.Errorf("cart promote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}
