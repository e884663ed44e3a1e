package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/NordCoder/bazaar/internal/domain/customer"
)

var _ customer.Repo = (*CustomerRepo)(nil)

type CustomerRepo struct {
	db *DB
}

func NewCustomerRepo(db *DB) *CustomerRepo { return &CustomerRepo{db: db} }

const (
	qCustomerInsert = `
INSERT INTO customers (id, public_id, email, password_hash, first_name, last_name, refresh_counter)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at;`

	qCustomerCredentials = `
SELECT id, public_id, password_hash
FROM customers
WHERE email = $1;`

	qCustomerPrivateID = `
SELECT id
FROM customers
WHERE public_id = $1;`

	qCustomerCounter = `
SELECT refresh_counter
FROM customers
WHERE id = $1;`

	qCustomerCounterIncrement = `
UPDATE customers
SET refresh_counter = refresh_counter + 1,
    updated_at      = NOW()
WHERE id = $1
RETURNING refresh_counter;`

	qCustomerCounterCompareIncrement = `
UPDATE customers
SET refresh_counter = refresh_counter + 1,
    updated_at      = NOW()
WHERE id = $1 AND refresh_counter = $2
RETURNING refresh_counter;`
)

func (r *CustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).QueryRow(ctx, qCustomerInsert,
		c.ID, c.PublicID, c.Email, c.PasswordHash, c.FirstName, c.LastName, c.RefreshCounter,
	).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return customer.ErrEmailTaken
		}
		return fmt.Errorf("customer insert: %w", err)
	}
	return nil
}

func (r *CustomerRepo) FetchCredentials(ctx context.Context, email string) (*customer.Credentials, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var c customer.Credentials
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qCustomerCredentials, email).
		Scan(&c.ID, &c.PublicID, &c.PasswordHash); err != nil {
		if isNoRows(err) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("customer credentials: %w", err)
	}
	return &c, nil
}

func (r *CustomerRepo) MapPublicToPrivate(ctx context.Context, publicID uuid.UUID) (uuid.UUID, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var id uuid.UUID
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qCustomerPrivateID, publicID).Scan(&id); err != nil {
		if isNoRows(err) {
			return uuid.Nil, customer.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("customer private id: %w", err)
	}
	return id, nil
}

func (r *CustomerRepo) FetchRefreshCounter(ctx context.Context, id uuid.UUID) (int32, error) {
	return r.counter(ctx, "fetch", qCustomerCounter, id)
}

func (r *CustomerRepo) IncrementRefreshCounter(ctx context.Context, id uuid.UUID) (int32, error) {
	return r.counter(ctx, "increment", qCustomerCounterIncrement, id)
}

func (r *CustomerRepo) CompareAndIncrementRefreshCounter(ctx context.Context, id uuid.UUID, expected int32) (int32, error) {
	n, err := r.counter(ctx, "compare-increment", qCustomerCounterCompareIncrement, id, expected)
	if errors.Is(err, customer.ErrNotFound) {
		return 0, customer.ErrCounterMismatch
	}
	return n, err
}

func (r *CustomerRepo) counter(ctx context.Context, op, q string, args ...any) (int32, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int32
	if err := r.db.execQueryer(ctx).QueryRow(ctx, q, args...).Scan(&n); err != nil {
		if isNoRows(err) {
			return 0, customer.ErrNotFound
		}
		return 0, fmt.Errorf("refresh counter %s: %w", op, err)
	}
	return n, nil
}
