// Package memory holds in-process implementations of the domain ports. They
// back the "memory" database driver and the service tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NordCoder/bazaar/internal/domain/customer"
)

var _ customer.Repo = (*CustomerRepo)(nil)

type CustomerRepo struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*customer.Customer
	byPublic map[uuid.UUID]uuid.UUID
	byEmail  map[string]uuid.UUID
}

func NewCustomerRepo() *CustomerRepo {
	return &CustomerRepo{
		byID:     map[uuid.UUID]*customer.Customer{},
		byPublic: map[uuid.UUID]uuid.UUID{},
		byEmail:  map[string]uuid.UUID{},
	}
}

func (r *CustomerRepo) Create(_ context.Context, c *customer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(c.Email)
	if _, ok := r.byEmail[email]; ok {
		return customer.ErrEmailTaken
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	r.byID[c.ID] = &cp
	r.byPublic[c.PublicID] = c.ID
	r.byEmail[email] = c.ID
	return nil
}

func (r *CustomerRepo) FetchCredentials(_ context.Context, email string) (*customer.Credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, customer.ErrNotFound
	}
	c := r.byID[id]
	return &customer.Credentials{ID: c.ID, PublicID: c.PublicID, PasswordHash: c.PasswordHash}, nil
}

func (r *CustomerRepo) MapPublicToPrivate(_ context.Context, publicID uuid.UUID) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byPublic[publicID]
	if !ok {
		return uuid.Nil, customer.ErrNotFound
	}
	return id, nil
}

func (r *CustomerRepo) FetchRefreshCounter(_ context.Context, id uuid.UUID) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return 0, customer.ErrNotFound
	}
	return c.RefreshCounter, nil
}

func (r *CustomerRepo) IncrementRefreshCounter(_ context.Context, id uuid.UUID) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return 0, customer.ErrNotFound
	}
	c.RefreshCounter++
	c.UpdatedAt = time.Now().UTC()
	return c.RefreshCounter, nil
}

func (r *CustomerRepo) CompareAndIncrementRefreshCounter(_ context.Context, id uuid.UUID, expected int32) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok || c.RefreshCounter != expected {
		return 0, customer.ErrCounterMismatch
	}
	c.RefreshCounter++
	c.UpdatedAt = time.Now().UTC()
	return c.RefreshCounter, nil
}
