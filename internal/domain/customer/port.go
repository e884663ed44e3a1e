package customer

import (
	"context"

	"github.com/google/uuid"
)

type Repo interface {
	// Create fails with ErrEmailTaken when the email is registered.
	Create(ctx context.Context, c *Customer) error
	FetchCredentials(ctx context.Context, email string) (*Credentials, error)
	MapPublicToPrivate(ctx context.Context, publicID uuid.UUID) (uuid.UUID, error)

	FetchRefreshCounter(ctx context.Context, id uuid.UUID) (int32, error)
	// IncrementRefreshCounter bumps the counter in one atomic statement and
	// returns the new value.
	IncrementRefreshCounter(ctx context.Context, id uuid.UUID) (int32, error)
	// CompareAndIncrementRefreshCounter bumps the counter only if it still
	// equals expected, otherwise it returns ErrCounterMismatch.
	CompareAndIncrementRefreshCounter(ctx context.Context, id uuid.UUID, expected int32) (int32, error)
}
