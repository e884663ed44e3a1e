package customer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("customer not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrCounterMismatch = errors.New("refresh counter mismatch")
)

// Customer is a registered account. ID is the private id and never leaves
// the server; PublicID is what tokens carry.
type Customer struct {
	ID             uuid.UUID
	PublicID       uuid.UUID
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	RefreshCounter int32
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Credentials struct {
	ID           uuid.UUID
	PublicID     uuid.UUID
	PasswordHash string
}
