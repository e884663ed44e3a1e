package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken covers every way a presented token can fail: malformed,
	// forged, expired, wrong kind or invalidated. The concrete reason is only
	// carried in the wrapped message.
	ErrInvalidToken = errors.New("invalid token")

	// ErrIncorrectCredentials is returned for unknown emails and wrong passwords alike.
	ErrIncorrectCredentials = errors.New("incorrect credentials provided")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrCrypto  = errors.New("crypto failure")
	ErrSigning = fmt.Errorf("%w: token signing", ErrCrypto)

	// ErrConcurrency reports a poisoned cookie slot.
	ErrConcurrency = errors.New("cookie slot poisoned")

	ErrDatabase = errors.New("database error")
)

func invalidToken(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidToken, fmt.Sprintf(format, args...))
}
