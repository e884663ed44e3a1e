package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/NordCoder/bazaar/internal/auth"
	"github.com/NordCoder/bazaar/internal/domain/customer"
	"github.com/NordCoder/bazaar/internal/obs"
)

type CredentialStore interface {
	FetchCredentials(ctx context.Context, email string) (*customer.Credentials, error)
}

// CredentialVerifier checks an email/password pair. Unknown emails still pay
// for one hash verification so both failure modes cost the same.
type CredentialVerifier struct {
	hasher *auth.Hasher
	store  CredentialStore
	dummy  string
	log    *zap.Logger
}

func NewCredentialVerifier(hasher *auth.Hasher, store CredentialStore, log *zap.Logger) (*CredentialVerifier, error) {
	dummy, err := hasher.Hash("bazaar-timing-equaliser")
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	return &CredentialVerifier{hasher: hasher, store: store, dummy: dummy, log: log.Named("credentials")}, nil
}

func (v *CredentialVerifier) VerifyAndFetchIdentity(ctx context.Context, email, password string) (*customer.Credentials, error) {
	creds, err := v.store.FetchCredentials(ctx, email)
	switch {
	case errors.Is(err, customer.ErrNotFound):
		_, _ = v.hasher.Verify(password, v.dummy)
		obs.LoginFailures.Inc()
		return nil, auth.ErrIncorrectCredentials
	case err != nil:
		return nil, fmt.Errorf("%w: fetch credentials: %v", auth.ErrDatabase, err)
	}

	ok, err := v.hasher.Verify(password, creds.PasswordHash)
	if err != nil {
		obs.WithTrace(ctx, v.log).Error("stored hash unusable", zap.Error(err))
		return nil, err
	}
	if !ok {
		obs.LoginFailures.Inc()
		return nil, auth.ErrIncorrectCredentials
	}
	return creds, nil
}
