package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/NordCoder/bazaar/internal/auth"
	"github.com/NordCoder/bazaar/internal/domain/customer"
)

type failingLookup struct{}

func (failingLookup) MapPublicToPrivate(context.Context, uuid.UUID) (uuid.UUID, error) {
	return uuid.Nil, errors.New("connection refused")
}

func TestMapPublicToPrivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.identity.MapPublicToPrivate(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	sub := f.addCustomer(t, 0)
	got, err = f.identity.MapPublicToPrivate(ctx, sub.PublicID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *sub.PrivateID, *got)

	unknown := uuid.New()
	got, err = f.identity.MapPublicToPrivate(ctx, &unknown)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMapPublicToPrivate_StoreFailure(t *testing.T) {
	r := NewIdentityResolver(nil, failingLookup{}, zaptest.NewLogger(t))
	id := uuid.New()
	_, err := r.MapPublicToPrivate(context.Background(), &id)
	assert.ErrorIs(t, err, auth.ErrDatabase)
}

func TestResolve_KnownToken(t *testing.T) {
	f := newFixture(t)
	sub := f.addCustomer(t, 0)
	cartID := uuid.New()

	raw, _, err := f.lifecycle.Issue(context.Background(), sub, cartID, auth.KindAccess)
	require.NoError(t, err)

	tok := f.resolve(t, raw, auth.KindAccess)
	assert.True(t, tok.IsKnown())
	assert.Equal(t, sub.PrivateID, tok.PrivateID())
	assert.Equal(t, *sub.PublicID, f.identity.PublicIDOf(tok))
	assert.Equal(t, cartID, tok.CartID())
}

func TestResolve_UnmappedKnownTokenIsRejected(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()
	ghost := uuid.New()

	raw, err := f.codec.Encode(auth.Claims{
		Sub:          &ghost,
		CustomerType: auth.CustomerKnown,
		CartID:       uuid.New(),
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(auth.AccessTokenTTL).Unix(),
		TokenType:    auth.AccessToken(),
	}, auth.KindAccess)
	require.NoError(t, err)

	_, err = f.identity.Resolve(context.Background(), raw, auth.KindAccess)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestResolve_WrongKind(t *testing.T) {
	f := newFixture(t)
	pair, err := f.lifecycle.IssuePair(context.Background(), Subject{}, uuid.New())
	require.NoError(t, err)

	_, err = f.identity.Resolve(context.Background(), pair.Access, auth.KindRefresh)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	_, err = f.identity.Resolve(context.Background(), pair.Refresh, auth.KindAccess)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPublicIDOf_Anonymous(t *testing.T) {
	f := newFixture(t)
	pair, err := f.lifecycle.IssuePair(context.Background(), Subject{}, uuid.New())
	require.NoError(t, err)

	tok := f.resolve(t, pair.Access, auth.KindAccess)
	assert.Equal(t, uuid.Nil, f.identity.PublicIDOf(tok))
}

var _ IdentityLookup = (*customerLookup)(nil)

// customerLookup counts calls through to the customer store.
type customerLookup struct {
	next  customer.Repo
	calls int
}

func (c *customerLookup) MapPublicToPrivate(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	c.calls++
	return c.next.MapPublicToPrivate(ctx, id)
}

func TestResolve_AnonymousSkipsLookup(t *testing.T) {
	f := newFixture(t)
	lookup := &customerLookup{next: f.customers}
	r := NewIdentityResolver(f.codec, lookup, zap.NewNop())

	pair, err := f.lifecycle.IssuePair(context.Background(), Subject{}, uuid.New())
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), pair.Access, auth.KindAccess)
	require.NoError(t, err)
	assert.Zero(t, lookup.calls)
}
