package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/NordCoder/bazaar/internal/auth"
	"github.com/NordCoder/bazaar/internal/auth/authtest"
	"github.com/NordCoder/bazaar/internal/domain/cart"
	"github.com/NordCoder/bazaar/internal/domain/customer"
	"github.com/NordCoder/bazaar/internal/domain/event"
	"github.com/NordCoder/bazaar/internal/repository/memory"
)

type recordingEvents struct {
	mu     sync.Mutex
	events []event.Identity
}

func (r *recordingEvents) Publish(_ context.Context, e event.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEvents) kinds() []event.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Kind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type fixture struct {
	clock     *authtest.Clock
	customers *memory.CustomerRepo
	carts     *memory.CartRepo
	codec     *auth.Codec
	identity  *IdentityResolver
	lifecycle *Lifecycle
	uc        *Usecase
	events    *recordingEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	clock := authtest.NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	customers := memory.NewCustomerRepo()
	carts := memory.NewCartRepo()
	codec := auth.NewCodec(authtest.Keys(t), auth.WithClock(clock.Now))

	hasher, err := auth.NewHasher([]byte("test-pepper"), auth.PasswordConfig{
		Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	require.NoError(t, err)
	verifier, err := NewCredentialVerifier(hasher, customers, log)
	require.NoError(t, err)

	identity := NewIdentityResolver(codec, customers, log)
	lifecycle := NewLifecycle(codec, identity, customers, LifecycleConfig{Now: clock.Now}, log)
	events := &recordingEvents{}

	uc := NewUseCase(Deps{
		Customers: customers,
		Carts:     carts,
		Hasher:    hasher,
		Verifier:  verifier,
		Identity:  identity,
		Lifecycle: lifecycle,
		Coord:     NewCartCoordinator(carts, log),
		Events:    events,
		Logger:    log,
	}, Config{DefaultCurrency: cart.GBP, Now: clock.Now})

	return &fixture{
		clock:     clock,
		customers: customers,
		carts:     carts,
		codec:     codec,
		identity:  identity,
		lifecycle: lifecycle,
		uc:        uc,
		events:    events,
	}
}

// addCustomer stores a customer directly, bypassing signup.
func (f *fixture) addCustomer(t *testing.T, counter int32) Subject {
	t.Helper()
	c := &customer.Customer{
		ID:             uuid.New(),
		PublicID:       uuid.New(),
		Email:          uuid.NewString() + "@example.com",
		FirstName:      "Test",
		LastName:       "Customer",
		RefreshCounter: counter,
	}
	require.NoError(t, f.customers.Create(context.Background(), c))
	return Subject{PublicID: &c.PublicID, PrivateID: &c.ID}
}

func (f *fixture) counter(t *testing.T, sub Subject) int32 {
	t.Helper()
	n, err := f.customers.FetchRefreshCounter(context.Background(), *sub.PrivateID)
	require.NoError(t, err)
	return n
}

func (f *fixture) resolve(t *testing.T, raw string, kind auth.Kind) auth.Token {
	t.Helper()
	tok, err := f.identity.Resolve(context.Background(), raw, kind)
	require.NoError(t, err)
	return tok
}

func (f *fixture) signUp(t *testing.T, email, password string, anon *auth.Token) (auth.Tokens, uuid.UUID) {
	t.Helper()
	tokens, pub, err := f.uc.SignUp(context.Background(), SignUpInput{
		Email:     email,
		Password:  password,
		FirstName: "Ada",
		LastName:  "Lovelace",
	}, anon)
	require.NoError(t, err)
	return tokens, pub
}

func strp(s string) *string { return &s }
