package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/bazaar/internal/auth"
	"github.com/NordCoder/bazaar/internal/domain/cart"
	"github.com/NordCoder/bazaar/internal/domain/customer"
	"github.com/NordCoder/bazaar/internal/domain/event"
	"github.com/NordCoder/bazaar/internal/obs"
)

var ErrEmailExists = errors.New("email already registered")

type Config struct {
	DefaultCurrency cart.Currency
	Now             func() time.Time
}

type Deps struct {
	Customers customer.Repo
	Carts     cart.Repo
	Hasher    *auth.Hasher
	Verifier  *CredentialVerifier
	Identity  *IdentityResolver
	Lifecycle *Lifecycle
	Coord     *CartCoordinator
	Events    event.Publisher
	Logger    *zap.Logger
}

// Usecase runs the session operations on top of the token lifecycle.
type Usecase struct {
	customers customer.Repo
	carts     cart.Repo
	hasher    *auth.Hasher
	verifier  *CredentialVerifier
	identity  *IdentityResolver
	lifecycle *Lifecycle
	coord     *CartCoordinator
	events    event.Publisher
	log       *zap.Logger
	cfg       Config
}

func NewUseCase(d Deps, cfg Config) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if !cfg.DefaultCurrency.Valid() {
		cfg.DefaultCurrency = cart.GBP
	}
	if d.Events == nil {
		d.Events = event.Discard
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Usecase{
		customers: d.Customers,
		carts:     d.Carts,
		hasher:    d.Hasher,
		verifier:  d.Verifier,
		identity:  d.Identity,
		lifecycle: d.Lifecycle,
		coord:     d.Coord,
		events:    d.Events,
		log:       d.Logger,
		cfg:       cfg,
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (u *Usecase) currency(c cart.Currency) cart.Currency {
	if c.Valid() {
		return c
	}
	return u.cfg.DefaultCurrency
}

func (u *Usecase) AnonymousLogin(ctx context.Context, currency cart.Currency) (auth.Tokens, error) {
	cartID, err := u.carts.CreateAnonymous(ctx, u.currency(currency))
	if err != nil {
		return auth.Tokens{}, fmt.Errorf("%w: create anonymous cart: %v", auth.ErrDatabase, err)
	}
	tokens, err := u.lifecycle.IssuePair(ctx, Subject{}, cartID)
	if err != nil {
		return auth.Tokens{}, err
	}
	u.publish(ctx, event.Identity{Kind: event.KindAnonymousSession, CartID: cartID})
	return tokens, nil
}

type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Currency  cart.Currency
}

// SignUp registers a customer and carries the caller's anonymous cart over
// to them. anon may be nil.
func (u *Usecase) SignUp(ctx context.Context, in SignUpInput, anon *auth.Token) (auth.Tokens, uuid.UUID, error) {
	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return auth.Tokens{}, uuid.Nil, err
	}
	c := &customer.Customer{
		ID:           uuid.New(),
		PublicID:     uuid.New(),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	}
	if err := u.customers.Create(ctx, c); err != nil {
		if errors.Is(err, customer.ErrEmailTaken) {
			return auth.Tokens{}, uuid.Nil, ErrEmailExists
		}
		return auth.Tokens{}, uuid.Nil, fmt.Errorf("%w: create customer: %v", auth.ErrDatabase, err)
	}

	anonCart := anonymousCart(anon)
	cartID, err := u.coord.OnSignup(ctx, c.ID, anonCart, u.currency(in.Currency))
	if err != nil {
		return auth.Tokens{}, uuid.Nil, err
	}

	tokens, err := u.lifecycle.IssuePair(ctx, Subject{PublicID: &c.PublicID, PrivateID: &c.ID}, cartID)
	if err != nil {
		return auth.Tokens{}, uuid.Nil, err
	}

	obs.WithTrace(ctx, u.log).Info("customer signed up", zap.Stringer("public_id", c.PublicID))
	u.publish(ctx, event.Identity{Kind: event.KindSignedUp, PublicID: &c.PublicID, CartID: cartID})
	if anonCart != nil && *anonCart == cartID {
		u.publish(ctx, event.Identity{Kind: event.KindCartPromoted, PublicID: &c.PublicID, CartID: cartID, FromCartID: anonCart})
	}
	return tokens, c.PublicID, nil
}

// Login checks credentials, folds the anonymous cart into the customer's
// cart and issues a fresh pair. Issuing bumps the refresh counter, so every
// refresh token handed out before is dead.
func (u *Usecase) Login(ctx context.Context, email, password string, anon *auth.Token) (auth.Tokens, error) {
	creds, err := u.verifier.VerifyAndFetchIdentity(ctx, normalizeEmail(email), password)
	if err != nil {
		return auth.Tokens{}, err
	}

	anonCart := anonymousCart(anon)
	var cartID uuid.UUID
	knownID, err := u.carts.FindIDByCustomer(ctx, creds.ID)
	switch {
	case err == nil:
		cartID, err = u.coord.OnLogin(ctx, knownID, anonCart)
	case errors.Is(err, cart.ErrNotFound):
		cartID, err = u.coord.OnSignup(ctx, creds.ID, anonCart, u.cfg.DefaultCurrency)
	default:
		err = fmt.Errorf("%w: find cart: %v", auth.ErrDatabase, err)
	}
	if err != nil {
		return auth.Tokens{}, err
	}

	tokens, err := u.lifecycle.IssuePair(ctx, Subject{PublicID: &creds.PublicID, PrivateID: &creds.ID}, cartID)
	if err != nil {
		return auth.Tokens{}, err
	}

	u.publish(ctx, event.Identity{Kind: event.KindLoggedIn, PublicID: &creds.PublicID, CartID: cartID})
	if anonCart != nil && *anonCart != cartID {
		u.publish(ctx, event.Identity{Kind: event.KindCartMerged, PublicID: &creds.PublicID, CartID: cartID, FromCartID: anonCart})
	}
	return tokens, nil
}

// Refresh verifies the refresh token, rejects it if it was invalidated and
// rotates it.
func (u *Usecase) Refresh(ctx context.Context, raw *string) (auth.Tokens, error) {
	if raw == nil {
		return auth.Tokens{}, auth.ErrUnauthorized
	}
	tok, err := u.identity.Resolve(ctx, *raw, auth.KindRefresh)
	if err != nil {
		return auth.Tokens{}, err
	}

	var embedded *int32
	if tok.IsKnown() {
		n := tok.RefreshCounter()
		embedded = &n
	}
	if err := u.lifecycle.CheckNotInvalidated(ctx, tok.PrivateID(), embedded); err != nil {
		return auth.Tokens{}, err
	}

	tokens, err := u.lifecycle.Rotate(ctx, tok, *raw)
	if err != nil {
		return auth.Tokens{}, err
	}
	if tokens.RefreshRotated {
		var pub *uuid.UUID
		if tok.IsKnown() {
			id := u.identity.PublicIDOf(tok)
			pub = &id
		}
		u.publish(ctx, event.Identity{Kind: event.KindRefreshRotated, PublicID: pub, CartID: tok.CartID()})
	}
	return tokens, nil
}

// Authenticate resolves the access token of a protected call.
func (u *Usecase) Authenticate(ctx context.Context, raw *string) (auth.Token, error) {
	if raw == nil {
		return auth.Token{}, auth.ErrUnauthorized
	}
	return u.identity.Resolve(ctx, *raw, auth.KindAccess)
}

// SessionToken returns the caller's current session for login and signup:
// the access cookie if present, else the refresh cookie, else nil. A token
// that is present but does not verify fails the request.
func (u *Usecase) SessionToken(ctx context.Context, access, refresh *string) (*auth.Token, error) {
	var (
		tok auth.Token
		err error
	)
	switch {
	case access != nil:
		tok, err = u.identity.Resolve(ctx, *access, auth.KindAccess)
	case refresh != nil:
		tok, err = u.identity.Resolve(ctx, *refresh, auth.KindRefresh)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

type Identity struct {
	PublicID     *uuid.UUID
	CustomerType auth.CustomerType
	CartID       uuid.UUID
	ExpiresAt    time.Time
}

func (u *Usecase) WhoAmI(tok auth.Token) Identity {
	id := Identity{CustomerType: tok.CustomerType(), CartID: tok.CartID(), ExpiresAt: tok.ExpiresAt()}
	if tok.IsKnown() {
		pub := u.identity.PublicIDOf(tok)
		id.PublicID = &pub
	}
	return id
}

func RequireKnown(tok auth.Token) error {
	if !tok.IsKnown() {
		return auth.ErrForbidden
	}
	return nil
}

func anonymousCart(tok *auth.Token) *uuid.UUID {
	if tok == nil || tok.IsKnown() {
		return nil
	}
	id := tok.CartID()
	return &id
}

func (u *Usecase) publish(ctx context.Context, e event.Identity) {
	if e.At.IsZero() {
		e.At = u.cfg.Now()
	}
	if err := u.events.Publish(ctx, e); err != nil {
		obs.WithTrace(ctx, u.log).Warn("identity event dropped", zap.String("kind", string(e.Kind)), zap.Error(err))
	}
}
