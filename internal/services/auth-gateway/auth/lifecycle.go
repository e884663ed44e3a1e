package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/bazaar/internal/auth"
	"github.com/NordCoder/bazaar/internal/domain/customer"
	"github.com/NordCoder/bazaar/internal/obs"
)

type CounterStore interface {
	FetchRefreshCounter(ctx context.Context, id uuid.UUID) (int32, error)
	IncrementRefreshCounter(ctx context.Context, id uuid.UUID) (int32, error)
	CompareAndIncrementRefreshCounter(ctx context.Context, id uuid.UUID, expected int32) (int32, error)
}

type LifecycleConfig struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	RenewalThreshold time.Duration
	Now              func() time.Time
}

func (c *LifecycleConfig) defaults() {
	if c.AccessTTL <= 0 {
		c.AccessTTL = auth.AccessTokenTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = auth.RefreshTokenTTL
	}
	if c.RenewalThreshold <= 0 {
		c.RenewalThreshold = auth.RenewalThreshold
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Subject is who a token is minted for. Both ids are nil for anonymous
// sessions.
type Subject struct {
	PublicID  *uuid.UUID
	PrivateID *uuid.UUID
}

func (s Subject) Known() bool { return s.PrivateID != nil }

func (s Subject) customerType() auth.CustomerType {
	if s.Known() {
		return auth.CustomerKnown
	}
	return auth.CustomerAnonymous
}

// Lifecycle issues, rotates and invalidates tokens. A known customer's
// refresh tokens are only valid while they embed the customer's current
// refresh counter.
type Lifecycle struct {
	codec    *auth.Codec
	identity *IdentityResolver
	counters CounterStore
	cfg      LifecycleConfig
	log      *zap.Logger
}

func NewLifecycle(codec *auth.Codec, identity *IdentityResolver, counters CounterStore, cfg LifecycleConfig, log *zap.Logger) *Lifecycle {
	cfg.defaults()
	return &Lifecycle{codec: codec, identity: identity, counters: counters, cfg: cfg, log: log.Named("lifecycle")}
}

func (l *Lifecycle) ttl(kind auth.Kind) time.Duration {
	if kind == auth.KindRefresh {
		return l.cfg.RefreshTTL
	}
	return l.cfg.AccessTTL
}

func (l *Lifecycle) sign(sub Subject, cartID uuid.UUID, tt auth.TokenType, now time.Time) (string, time.Duration, error) {
	if sub.Known() && sub.PublicID == nil {
		return "", 0, fmt.Errorf("%w: known subject without public id", auth.ErrSigning)
	}
	ttl := l.ttl(tt.Kind)
	raw, err := l.codec.Encode(auth.Claims{
		Sub:          sub.PublicID,
		CustomerType: sub.customerType(),
		CartID:       cartID,
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(ttl).Unix(),
		TokenType:    tt,
	}, tt.Kind)
	if err != nil {
		return "", 0, err
	}
	obs.TokensIssued.WithLabelValues(tt.Kind.String(), string(sub.customerType())).Inc()
	return raw, ttl, nil
}

// Issue mints a single token. A refresh token for a known customer embeds
// the current stored counter without bumping it.
func (l *Lifecycle) Issue(ctx context.Context, sub Subject, cartID uuid.UUID, kind auth.Kind) (string, time.Duration, error) {
	tt := auth.AccessToken()
	if kind == auth.KindRefresh {
		counter := auth.AnonymousCounter
		if sub.Known() {
			n, err := l.counters.FetchRefreshCounter(ctx, *sub.PrivateID)
			if err != nil {
				return "", 0, counterErr("fetch", err)
			}
			counter = n
		}
		tt = auth.RefreshToken(counter)
	}
	return l.sign(sub, cartID, tt, l.cfg.Now())
}

// IssuePair mints an access and a refresh token. For known customers the
// stored counter is incremented exactly once, which invalidates every
// refresh token issued before.
func (l *Lifecycle) IssuePair(ctx context.Context, sub Subject, cartID uuid.UUID) (auth.Tokens, error) {
	return l.issuePair(ctx, sub, cartID, nil)
}

func (l *Lifecycle) issuePair(ctx context.Context, sub Subject, cartID uuid.UUID, expected *int32) (auth.Tokens, error) {
	counter := auth.AnonymousCounter
	if sub.Known() {
		var err error
		if expected != nil {
			counter, err = l.counters.CompareAndIncrementRefreshCounter(ctx, *sub.PrivateID, *expected)
			if errors.Is(err, customer.ErrCounterMismatch) {
				obs.RefreshOutcomes.WithLabelValues("lost_race").Inc()
				return auth.Tokens{}, fmt.Errorf("%w: refresh counter moved on", auth.ErrInvalidToken)
			}
		} else {
			counter, err = l.counters.IncrementRefreshCounter(ctx, *sub.PrivateID)
		}
		if err != nil {
			return auth.Tokens{}, counterErr("increment", err)
		}
	}

	now := l.cfg.Now()
	access, accessTTL, err := l.sign(sub, cartID, auth.AccessToken(), now)
	if err != nil {
		return auth.Tokens{}, err
	}
	refresh, refreshTTL, err := l.sign(sub, cartID, auth.RefreshToken(counter), now)
	if err != nil {
		return auth.Tokens{}, err
	}
	return auth.Tokens{
		IssuedAt:         now,
		Access:           access,
		AccessExpiresIn:  accessTTL,
		Refresh:          refresh,
		RefreshExpiresIn: refreshTTL,
		RefreshRotated:   true,
	}, nil
}

// Rotate serves a refresh. While the refresh token has more than the renewal
// threshold left only a new access token is minted and raw is handed back
// unchanged; otherwise both tokens are replaced, and for known customers only
// the first of several concurrent rotations of the same token succeeds.
func (l *Lifecycle) Rotate(ctx context.Context, tok auth.Token, raw string) (auth.Tokens, error) {
	if tok.TokenType().Kind != auth.KindRefresh {
		return auth.Tokens{}, fmt.Errorf("%w: rotate needs a refresh token", auth.ErrInvalidToken)
	}
	sub := l.subjectOf(tok)
	now := l.cfg.Now()

	remaining := tok.TimeToExpiry(now)
	if remaining > l.cfg.RenewalThreshold {
		access, accessTTL, err := l.sign(sub, tok.CartID(), auth.AccessToken(), now)
		if err != nil {
			return auth.Tokens{}, err
		}
		obs.RefreshOutcomes.WithLabelValues("access_only").Inc()
		return auth.Tokens{
			IssuedAt:         now,
			Access:           access,
			AccessExpiresIn:  accessTTL,
			Refresh:          raw,
			RefreshExpiresIn: remaining,
		}, nil
	}

	expected := tok.RefreshCounter()
	tokens, err := l.issuePair(ctx, sub, tok.CartID(), &expected)
	if err != nil {
		return auth.Tokens{}, err
	}
	obs.RefreshOutcomes.WithLabelValues("rotated").Inc()
	return tokens, nil
}

// CheckNotInvalidated rejects a known customer's refresh token whose embedded
// counter differs from the stored one. Anonymous tokens always pass.
func (l *Lifecycle) CheckNotInvalidated(ctx context.Context, privateID *uuid.UUID, embedded *int32) error {
	if privateID == nil {
		return nil
	}
	if embedded == nil {
		return fmt.Errorf("%w: refresh counter missing", auth.ErrInvalidToken)
	}
	current, err := l.counters.FetchRefreshCounter(ctx, *privateID)
	if errors.Is(err, customer.ErrNotFound) {
		return fmt.Errorf("%w: customer gone", auth.ErrInvalidToken)
	}
	if err != nil {
		return counterErr("fetch", err)
	}
	if current != *embedded {
		obs.TokensRejected.WithLabelValues(auth.KindRefresh.String(), "invalidated").Inc()
		obs.WithTrace(ctx, l.log).Warn("stale refresh token presented",
			zap.Int32("embedded", *embedded), zap.Int32("current", current))
		return fmt.Errorf("%w: refresh token invalidated", auth.ErrInvalidToken)
	}
	return nil
}

func (l *Lifecycle) subjectOf(tok auth.Token) Subject {
	if !tok.IsKnown() {
		return Subject{}
	}
	pub := l.identity.PublicIDOf(tok)
	return Subject{PublicID: &pub, PrivateID: tok.PrivateID()}
}

func counterErr(op string, err error) error {
	if errors.Is(err, customer.ErrNotFound) {
		return fmt.Errorf("%w: customer gone", auth.ErrInvalidToken)
	}
	return fmt.Errorf("%w: refresh counter %s: %v", auth.ErrDatabase, op, err)
}
