package main

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/NordCoder/bazaar/internal/auth"
	config "github.com/NordCoder/bazaar/internal/config/auth-gateway"
	"github.com/NordCoder/bazaar/internal/domain/cart"
	"github.com/NordCoder/bazaar/internal/domain/event"
	"github.com/NordCoder/bazaar/internal/outbox"
	"github.com/NordCoder/bazaar/internal/repository/kafka"
	pg "github.com/NordCoder/bazaar/internal/repository/postgres"
	"github.com/NordCoder/bazaar/internal/repository/redis"
	authsvc "github.com/NordCoder/bazaar/internal/services/auth-gateway/auth"
)

type authService struct {
	server  *authsvc.Server
	relay   *outbox.Runner
	closers []func() error

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Start runs the outbox relay, if any, until Stop.
func (a *authService) Start(ctx context.Context) {
	if a.relay == nil {
		return
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.relay.Run(ctx)
	}()
}

func (a *authService) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func initAuth(ctx context.Context, cfg *config.Config, logger *zap.Logger, st *store) (*authService, error) {
	svc := &authService{}

	k := cfg.Auth.Keys
	keys, err := auth.LoadKeyMaterial([]byte(k.AccessPrivate), []byte(k.AccessPublic), []byte(k.RefreshPrivate), []byte(k.RefreshPublic))
	if err != nil {
		return nil, fmt.Errorf("token keys: %w", err)
	}
	hasher, err := auth.NewHasher([]byte(cfg.Auth.Pepper), cfg.Auth.Password)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}
	codec := auth.NewCodec(keys)

	var lookup authsvc.IdentityLookup = st.customers
	if cfg.Redis.Enable {
		rdb, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		svc.closers = append(svc.closers, rdb.Close)
		lookup = redis.NewIdentityCache(rdb, st.customers, cfg.Redis.TTL, logger)
		logger.Info("identity cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	events, err := initEvents(ctx, cfg, logger, st, svc)
	if err != nil {
		return nil, err
	}

	verifier, err := authsvc.NewCredentialVerifier(hasher, st.customers, logger)
	if err != nil {
		return nil, err
	}
	identity := authsvc.NewIdentityResolver(codec, lookup, logger)
	lifecycle := authsvc.NewLifecycle(codec, identity, st.customers, authsvc.LifecycleConfig{
		AccessTTL:        cfg.Auth.AccessTTL,
		RefreshTTL:       cfg.Auth.RefreshTTL,
		RenewalThreshold: cfg.Auth.RenewalThreshold,
	}, logger)

	uc := authsvc.NewUseCase(authsvc.Deps{
		Customers: st.customers,
		Carts:     st.carts,
		Hasher:    hasher,
		Verifier:  verifier,
		Identity:  identity,
		Lifecycle: lifecycle,
		Coord:     authsvc.NewCartCoordinator(st.carts, logger),
		Events:    events,
		Logger:    logger,
	}, authsvc.Config{DefaultCurrency: cart.Currency(cfg.Auth.DefaultCurrency)})

	svc.server = authsvc.NewServer(uc, authsvc.Opts{Logger: logger, CookieSecure: cfg.CookieSecure()})
	return svc, nil
}

// initEvents picks where identity events go: nowhere, straight to Kafka, or
// into the postgres outbox drained to Kafka by the relay.
func initEvents(ctx context.Context, cfg *config.Config, logger *zap.Logger, st *store, svc *authService) (event.Publisher, error) {
	if !cfg.Kafka.Enable {
		return event.Discard, nil
	}
	if err := kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, kafka.TopicSpec{
		Name:              cfg.Kafka.Topic,
		NumPartitions:     cfg.Kafka.Partitions,
		ReplicationFactor: cfg.Kafka.ReplicationFactor,
	}, logger); err != nil {
		return nil, fmt.Errorf("kafka topic: %w", err)
	}
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
	svc.closers = append(svc.closers, producer.Close)
	direct := kafka.NewIdentityEvents(producer, logger)

	if !cfg.Kafka.Outbox.Enable || st.db == nil {
		return direct, nil
	}
	repo := pg.NewOutboxRepo(st.db)
	svc.relay = outbox.NewOutboxRunner(logger, repo, outbox.MakeGlobalOutboxHandler(direct), cfg.Kafka.Outbox.Config)
	logger.Info("identity events go through the outbox", zap.String("topic", cfg.Kafka.Topic))
	return outbox.NewPublisher(repo), nil
}
