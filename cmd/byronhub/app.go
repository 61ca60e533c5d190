package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"byronhub/internal/api"
	"byronhub/internal/availability"
	"byronhub/internal/booking"
	"byronhub/internal/cart"
	"byronhub/internal/config"
	"byronhub/internal/events"
	"byronhub/internal/session"
	"byronhub/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type app struct {
	cfg        *config.Config
	configPath string
	logger     *zerolog.Logger
	out        io.Writer
	loc        *time.Location

	rdb     *redis.Client
	store   storage.Store
	sqlite  *storage.SQLiteStore
	closers []func() error

	client    *api.Client
	bus       *events.EventBus
	cart      *cart.Cart
	session   *session.Session
	submitter *booking.Submitter
	resolver  *availability.Resolver
}

func newApp(ctx context.Context, cfg *config.Config, configPath string, logger *zerolog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, configPath: configPath, logger: logger, out: os.Stdout, loc: loc}

	if cfg.Redis.Address != "" {
		a.rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		a.closers = append(a.closers, a.rdb.Close)
	}

	if err := a.openStore(); err != nil {
		a.Close()
		return nil, err
	}

	a.client = api.NewClient(cfg.API.BaseURL, logger)
	a.client.SetTimeout(cfg.APITimeout())
	a.client.UseRateLimit(cfg.API.RatePerSecond, cfg.API.Burst)
	if a.rdb != nil && cfg.CacheTTL() > 0 {
		a.client.UseRedisCache(a.rdb, cfg.CacheTTL())
	}

	a.bus = events.NewEventBus()
	a.bus.Subscribe(events.BookingCompleted, a.showConfirmation)
	a.bus.Subscribe(events.BookingFailed, func(ev events.Event) error {
		var f booking.Failure
		if err := ev.Decode(&f); err != nil {
			return err
		}
		logger.Warn().Str("room", f.Room).Str("error", f.Error).Msg("booking aborted, cart kept for retry")
		return nil
	})

	a.session = session.New(a.store, logger)
	if err := a.session.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.client.SetToken(a.session.Token())

	a.cart = cart.New(a.store, a.bus, logger)
	if err := a.cart.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.resolver = availability.NewResolver(logger)
	a.submitter = booking.NewSubmitter(a.client, a.store, a.bus,
		booking.Validator{ManagerCapacityOverride: cfg.Booking.ManagerCapacityOverride}, logger)
	return a, nil
}

func (a *app) openStore() error {
	switch a.cfg.Storage.Driver {
	case config.DriverMemory:
		a.store = storage.NewMemoryStore()
		return nil
	case config.DriverRedis:
		a.store = storage.NewRedisStore(a.rdb, a.cfg.Redis.Prefix)
		return nil
	}

	sqlite, err := storage.NewSQLiteStore(a.cfg.Storage.Path, a.logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.sqlite = sqlite
	a.closers = append(a.closers, sqlite.Close)

	if a.cfg.Storage.Driver == config.DriverFailover {
		a.store = storage.NewFailoverStore(storage.NewRedisStore(a.rdb, a.cfg.Redis.Prefix), sqlite, a.logger)
		return nil
	}
	a.store = sqlite
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}

func (a *app) requester() (booking.Requester, error) {
	u, err := a.session.User()
	if err != nil {
		return booking.Requester{}, err
	}
	return booking.Requester{PersonID: u.ID, Manager: u.IsManager()}, nil
}
