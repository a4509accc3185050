package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/roach88/mallstore/internal/config"
	"github.com/roach88/mallstore/internal/gateway"
	"github.com/roach88/mallstore/internal/identity"
	"github.com/roach88/mallstore/internal/logging"
	"github.com/roach88/mallstore/internal/metrics"
	"github.com/roach88/mallstore/internal/postgrest"
	"github.com/roach88/mallstore/internal/store"
	"github.com/roach88/mallstore/internal/storefront"
	"github.com/roach88/mallstore/internal/views"
)

// app is the wired storefront behind one command invocation.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	gw       gateway.Gateway
	registry views.Registry
	identity identity.Provider
	svc      *storefront.Service
	token    string
	closers  []io.Closer
}

// loadConfig reads configuration and builds the logger. --verbose raises
// the level to debug.
func loadConfig(opts *RootOptions, errOut io.Writer) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	log, err := logging.New(logging.Options{Level: level, Format: cfg.Log.Format, Output: errOut})
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to configure logging", err)
	}
	return cfg, log, nil
}

// openApp wires gateway, view registry, identity and storefront from
// configuration.
func openApp(ctx context.Context, opts *RootOptions, errOut io.Writer) (*app, error) {
	cfg, log, err := loadConfig(opts, errOut)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, token: opts.Token}

	gw, closer, err := openGateway(ctx, cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	a.gw = metrics.Instrumented(gw, cfg.Store.Driver)
	a.addCloser(closer)

	registry, closer := openRegistry(cfg, log)
	a.registry = registry
	a.addCloser(closer)

	a.identity, err = newIdentity(cfg, opts)
	if err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "failed to configure identity", err)
	}

	a.svc, err = storefront.New(storefront.Deps{
		Gateway:  a.gw,
		Registry: a.registry,
		Identity: a.identity,
		Logger:   log,
	})
	if err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "failed to build storefront", err)
	}

	log.WithFields(logrus.Fields{
		"driver": cfg.Store.Driver,
		"cache":  registryKind(cfg),
	}).Debug("storefront ready")
	return a, nil
}

// context attaches the --token bearer token, if any.
func (a *app) context(ctx context.Context) context.Context {
	if a.token == "" {
		return ctx
	}
	return identity.WithToken(ctx, a.token)
}

func (a *app) addCloser(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}

// Close releases the store and cache connections.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openGateway selects the gateway for cfg.Store.Driver. The returned
// closer is nil for the stateless REST gateway.
func openGateway(ctx context.Context, cfg *config.Config) (gateway.Gateway, io.Closer, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case config.DriverPostgres:
		st, err := store.OpenPostgres(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case config.DriverPostgREST:
		client, err := postgrest.New(postgrest.Config{
			URL:     cfg.PostgREST.URL,
			APIKey:  cfg.PostgREST.APIKey,
			Rate:    cfg.PostgREST.Rate,
			Burst:   cfg.PostgREST.Burst,
			Timeout: cfg.PostgREST.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// openRegistry shares views through Redis when configured, otherwise keeps
// them in process memory.
func openRegistry(cfg *config.Config, log logrus.FieldLogger) (views.Registry, io.Closer) {
	if cfg.Cache.RedisAddr == "" {
		return views.NewMemoryRegistry(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
		DB:   cfg.Cache.RedisDB,
	})
	return views.NewRedisRegistry(client, log, views.WithRedisTTL(cfg.Cache.TTL)), client
}

func registryKind(cfg *config.Config) string {
	if cfg.Cache.RedisAddr == "" {
		return "memory"
	}
	return "redis"
}

// newIdentity verifies tokens when a JWT secret is configured and
// otherwise trusts --as.
func newIdentity(cfg *config.Config, opts *RootOptions) (identity.Provider, error) {
	if cfg.Auth.JWTSecret != "" {
		return identity.NewJWTProvider([]byte(cfg.Auth.JWTSecret))
	}
	return identity.Static{OwnerID: opts.As}, nil
}
