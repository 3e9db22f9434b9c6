// Package cli wires configuration into the runtime and adapters used by the
// huddle commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/huddle"
	"github.com/aretw0/huddle/internal/config"
	"github.com/aretw0/huddle/pkg/adapters/file"
	"github.com/aretw0/huddle/pkg/adapters/loam"
	"github.com/aretw0/huddle/pkg/adapters/memory"
	"github.com/aretw0/huddle/pkg/adapters/redis"
	"github.com/aretw0/huddle/pkg/adapters/sqlite"
	"github.com/aretw0/huddle/pkg/activities"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/ports"
)

// Backend is everything a command needs to host rooms.
type Backend struct {
	Runtime   *huddle.Runtime
	Transport ports.Transport
	Locker    ports.DistributedLocker

	closers []func() error
}

// OpenBackend builds the overlay store, transport and locker selected by cfg,
// then loads the runtime. Redis backs the transport whenever an address is set.
func OpenBackend(ctx context.Context, cfg config.Config, logger *slog.Logger, hooks domain.LifecycleHooks) (*Backend, error) {
	b := &Backend{}

	var redisOpts []redis.Option
	if cfg.Redis.Enabled() {
		client := redis.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		b.closers = append(b.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		redisOpts = []redis.Option{redis.WithPrefix(cfg.Redis.Prefix), redis.WithSnapshotTTL(cfg.Redis.SnapshotTTL)}
		b.Transport = redis.NewTransport(client, redisOpts...)
		b.Locker = redis.NewLocker(client, cfg.Redis.Prefix)

		if cfg.Overlay.Driver == config.DriverRedis {
			return b.load(ctx, cfg, logger, hooks, redis.NewOverlayStore(client, redisOpts...))
		}
	} else {
		b.Transport = memory.NewHub()
		b.Locker = memory.NewLocker()
	}

	store, err := b.openStore(cfg)
	if err != nil {
		b.Close()
		return nil, err
	}
	return b.load(ctx, cfg, logger, hooks, store)
}

func (b *Backend) openStore(cfg config.Config) (ports.OverlayStore, error) {
	switch cfg.Overlay.Driver {
	case config.DriverMemory:
		return memory.NewOverlayStore(), nil
	case config.DriverFile:
		return file.New(cfg.Overlay.Path), nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Overlay.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}
		store, err := sqlite.Open(cfg.Overlay.Path)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("overlay driver %q is not available", cfg.Overlay.Driver)
	}
}

func (b *Backend) load(ctx context.Context, cfg config.Config, logger *slog.Logger, hooks domain.LifecycleHooks, store ports.OverlayStore) (*Backend, error) {
	rt, err := huddle.New(ctx,
		huddle.WithOverlayStore(store),
		huddle.WithLogger(logger),
		huddle.WithLifecycleHooks(hooks),
		huddle.WithReactionTTL(cfg.ReactionTTL),
	)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("error initializing runtime: %w", err)
	}
	b.Runtime = rt
	return b, nil
}

// ImportCatalog registers every activity of the loam catalog at dir.
func (b *Backend) ImportCatalog(ctx context.Context, dir string) (loam.ImportResult, error) {
	catalog, err := loam.Open(dir)
	if err != nil {
		return loam.ImportResult{}, err
	}
	return catalog.Import(ctx, b.Runtime.Registry(), activities.NewTemplate)
}

// WatchCatalog re-imports the catalog at dir whenever one of its files changes,
// until ctx is canceled.
func (b *Backend) WatchCatalog(ctx context.Context, dir string, logger *slog.Logger) error {
	catalog, err := loam.Open(dir)
	if err != nil {
		return err
	}
	changes, err := catalog.Watch(ctx)
	if err != nil {
		return err
	}
	go func() {
		for id := range changes {
			res, err := catalog.Import(ctx, b.Runtime.Registry(), activities.NewTemplate)
			if err != nil {
				logger.Warn("catalog reload failed", "file", id, "err", err)
				continue
			}
			logger.Info("catalog reloaded", "file", id, "imported", len(res.Imported), "skipped", len(res.Skipped))
		}
	}()
	return nil
}

// Close releases every connection opened by OpenBackend.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}
