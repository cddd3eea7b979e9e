// Package storage selects the mod state store backend named by configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cory-johannsen/modstack/internal/config"
	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
	"github.com/cory-johannsen/modstack/internal/storage/memory"
	"github.com/cory-johannsen/modstack/internal/storage/postgres"
)

// ModStateStore is the full mod state surface shared by every backend.
type ModStateStore interface {
	Disabled(ctx context.Context) (map[string]bool, error)
	Save(ctx context.Context, st mod.State) error
	Get(ctx context.Context, modID string) (mod.State, error)
	List(ctx context.Context) ([]mod.State, error)
	Enable(ctx context.Context, modID string) error
}

// HealthTimeout bounds the readiness ping made when a database store is opened.
const HealthTimeout = 5 * time.Second

// ErrNotPersistent is returned by RequirePersistent for in-process backends.
var ErrNotPersistent = errors.New("mod state store does not persist across runs")

var (
	_ ModStateStore = (*memory.ModStateStore)(nil)
	_ ModStateStore = (*postgres.ModStateRepository)(nil)
)

// Open returns the store named by cfg.Mods.StateStore and a func releasing it.
//
// Precondition: cfg passed Validate.
// Postcondition: On success the returned close func is non-nil.
func Open(ctx context.Context, cfg config.Config) (ModStateStore, func(), error) {
	switch cfg.Mods.StateStore {
	case config.StateStoreMemory:
		return memory.NewModStateStore(), func() {}, nil
	case config.StateStorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := pool.Health(ctx, HealthTimeout); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("mod state database not ready: %w", err)
		}
		return pool.ModStates(), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown mod state store %q", cfg.Mods.StateStore)
}

// Persistent reports whether the configured backend keeps disabled mods
// across process runs.
func Persistent(cfg config.Config) bool {
	return cfg.Mods.StateStore == config.StateStorePostgres
}

// RequirePersistent returns ErrNotPersistent unless the configured backend
// keeps state across runs.
func RequirePersistent(cfg config.Config) error {
	if !Persistent(cfg) {
		return fmt.Errorf("%w: mods.state_store is %q", ErrNotPersistent, cfg.Mods.StateStore)
	}
	return nil
}
