// Package loader runs a complete ruleset load: mod selection, namespace
// allocation, document merge, linking and mod validation scripts, under the
// mod-disable policy.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/modstack/internal/ruleset/merge"
	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
	"github.com/cory-johannsen/modstack/internal/ruleset/namespace"
	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
	"github.com/cory-johannsen/modstack/internal/ruleset/rules"
)

// StateStore persists which mods are disabled across loads.
type StateStore interface {
	// Disabled returns the ids of every disabled mod.
	Disabled(ctx context.Context) (map[string]bool, error)
	// Save records st, replacing any earlier record for st.ModID.
	Save(ctx context.Context, st mod.State) error
}

// Validator runs a mod's validation scripts against the linked database.
type Validator interface {
	// Validate returns a fatal error when a script reports a problem at or
	// above the configured threshold.
	Validate(ctx context.Context, m *mod.Descriptor, db *rules.Database) error
}

// Options configure a Loader.
type Options struct {
	DataDir string
	// Active lists the mod ids to load, in configured order.
	Active []string
	Engine mod.Engine
	// Debug aborts on the first mod failure instead of disabling the mod.
	Debug         bool
	Threshold     ruleerr.Severity
	MaxLinkErrors int
	Limits        namespace.Limits
}

// Result is a successful load.
type Result struct {
	LoadID uuid.UUID
	DB     *rules.Database
	// Mods lists the loaded mods in load order.
	Mods    []*mod.Descriptor
	Table   *namespace.Table
	Skipped []mod.Skipped
	// Disabled lists mods this load disabled before it succeeded.
	Disabled []string
	Stats    merge.Stats
	Attempts int
}

// Loader runs ruleset loads.
type Loader struct {
	opts      Options
	store     StateStore
	validator Validator
	logger    *zap.Logger
}

// New creates a Loader. validator may be nil to skip mod scripts.
//
// Precondition: store and logger must be non-nil.
// Postcondition: Returns a non-nil Loader.
func New(opts Options, store StateStore, validator Validator, logger *zap.Logger) *Loader {
	if store == nil || logger == nil {
		panic("loader.New: precondition violated: store and logger must be non-nil")
	}
	return &Loader{opts: opts, store: store, validator: validator, logger: logger}
}

// Load discovers the mods under the data directory and loads them.
//
// In debug mode the first fatal error is returned. Otherwise a fatal error
// attributable to a non-master mod disables that mod in the state store and
// the load restarts without it; errors in the master, namespace allocation
// failures and link failures are returned.
//
// Postcondition: Returns a linked, frozen Database or a non-nil error.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	all, err := mod.Discover(l.opts.DataDir)
	if err != nil {
		return nil, err
	}
	return l.LoadMods(ctx, all)
}

// LoadMods loads from an explicit set of discovered descriptors.
func (l *Loader) LoadMods(ctx context.Context, all []*mod.Descriptor) (*Result, error) {
	loadID := uuid.New()
	log := l.logger.With(zap.String("load_id", loadID.String()))
	var newlyDisabled []string

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		disabled, err := l.store.Disabled(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading mod state: %w", err)
		}
		res, err := l.attempt(ctx, log, all, disabled)
		if err == nil {
			res.LoadID = loadID
			res.Attempts = attempt
			res.Disabled = newlyDisabled
			return res, nil
		}

		var me *ruleerr.ModError
		if !errors.As(err, &me) {
			log.Error("ruleset load failed", zap.Error(err))
			return nil, err
		}
		if l.opts.Debug || l.isMaster(all, me.ModID) {
			log.Error("mod failed to load", zap.String("mod", me.ModID), zap.Bool("debug", l.opts.Debug), zap.Error(me.Err))
			return nil, err
		}
		st := mod.State{
			ModID:     me.ModID,
			Disabled:  true,
			Reason:    me.Err.Error(),
			LoadID:    loadID,
			UpdatedAt: time.Now().UTC(),
		}
		if serr := l.store.Save(ctx, st); serr != nil {
			return nil, errors.Join(err, fmt.Errorf("disabling mod %q: %w", me.ModID, serr))
		}
		newlyDisabled = append(newlyDisabled, me.ModID)
		log.Warn("mod disabled after load failure; restarting load",
			zap.String("mod", me.ModID),
			zap.Int("attempt", attempt),
			zap.Error(me.Err),
		)
	}
}

func (l *Loader) isMaster(all []*mod.Descriptor, id string) bool {
	for _, d := range all {
		if d.ID == id && d.IsMaster {
			return true
		}
	}
	return false
}

func (l *Loader) attempt(ctx context.Context, log *zap.Logger, all []*mod.Descriptor, disabled map[string]bool) (*Result, error) {
	mods, skipped, err := mod.Select(all, l.opts.Active, disabled, l.opts.Engine)
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		log.Warn("mod skipped", zap.String("mod", s.Mod.ID), zap.String("reason", s.Reason))
	}

	table, err := namespace.Allocate(mods, l.opts.Limits)
	if err != nil {
		return nil, err
	}
	for _, a := range table.Allocations() {
		log.Debug("namespace allocated",
			zap.String("mod", a.Mod.ID),
			zap.Int64("offset", a.Offset),
			zap.Int64("budget", a.Budget),
		)
	}

	db := rules.NewDatabase()
	eng := merge.NewEngine(log, l.opts.Threshold, namespace.NewResolver(table))
	if err := db.Register(eng); err != nil {
		return nil, err
	}
	for _, m := range mods {
		files, err := mod.Documents(m)
		if err != nil {
			return nil, &ruleerr.ModError{ModID: m.ID, Err: err}
		}
		if err := eng.ApplyMod(m, files); err != nil {
			return nil, err
		}
		log.Info("mod loaded", zap.String("mod", m.ID), zap.Stringer("version", m.Version), zap.Int("documents", len(files)))
	}

	if err := db.Link(log, l.opts.MaxLinkErrors); err != nil {
		return nil, err
	}

	if l.validator != nil {
		for _, m := range mods {
			if err := l.validator.Validate(ctx, m, db); err != nil {
				return nil, &ruleerr.ModError{ModID: m.ID, Err: err}
			}
		}
	}

	return &Result{
		DB:      db,
		Mods:    mods,
		Table:   table,
		Skipped: skipped,
		Stats:   eng.Stats(),
	}, nil
}
