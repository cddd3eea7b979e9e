package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
)

// ErrModStateNotFound is returned when no state is recorded for a mod.
var ErrModStateNotFound = errors.New("mod state not found")

// ModStateRepository persists per-mod load state in the mod_state table.
type ModStateRepository struct {
	db *pgxpool.Pool
}

// NewModStateRepository creates a ModStateRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewModStateRepository(db *pgxpool.Pool) *ModStateRepository {
	return &ModStateRepository{db: db}
}

// Disabled returns the ids of every disabled mod.
//
// Postcondition: Returns a non-nil map, possibly empty.
func (r *ModStateRepository) Disabled(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.Query(ctx, `SELECT mod_id FROM mod_state WHERE disabled`)
	if err != nil {
		return nil, fmt.Errorf("querying disabled mods: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning disabled mods: %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// Save inserts or replaces the state of st.ModID.
//
// Precondition: st.ModID must be non-empty.
func (r *ModStateRepository) Save(ctx context.Context, st mod.State) error {
	if st.ModID == "" {
		return errors.New("saving mod state: mod id must not be empty")
	}
	var loadID *uuid.UUID
	if st.LoadID != uuid.Nil {
		loadID = &st.LoadID
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO mod_state (mod_id, disabled, reason, load_id, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (mod_id) DO UPDATE
		 SET disabled = EXCLUDED.disabled,
		     reason = EXCLUDED.reason,
		     load_id = EXCLUDED.load_id,
		     updated_at = EXCLUDED.updated_at`,
		st.ModID, st.Disabled, st.Reason, loadID, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving mod state %q: %w", st.ModID, err)
	}
	return nil
}

// Get returns the recorded state of modID.
//
// Postcondition: Returns ErrModStateNotFound if nothing is recorded.
func (r *ModStateRepository) Get(ctx context.Context, modID string) (mod.State, error) {
	row := r.db.QueryRow(ctx,
		`SELECT mod_id, disabled, reason, load_id, updated_at
		 FROM mod_state WHERE mod_id = $1`,
		modID,
	)
	st, err := scanModState(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mod.State{}, ErrModStateNotFound
		}
		return mod.State{}, fmt.Errorf("querying mod state %q: %w", modID, err)
	}
	return st, nil
}

// List returns every recorded state ordered by mod id.
func (r *ModStateRepository) List(ctx context.Context) ([]mod.State, error) {
	rows, err := r.db.Query(ctx,
		`SELECT mod_id, disabled, reason, load_id, updated_at
		 FROM mod_state ORDER BY mod_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing mod state: %w", err)
	}
	defer rows.Close()

	var out []mod.State
	for rows.Next() {
		st, err := scanModState(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning mod state: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Enable clears the disabled flag of modID.
//
// Postcondition: Returns ErrModStateNotFound if nothing is recorded.
func (r *ModStateRepository) Enable(ctx context.Context, modID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE mod_state SET disabled = FALSE, reason = '', updated_at = NOW()
		 WHERE mod_id = $1`,
		modID,
	)
	if err != nil {
		return fmt.Errorf("enabling mod %q: %w", modID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrModStateNotFound
	}
	return nil
}

func scanModState(row pgx.Row) (mod.State, error) {
	var (
		st     mod.State
		loadID *uuid.UUID
	)
	if err := row.Scan(&st.ModID, &st.Disabled, &st.Reason, &loadID, &st.UpdatedAt); err != nil {
		return mod.State{}, err
	}
	if loadID != nil {
		st.LoadID = *loadID
	}
	return st, nil
}
