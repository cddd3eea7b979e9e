package mod

import (
	"time"

	"github.com/google/uuid"
)

// State is the persisted standing of one mod across loads. A mod whose
// documents failed to load in non-debug mode is recorded as disabled and
// left out of later loads until it is re-enabled.
type State struct {
	ModID    string
	Disabled bool
	Reason   string
	// LoadID identifies the load attempt that disabled the mod.
	LoadID    uuid.UUID
	UpdatedAt time.Time
}
