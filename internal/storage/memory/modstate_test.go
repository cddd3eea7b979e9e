package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
)

func TestModStateStore_SaveGetEnable(t *testing.T) {
	s := NewModStateStore()
	ctx := context.Background()
	loadID := uuid.New()

	require.NoError(t, s.Save(ctx, mod.State{ModID: "laser-pack", Disabled: true, Reason: "boom", LoadID: loadID}))
	st, err := s.Get(ctx, "laser-pack")
	require.NoError(t, err)
	assert.True(t, st.Disabled)
	assert.Equal(t, loadID, st.LoadID)
	assert.False(t, st.UpdatedAt.IsZero())

	disabled, err := s.Disabled(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"laser-pack": true}, disabled)

	require.NoError(t, s.Enable(ctx, "laser-pack"))
	disabled, err = s.Disabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, disabled)

	st, err = s.Get(ctx, "laser-pack")
	require.NoError(t, err)
	assert.Empty(t, st.Reason)
}

func TestModStateStore_Missing(t *testing.T) {
	s := NewModStateStore()
	_, err := s.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrModStateNotFound)
	assert.ErrorIs(t, s.Enable(context.Background(), "x"), ErrModStateNotFound)
	assert.Error(t, s.Save(context.Background(), mod.State{}))
}

func TestModStateStore_ListSorted(t *testing.T) {
	s := NewModStateStore()
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Save(ctx, mod.State{ModID: id}))
	}
	all, err := s.List(ctx)
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, st := range all {
		ids[i] = st.ModID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestPropertyModStateDisabledMatchesLastSave(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewModStateStore()
		ctx := context.Background()
		want := make(map[string]bool)
		ops := rapid.IntRange(1, 30).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			id := rapid.SampledFrom([]string{"a", "b", "c", "d"}).Draw(t, "id")
			on := rapid.Bool().Draw(t, "disabled")
			if err := s.Save(ctx, mod.State{ModID: id, Disabled: on}); err != nil {
				t.Fatalf("save: %v", err)
			}
			if on {
				want[id] = true
			} else {
				delete(want, id)
			}
		}
		got, err := s.Disabled(ctx)
		if err != nil {
			t.Fatalf("disabled: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for id := range want {
			if !got[id] {
				t.Fatalf("mod %s missing from %v", id, got)
			}
		}
	})
}
