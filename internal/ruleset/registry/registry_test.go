package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type weapon struct {
	Name   string
	Power  int
	Weight int
}

func newWeapons() *Registry[weapon] {
	return New("items", func(name string) *weapon { return &weapon{Name: name} })
}

func TestCreateLookupRemove(t *testing.T) {
	r := newWeapons()
	id, w, err := r.Create("STR_RIFLE")
	require.NoError(t, err)
	assert.True(t, id.Valid())
	assert.Equal(t, 0, id.Index())
	assert.Equal(t, "STR_RIFLE", w.Name)

	got, ok := r.Lookup("STR_RIFLE")
	require.True(t, ok)
	assert.Equal(t, id, got)
	assert.Same(t, w, r.Get(id))
	assert.Equal(t, "STR_RIFLE", r.NameOf(id))

	_, _, err = r.Create("STR_RIFLE")
	assert.ErrorIs(t, err, ErrDuplicate)

	removed, err := r.Remove("STR_RIFLE")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, r.Has("STR_RIFLE"))
	assert.Nil(t, r.Get(id))

	removed, err = r.Remove("STR_RIFLE")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, r.CheckInvariant())
}

func TestZeroID(t *testing.T) {
	r := newWeapons()
	var id ID[weapon]
	assert.False(t, id.Valid())
	assert.Equal(t, -1, id.Index())
	assert.Nil(t, r.Get(id))
	assert.Empty(t, r.NameOf(id))
}

func TestSlotsAreNotReused(t *testing.T) {
	r := newWeapons()
	old, _, err := r.Create("A")
	require.NoError(t, err)
	_, err = r.Remove("A")
	require.NoError(t, err)
	fresh, _, err := r.Create("A")
	require.NoError(t, err)
	assert.NotEqual(t, old, fresh)
	assert.Nil(t, r.Get(old))
}

func TestNamesKeepInsertionOrder(t *testing.T) {
	r := newWeapons()
	for _, n := range []string{"C", "A", "B"} {
		_, _, err := r.Create(n)
		require.NoError(t, err)
	}
	_, err := r.Remove("A")
	require.NoError(t, err)
	_, _, err = r.Create("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, r.Names())

	var visited []string
	require.NoError(t, r.Each(func(name string, w *weapon) error {
		visited = append(visited, w.Name)
		return nil
	}))
	assert.Equal(t, []string{"C", "B", "A"}, visited)
}

func TestEachStopsOnError(t *testing.T) {
	r := newWeapons()
	for _, n := range []string{"A", "B"} {
		_, _, err := r.Create(n)
		require.NoError(t, err)
	}
	stop := errors.New("stop")
	calls := 0
	err := r.Each(func(string, *weapon) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestFreeze(t *testing.T) {
	r := newWeapons()
	_, _, err := r.Create("A")
	require.NoError(t, err)
	r.Freeze()
	assert.True(t, r.Frozen())
	_, _, err = r.Create("B")
	assert.ErrorIs(t, err, ErrFrozen)
	_, err = r.Remove("A")
	assert.ErrorIs(t, err, ErrFrozen)
	_, _, _, err = r.Apply(Directive{Op: OpUpdate, Name: "A"})
	assert.ErrorIs(t, err, ErrFrozen)
	w, ok := r.Rule("A")
	require.True(t, ok)
	assert.Equal(t, "A", w.Name)
}

func TestNewPanicsWithoutFactory(t *testing.T) {
	assert.Panics(t, func() { New[weapon]("items", nil) })
}

// Property: after any sequence of creates and removes the name map and the
// order index agree.
func TestPropertyInvariantHolds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := newWeapons()
		model := map[string]bool{}
		ops := rapid.IntRange(0, 60).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			name := rapid.SampledFrom([]string{"A", "B", "C", "D", "E"}).Draw(t, "name")
			if rapid.Bool().Draw(t, "create") {
				_, _, err := r.Create(name)
				if model[name] != errors.Is(err, ErrDuplicate) {
					t.Fatalf("create %s: err=%v model=%v", name, err, model[name])
				}
				model[name] = true
			} else {
				removed, _ := r.Remove(name)
				if removed != model[name] {
					t.Fatalf("remove %s: removed=%v model=%v", name, removed, model[name])
				}
				delete(model, name)
			}
			if err := r.CheckInvariant(); err != nil {
				t.Fatal(err)
			}
		}
		if r.Len() != len(model) {
			t.Fatalf("len %d, model %d", r.Len(), len(model))
		}
	})
}
