package merge

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestListEditApply(t *testing.T) {
	cur := []string{"LASER_CLIP_OLD", "CLIP_A"}

	got := ListEdit[string]{Op: EditAppend, Values: []string{"LASER_CLIP", "CLIP_A", "LASER_CLIP"}}.Apply(cur)
	assert.Equal(t, []string{"LASER_CLIP_OLD", "CLIP_A", "LASER_CLIP"}, got)

	got = ListEdit[string]{Op: EditRemove, Values: []string{"CLIP_A", "MISSING"}}.Apply(cur)
	assert.Equal(t, []string{"LASER_CLIP_OLD"}, got)

	got = ListEdit[string]{Op: EditReplace, Values: []string{"X"}}.Apply(cur)
	assert.Equal(t, []string{"X"}, got)

	got = ListEdit[string]{Op: EditReplace}.Apply(cur)
	assert.Empty(t, got)

	assert.Equal(t, []string{"LASER_CLIP_OLD", "CLIP_A"}, cur, "input must not be modified")
}

func TestMapEditApply(t *testing.T) {
	cur := map[string]int{"STR_ALIEN_ALLOYS": 2, "STR_ELERIUM_115": 1}

	got := MapEdit[int]{Op: EditAppend, Entries: map[string]int{"STR_ELERIUM_115": 5, "STR_ZRBITE": 1}}.Apply(cur)
	assert.Equal(t, map[string]int{"STR_ALIEN_ALLOYS": 2, "STR_ELERIUM_115": 5, "STR_ZRBITE": 1}, got)

	got = MapEdit[int]{Op: EditRemove, Keys: []string{"STR_ALIEN_ALLOYS"}}.Apply(cur)
	assert.Equal(t, map[string]int{"STR_ELERIUM_115": 1}, got)

	got = MapEdit[int]{Op: EditReplace, Entries: map[string]int{"X": 1}}.Apply(cur)
	assert.Equal(t, map[string]int{"X": 1}, got)

	assert.Len(t, cur, 2, "input must not be modified")
}

func TestEditOpString(t *testing.T) {
	assert.Equal(t, "replace", EditReplace.String())
	assert.Equal(t, "!add", EditAppend.String())
	assert.Equal(t, "!remove", EditRemove.String())
}

var elem = rapid.SampledFrom([]string{"A", "B", "C", "D", "E", "F"})

// Property: append then remove of the same payload restores a list that
// held none of the payload.
func TestPropertyAppendRemoveRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(elem, 1, 4).Draw(t, "payload")
		var base []string
		for _, v := range rapid.SliceOfN(elem, 0, 8).Draw(t, "base") {
			if !slices.Contains(payload, v) {
				base = append(base, v)
			}
		}
		added := ListEdit[string]{Op: EditAppend, Values: payload}.Apply(base)
		back := ListEdit[string]{Op: EditRemove, Values: payload}.Apply(added)
		if !slices.Equal(back, base) {
			t.Fatalf("base %v -> %v -> %v", base, added, back)
		}
	})
}

// Property: when the list already held a payload value, the round trip
// strips it, so the pair is not an identity.
func TestPropertyAppendRemoveStripsExisting(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(elem, 1, 4).Draw(t, "payload")
		base := rapid.SliceOfN(elem, 0, 8).Draw(t, "base")
		base = append(base, rapid.SampledFrom(payload).Draw(t, "dup"))

		added := ListEdit[string]{Op: EditAppend, Values: payload}.Apply(base)
		back := ListEdit[string]{Op: EditRemove, Values: payload}.Apply(added)
		if len(back) >= len(base) {
			t.Fatalf("base %v -> %v kept a payload value", base, back)
		}
		for _, v := range back {
			if slices.Contains(payload, v) {
				t.Fatalf("%v still holds %s", back, v)
			}
		}
	})
}

// Property: append never duplicates and keeps the existing prefix.
func TestPropertyAppendPreservesPrefix(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := rapid.SliceOfNDistinct(elem, 0, 6, rapid.ID[string]).Draw(t, "base")
		payload := rapid.SliceOfN(elem, 0, 6).Draw(t, "payload")
		got := ListEdit[string]{Op: EditAppend, Values: payload}.Apply(base)
		if !slices.Equal(got[:len(base)], base) {
			t.Fatalf("prefix changed: %v -> %v", base, got)
		}
		seen := map[string]bool{}
		for _, v := range got {
			if seen[v] {
				t.Fatalf("duplicate %s in %v", v, got)
			}
			seen[v] = true
		}
	})
}
