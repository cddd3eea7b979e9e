package mod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestVersionCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0.0.0", 0},
		{"1.0", "1", 0},
		{"1.2", "1.10", -1},
		{"2", "1.9.9", 1},
		{"A1", "A.0", 1},
		{"a1", "A1", 0},
		{"1.a", "1.1", -1},
		{"1.0-beta", "1.0", 1},
		{"", "0.1", -1},
		{"", "0", 0},
		{"8.0.3", "8.0.3", 0},
	}
	for _, c := range cases {
		got := ParseVersion(c.a).Compare(ParseVersion(c.b))
		assert.Equal(t, c.want, got, "%q vs %q", c.a, c.b)
	}
}

func TestVersionString(t *testing.T) {
	v := ParseVersion("1.0.0")
	assert.Equal(t, "1.0.0", v.String())
	assert.False(t, v.IsZero())
	assert.True(t, ParseVersion("0.0").IsZero())
	assert.True(t, ParseVersion("8.1").AtLeast(ParseVersion("8.0.9")))
	assert.False(t, ParseVersion("7").AtLeast(ParseVersion("7.0.1")))
}

func TestVersionOverflowSaturates(t *testing.T) {
	huge := ParseVersion("99999999999999999999999")
	assert.Equal(t, 1, huge.Compare(ParseVersion("18446744073709551614")))
}

// Property: Compare is antisymmetric and appending zero segments never
// changes a version's rank.
func TestPropertyVersionOrdering(t *testing.T) {
	gen := rapid.StringMatching(`[0-9a-c]{1,3}(\.[0-9a-c]{1,3}){0,3}`)
	rapid.Check(t, func(t *rapid.T) {
		a := ParseVersion(gen.Draw(t, "a"))
		b := ParseVersion(gen.Draw(t, "b"))
		if a.Compare(b) != -b.Compare(a) {
			t.Fatalf("%s vs %s not antisymmetric", a, b)
		}
		padded := ParseVersion(a.String() + ".0.0")
		if padded.Compare(a) != 0 {
			t.Fatalf("%s and %s differ", padded, a)
		}
		if a.Compare(a) != 0 {
			t.Fatalf("%s not equal to itself", a)
		}
	})
}
