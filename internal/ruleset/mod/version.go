package mod

import (
	"strconv"
	"strings"
	"unicode"
)

// segment is one run of a normalized version: either numeric or alphabetic.
type segment struct {
	numeric bool
	num     uint64
	text    string
}

// Version is a normalized, comparable version string. Alphabetic and numeric
// runs become separate segments, every other character separates segments,
// and trailing zero segments are dropped so "1.0" equals "1.0.0.0".
type Version struct {
	raw  string
	segs []segment
}

// ParseVersion normalizes s. Any string is accepted; the empty string parses
// to the zero version, which sorts below every non-empty version.
func ParseVersion(s string) Version {
	v := Version{raw: s}
	runes := []rune(s)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			n, err := strconv.ParseUint(string(runes[i:j]), 10, 64)
			if err != nil {
				// Overflowing runs saturate rather than wrap.
				n = ^uint64(0)
			}
			v.segs = append(v.segs, segment{numeric: true, num: n})
			i = j
		case unicode.IsLetter(r):
			j := i
			for j < len(runes) && unicode.IsLetter(runes[j]) {
				j++
			}
			v.segs = append(v.segs, segment{text: strings.ToLower(string(runes[i:j]))})
			i = j
		default:
			i++
		}
	}
	for len(v.segs) > 0 {
		last := v.segs[len(v.segs)-1]
		if !last.numeric || last.num != 0 {
			break
		}
		v.segs = v.segs[:len(v.segs)-1]
	}
	return v
}

// String returns the version as originally written.
func (v Version) String() string { return v.raw }

// IsZero reports whether v has no segments.
func (v Version) IsZero() bool { return len(v.segs) == 0 }

// Compare returns -1, 0 or +1 as v sorts before, equal to, or after o.
// Numeric segments compare numerically, alphabetic ones case-insensitively,
// an alphabetic segment sorts below a numeric one, and a strict prefix sorts
// below the longer version.
func (v Version) Compare(o Version) int {
	n := min(len(v.segs), len(o.segs))
	for i := 0; i < n; i++ {
		if c := compareSegment(v.segs[i], o.segs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(v.segs) < len(o.segs):
		return -1
	case len(v.segs) > len(o.segs):
		return 1
	}
	return 0
}

// AtLeast reports whether v >= min.
func (v Version) AtLeast(minimum Version) bool {
	return v.Compare(minimum) >= 0
}

func compareSegment(a, b segment) int {
	switch {
	case a.numeric && b.numeric:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case !a.numeric && !b.numeric:
		return strings.Compare(a.text, b.text)
	case !a.numeric:
		return -1
	}
	return 1
}
