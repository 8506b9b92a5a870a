// Package classification defines the closed set of microorganism classes a
// discovery may carry and the normalizer that coerces model output into it.
package classification

import "strings"

// Classification is one of Bacteria, Virus, Fungi or Protozoa.
type Classification string

const (
	Bacteria Classification = "bacteria"
	Virus    Classification = "virus"
	Fungi    Classification = "fungi"
	Protozoa Classification = "protozoa"
)

// Default is substituted for any value outside the closed set.
const Default = Bacteria

var all = []Classification{Bacteria, Virus, Fungi, Protozoa}

// All returns the members of the closed set in a stable order.
func All() []Classification {
	out := make([]Classification, len(all))
	copy(out, all)
	return out
}

// Valid reports whether c is already a canonical member.
func (c Classification) Valid() bool {
	switch c {
	case Bacteria, Virus, Fungi, Protozoa:
		return true
	}
	return false
}

func (c Classification) String() string {
	return string(c)
}

// Normalize maps raw to its canonical member, ignoring case only: padded
// input is not a member. Unmatched input yields Default and false; the
// flag exists for diagnostics only and is never an error.
func Normalize(raw string) (Classification, bool) {
	c := Classification(strings.ToLower(raw))
	if c.Valid() {
		return c, true
	}
	return Default, false
}

// Parse reads filter input, where surrounding whitespace is ignored and an
// unmatched value means "no filter" rather than the default class.
func Parse(raw string) (Classification, bool) {
	c := Classification(strings.ToLower(strings.TrimSpace(raw)))
	return c, c.Valid()
}
