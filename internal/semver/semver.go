package semver

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a semantic version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3.
type Version struct {
	v *mm.Version
}

// Constraint is a semantic version constraint.
//
// Space-separated terms are ANDed and "||" separates alternatives, both
// within a single expression. Expressions from different requesters are
// never joined into one Constraint; see SatisfiesAll.
//
// Examples:
// - "~2"
// - "1.4.0"
// - ">=1.2.0 <2.0.0"
// - "~1 ^1.3.0"
type Constraint struct {
	c *mm.Constraints
}

func ParseVersion(raw string) (Version, error) {
	v, err := mm.NewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

func ParseConstraint(raw string) (Constraint, error) {
	c, err := mm.NewConstraint(raw)
	if err != nil {
		return Constraint{}, fmt.Errorf("semver: parse constraint %q: %w", raw, err)
	}
	return Constraint{c: c}, nil
}

func Satisfies(v Version, c Constraint) bool {
	if v.v == nil || c.c == nil {
		return false
	}
	return c.c.Check(v.v)
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// Library is the full comparator backed by Masterminds/semver.
type Library struct{}

var _ Comparator = Library{}

func (Library) Name() string { return KindLibrary }

// Compare orders two version strings. Unparseable versions sort below
// parseable ones.
func (Library) Compare(a, b string) int {
	if a == b {
		return 0
	}
	va, _ := ParseVersion(a)
	vb, _ := ParseVersion(b)
	return Compare(va, vb)
}

// Satisfies reports whether version meets constraint. An empty constraint
// accepts every version; a constraint that does not parse accepts none.
func (Library) Satisfies(version, constraint string) bool {
	if strings.TrimSpace(constraint) == "" {
		return true
	}
	if constraint == version {
		return true
	}
	v, err := ParseVersion(version)
	if err != nil {
		return false
	}
	c, err := ParseConstraint(constraint)
	if err != nil {
		return false
	}
	return Satisfies(v, c)
}

func (Library) Valid(version string) bool {
	_, err := ParseVersion(version)
	return err == nil
}
