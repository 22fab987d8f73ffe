package semver

import (
	"fmt"
)

// Comparator kinds reported in resolution results and metrics.
const (
	KindLibrary   = "library"
	KindBootstrap = "bootstrap"
	KindExports   = "exports"
)

// Comparator orders version strings and matches them against constraint
// expressions.
type Comparator interface {
	// Compare returns -1, 0 or 1.
	Compare(a, b string) int
	// Satisfies reports whether version meets every term of constraint.
	Satisfies(version, constraint string) bool
	// Valid is a coarse filter for directory names that look like versions.
	Valid(version string) bool
}

// SatisfiesAll reports whether version satisfies every expression on its
// own. Each expression is handed to c unchanged, so operators such as "||"
// stay scoped to the expression that declared them. No expressions accepts
// every version.
func SatisfiesAll(c Comparator, version string, exprs []string) bool {
	for _, expr := range exprs {
		if !c.Satisfies(version, expr) {
			return false
		}
	}
	return true
}

// Named is implemented by comparators that report a kind.
type Named interface {
	Name() string
}

// KindOf returns the reported kind of c, or "custom".
func KindOf(c Comparator) string {
	if n, ok := c.(Named); ok {
		return n.Name()
	}
	return "custom"
}

// Funcs adapts plain functions to Comparator.
type Funcs struct {
	CompareFunc   func(a, b string) int
	SatisfiesFunc func(version, constraint string) bool
	ValidFunc     func(version string) bool
}

var _ Comparator = Funcs{}

func (f Funcs) Name() string { return KindExports }
func (f Funcs) Compare(a, b string) int { return f.CompareFunc(a, b) }
func (f Funcs) Satisfies(version, constraint string) bool { return f.SatisfiesFunc(version, constraint) }
func (f Funcs) Valid(version string) bool { return f.ValidFunc(version) }

// FromExports turns the exports of a loaded comparator package into a
// Comparator. Exports must either implement Comparator or be a map holding
// "compare", "satisfies" and "valid" functions.
func FromExports(exports any) (Comparator, error) {
	switch e := exports.(type) {
	case Comparator:
		return e, nil
	case map[string]any:
		compare, ok := e["compare"].(func(a, b string) int)
		if !ok {
			return nil, fmt.Errorf("semver: exports: compare is %T, want func(string, string) int", e["compare"])
		}
		satisfies, ok := e["satisfies"].(func(version, constraint string) bool)
		if !ok {
			return nil, fmt.Errorf("semver: exports: satisfies is %T, want func(string, string) bool", e["satisfies"])
		}
		valid, ok := e["valid"].(func(version string) bool)
		if !ok {
			return nil, fmt.Errorf("semver: exports: valid is %T, want func(string) bool", e["valid"])
		}
		return Funcs{CompareFunc: compare, SatisfiesFunc: satisfies, ValidFunc: valid}, nil
	default:
		return nil, fmt.Errorf("semver: exports of type %T do not provide a comparator", exports)
	}
}
