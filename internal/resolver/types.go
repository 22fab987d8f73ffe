package resolver

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/anvil-platform/vrequire/internal/graph"
)

// DefaultComparatorPackage is the package that backs the full comparator.
// Resolving it while its own comparator is being loaded falls back to the
// bootstrap comparator.
const DefaultComparatorPackage = "semver"

// Constraint is one expression found in the requester chain.
type Constraint struct {
	// Module is the ID of the module whose manifest declared the expression.
	Module     string
	// Depth is the position of Module in the chain; 0 is the direct requester.
	Depth      int
	Table      string
	Expression string
}

// Combine joins expressions with spaces for display. Selection never parses
// the joined string; it checks each expression on its own (Expressions).
func Combine(constraints []Constraint) string {
	return strings.Join(Expressions(constraints), " ")
}

// Expressions returns the expressions of constraints, in order.
func Expressions(constraints []Constraint) []string {
	exprs := make([]string, 0, len(constraints))
	for _, c := range constraints {
		exprs = append(exprs, c.Expression)
	}
	return exprs
}

// Resolution is the outcome of picking a version, before loading it.
type Resolution struct {
	PackageID string
	Version   string
	// Dir holds the version directories; the chosen module lives at Dir/Version.
	Dir         string
	Constraints []Constraint
	Combined    string
	// Candidates are all valid installed versions, ascending.
	Candidates []string
	// Comparator is the kind of comparator used ("library", "bootstrap", ...).
	Comparator string
	Trace      graph.Trace
}

// Path returns the directory of the chosen version.
func (r Resolution) Path() string {
	return filepath.Join(r.Dir, r.Version)
}

// Options configures a DefaultResolver. Zero values select defaults.
type Options struct {
	// Fs is the filesystem version directories are scanned on.
	Fs afero.Fs
	// Loader loads the chosen version. Required by Resolve, not by Plan.
	Loader Loader
	// Comparator supplies the full comparator. Defaults to LibraryComparator.
	Comparator ComparatorSource
	// ComparatorPackage names the package backing the comparator.
	ComparatorPackage string
	// Tables are the manifest tables consulted, in order.
	Tables []string
	// Metrics is optional.
	Metrics *Metrics
}
