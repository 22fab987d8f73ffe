// Package metadata reads package manifests and exposes their named
// dependency tables.
//
// A manifest is a structured document sitting next to a module file. Only a
// handful of its fields matter here: the package name and version, and any
// top-level table that maps package names to constraint expressions
// ("dependencies", "devDependencies", ...). Everything else is ignored.
package metadata

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Well-known dependency tables, in the order they are consulted by default.
const (
	TableDependencies    = "dependencies"
	TableDevDependencies = "devDependencies"
)

// DefaultTables lists the dependency tables consulted when none are configured.
var DefaultTables = []string{TableDependencies, TableDevDependencies}

// ErrNoManifest is wrapped by NoManifestError.
var ErrNoManifest = errors.New("no package manifest")

// PackageMetadata is the decoded view of a package manifest.
type PackageMetadata struct {
	// Name and Version are informational; resolution never reads them.
	Name    string
	Version string

	// Tables maps a table name to its package -> constraint entries.
	// Entries whose value is not a string are dropped while decoding.
	Tables map[string]map[string]string

	// Source is the manifest path the metadata was read from.
	Source string
}

// Lookup returns the constraint expression for pkg in the named table.
// A missing table or entry is not an error.
func (m *PackageMetadata) Lookup(table, pkg string) (string, bool) {
	if m == nil {
		return "", false
	}
	expr, ok := m.Tables[table][pkg]
	return expr, ok
}

// TableNames returns the names of all tables, sorted.
func (m *PackageMetadata) TableNames() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.Tables))
	for name := range m.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NoManifestError is returned when none of the manifest file names exist in
// a module's directory.
type NoManifestError struct {
	Dir   string
	Tried []string
}

func (e *NoManifestError) Error() string {
	return fmt.Sprintf("no package manifest in %q (tried %s)", e.Dir, strings.Join(e.Tried, ", "))
}

func (e *NoManifestError) Unwrap() error { return ErrNoManifest }

// FromDocument builds metadata from a generic decoded document.
func FromDocument(doc map[string]any) *PackageMetadata {
	md := &PackageMetadata{Tables: map[string]map[string]string{}}
	if name, ok := doc["name"].(string); ok {
		md.Name = name
	}
	if version, ok := doc["version"].(string); ok {
		md.Version = version
	}
	for key, raw := range doc {
		table, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		entries := make(map[string]string, len(table))
		for pkg, value := range table {
			if expr, ok := value.(string); ok {
				entries[pkg] = expr
			}
		}
		md.Tables[key] = entries
	}
	return md
}
