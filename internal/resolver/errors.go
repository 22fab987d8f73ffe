package resolver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoVersionsFound indicates the version directory holds no installed
	// versions at all. The tree is broken; this is never recoverable.
	ErrNoVersionsFound = errors.New("no versions found")

	// ErrUnsatisfiable indicates versions exist but none meets the combined constraint.
	ErrUnsatisfiable = errors.New("unsatisfiable version constraint")

	// ErrNoLoader is returned by Resolve when no Loader was configured.
	ErrNoLoader = errors.New("no module loader configured")
)

// NoVersionsFoundError is returned when scanning finds no valid version
// directories.
type NoVersionsFoundError struct {
	PackageID string
	Path      string
}

func (e *NoVersionsFoundError) Error() string {
	return fmt.Sprintf("searching for package %q: no versions are present at %q; is this side-by-side module tree broken?", e.PackageID, e.Path)
}

func (e *NoVersionsFoundError) Unwrap() error { return ErrNoVersionsFound }

// UnsatisfiableError is returned when no installed version satisfies the
// combined constraint.
type UnsatisfiableError struct {
	PackageID  string
	Constraint string
	// Available lists every candidate, ascending.
	Available []string
}

func (e *UnsatisfiableError) Error() string {
	return fmt.Sprintf("searching for package %q satisfying %q: none of the available versions satisfied all of the constraints: %s",
		e.PackageID, e.Constraint, strings.Join(e.Available, " "))
}

func (e *UnsatisfiableError) Unwrap() error { return ErrUnsatisfiable }
