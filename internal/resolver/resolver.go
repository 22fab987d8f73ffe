package resolver

import (
	"context"

	"github.com/anvil-platform/vrequire/internal/metadata"
	"github.com/anvil-platform/vrequire/internal/semver"
)

// Resolver picks and loads the installed version of a package that a
// requesting module should receive.
type Resolver interface {
	Resolve(ctx context.Context, requester Module, packageID string) (Exports, error)
}

// Module is a loaded unit in the host module system.
type Module interface {
	// ID is the filesystem path of the module file.
	ID() string
	// Parent is the module that triggered loading this one, or nil.
	Parent() Module
	// Metadata reads the package manifest belonging to the module.
	Metadata(ctx context.Context) (*metadata.PackageMetadata, error)
}

// Exports is whatever a loaded module exposes to its requester.
type Exports = any

// Loader loads the module installed for version under dir.
type Loader interface {
	Load(ctx context.Context, dir, version string) (Exports, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, dir, version string) (Exports, error)

func (f LoaderFunc) Load(ctx context.Context, dir, version string) (Exports, error) {
	return f(ctx, dir, version)
}

// ComparatorSource supplies the full comparator. It is called once per
// resolution, with a context marked as bootstrapping.
type ComparatorSource func(ctx context.Context) (semver.Comparator, error)

// LibraryComparator is the default source: the Masterminds-backed comparator,
// which needs no resolution of its own.
func LibraryComparator(context.Context) (semver.Comparator, error) {
	return semver.Library{}, nil
}
