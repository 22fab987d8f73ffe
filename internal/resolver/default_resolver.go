package resolver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"

	"github.com/anvil-platform/vrequire/internal/graph"
	"github.com/anvil-platform/vrequire/internal/metadata"
	"github.com/anvil-platform/vrequire/internal/semver"
)

// DefaultResolver resolves packages installed side-by-side as
// version-named directories next to the requesting module's file.
//
// It holds no mutable state once configured and is safe for concurrent use.
type DefaultResolver struct {
	fs                afero.Fs
	loader            Loader
	comparator        ComparatorSource
	comparatorPackage string
	tables            []string
	metrics           *Metrics
}

var _ Resolver = (*DefaultResolver)(nil)

func NewDefault(opts Options) *DefaultResolver {
	r := &DefaultResolver{
		fs:                opts.Fs,
		loader:            opts.Loader,
		comparator:        opts.Comparator,
		comparatorPackage: opts.ComparatorPackage,
		tables:            opts.Tables,
		metrics:           opts.Metrics,
	}
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	if r.comparator == nil {
		r.comparator = LibraryComparator
	}
	if r.comparatorPackage == "" {
		r.comparatorPackage = DefaultComparatorPackage
	}
	if len(r.tables) == 0 {
		r.tables = metadata.DefaultTables
	}
	return r
}

// UseResolvedComparator makes the resolver obtain its full comparator by
// resolving the comparator package on behalf of home. Must be called before
// the resolver is shared.
func (r *DefaultResolver) UseResolvedComparator(home Module) {
	r.comparator = ResolvedComparator(r, home, r.comparatorPackage)
}

// ComparatorPackage returns the package name that backs the comparator.
func (r *DefaultResolver) ComparatorPackage() string { return r.comparatorPackage }

// Resolve picks a version of packageID for requester and loads it.
func (r *DefaultResolver) Resolve(ctx context.Context, requester Module, packageID string) (Exports, error) {
	res, err := r.Plan(ctx, requester, packageID)
	if err != nil {
		return nil, err
	}
	return r.Load(ctx, res)
}

// Load loads the version a Plan picked.
func (r *DefaultResolver) Load(ctx context.Context, res Resolution) (Exports, error) {
	if r.loader == nil {
		return nil, ErrNoLoader
	}
	exports, err := r.loader.Load(ctx, res.Dir, res.Version)
	if err != nil {
		return nil, fmt.Errorf("load %s@%s from %s: %w", res.PackageID, res.Version, res.Path(), err)
	}
	return exports, nil
}

// Plan picks a version of packageID for requester without loading it.
func (r *DefaultResolver) Plan(ctx context.Context, requester Module, packageID string) (Resolution, error) {
	start := time.Now()
	res, err := r.plan(ctx, requester, packageID)
	r.metrics.observe(start, err)
	return res, err
}

func (r *DefaultResolver) plan(ctx context.Context, requester Module, packageID string) (Resolution, error) {
	if requester == nil {
		return Resolution{}, errors.New("resolve: requesting module is nil")
	}

	logger := logr.FromContextOrDiscard(ctx).WithValues(
		"package", packageID,
		"requester", requester.ID(),
	)
	ctx = logr.NewContext(ctx, logger)

	cmp, err := r.comparatorFor(ctx, packageID)
	if err != nil {
		return Resolution{}, err
	}
	kind := semver.KindOf(cmp)

	constraints, err := collect(ctx, requester, packageID, r.tables)
	if err != nil {
		return Resolution{}, err
	}
	combined := Combine(constraints)

	dir := filepath.Dir(requester.ID())
	candidates, err := scan(ctx, r.fs, dir, packageID, cmp)
	if err != nil {
		return Resolution{}, err
	}
	r.metrics.scanned(candidates.Len())

	sorted := sortCandidates(candidates, cmp)
	version, nodes, err := selectVersion(packageID, sorted, Expressions(constraints), combined, cmp)
	if err != nil {
		logger.V(1).Info("no candidate satisfied", "constraint", combined, "available", sorted)
		return Resolution{}, err
	}

	requirements := make([]graph.RequirementNode, 0, len(constraints))
	for _, c := range constraints {
		requirements = append(requirements, graph.RequirementNode{
			Depth:      c.Depth,
			ModuleID:   c.Module,
			Table:      c.Table,
			Constraint: c.Expression,
		})
	}

	logger.V(1).Info("selected version", "version", version, "constraint", combined, "comparator", kind)

	return Resolution{
		PackageID:   packageID,
		Version:     version,
		Dir:         dir,
		Constraints: constraints,
		Combined:    combined,
		Candidates:  sorted,
		Comparator:  kind,
		Trace: graph.Trace{
			PackageID:    packageID,
			Requirements: requirements,
			Candidates:   nodes,
			Selected:     version,
		},
	}, nil
}

// Constraints returns the constraints on packageID found in the requester
// chain, nearest first, without scanning or selecting.
func (r *DefaultResolver) Constraints(ctx context.Context, requester Module, packageID string) ([]Constraint, error) {
	if requester == nil {
		return nil, errors.New("resolve: requesting module is nil")
	}
	return collect(ctx, requester, packageID, r.tables)
}

// Comparator returns the comparator a resolution of packageID would use
// under ctx.
func (r *DefaultResolver) Comparator(ctx context.Context, packageID string) (semver.Comparator, error) {
	return r.comparatorFor(ctx, packageID)
}

// comparatorFor returns the bootstrap comparator when packageID is the
// comparator package and ctx is already inside a comparator load; otherwise
// it loads the full comparator under a bootstrapping context.
func (r *DefaultResolver) comparatorFor(ctx context.Context, packageID string) (semver.Comparator, error) {
	if IsBootstrapping(ctx) && packageID == r.comparatorPackage {
		logr.FromContextOrDiscard(ctx).V(1).Info("using bootstrap comparator")
		r.metrics.bootstrapped()
		return semver.Bootstrap{}, nil
	}
	cmp, err := r.comparator(withBootstrapping(ctx))
	if err != nil {
		return nil, fmt.Errorf("load comparator %q: %w", r.comparatorPackage, err)
	}
	return cmp, nil
}

// ResolvedComparator is a ComparatorSource that resolves packageID through
// r on behalf of home and adapts the loaded exports with semver.FromExports.
func ResolvedComparator(r Resolver, home Module, packageID string) ComparatorSource {
	return func(ctx context.Context) (semver.Comparator, error) {
		exports, err := r.Resolve(ctx, home, packageID)
		if err != nil {
			return nil, err
		}
		return semver.FromExports(exports)
	}
}
