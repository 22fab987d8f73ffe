package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"

	"github.com/anvil-platform/vrequire/internal/metadata"
	"github.com/anvil-platform/vrequire/internal/semver"
)

const pkgDir = "/tree/node_modules/left-pad"

type fakeModule struct {
	id     string
	parent *fakeModule
	deps   map[string]string
	dev    map[string]string
	err    error
}

func (m *fakeModule) ID() string { return m.id }

func (m *fakeModule) Parent() Module {
	if m.parent == nil {
		return nil
	}
	return m.parent
}

func (m *fakeModule) Metadata(context.Context) (*metadata.PackageMetadata, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &metadata.PackageMetadata{Tables: map[string]map[string]string{
		metadata.TableDependencies:    m.deps,
		metadata.TableDevDependencies: m.dev,
	}}, nil
}

// requester returns a module file inside dir whose only manifest entry
// constrains pkg to constraint (no entry when constraint is empty).
func requester(dir, pkg, constraint string) *fakeModule {
	m := &fakeModule{id: filepath.Join(dir, "index.js")}
	if constraint != "" {
		m.deps = map[string]string{pkg: constraint}
	}
	return m
}

func installed(t *testing.T, fs afero.Fs, dir string, versions ...string) {
	t.Helper()
	for _, v := range versions {
		if err := fs.MkdirAll(filepath.Join(dir, v), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", v, err)
		}
	}
}

func newFs(t *testing.T, versions ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	installed(t, fs, pkgDir, versions...)
	if err := afero.WriteFile(fs, filepath.Join(pkgDir, "index.js"), []byte("//"), 0o644); err != nil {
		t.Fatalf("write index.js: %v", err)
	}
	return fs
}

// countingComparator wraps a comparator and counts Satisfies calls.
type countingComparator struct {
	semver.Comparator
	satisfies atomic.Int32
}

func (c *countingComparator) Satisfies(version, constraint string) bool {
	c.satisfies.Add(1)
	return c.Comparator.Satisfies(version, constraint)
}

func TestDefaultResolver_SelectsHighestSatisfying(t *testing.T) {
	r := NewDefault(Options{Fs: newFs(t, "1.0.0", "1.2.0", "2.0.0")})

	res, err := r.Plan(context.Background(), requester(pkgDir, "left-pad", "~1"), "left-pad")
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if res.Version != "1.2.0" {
		t.Fatalf("expected version=1.2.0, got %q", res.Version)
	}
	if res.Combined != "~1" {
		t.Fatalf("expected combined=~1, got %q", res.Combined)
	}
	if res.Dir != pkgDir {
		t.Fatalf("expected dir=%s, got %s", pkgDir, res.Dir)
	}
	if res.Path() != filepath.Join(pkgDir, "1.2.0") {
		t.Fatalf("unexpected path %s", res.Path())
	}
	if !reflect.DeepEqual(res.Candidates, []string{"1.0.0", "1.2.0", "2.0.0"}) {
		t.Fatalf("expected ascending candidates, got %v", res.Candidates)
	}
	if res.Comparator != semver.KindLibrary {
		t.Fatalf("expected library comparator, got %q", res.Comparator)
	}
	if got := res.Trace.Considered(); !reflect.DeepEqual(got, []string{"2.0.0", "1.2.0"}) {
		t.Fatalf("expected 2.0.0 then 1.2.0 to be considered, got %v", got)
	}
}

func TestDefaultResolver_AlternativesDoNotLeakAcrossRequesters(t *testing.T) {
	parent := &fakeModule{id: "/tree/main.js", deps: map[string]string{"left-pad": "^1.0.0 || ^2.0.0"}}
	child := requester(pkgDir, "left-pad", "~1")
	child.parent = parent
	r := NewDefault(Options{Fs: newFs(t, "1.0.0", "2.0.0")})

	res, err := r.Plan(context.Background(), child, "left-pad")
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if res.Version != "1.0.0" {
		t.Fatalf("expected version=1.0.0, got %q", res.Version)
	}
	if res.Combined != "~1 ^1.0.0 || ^2.0.0" {
		t.Fatalf("unexpected combined %q", res.Combined)
	}
	if got := res.Trace.Considered(); !reflect.DeepEqual(got, []string{"2.0.0", "1.0.0"}) {
		t.Fatalf("expected 2.0.0 then 1.0.0 to be considered, got %v", got)
	}
}

func TestDefaultResolver_EveryRequesterMustAccept(t *testing.T) {
	parent := &fakeModule{id: "/tree/main.js", deps: map[string]string{"left-pad": "1.0.0 - 1.9.9"}}
	child := requester(pkgDir, "left-pad", "~1 || ~2")
	child.parent = parent
	r := NewDefault(Options{Fs: newFs(t, "1.0.0", "1.5.0", "2.0.0")})

	res, err := r.Plan(context.Background(), child, "left-pad")
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if res.Version != "1.5.0" {
		t.Fatalf("expected version=1.5.0, got %q", res.Version)
	}
}

func TestDefaultResolver_Unsatisfiable(t *testing.T) {
	r := NewDefault(Options{Fs: newFs(t, "1.0.0")})

	_, err := r.Plan(context.Background(), requester(pkgDir, "left-pad", "~2"), "left-pad")
	if !errors.Is(err, ErrUnsatisfiable) {
		t.Fatalf("expected ErrUnsatisfiable, got %v", err)
	}
	var ue *UnsatisfiableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnsatisfiableError, got %T", err)
	}
	if ue.PackageID != "left-pad" || ue.Constraint != "~2" {
		t.Fatalf("unexpected error details: %+v", ue)
	}
	if !reflect.DeepEqual(ue.Available, []string{"1.0.0"}) {
		t.Fatalf("expected available=[1.0.0], got %v", ue.Available)
	}
}

func TestDefaultResolver_NoVersionsFoundBeforeConstraintEvaluation(t *testing.T) {
	fs := afero.NewMemMapFs()
	installed(t, fs, pkgDir, "lib", "vendor")
	if err := afero.WriteFile(fs, filepath.Join(pkgDir, "2.0.0"), []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	counting := &countingComparator{Comparator: semver.Library{}}
	r := NewDefault(Options{
		Fs:         fs,
		Comparator: func(context.Context) (semver.Comparator, error) { return counting, nil },
	})

	_, err := r.Plan(context.Background(), requester(pkgDir, "left-pad", "~2"), "left-pad")
	if !errors.Is(err, ErrNoVersionsFound) {
		t.Fatalf("expected ErrNoVersionsFound, got %v", err)
	}
	var ne *NoVersionsFoundError
	if !errors.As(err, &ne) || ne.Path != pkgDir {
		t.Fatalf("expected NoVersionsFoundError for %s, got %v", pkgDir, err)
	}
	if n := counting.satisfies.Load(); n != 0 {
		t.Fatalf("expected no constraint evaluation, got %d Satisfies calls", n)
	}
}

func TestDefaultResolver_MissingDirectoryIsNoVersionsFound(t *testing.T) {
	r := NewDefault(Options{Fs: afero.NewMemMapFs()})

	_, err := r.Plan(context.Background(), requester("/nowhere", "x", ""), "x")
	if !errors.Is(err, ErrNoVersionsFound) {
		t.Fatalf("expected ErrNoVersionsFound, got %v", err)
	}
}

func TestDefaultResolver_EmptyConstraintSelectsHighest(t *testing.T) {
	r := NewDefault(Options{Fs: newFs(t, "0.9.0", "1.10.0", "1.9.0")})

	res, err := r.Plan(context.Background(), requester(pkgDir, "left-pad", ""), "left-pad")
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if res.Version != "1.10.0" {
		t.Fatalf("expected 1.10.0, got %q", res.Version)
	}
	if res.Trace.Constrained() {
		t.Fatalf("expected no requirements in trace, got %+v", res.Trace.Requirements)
	}
}

func TestDefaultResolver_TieBreakIsLexical(t *testing.T) {
	// 1.0 and 1.0.0 compare equal; the lexically greater name is tried first.
	r := NewDefault(Options{Fs: newFs(t, "1.0", "1.0.0")})

	res, err := r.Plan(context.Background(), requester(pkgDir, "left-pad", ""), "left-pad")
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if res.Version != "1.0.0" {
		t.Fatalf("expected 1.0.0, got %q", res.Version)
	}
}

func TestCollect_ChainOfThreeOnlyMiddleDeclares(t *testing.T) {
	top := &fakeModule{id: "/app/main.js"}
	middle := &fakeModule{id: "/app/node_modules/lib/index.js", parent: top, deps: map[string]string{"semver": "~5"}}
	bottom := &fakeModule{id: "/app/node_modules/lib/node_modules/semver/index.js", parent: middle}

	constraints, err := collect(context.Background(), bottom, "semver", metadata.DefaultTables)
	if err != nil {
		t.Fatalf("collect error: %v", err)
	}
	if got := Combine(constraints); got != "~5" {
		t.Fatalf("expected combined=~5, got %q", got)
	}
	if constraints[0].Module != middle.id || constraints[0].Depth != 1 {
		t.Fatalf("expected constraint from middle at depth 1, got %+v", constraints[0])
	}
}

func TestCollect_NearestFirstNoDedup(t *testing.T) {
	parent := &fakeModule{id: "/app/main.js", deps: map[string]string{"x": "1.2.0"}}
	child := &fakeModule{
		id:     "/app/lib/index.js",
		parent: parent,
		deps:   map[string]string{"x": "~1"},
		dev:    map[string]string{"x": "~1", "y": "~9"},
	}

	constraints, err := collect(context.Background(), child, "x", metadata.DefaultTables)
	if err != nil {
		t.Fatalf("collect error: %v", err)
	}
	if got := Combine(constraints); got != "~1 ~1 1.2.0" {
		t.Fatalf("expected \"~1 ~1 1.2.0\", got %q", got)
	}
	if constraints[1].Table != metadata.TableDevDependencies {
		t.Fatalf("expected second constraint from devDependencies, got %q", constraints[1].Table)
	}
}

func TestCollect_OnlyConfiguredTables(t *testing.T) {
	m := &fakeModule{id: "/app/index.js", dev: map[string]string{"x": "~1"}}

	constraints, err := collect(context.Background(), m, "x", []string{metadata.TableDependencies})
	if err != nil {
		t.Fatalf("collect error: %v", err)
	}
	if len(constraints) != 0 {
		t.Fatalf("expected devDependencies to be ignored, got %+v", constraints)
	}
}

func TestDefaultResolver_MetadataErrorPropagatesUnchanged(t *testing.T) {
	readErr := errors.New("manifest unreadable")
	parent := &fakeModule{id: "/app/main.js", err: readErr}
	child := requester(pkgDir, "left-pad", "~1")
	child.parent = parent

	r := NewDefault(Options{Fs: newFs(t, "1.0.0")})
	_, err := r.Plan(context.Background(), child, "left-pad")
	if err != readErr {
		t.Fatalf("expected the metadata error unchanged, got %v", err)
	}
}

func TestDefaultResolver_ResolveLoadsChosenVersion(t *testing.T) {
	var gotDir, gotVersion string
	r := NewDefault(Options{
		Fs: newFs(t, "1.0.0", "1.1.0"),
		Loader: LoaderFunc(func(_ context.Context, dir, version string) (Exports, error) {
			gotDir, gotVersion = dir, version
			return map[string]any{"version": version}, nil
		}),
	})

	exports, err := r.Resolve(context.Background(), requester(pkgDir, "left-pad", "~1"), "left-pad")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if gotDir != pkgDir || gotVersion != "1.1.0" {
		t.Fatalf("expected load of %s/1.1.0, got %s/%s", pkgDir, gotDir, gotVersion)
	}
	if exports.(map[string]any)["version"] != "1.1.0" {
		t.Fatalf("unexpected exports %v", exports)
	}
}

func TestDefaultResolver_ResolveWithoutLoader(t *testing.T) {
	r := NewDefault(Options{Fs: newFs(t, "1.0.0")})

	_, err := r.Resolve(context.Background(), requester(pkgDir, "left-pad", ""), "left-pad")
	if !errors.Is(err, ErrNoLoader) {
		t.Fatalf("expected ErrNoLoader, got %v", err)
	}
}

func TestDefaultResolver_LoaderErrorWrapped(t *testing.T) {
	loadErr := errors.New("boom")
	r := NewDefault(Options{
		Fs: newFs(t, "1.0.0"),
		Loader: LoaderFunc(func(context.Context, string, string) (Exports, error) {
			return nil, loadErr
		}),
	})

	_, err := r.Resolve(context.Background(), requester(pkgDir, "left-pad", ""), "left-pad")
	if !errors.Is(err, loadErr) {
		t.Fatalf("expected wrapped loader error, got %v", err)
	}
}

func TestDefaultResolver_ComparatorSourceErrorWrapped(t *testing.T) {
	srcErr := errors.New("no comparator")
	r := NewDefault(Options{
		Fs:         newFs(t, "1.0.0"),
		Comparator: func(context.Context) (semver.Comparator, error) { return nil, srcErr },
	})

	_, err := r.Plan(context.Background(), requester(pkgDir, "left-pad", ""), "left-pad")
	if !errors.Is(err, srcErr) {
		t.Fatalf("expected wrapped comparator error, got %v", err)
	}
}

// selfHostedTree lays out an app requiring left-pad, plus the resolver's
// own home module whose manifest pins its comparator package to ~1.
func selfHostedTree(t *testing.T) (afero.Fs, *fakeModule) {
	t.Helper()
	fs := newFs(t, "1.0.0", "2.0.0")
	installed(t, fs, "/tree/node_modules/semver", "1.4.0", "2.1.0")
	home := requester("/tree/node_modules/semver", "semver", "~1")
	return fs, home
}

func TestDefaultResolver_BootstrapOnReentrantComparatorResolution(t *testing.T) {
	fs, home := selfHostedTree(t)

	type load struct {
		version       string
		bootstrapping bool
	}
	var (
		mu    sync.Mutex
		loads []load
	)
	loader := LoaderFunc(func(ctx context.Context, dir, version string) (Exports, error) {
		mu.Lock()
		loads = append(loads, load{version: version, bootstrapping: IsBootstrapping(ctx)})
		mu.Unlock()
		if filepath.Base(dir) == "semver" {
			return semver.Library{}, nil
		}
		return version, nil
	})

	reg := prometheus.NewRegistry()
	r := NewDefault(Options{Fs: fs, Loader: loader, Metrics: NewMetrics(reg)})
	var sourceCalls atomic.Int32
	resolved := ResolvedComparator(r, home, DefaultComparatorPackage)
	r.comparator = func(ctx context.Context) (semver.Comparator, error) {
		sourceCalls.Add(1)
		return resolved(ctx)
	}

	exports, err := r.Resolve(context.Background(), requester(pkgDir, "left-pad", "~1"), "left-pad")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if exports != "1.0.0" {
		t.Fatalf("expected left-pad 1.0.0, got %v", exports)
	}
	if n := sourceCalls.Load(); n != 1 {
		t.Fatalf("expected the comparator source to run once, got %d", n)
	}
	want := []load{
		{version: "1.4.0", bootstrapping: true},
		{version: "1.0.0", bootstrapping: false},
	}
	if !reflect.DeepEqual(loads, want) {
		t.Fatalf("unexpected loads: %+v", loads)
	}
	if got := testutil.ToFloat64(r.metrics.bootstrapTotal); got != 1 {
		t.Fatalf("expected 1 bootstrap resolution, got %v", got)
	}
}

func TestDefaultResolver_BootstrapComparatorOnlyForComparatorPackage(t *testing.T) {
	fs, home := selfHostedTree(t)
	var sourceCalls atomic.Int32
	r := NewDefault(Options{
		Fs: fs,
		Comparator: func(context.Context) (semver.Comparator, error) {
			sourceCalls.Add(1)
			return semver.Library{}, nil
		},
	})
	ctx := withBootstrapping(context.Background())

	res, err := r.Plan(ctx, home, "semver")
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if res.Comparator != semver.KindBootstrap || res.Version != "1.4.0" {
		t.Fatalf("expected bootstrap selection of 1.4.0, got %s via %s", res.Version, res.Comparator)
	}
	if n := sourceCalls.Load(); n != 0 {
		t.Fatalf("expected no comparator load while bootstrapping, got %d", n)
	}

	res, err = r.Plan(ctx, requester(pkgDir, "left-pad", ""), "left-pad")
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if res.Comparator != semver.KindLibrary {
		t.Fatalf("expected library comparator for other packages, got %s", res.Comparator)
	}
}

func TestDefaultResolver_ConcurrentResolutionsDoNotShareBootstrapState(t *testing.T) {
	fs, home := selfHostedTree(t)
	loader := LoaderFunc(func(_ context.Context, dir, version string) (Exports, error) {
		if filepath.Base(dir) == "semver" {
			return semver.Library{}, nil
		}
		return version, nil
	})
	r := NewDefault(Options{Fs: fs, Loader: loader})
	r.UseResolvedComparator(home)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pkg, m := "left-pad", requester(pkgDir, "left-pad", "~2")
			if i%2 == 0 {
				// The comparator package itself, resolved at top level.
				pkg, m = "semver", requester("/tree/node_modules/semver", "semver", "~2")
			}
			res, err := r.Plan(context.Background(), m, pkg)
			if err != nil {
				errs <- err
				return
			}
			if res.Comparator != semver.KindLibrary {
				errs <- errors.New("top-level resolution used " + res.Comparator)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestMetrics_Outcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := NewDefault(Options{Fs: newFs(t, "1.0.0"), Metrics: m})
	ctx := context.Background()

	if _, err := r.Plan(ctx, requester(pkgDir, "left-pad", "~1"), "left-pad"); err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	_, _ = r.Plan(ctx, requester(pkgDir, "left-pad", "~3"), "left-pad")
	_, _ = r.Plan(ctx, requester("/nowhere", "left-pad", ""), "left-pad")

	for outcome, want := range map[string]float64{
		OutcomeResolved:      1,
		OutcomeUnsatisfiable: 1,
		OutcomeNoVersions:    1,
		OutcomeError:         0,
	} {
		if got := testutil.ToFloat64(m.resolutionsTotal.WithLabelValues(outcome)); got != want {
			t.Errorf("outcome %s: got %v, want %v", outcome, got, want)
		}
	}
}

func TestDefaultResolver_NilMetricsAndRequester(t *testing.T) {
	r := NewDefault(Options{Fs: newFs(t, "1.0.0")})
	if _, err := r.Plan(context.Background(), nil, "left-pad"); err == nil {
		t.Fatalf("expected error for nil requester")
	}
}

func TestVersions_FollowsLinksAndSkipsDangling(t *testing.T) {
	dir := t.TempDir()
	for _, v := range []string{"1.0.0", "real"} {
		if err := os.Mkdir(filepath.Join(dir, v), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "1.5.0")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(dir, "gone"), filepath.Join(dir, "2.0.0")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "1.9.0"), []byte("file"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Versions(context.Background(), afero.NewOsFs(), dir, semver.Library{})
	if err != nil {
		t.Fatalf("Versions error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"1.0.0", "1.5.0"}) {
		t.Fatalf("expected [1.0.0 1.5.0], got %v", got)
	}
}

func TestDefaultResolver_ConstraintsOnly(t *testing.T) {
	r := NewDefault(Options{Tables: []string{metadata.TableDevDependencies}})
	m := &fakeModule{id: "/x/index.js", deps: map[string]string{"a": "~1"}, dev: map[string]string{"a": "~2"}}

	got, err := r.Constraints(context.Background(), m, "a")
	if err != nil {
		t.Fatalf("Constraints error: %v", err)
	}
	if Combine(got) != "~2" {
		t.Fatalf("expected only the devDependencies constraint, got %+v", got)
	}
}
