package resolver

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/anvil-platform/vrequire/internal/graph"
	"github.com/anvil-platform/vrequire/internal/semver"
)

// sortCandidates lists candidates in ascending version order. Names are
// listed lexically first so versions that compare equal keep a stable,
// lexical order.
func sortCandidates(candidates sets.Set[string], cmp semver.Comparator) []string {
	sorted := sets.List(candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return cmp.Compare(sorted[i], sorted[j]) < 0
	})
	return sorted
}

// selectVersion tries sorted candidates from the highest down and returns
// the first that satisfies every expression in exprs. Among versions that
// compare equal the lexically greater name is tried first. combined is only
// used to describe the failure.
func selectVersion(packageID string, sorted, exprs []string, combined string, cmp semver.Comparator) (string, []graph.CandidateNode, error) {
	nodes := make([]graph.CandidateNode, len(sorted))
	for i, v := range sorted {
		nodes[i] = graph.CandidateNode{Version: v}
	}

	for i := len(sorted) - 1; i >= 0; i-- {
		nodes[i].Considered = true
		if semver.SatisfiesAll(cmp, sorted[i], exprs) {
			nodes[i].Satisfies = true
			return sorted[i], nodes, nil
		}
	}

	return "", nodes, &UnsatisfiableError{
		PackageID:  packageID,
		Constraint: combined,
		Available:  append([]string(nil), sorted...),
	}
}

// Versions lists the installed versions in dir in ascending order, as the
// selector would see them.
func Versions(ctx context.Context, fs afero.Fs, dir string, cmp semver.Comparator) ([]string, error) {
	candidates, err := scan(ctx, fs, dir, filepath.Base(dir), cmp)
	if err != nil {
		return nil, err
	}
	return sortCandidates(candidates, cmp), nil
}
