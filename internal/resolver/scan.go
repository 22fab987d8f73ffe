package resolver

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/anvil-platform/vrequire/internal/semver"
)

// scan lists the installed versions in dir: entries whose name passes
// cmp.Valid and which stat (following links) as directories. Dangling
// entries are skipped. An empty result is a NoVersionsFoundError.
func scan(ctx context.Context, fs afero.Fs, dir, packageID string, cmp semver.Comparator) (sets.Set[string], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, &NoVersionsFoundError{PackageID: packageID, Path: dir}
		}
		return nil, fmt.Errorf("list versions of %q in %s: %w", packageID, dir, err)
	}

	versions := sets.New[string]()
	for _, entry := range entries {
		name := entry.Name()
		if !cmp.Valid(name) {
			continue
		}
		info, err := fs.Stat(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat version %q of %q: %w", name, packageID, err)
		}
		if info.IsDir() {
			versions.Insert(name)
		}
	}

	if versions.Len() == 0 {
		return nil, &NoVersionsFoundError{PackageID: packageID, Path: dir}
	}
	return versions, nil
}
