package metadata

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// DefaultManifestFiles are tried in order; the first one present wins.
var DefaultManifestFiles = []string{
	"package.json",
	"package.yaml",
	"package.yml",
	"package.toml",
	"package.cue",
}

// Supported reports whether name has an extension Decode understands.
func Supported(name string) bool {
	switch filepath.Ext(name) {
	case ".json", ".yaml", ".yml", ".toml", ".cue":
		return true
	}
	return false
}

// Decode parses a manifest, choosing the format from the file extension.
func Decode(name string, data []byte) (*PackageMetadata, error) {
	doc := map[string]any{}
	switch ext := filepath.Ext(name); ext {
	case ".json", ".yaml", ".yml":
		// JSON is a subset of YAML; sigs.k8s.io/yaml handles both.
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("metadata: decode %s: %w", name, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("metadata: decode %s: %w", name, err)
		}
	case ".cue":
		v := cuecontext.New().CompileBytes(data, cue.Filename(name))
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("metadata: compile %s: %w", name, err)
		}
		if err := v.Decode(&doc); err != nil {
			return nil, fmt.Errorf("metadata: decode %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("metadata: unsupported manifest format %q", ext)
	}
	md := FromDocument(doc)
	md.Source = name
	return md, nil
}

// Load reads the first manifest from names that exists in dir.
// A nil or empty names uses DefaultManifestFiles.
func Load(ctx context.Context, fsys afero.Fs, dir string, names []string) (*PackageMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = DefaultManifestFiles
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("metadata: read %s: %w", path, err)
		}
		return Decode(path, data)
	}
	return nil, &NoManifestError{Dir: dir, Tried: names}
}
