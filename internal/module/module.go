// Package module provides a file-backed module handle: a module file on
// disk, the module that loaded it, and access to the manifest that sits next
// to it.
package module

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/anvil-platform/vrequire/internal/metadata"
	"github.com/anvil-platform/vrequire/internal/resolver"
)

// File is a module identified by the path of its file.
type File struct {
	id            string
	parent        *File
	fs            afero.Fs
	manifestFiles []string
}

var _ resolver.Module = (*File)(nil)

// Option configures a File.
type Option func(*File)

// WithFs sets the filesystem manifests are read from. The default is the
// operating system filesystem.
func WithFs(fs afero.Fs) Option {
	return func(f *File) { f.fs = fs }
}

// WithManifestFiles sets the manifest names tried, in order.
func WithManifestFiles(names []string) Option {
	return func(f *File) { f.manifestFiles = names }
}

// New returns a root module (no parent) for the file at id.
func New(id string, opts ...Option) *File {
	f := &File{id: filepath.Clean(id), fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Require returns a module for the file at id whose parent is f. The child
// inherits f's filesystem and manifest settings.
func (f *File) Require(id string) *File {
	return &File{
		id:            filepath.Clean(id),
		parent:        f,
		fs:            f.fs,
		manifestFiles: f.manifestFiles,
	}
}

// Chain builds a module chain from ids, nearest requester first: ids[0] is
// returned and its parent is ids[1], and so on. Chain returns nil for no ids.
func Chain(ids []string, opts ...Option) *File {
	if len(ids) == 0 {
		return nil
	}
	m := New(ids[len(ids)-1], opts...)
	for i := len(ids) - 2; i >= 0; i-- {
		m = m.Require(ids[i])
	}
	return m
}

func (f *File) ID() string { return f.id }

// Parent returns the module that loaded f, or nil at the root. The nil is
// untyped so callers can compare against nil.
func (f *File) Parent() resolver.Module {
	if f.parent == nil {
		return nil
	}
	return f.parent
}

// Dir is the directory holding the module file.
func (f *File) Dir() string { return filepath.Dir(f.id) }

// Metadata reads the manifest next to the module file. It is read fresh on
// every call.
func (f *File) Metadata(ctx context.Context) (*metadata.PackageMetadata, error) {
	return metadata.Load(ctx, f.fs, f.Dir(), f.manifestFiles)
}
