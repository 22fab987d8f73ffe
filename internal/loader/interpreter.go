// Package loader turns a selected version directory into exports by
// interpreting the Go sources installed there with yaegi.
package loader

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/anvil-platform/vrequire/internal/resolver"
)

// DefaultEntrypoint is the symbol evaluated after the sources are loaded.
const DefaultEntrypoint = "Exports"

// ErrNoSources is returned when a version directory holds no .go files.
var ErrNoSources = errors.New("no Go sources in version directory")

// Interpreter loads a version by evaluating every .go file in it as
// package main and reading the entrypoint symbol. The entrypoint may be a
// variable or a function returning (any) or (any, error).
//
// Each Load gets a fresh interpreter, so versions never share state.
type Interpreter struct {
	fs         afero.Fs
	entrypoint string
}

var _ resolver.Loader = (*Interpreter)(nil)

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithEntrypoint overrides DefaultEntrypoint.
func WithEntrypoint(name string) Option {
	return func(l *Interpreter) { l.entrypoint = name }
}

func NewInterpreter(fs afero.Fs, opts ...Option) *Interpreter {
	l := &Interpreter{fs: fs, entrypoint: DefaultEntrypoint}
	if l.fs == nil {
		l.fs = afero.NewOsFs()
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Interpreter) Load(ctx context.Context, dir, version string) (resolver.Exports, error) {
	root := filepath.Join(dir, version)
	logger := logr.FromContextOrDiscard(ctx).WithValues("path", root)

	sources, err := l.sources(root)
	if err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loader: stdlib symbols: %w", err)
	}
	for _, path := range sources {
		code, err := afero.ReadFile(l.fs, path)
		if err != nil {
			return nil, fmt.Errorf("loader: read %s: %w", path, err)
		}
		if len(strings.TrimSpace(string(code))) == 0 {
			return nil, fmt.Errorf("loader: %s is empty", path)
		}
		if _, err := i.EvalWithContext(ctx, string(code)); err != nil {
			return nil, fmt.Errorf("loader: interpret %s: %w", path, err)
		}
	}
	logger.V(1).Info("interpreted module", "files", len(sources))

	value, err := i.EvalWithContext(ctx, l.entrypoint)
	if err != nil {
		return nil, fmt.Errorf("loader: %s must define %s: %w", root, l.entrypoint, err)
	}
	exports, err := l.invoke(value)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", root, err)
	}
	return exports, nil
}

// sources lists the .go files directly under root, excluding tests, sorted.
func (l *Interpreter) sources(root string) ([]string, error) {
	entries, err := afero.ReadDir(l.fs, root)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("loader: %s: %w", root, ErrNoSources)
		}
		return nil, fmt.Errorf("loader: read %s: %w", root, err)
	}
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
			continue
		}
		paths = append(paths, filepath.Join(root, name))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("loader: %s: %w", root, ErrNoSources)
	}
	sort.Strings(paths)
	return paths, nil
}

func (l *Interpreter) invoke(value reflect.Value) (any, error) {
	if !value.IsValid() {
		return nil, fmt.Errorf("missing %s", l.entrypoint)
	}
	if value.Kind() != reflect.Func {
		return value.Interface(), nil
	}
	if value.Type().NumIn() != 0 {
		return nil, fmt.Errorf("%s must take no arguments", l.entrypoint)
	}
	results := value.Call(nil)
	switch len(results) {
	case 1:
		return results[0].Interface(), nil
	case 2:
		if errVal := results[1]; !errVal.IsNil() {
			if e, ok := errVal.Interface().(error); ok {
				return nil, e
			}
			return nil, fmt.Errorf("%s returned non-error second value", l.entrypoint)
		}
		return results[0].Interface(), nil
	default:
		return nil, fmt.Errorf("%s must return (any[, error])", l.entrypoint)
	}
}
