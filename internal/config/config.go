// Package config loads vrequire settings from defaults, an optional config
// file and VREQUIRE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/anvil-platform/vrequire/internal/metadata"
	"github.com/anvil-platform/vrequire/internal/resolver"
)

// Environment variable prefix; "metrics.textfile" is read from
// VREQUIRE_METRICS_TEXTFILE.
const envPrefix = "VREQUIRE"

// FileName is the config file base name searched for when no explicit file
// is given. Any extension viper understands is accepted.
const FileName = "vrequire"

// Keys.
const (
	KeyComparatorPackage = "comparator_package"
	KeyDependencyTables  = "dependency_tables"
	KeyManifestFiles     = "manifest_files"
	KeyMetricsTextfile   = "metrics.textfile"
)

type Config struct {
	// ComparatorPackage is the package whose resolution falls back to the
	// bootstrap comparator.
	ComparatorPackage string `mapstructure:"comparator_package"`
	// DependencyTables are the manifest tables read for constraints, in
	// order.
	DependencyTables []string `mapstructure:"dependency_tables"`
	// ManifestFiles are tried in order next to each module file.
	ManifestFiles []string `mapstructure:"manifest_files"`
	Metrics       Metrics  `mapstructure:"metrics"`
}

type Metrics struct {
	// Textfile, when set, receives the resolver metrics in the Prometheus
	// text format after each command.
	Textfile string `mapstructure:"textfile"`
}

// Validate reports settings that would make every resolution fail.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ComparatorPackage) == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyComparatorPackage))
	}
	if len(c.DependencyTables) == 0 {
		errs = append(errs, fmt.Errorf("%s must list at least one table", KeyDependencyTables))
	}
	if len(c.ManifestFiles) == 0 {
		errs = append(errs, fmt.Errorf("%s must list at least one file", KeyManifestFiles))
	}
	for _, name := range c.ManifestFiles {
		if !metadata.Supported(name) {
			errs = append(errs, fmt.Errorf("%s: unsupported manifest format %q", KeyManifestFiles, name))
		}
	}
	return errors.Join(errs...)
}

// Loader handles loading and merging configuration from multiple sources.
type Loader struct {
	v           *viper.Viper
	searchPaths []string
}

// Option configures a Loader.
type Option func(*Loader)

// WithFs makes the loader read config files from fs.
func WithFs(fs afero.Fs) Option {
	return func(l *Loader) { l.v.SetFs(fs) }
}

// WithSearchPaths replaces the directories searched for FileName.
func WithSearchPaths(paths ...string) Option {
	return func(l *Loader) { l.searchPaths = paths }
}

func NewLoader(opts ...Option) *Loader {
	v := viper.New()
	v.SetDefault(KeyComparatorPackage, resolver.DefaultComparatorPackage)
	v.SetDefault(KeyDependencyTables, metadata.DefaultTables)
	v.SetDefault(KeyManifestFiles, metadata.DefaultManifestFiles)
	v.SetDefault(KeyMetricsTextfile, "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	l := &Loader{v: v, searchPaths: DefaultSearchPaths()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Viper exposes the underlying instance so commands can bind flags to keys.
func (l *Loader) Viper() *viper.Viper { return l.v }

// Load reads configFile, or searches for FileName when configFile is empty.
// A missing searched-for file is not an error; a missing explicit one is.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(FileName)
		for _, p := range l.searchPaths {
			l.v.AddConfigPath(p)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Used returns the config file that was read, or "" if none was.
func (l *Loader) Used() string { return l.v.ConfigFileUsed() }

// DefaultSearchPaths are the working directory and the user config
// directory ($XDG_CONFIG_HOME/vrequire on Linux).
func DefaultSearchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "vrequire"))
	}
	return paths
}
