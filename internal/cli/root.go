// Package cli implements the vrequire command line.
package cli

import (
	goflag "flag"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/anvil-platform/vrequire/internal/config"
	"github.com/anvil-platform/vrequire/internal/loader"
	"github.com/anvil-platform/vrequire/internal/module"
	"github.com/anvil-platform/vrequire/internal/resolver"
)

// app is the state shared by all commands of one invocation.
type app struct {
	fs afero.Fs

	configFile     string
	outputFormat   string
	comparatorHome string
	zapOpts        zap.Options

	cfg      *config.Config
	registry *prometheus.Registry
	metrics  *resolver.Metrics
	logger   logr.Logger
}

// Option configures the root command.
type Option func(*app)

// WithFs makes every command read modules, manifests and config from fs.
func WithFs(fs afero.Fs) Option {
	return func(a *app) { a.fs = fs }
}

// NewRootCmd creates the root command.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{
		fs:      afero.NewOsFs(),
		zapOpts: zap.Options{Development: true},
	}
	for _, opt := range opts {
		opt(a)
	}

	rootCmd := &cobra.Command{
		Use:   "vrequire",
		Short: "Resolve side-by-side installed package versions",
		Long: `vrequire picks which installed version of a package a module receives.
Versions live in version-named directories next to the requesting module;
constraints come from the manifests of the module and every module above it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initialize(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.writeMetrics()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Path to config file (default: ./vrequire.yaml or $XDG_CONFIG_HOME/vrequire/vrequire.yaml)")
	flags.StringVarP(&a.outputFormat, "output", "o", FormatText, "Output format: text, yaml, json")
	flags.String("comparator-package", "", "Package backed by the bootstrap comparator while it loads (env: VREQUIRE_COMPARATOR_PACKAGE)")
	flags.StringSlice("table", nil, "Manifest tables read for constraints (env: VREQUIRE_DEPENDENCY_TABLES)")
	flags.StringSlice("manifest", nil, "Manifest file names tried next to each module (env: VREQUIRE_MANIFEST_FILES)")
	flags.String("metrics-textfile", "", "Write resolver metrics to this file (env: VREQUIRE_METRICS_TEXTFILE)")
	flags.StringVar(&a.comparatorHome, "comparator-from", "", "Resolve and load the comparator package on behalf of this module file instead of using the built-in comparator")

	zapFlags := goflag.NewFlagSet("zap", goflag.ContinueOnError)
	a.zapOpts.BindFlags(zapFlags)
	flags.AddGoFlagSet(zapFlags)

	rootCmd.AddCommand(
		a.newResolveCmd(),
		a.newVersionsCmd(),
		a.newConstraintsCmd(),
		a.newCheckCmd(),
	)
	return rootCmd
}

// initialize sets up logging and loads configuration.
func (a *app) initialize(cmd *cobra.Command) error {
	a.logger = zap.New(zap.UseFlagOptions(&a.zapOpts), zap.WriteTo(cmd.ErrOrStderr()))
	log.SetLogger(a.logger)
	cmd.SetContext(logr.NewContext(cmd.Context(), a.logger))

	switch a.outputFormat {
	case FormatText, FormatYAML, FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q", a.outputFormat)
	}

	cfgLoader := config.NewLoader(config.WithFs(a.fs))
	if err := bindConfigFlags(cfgLoader.Viper(), cmd.Flags()); err != nil {
		return err
	}
	cfg, err := cfgLoader.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger.V(1).Info("loaded config",
		"file", cfgLoader.Used(),
		"comparatorPackage", cfg.ComparatorPackage,
		"tables", cfg.DependencyTables,
		"manifests", cfg.ManifestFiles,
	)

	a.registry = prometheus.NewRegistry()
	a.metrics = resolver.NewMetrics(a.registry)
	return nil
}

// configFlags maps config keys to the persistent flags that override them.
var configFlags = map[string]string{
	config.KeyComparatorPackage: "comparator-package",
	config.KeyDependencyTables:  "table",
	config.KeyManifestFiles:     "manifest",
	config.KeyMetricsTextfile:   "metrics-textfile",
}

func bindConfigFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range configFlags {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

func (a *app) writeMetrics() error {
	if a.cfg == nil || a.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.cfg.Metrics.Textfile, a.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// newResolver builds a resolver from the loaded configuration.
func (a *app) newResolver() *resolver.DefaultResolver {
	r := resolver.NewDefault(resolver.Options{
		Fs:                a.fs,
		Loader:            loader.NewInterpreter(a.fs),
		ComparatorPackage: a.cfg.ComparatorPackage,
		Tables:            a.cfg.DependencyTables,
		Metrics:           a.metrics,
	})
	if a.comparatorHome != "" {
		r.UseResolvedComparator(a.module(a.comparatorHome))
	}
	return r
}

// chain builds the requester chain from --from values, nearest first.
func (a *app) chain(ids []string) *module.File {
	return module.Chain(ids, a.moduleOptions()...)
}

func (a *app) module(id string) *module.File {
	return module.New(id, a.moduleOptions()...)
}

func (a *app) moduleOptions() []module.Option {
	return []module.Option{
		module.WithFs(a.fs),
		module.WithManifestFiles(a.cfg.ManifestFiles),
	}
}
