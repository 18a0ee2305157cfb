package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/netcmdb/netcmdb/internal/analysis"
	"github.com/netcmdb/netcmdb/internal/config"
	"github.com/netcmdb/netcmdb/internal/metrics"
	"github.com/netcmdb/netcmdb/internal/store"
	"github.com/netcmdb/netcmdb/internal/telemetry"
)

var (
	version = "dev"     //nolint:gochecknoglobals // Build-time version info
	commit  = "none"    //nolint:gochecknoglobals // Build-time commit info
	date    = "unknown" //nolint:gochecknoglobals // Build-time date info
)

// rootOptions holds the persistent flags and the config they resolve to
type rootOptions struct {
	configFile      string
	source          string
	filePath        string
	includeInactive bool
	workers         int
	timeout         time.Duration
	trace           bool

	cfg      *config.AnalysisConfig
	shutdown func(context.Context) error
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "netcmdb",
		Short: "Dependency graph and impact analysis for cloud network resources",
		Long: `netcmdb builds a dependency graph from relationship records and answers
questions about it: cycles, paths between resources, and what breaks when a
resource fails, changes, is breached or degrades.

Records are read from a JSON/YAML file, an S3 object, a DynamoDB table, or
discovered live from EC2.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.shutdown == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			return opts.shutdown(ctx)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "YAML or JSON config file")
	flags.StringVar(&opts.source, "source", "", "Relationship source (file, s3, dynamodb, ec2, memory)")
	flags.StringVarP(&opts.filePath, "file", "f", "", "Relationship export for the file source")
	flags.BoolVar(&opts.includeInactive, "include-inactive", false, "Include inactive relationships")
	flags.IntVar(&opts.workers, "workers", 0, "Fan-out workers for batch analyses")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Timeout for a single analysis")
	flags.BoolVar(&opts.trace, "trace", false, "Print OpenTelemetry spans to stderr")

	rootCmd.AddCommand(
		newGraphCommand(opts),
		newCyclesCommand(opts),
		newPathsCommand(opts),
		newSimulateCommand(opts),
		newCompareCommand(opts),
		newCrossCloudCommand(opts),
		newTypesCommand(opts),
		newDiscoverCommand(opts),
		newConfigCommand(opts),
	)

	return rootCmd
}

// resolve layers defaults, environment, config file and flags, in that order
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	cfg := config.NewAnalysisConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}
	if o.configFile != "" {
		if err := cfg.LoadFile(o.configFile); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source.Type = o.source
	}
	if flags.Changed("file") {
		cfg.Source.Type = config.SourceTypeFile
		cfg.Source.File.Path = o.filePath
	}
	if flags.Changed("include-inactive") {
		cfg.IncludeInactive = o.includeInactive
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.timeout
	}

	if err := cfg.ExpandPaths(); err != nil {
		return fmt.Errorf("failed to expand paths: %w", err)
	}
	o.cfg = cfg

	if o.trace {
		shutdown, err := telemetry.Init(cmd.Context(), telemetry.Options{
			ServiceVersion: version,
			Writer:         cmd.ErrOrStderr(),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		o.shutdown = shutdown
	}
	return nil
}

// newService validates the resolved config and wires the configured store
// into an analysis service
func (o *rootOptions) newService(ctx context.Context) (*analysis.Service, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	rs, err := store.New(ctx, o.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open relationship source: %w", err)
	}
	return analysis.NewService(rs, o.cfg, metrics.NewCollector())
}
