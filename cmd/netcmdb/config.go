package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/netcmdb/netcmdb/internal/config"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage netcmdb configuration",
		Long:  "View and validate the analysis configuration resolved from defaults, environment, config file and flags",
	}

	cmd.AddCommand(
		newConfigShowCommand(opts),
		newConfigValidateCommand(opts),
	)

	return cmd
}

func newConfigShowCommand(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), opts.cfg)
			case "table":
				return displayConfigTable(cmd.OutOrStdout(), opts.cfg)
			default:
				return fmt.Errorf("unknown format: %s. Supported formats: table, json", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format (table, json)")

	return cmd
}

func newConfigValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
			return err
		},
	}
}

// displayConfigTable prints the sanitized settings
func displayConfigTable(out io.Writer, cfg *config.AnalysisConfig) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "SETTING\tVALUE") // Ignore error - output formatting
	_, _ = fmt.Fprintln(w, "-------\t-----") // Ignore error - output formatting

	sanitized := cfg.GetSanitized()
	keys := make([]string, 0, len(sanitized))
	for k := range sanitized {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s\t%v\n", k, sanitized[k]) // Ignore error - output formatting
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write config table: %w", err)
	}

	_, _ = fmt.Fprintln(out, "\nEnvironment Variables:") // Ignore error - output formatting
	for _, name := range []string{
		config.EnvSource, config.EnvFilePath, config.EnvMaxPropagationDepth, config.EnvConfidenceThreshold,
		config.EnvMaxPathDepth, config.EnvMaxCycleDepth, config.EnvWorkers, config.EnvTimeout,
		config.EnvIncludeInactive, config.EnvS3Bucket, config.EnvS3Key, config.EnvS3Region, config.EnvS3Endpoint,
		config.EnvDynamoDBTable, config.EnvDynamoDBRegion, config.EnvDynamoDBEndpoint,
		config.EnvEC2Region, config.EnvEC2Endpoint,
	} {
		_, _ = fmt.Fprintf(out, "  %s\n", name) // Ignore error - output formatting
	}
	return nil
}
