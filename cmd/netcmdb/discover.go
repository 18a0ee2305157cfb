package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netcmdb/netcmdb/internal/config"
	"github.com/netcmdb/netcmdb/internal/discovery"
	"github.com/netcmdb/netcmdb/internal/interfaces"
	"github.com/netcmdb/netcmdb/internal/store"
)

// recordSaver is implemented by the stores that can persist an export
type recordSaver interface {
	Save(ctx context.Context, records []interfaces.RelationshipRecord) error
}

func newDiscoverCommand(opts *rootOptions) *cobra.Command {
	var region, endpoint, out string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover EC2 network relationships and save them",
		Long: `Reads subnets, VPC endpoints and transit gateway attachments from EC2 and
writes the resulting relationship records to --out, or to the configured
file, s3 or dynamodb source.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if region == "" {
				region = opts.cfg.Source.EC2.Region
			}
			if endpoint == "" {
				endpoint = opts.cfg.Source.EC2.Endpoint
			}

			discoverer, err := discovery.NewEC2Discoverer(ctx, discovery.EC2Config{Region: region, Endpoint: endpoint})
			if err != nil {
				return err
			}
			records, err := discoverer.Discover(ctx)
			if err != nil {
				return err
			}

			saver, location, err := discoveryTarget(ctx, opts.cfg, out)
			if err != nil {
				return err
			}
			if err := saver.Save(ctx, records); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved %d relationships to %s\n", len(records), location)
			return err
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "AWS region to discover (default: configured EC2 region)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "EC2 endpoint override, e.g. LocalStack")
	cmd.Flags().StringVar(&out, "out", "", "Write the export to this JSON or YAML file")
	return cmd
}

// discoveryTarget picks where discovered records go. DynamoDB tables are
// created on first use.
func discoveryTarget(ctx context.Context, cfg *config.AnalysisConfig, out string) (recordSaver, string, error) {
	if out != "" {
		return store.NewFileStore(out), out, nil
	}

	switch cfg.Source.Type {
	case config.SourceTypeMemory, config.SourceTypeEC2:
		return nil, "", fmt.Errorf("source %q cannot store relationships, use --out", cfg.Source.Type)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("configuration validation failed: %w", err)
	}

	rs, err := store.New(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	if table, ok := rs.(*store.DynamoDBStore); ok {
		if err := table.EnsureTable(ctx); err != nil {
			return nil, "", err
		}
	}

	saver, ok := rs.(recordSaver)
	if !ok {
		return nil, "", fmt.Errorf("source %q cannot store relationships, use --out", cfg.Source.Type)
	}
	return saver, cfg.Source.Type, nil
}
