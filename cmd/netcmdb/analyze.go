package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/netcmdb/netcmdb/internal/config"
	"github.com/netcmdb/netcmdb/internal/dependency"
	"github.com/netcmdb/netcmdb/internal/impact"
	"github.com/netcmdb/netcmdb/internal/interfaces"
)

func newGraphCommand(opts *rootOptions) *cobra.Command {
	var dot bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Build the dependency graph and report its metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.newService(cmd.Context())
			if err != nil {
				return err
			}
			report, err := svc.Report(cmd.Context())
			if err != nil {
				return err
			}
			if dot {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), dependency.ExportGraphViz(report.Graph))
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().BoolVar(&dot, "dot", false, "Print the graph in GraphViz format instead of metrics")
	return cmd
}

func newCyclesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cycles",
		Short: "List dependency cycles with suggested edges to break",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.newService(cmd.Context())
			if err != nil {
				return err
			}
			cycles, err := svc.Cycles(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cycles)
		},
	}
}

func newPathsCommand(opts *rootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "paths",
		Short: "List dependency paths",
		Long: `Without --to, lists paths between critical resources, optionally only those
involving --from. With --from and --to, lists every path from one resource
to the other.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if to != "" && from == "" {
				return fmt.Errorf("--to requires --from")
			}
			svc, err := opts.newService(cmd.Context())
			if err != nil {
				return err
			}

			if to != "" {
				src, err := interfaces.ParseResourceRef(from)
				if err != nil {
					return err
				}
				dst, err := interfaces.ParseResourceRef(to)
				if err != nil {
					return err
				}
				paths, err := svc.Paths(cmd.Context(), src, dst)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), paths)
			}

			var fromRef *interfaces.ResourceRef
			if from != "" {
				ref, err := interfaces.ParseResourceRef(from)
				if err != nil {
					return err
				}
				fromRef = &ref
			}
			paths, err := svc.CriticalPaths(cmd.Context(), fromRef)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), paths)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source resource (provider:type:id)")
	cmd.Flags().StringVar(&to, "to", "", "Target resource (provider:type:id)")
	return cmd
}

// simulationFlags are shared by simulate and compare
type simulationFlags struct {
	scenario string
	options  map[string]string
}

func (f *simulationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.scenario, "scenario", "s", string(impact.ScenarioResourceFailure),
		"Scenario (resource_failure, resource_change, security_breach, performance_degradation)")
	cmd.Flags().StringToStringVarP(&f.options, "option", "o", nil,
		"Simulation option override, e.g. -o max_propagation_depth=3 -o confidence_threshold=0.8")
}

func (f *simulationFlags) parse() (impact.ScenarioType, config.SimulationOverrides, error) {
	scenarioType, err := impact.ParseScenarioType(f.scenario)
	if err != nil {
		return "", config.SimulationOverrides{}, err
	}

	raw := make(map[string]interface{}, len(f.options))
	for k, v := range f.options {
		raw[k] = v
	}
	overrides, err := config.DecodeOptions(raw)
	if err != nil {
		return "", config.SimulationOverrides{}, err
	}
	return scenarioType, overrides, nil
}

func newSimulateCommand(opts *rootOptions) *cobra.Command {
	flags := &simulationFlags{}

	cmd := &cobra.Command{
		Use:   "simulate <provider:type:id>",
		Short: "Simulate an impact scenario for one resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := interfaces.ParseResourceRef(args[0])
			if err != nil {
				return err
			}
			scenarioType, overrides, err := flags.parse()
			if err != nil {
				return err
			}

			svc, err := opts.newService(cmd.Context())
			if err != nil {
				return err
			}
			scenario, err := svc.Simulate(cmd.Context(), source, scenarioType, overrides)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), scenario)
		},
	}

	flags.register(cmd)
	return cmd
}

func newCompareCommand(opts *rootOptions) *cobra.Command {
	flags := &simulationFlags{}

	cmd := &cobra.Command{
		Use:   "compare <provider:type:id>...",
		Short: "Simulate one scenario for several resources and compare the outcomes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := make([]interfaces.ResourceRef, 0, len(args))
			for _, arg := range args {
				ref, err := interfaces.ParseResourceRef(arg)
				if err != nil {
					return err
				}
				sources = append(sources, ref)
			}
			scenarioType, overrides, err := flags.parse()
			if err != nil {
				return err
			}

			svc, err := opts.newService(cmd.Context())
			if err != nil {
				return err
			}
			report, err := svc.Compare(cmd.Context(), sources, scenarioType, overrides)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	flags.register(cmd)
	return cmd
}

func newCrossCloudCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "crosscloud",
		Short: "Report relationships that cross provider boundaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.newService(cmd.Context())
			if err != nil {
				return err
			}
			report, err := svc.CrossCloud(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newTypesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "Summarise each resource type and its worst single failure",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.newService(cmd.Context())
			if err != nil {
				return err
			}
			reports, err := svc.TypeAnalysis(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), reports)
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
