package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/macropower/reap/api"
	"github.com/macropower/reap/pkg/config"
	"github.com/macropower/reap/pkg/log"
	"github.com/macropower/reap/pkg/metrics"
	"github.com/macropower/reap/pkg/task"
	"github.com/macropower/reap/pkg/torrent"
)

const (
	runExamples = `  # Apply every strategy to a snapshot exported by the client:
  reap run --snapshot torrents.yaml

  # Read the snapshot from stdin and only apply one strategy:
  qbt-export | reap run --snapshot - --strategy seeded

  # Print JSON and write Prometheus metrics for the textfile collector:
  reap run --snapshot torrents.json --output json --metrics-file /var/lib/node_exporter/reap.prom

  # Re-evaluate whenever the snapshot or configuration changes:
  reap run --snapshot torrents.yaml --watch`

	watchDebounce = 250 * time.Millisecond
)

type RunArgs struct {
	*RootArgs

	SnapshotPath string
	Output       string
	MetricsFile  string
	Strategies   []string
	Watch        bool
}

func NewRunArgs(rootArgs *RootArgs) *RunArgs {
	return &RunArgs{
		RootArgs: rootArgs,
	}
}

func (ra *RunArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&ra.SnapshotPath, "snapshot", "s", "", `Snapshot file (YAML or JSON), or "-" for stdin`)
	cmd.Flags().StringSliceVar(&ra.Strategies, "strategy", nil, "Only apply the named strategies (repeatable)")
	cmd.Flags().StringVarP(&ra.Output, "output", "o", string(OutputAuto),
		fmt.Sprintf("Output format, one of: %s", AllOutputFormats))
	cmd.Flags().StringVar(&ra.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after each run")
	cmd.Flags().BoolVarP(&ra.Watch, "watch", "w", false, "Watch the snapshot and configuration and re-evaluate on change")

	err := cmd.MarkFlagFilename("snapshot", "yaml", "yml", "json")
	if err != nil {
		panic(fmt.Errorf("mark snapshot flag: %w", err))
	}

	err = cmd.RegisterFlagCompletionFunc("output",
		cobra.FixedCompletions(AllOutputFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("strategy", strategyCompletion(ra.RootArgs))
	if err != nil {
		panic(err)
	}
}

func NewRunCmd(ra *RunArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Apply the configured strategies to a snapshot",
		Example: runExamples,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, ra)
		},
	}
	ra.AddFlags(cmd)

	return cmd
}

// strategyCompletion completes strategy names from the configuration.
func strategyCompletion(ra *RootArgs) cobra.CompletionFunc {
	return func(_ *cobra.Command, _ []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
		path, err := ra.configPath()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		cfg, err := config.LoadConfiguration(path)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		completions := make([]cobra.Completion, 0, len(cfg.Strategies))
		for _, s := range cfg.Strategies {
			desc := s.Remove
			if s.HNR != nil {
				desc = "hnr: " + s.HNR.Host
			}

			completions = append(completions, cobra.CompletionWithDesc(s.Name, desc))
		}

		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

func run(cmd *cobra.Command, ra *RunArgs) error {
	if ra.SnapshotPath == "" {
		return fmt.Errorf("%w: --snapshot is required", ErrInvalidArgs)
	}

	if ra.Watch && ra.SnapshotPath == "-" {
		return fmt.Errorf("%w: cannot watch stdin", ErrInvalidArgs)
	}

	format, err := GetOutputFormat(ra.Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	configPath, err := ra.configPath()
	if err != nil {
		return err
	}

	var reg *prometheus.Registry
	if ra.MetricsFile != "" {
		reg = metrics.NewRegistry()
	}

	ev := &evaluation{
		cmd:        cmd,
		args:       ra,
		configPath: configPath,
		format:     format,
		registry:   reg,
	}

	ctx := cmd.Context()

	err = ev.run(ctx)
	if !ra.Watch {
		return err
	}

	if err != nil {
		log.WithContext(ctx).ErrorContext(ctx, "evaluation failed", slog.Any("error", err))
	}

	return watchFiles(ctx, []string{configPath, ra.SnapshotPath}, watchDebounce, func(ctx context.Context) {
		err := ev.run(ctx)
		if err != nil {
			log.WithContext(ctx).ErrorContext(ctx, "evaluation failed", slog.Any("error", err))
		}
	})
}

type evaluation struct {
	cmd        *cobra.Command
	args       *RunArgs
	registry   *prometheus.Registry
	configPath string
	format     OutputFormat
}

// run loads the configuration and snapshot, applies the strategies and
// writes the report. It fails when loading fails or every strategy failed.
func (ev *evaluation) run(ctx context.Context) error {
	logger := log.WithContext(ctx)

	cfg, err := config.LoadConfiguration(ev.configPath, config.WithColor(isTerminal(ev.cmd.ErrOrStderr())))
	if err != nil {
		return err //nolint:wrapcheck // Names the file.
	}

	tk, err := task.FromConfig(cfg, ev.args.Strategies)
	if err != nil {
		return fmt.Errorf("%s: %w", ev.configPath, err)
	}

	data, err := api.ReadInput(ev.args.SnapshotPath, ev.cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	snap, err := torrent.ParseSnapshot(data)
	if err != nil {
		return fmt.Errorf("%s: %w", ev.args.SnapshotPath, err)
	}

	logger.DebugContext(ctx, "loaded snapshot",
		slog.String("config", ev.configPath),
		slog.Int("torrents", snap.Len()),
		slog.Int("strategies", tk.Len()),
	)

	report := tk.Apply(ctx, snap)

	err = WriteReport(ev.cmd.OutOrStdout(), ev.format, report, snap)
	if err != nil {
		return err
	}

	if ev.registry != nil {
		err = metrics.WriteTextfile(ev.args.MetricsFile, ev.registry)
		if err != nil {
			return err //nolint:wrapcheck // Already wrapped.
		}
	}

	if report.AllFailed() {
		return fmt.Errorf("%w: all %d strategies failed", ErrEvaluation, len(report.Outcomes))
	}

	return nil
}
