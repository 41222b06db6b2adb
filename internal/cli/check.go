package cli

import (
	"fmt"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/macropower/reap/pkg/config"
	"github.com/macropower/reap/pkg/task"
)

func NewCheckCmd(ra *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration",
		Long: `Validate the configuration against its schema, parse every remove
expression, compile every filter and report unknown condition names.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := ra.configPath()
			if err != nil {
				return err
			}

			cfg, err := config.LoadConfiguration(path, config.WithColor(isTerminal(cmd.ErrOrStderr())))
			if err != nil {
				return err //nolint:wrapcheck // Names the file.
			}

			tk, err := task.FromConfig(cfg, nil)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			err = tk.Check()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			mustN(fmt.Fprintf(cmd.OutOrStdout(), "%s: %s ok\n", path, english.Plural(tk.Len(), "strategy", "strategies")))

			return nil
		},
	}
}
