package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/macropower/reap/api/v1beta1/configs"
	"github.com/macropower/reap/pkg/log"
)

// SchemaFileName is written next to the configuration by `reap init`.
const SchemaFileName = "configs.v1beta1.json"

type InitArgs struct {
	*RootArgs

	Force bool
}

func NewInitArgs(rootArgs *RootArgs) *InitArgs {
	return &InitArgs{RootArgs: rootArgs}
}

func NewInitCmd(ia *InitArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration and its JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			path := ia.ConfigPath
			if path == "" {
				path = configs.GetPath()
			}

			err := configs.WriteDefault(path, ia.Force)
			if err != nil {
				return err //nolint:wrapcheck // Already wrapped.
			}

			schemaPath := filepath.Join(filepath.Dir(path), SchemaFileName)

			err = configs.WriteSchema(schemaPath)
			if err != nil {
				return err //nolint:wrapcheck // Already wrapped.
			}

			log.WithContext(ctx).InfoContext(ctx, "initialized configuration",
				slog.String("path", path),
				slog.String("schema", schemaPath),
			)

			mustN(fmt.Fprintln(cmd.OutOrStdout(), path))

			return nil
		},
	}

	cmd.Flags().BoolVar(&ia.Force, "force", false, "Back up and replace an existing configuration")

	return cmd
}
