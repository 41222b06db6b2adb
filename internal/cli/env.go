package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// bindEnvVars binds REAP_<FLAG_NAME> environment variables to the flags of
// cmd and all of its subcommands. Flag names are upper-cased and dashes
// become underscores, so "--metrics-file" reads $REAP_METRICS_FILE.
//
// Arguments take precedence over environment variables, which take
// precedence over default values. Usage strings are updated to name the
// variable, so it shows up in help output.
func bindEnvVars(cmd *cobra.Command) {
	visit := func(flag *pflag.Flag) {
		if flag.Name == "help" {
			return
		}

		bindFlagToEnv(flag)
	}

	cmd.Flags().VisitAll(visit)
	cmd.PersistentFlags().VisitAll(visit)

	for _, sub := range cmd.Commands() {
		bindEnvVars(sub)
	}
}

func bindFlagToEnv(flag *pflag.Flag) {
	envName := flagToEnvName(flag.Name)

	if !strings.Contains(flag.Usage, envName) {
		flag.Usage = fmt.Sprintf("%s ($%s)", flag.Usage, envName)
	}

	if flag.Changed {
		return
	}

	envValue, ok := os.LookupEnv(envName)
	if !ok {
		return
	}

	// Slice flags accept a comma separated list.
	err := flag.Value.Set(envValue)
	if err != nil {
		slog.Error("failed to set flag from environment variable",
			slog.String("flag", flag.Name),
			slog.String("env", envName),
			slog.String("value", envValue),
			slog.Any("error", err),
		)
	}
}

// flagToEnvName converts a flag name to its environment variable name.
// Example: "log-level" -> "REAP_LOG_LEVEL".
func flagToEnvName(flagName string) string {
	return strings.ToUpper(cmdName + "_" + strings.ReplaceAll(flagName, "-", "_"))
}
