package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envPrefix is prepended to every flag-derived environment variable.
var envPrefix = strings.ToUpper(cmdName) + "_"

// bindEnvVars binds the flags declared on cmd to environment variables named
// AGENTRULES_<FLAG>, with dashes replaced by underscores:
//
//   - "log-level" is read from AGENTRULES_LOG_LEVEL
//   - "system-prompt" is read from AGENTRULES_SYSTEM_PROMPT
//
// Flags set on the command line win over the environment, which wins over
// the default. Each flag's usage gains the variable name so that it shows in
// help output.
func bindEnvVars(cmd *cobra.Command) {
	bind := func(flag *pflag.Flag) {
		bindFlagToEnv(flag)
	}

	cmd.Flags().VisitAll(bind)
	cmd.PersistentFlags().VisitAll(bind)
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

	err := flag.Value.Set(envValue)
	if err != nil {
		// Keep the default; the value is reported but not fatal.
		slog.Error("invalid flag value in environment",
			slog.String("flag", flag.Name),
			slog.String("env", envName),
			slog.String("value", envValue),
			slog.Any("error", err),
		)
	}
}

func flagToEnvName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
