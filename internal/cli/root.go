package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/macropower/agentrules/api/v1beta1/configs"
	"github.com/macropower/agentrules/pkg/config"
	"github.com/macropower/agentrules/pkg/log"
	"github.com/macropower/agentrules/pkg/session"
	"github.com/macropower/agentrules/pkg/store"
)

const (
	cmdName = "agentrules"
	cmdDesc = `Inject task-relevant rule documents into an agent's system prompt.`
)

type RootArgs struct {
	shutdown     func(context.Context) error
	LogLevel     string
	LogFormat    string
	ConfigPath   string
	Dir          string
	OTLPEndpoint string
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "info", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", log.AllFormats))
	cmd.PersistentFlags().
		StringVar(&ra.ConfigPath, "config", "", "Path to the agentrules configuration file")
	cmd.PersistentFlags().
		StringVarP(&ra.Dir, "dir", "C", ".", "Project directory that relative rule directories are resolved against")
	cmd.PersistentFlags().
		StringVar(&ra.OTLPEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint (host:port) to export traces to")

	var err error

	err = cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	if err != nil {
		panic(fmt.Errorf("mark config flag: %w", err))
	}

	err = cmd.MarkPersistentFlagDirname("dir")
	if err != nil {
		panic(fmt.Errorf("mark dir flag: %w", err))
	}
}

func NewRootCmd() *cobra.Command {
	args := NewRootArgs()

	cmd := &cobra.Command{
		Use:                cmdName,
		Short:              cmdDesc,
		SilenceUsage:       true,
		PersistentPreRunE:  setup(args),
		PersistentPostRunE: teardown(args),
	}

	args.AddFlags(cmd)

	cmd.AddCommand(
		NewMatchCmd(args),
		NewListCmd(args),
		NewWatchCmd(args),
		NewServeCmd(args),
		NewConfigCmd(args),
	)

	bindEnvVars(cmd)

	return cmd
}

func setup(ra *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		logHandler, err := log.CreateHandlerWithStrings(cmd.ErrOrStderr(), ra.LogLevel, ra.LogFormat)
		if err != nil {
			return fmt.Errorf("create log handler: %w", err)
		}

		slog.SetDefault(slog.New(logHandler))

		ra.shutdown, err = setupTracing(cmd.Context(), ra.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("setup tracing: %w", err)
		}

		return nil
	}
}

func teardown(ra *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if ra.shutdown == nil {
			return nil
		}

		err := ra.shutdown(context.WithoutCancel(cmd.Context()))
		if err != nil {
			return fmt.Errorf("shutdown tracing: %w", err)
		}

		return nil
	}
}

// configPath returns the --config path, or the global configuration path.
func (ra *RootArgs) configPath() string {
	if ra.ConfigPath != "" {
		return ra.ConfigPath
	}

	return configs.GetPath()
}

// sessionOptions loads the configuration and returns the options for a
// [session.Session] rooted at --dir.
func (ra *RootArgs) sessionOptions() ([]session.Option, error) {
	cfg, err := config.Load(ra.configPath())
	if err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(ra.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project directory: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("home directory unavailable", slog.Any("error", err))

		home = ""
	}

	filter, err := cfg.Filter()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", configs.ErrInvalidConfig, err)
	}

	dirs := cfg.Directories(dir, home)

	slog.Debug("resolved rule directories",
		slog.String("project", dir),
		slog.Any("directories", dirs),
	)

	return []session.Option{
		session.WithDirectories(dirs...),
		session.WithHome(home),
		session.WithLoader(store.New(store.WithFilter(filter))),
		session.WithMatcher(cfg.Matcher()),
		session.WithHeader(cfg.Prompt.Header),
		session.WithInstructions(*cfg.Prompt.Instructions),
	}, nil
}

// newSession creates a [session.Session] that reports notices to the log.
func (ra *RootArgs) newSession() (*session.Session, error) {
	opts, err := ra.sessionOptions()
	if err != nil {
		return nil, err
	}

	return session.New(append(opts, session.WithNotifier(logNotifier{}))...), nil
}

type logNotifier struct{}

func (logNotifier) Notify(ctx context.Context, message string, level session.Level) {
	lvl := slog.LevelInfo
	if level == session.LevelWarning {
		lvl = slog.LevelWarn
	}

	log.WithContext(ctx).Log(ctx, lvl, message)
}
