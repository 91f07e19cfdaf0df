package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macropower/agentrules/api/v1beta1/configs"
	"github.com/macropower/agentrules/pkg/config"
)

type ConfigArgs struct {
	*RootArgs

	Force bool
}

func NewConfigArgs(rootArgs *RootArgs) *ConfigArgs {
	return &ConfigArgs{RootArgs: rootArgs}
}

func NewConfigCmd(rootArgs *RootArgs) *cobra.Command {
	args := NewConfigArgs(rootArgs)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the agentrules configuration",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration and its JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := args.configPath()

			err := configs.WriteDefault(path, args.Force)
			if err != nil {
				return err
			}

			mustN(fmt.Fprintln(cmd.OutOrStdout(), path))

			return nil
		},
	}
	initCmd.Flags().BoolVarP(&args.Force, "force", "f", false, "Back up and replace an existing configuration")
	bindEnvVars(initCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the active configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(args.configPath())
			if err != nil {
				return err
			}

			b, err := cfg.MarshalYAML()
			if err != nil {
				return err
			}

			mustN(fmt.Fprint(cmd.OutOrStdout(), string(b)))

			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)

	return cmd
}
