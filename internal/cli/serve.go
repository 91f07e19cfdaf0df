package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macropower/agentrules/pkg/mcp"
)

type ServeArgs struct {
	*RootArgs

	Address string
}

func NewServeArgs(rootArgs *RootArgs) *ServeArgs {
	return &ServeArgs{RootArgs: rootArgs}
}

func (sa *ServeArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sa.Address, "address", "", "Serve streamable HTTP at this address instead of stdio")
}

func NewServeCmd(rootArgs *RootArgs) *cobra.Command {
	args := NewServeArgs(rootArgs)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rule session to agent hosts over MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := args.sessionOptions()
			if err != nil {
				return err
			}

			err = mcp.NewServer(args.Address, opts...).Serve(cmd.Context())
			if err != nil {
				return fmt.Errorf("serve MCP: %w", err)
			}

			return nil
		},
	}

	args.AddFlags(cmd)
	bindEnvVars(cmd)

	return cmd
}
