package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/macropower/agentrules/pkg/rule"
	"github.com/macropower/agentrules/pkg/session"
)

type ListArgs struct {
	*RootArgs

	Search string
	Long   bool
}

func NewListArgs(rootArgs *RootArgs) *ListArgs {
	return &ListArgs{RootArgs: rootArgs}
}

func (la *ListArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&la.Search, "search", "s", "", "Fuzzy filter over rule sources")
	cmd.Flags().BoolVarP(&la.Long, "long", "l", false, "Show match signals and size of each rule")
}

func NewListCmd(rootArgs *RootArgs) *cobra.Command {
	args := NewListArgs(rootArgs)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rule documents that would be loaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, args)
		},
	}

	args.AddFlags(cmd)
	bindEnvVars(cmd)

	return cmd
}

func runList(cmd *cobra.Command, la *ListArgs) error {
	s, err := la.newSession()
	if err != nil {
		return err
	}

	s.Start(cmd.Context())

	sources := s.Sources()
	if len(sources) == 0 {
		mustN(fmt.Fprintln(cmd.ErrOrStderr(), "No rules loaded"))

		return nil
	}

	rules := s.Rules()
	if la.Search != "" {
		matches := fuzzy.Find(la.Search, sources)

		found := make([]*rule.Rule, 0, len(matches))
		for _, m := range matches {
			found = append(found, rules[m.Index])
		}

		rules = found
	}

	if la.Long {
		writeRuleTable(cmd.OutOrStdout(), s, rules)

		return nil
	}

	for _, r := range rules {
		mustN(fmt.Fprintln(cmd.OutOrStdout(), s.DisplayPath(r.Path())))
	}

	return nil
}

func writeRuleTable(w io.Writer, s *session.Session, rules []*rule.Rule) {
	headerStyle := lipgloss.NewStyle().Bold(true)

	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, []string{
			s.DisplayPath(r.Path()),
			strings.TrimPrefix(r.String(), r.Name()+": "),
			humanize.Bytes(uint64(len(r.Content()))),
		})
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return lipgloss.NewStyle()
		}).
		Headers("SOURCE", "SIGNALS", "SIZE").
		Rows(rows...)

	mustN(fmt.Fprintln(w, t.String()))
}
