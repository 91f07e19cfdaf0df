package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const matchExamples = `  # Print the rules that apply to a prompt:
  agentrules match "fix the parser in src/parse.go"

  # Read the prompt from stdin:
  echo "write this in golang" | agentrules match

  # Print only the names of the selected rules:
  agentrules match --names "run pytest"

  # Print the system prompt with the rules appended:
  agentrules match --system-prompt "You are a helpful assistant." "edit main.go"`

// ErrNoPrompt is returned when no prompt is given as arguments or on stdin.
var ErrNoPrompt = errors.New("no prompt given")

type MatchArgs struct {
	*RootArgs

	SystemPrompt string
	Names        bool
}

func NewMatchArgs(rootArgs *RootArgs) *MatchArgs {
	return &MatchArgs{RootArgs: rootArgs}
}

func (ma *MatchArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ma.SystemPrompt, "system-prompt", "", "Print this system prompt with the rule section appended")
	cmd.Flags().BoolVar(&ma.Names, "names", false, "Print only the names of the selected rules")
}

func NewMatchCmd(rootArgs *RootArgs) *cobra.Command {
	args := NewMatchArgs(rootArgs)

	cmd := &cobra.Command{
		Use:     "match [prompt...]",
		Short:   "Select the rules that apply to a prompt",
		Example: matchExamples,
		RunE: func(cmd *cobra.Command, promptArgs []string) error {
			prompt, err := readPrompt(cmd.InOrStdin(), promptArgs)
			if err != nil {
				return err
			}

			return runMatch(cmd, args, prompt)
		},
	}

	args.AddFlags(cmd)
	bindEnvVars(cmd)

	return cmd
}

// readPrompt joins args, or reads stdin when there are no args and stdin is
// not a terminal.
func readPrompt(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", ErrNoPrompt
	}

	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	prompt := strings.TrimSpace(string(b))
	if prompt == "" {
		return "", ErrNoPrompt
	}

	return prompt, nil
}

func runMatch(cmd *cobra.Command, ma *MatchArgs, prompt string) error {
	ctx := cmd.Context()

	s, err := ma.newSession()
	if err != nil {
		return err
	}

	s.Start(ctx)

	out := cmd.OutOrStdout()

	if ma.Names {
		for _, r := range s.Select(ctx, prompt) {
			mustN(fmt.Fprintln(out, r.Name()))
		}

		return nil
	}

	systemPrompt, ok := s.BeforePromptSubmit(ctx, prompt, ma.SystemPrompt)
	if !ok {
		mustN(fmt.Fprintln(cmd.ErrOrStderr(), "No rules apply"))

		return nil
	}

	if !cmd.Flags().Changed("system-prompt") {
		systemPrompt = strings.TrimPrefix(systemPrompt, "\n\n")
	}

	mustN(fmt.Fprint(out, systemPrompt))

	return nil
}
