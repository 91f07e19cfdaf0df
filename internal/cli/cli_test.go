package cli_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/fang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/agentrules/api/v1beta1/configs"
	"github.com/macropower/agentrules/internal/cli"
)

const testConfig = `apiVersion: agentrules.jacobcolvin.com/v1beta1
kind: Configuration
rules:
  directories:
    - .claude/rules
`

var testRules = map[string]string{
	"always.md": "---\nalwaysApply: true\n---\nBe kind.",
	"go.md":     "---\nglobs: [*.go]\n---\nUse gofmt.",
	"src.md":    "---\npaths:\n  - src/**\n---\nKeep src tidy.",
}

// setupProject writes rules below a project directory and a configuration
// that only searches that project. It returns the flags selecting both.
func setupProject(t *testing.T, config string, files map[string]string) []string {
	t.Helper()

	dir := t.TempDir()
	rulesDir := filepath.Join(dir, ".claude", "rules")
	require.NoError(t, os.MkdirAll(rulesDir, 0o700))

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(rulesDir, name), []byte(content), 0o600))
	}

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o600))

	return []string{"--config", configPath, "--dir", dir, "--log-level", "error"}
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := cli.NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(t.Context())

	return stdout.String(), stderr.String(), err
}

func TestMatchCmd(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		stdin   string
		args    []string
		want    []string
		notWant []string
		wantErr error
	}{
		"prompt from args": {
			args: []string{"edit", "main.go"},
			want: []string{
				"## Task Rules\nFollow these rules for this task.\n\n",
				"### always\nSource: ",
				"Be kind.",
				"### go\n",
				"Use gofmt.",
			},
			notWant: []string{"### src"},
		},
		"prompt from stdin": {
			stdin: "fix src/app.ts\n",
			want:  []string{"### src\n", "Keep src tidy."},
		},
		"names only": {
			args: []string{"--names", "write", "golang"},
			want: []string{"always\ngo\n"},
		},
		"system prompt": {
			args: []string{"--system-prompt", "You are helpful.", "hello"},
			want: []string{"You are helpful.\n\n## Task Rules\n", "### always\n"},
		},
		"no prompt": {
			stdin:   "   ",
			wantErr: cli.ErrNoPrompt,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			flags := setupProject(t, testConfig, testRules)
			args := append([]string{"match"}, flags...)
			args = append(args, tc.args...)

			stdout, _, err := execute(t, tc.stdin, args...)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)

			for _, want := range tc.want {
				assert.Contains(t, stdout, want)
			}

			for _, notWant := range tc.notWant {
				assert.NotContains(t, stdout, notWant)
			}
		})
	}
}

func TestMatchCmd_NoRulesApply(t *testing.T) {
	t.Parallel()

	flags := setupProject(t, testConfig, map[string]string{
		"go.md": "---\nglobs: [*.go]\n---\nUse gofmt.",
	})

	stdout, stderr, err := execute(t, "", append(append([]string{"match"}, flags...), "hello")...)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "No rules apply")
}

func TestMatchCmd_Filter(t *testing.T) {
	t.Parallel()

	config := testConfig + "  filter: '!alwaysApply'\n"
	flags := setupProject(t, config, testRules)

	stdout, _, err := execute(t, "", append(append([]string{"match", "--names"}, flags...), "edit", "main.go")...)
	require.NoError(t, err)
	assert.Equal(t, "go\n", stdout)
}

func TestListCmd(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		files      map[string]string
		args       []string
		want       []string
		wantFirst  string
		wantStderr string
	}{
		"all": {
			files: testRules,
			want:  []string{"always.md\n", "go.md\n", "src.md\n"},
		},
		"search": {
			files:     testRules,
			args:      []string{"--search", "rules/src.md"},
			wantFirst: "src.md",
		},
		"long": {
			files: testRules,
			args:  []string{"--long"},
			want:  []string{"SOURCE", "SIGNALS", "SIZE", "always", "ext=go", "paths=src", "14 B"},
		},
		"empty": {
			files:      nil,
			wantStderr: "No rules loaded",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			flags := setupProject(t, testConfig, tc.files)
			args := append([]string{"list"}, flags...)
			args = append(args, tc.args...)

			stdout, stderr, err := execute(t, "", args...)
			require.NoError(t, err)

			for _, want := range tc.want {
				assert.Contains(t, stdout, want)
			}

			if tc.wantFirst != "" {
				first, _, _ := strings.Cut(stdout, "\n")
				assert.True(t, strings.HasSuffix(first, tc.wantFirst), "first line %q", first)
			}

			if tc.wantStderr != "" {
				assert.Empty(t, stdout)
				assert.Contains(t, stderr, tc.wantStderr)
			}
		})
	}
}

func TestConfigCmd(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "agentrules", "config.yaml")

	stdout, _, err := execute(t, "", "config", "init", "--config", path, "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", stdout)
	assert.FileExists(t, path)
	assert.FileExists(t, filepath.Join(filepath.Dir(path), configs.SchemaFile))

	stdout, _, err = execute(t, "", "config", "show", "--config", path, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, stdout, "kind: Configuration")
	assert.Contains(t, stdout, "## Task Rules")
}

func TestConfigCmd_Invalid(t *testing.T) {
	t.Parallel()

	flags := setupProject(t, testConfig+"  filter: 'name +'\n", testRules)

	_, _, err := execute(t, "", append([]string{"list"}, flags...)...)
	require.Error(t, err)
	require.ErrorIs(t, err, configs.ErrInvalidConfig)
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err  error
		want string
	}{
		"usage error": {
			err:  errors.New("unknown flag: --nope"),
			want: "--help",
		},
		"missing prompt": {
			err:  cli.ErrNoPrompt,
			want: "--help",
		},
		"invalid config": {
			err:  configs.ErrInvalidConfig,
			want: "config init --force",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			cli.ErrorHandler(&buf, fang.Styles{}, tc.err)
			assert.Contains(t, buf.String(), tc.err.Error())
			assert.Contains(t, buf.String(), tc.want)
		})
	}
}
