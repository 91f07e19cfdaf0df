package configs_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/agentrules/api/v1beta1"
	"github.com/macropower/agentrules/api/v1beta1/configs"
	"github.com/macropower/agentrules/pkg/config"
	"github.com/macropower/agentrules/pkg/rule"
)

func TestNew(t *testing.T) {
	t.Parallel()

	cfg := configs.New()

	assert.Equal(t, v1beta1.APIVersion, cfg.GetAPIVersion())
	assert.Equal(t, "Configuration", cfg.GetKind())
	assert.Equal(t, configs.DefaultDirectories, cfg.Rules.Directories)
	assert.Equal(t, configs.DefaultHeader, cfg.Prompt.Header)
	require.NotNil(t, cfg.Prompt.Instructions)
	assert.Equal(t, configs.DefaultInstructions, *cfg.Prompt.Instructions)
	assert.Equal(t, map[string][]string(rule.DefaultKeywords), cfg.Keywords)
}

func TestConfig_EnsureDefaults_KeepsEmptyKeywords(t *testing.T) {
	t.Parallel()

	cfg := &configs.Config{
		Keywords: map[string][]string{},
		Rules:    &configs.RulesConfig{Directories: []string{}},
	}
	cfg.EnsureDefaults()

	assert.Empty(t, cfg.Keywords)
	assert.Empty(t, cfg.Rules.Directories)
	assert.False(t, cfg.Matcher().Selects(
		rule.Parse("/r/go.md", "---\nglobs: [*.go]\n---\nbody"),
		"write golang",
	))
}

func TestConfig_EnsureDefaults_Instructions(t *testing.T) {
	t.Parallel()

	empty := ""
	custom := "Obey."

	tcs := map[string]struct {
		in   *string
		want string
	}{
		"unset uses default": {
			want: configs.DefaultInstructions,
		},
		"empty is kept": {
			in:   &empty,
			want: "",
		},
		"custom is kept": {
			in:   &custom,
			want: "Obey.",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := &configs.Config{Prompt: &configs.PromptConfig{Instructions: tc.in}}
			cfg.EnsureDefaults()

			require.NotNil(t, cfg.Prompt.Instructions)
			assert.Equal(t, tc.want, *cfg.Prompt.Instructions)
			assert.Equal(t, configs.DefaultHeader, cfg.Prompt.Header)
		})
	}
}

func TestConfig_Directories(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		dirs []string
		home string
		want []string
	}{
		"defaults": {
			home: "/home/me",
			want: []string{"/work/proj/.claude/rules", "/home/me/.claude/rules"},
		},
		"absolute and relative": {
			dirs: []string{"/etc/rules/", "docs/../rules"},
			home: "/home/me",
			want: []string{"/etc/rules", "/work/proj/rules"},
		},
		"bare tilde": {
			dirs: []string{"~"},
			home: "/home/me",
			want: []string{"/home/me"},
		},
		"tilde without home is dropped": {
			dirs: []string{"~/.claude/rules", ".claude/rules"},
			want: []string{"/work/proj/.claude/rules"},
		},
		"tilde user form is relative": {
			dirs: []string{"~other/rules"},
			home: "/home/me",
			want: []string{"/work/proj/~other/rules"},
		},
		"blank entries are dropped": {
			dirs: []string{"", "  "},
			home: "/home/me",
			want: []string{},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := configs.New()
			if tc.dirs != nil {
				cfg.Rules.Directories = tc.dirs
			}

			assert.Equal(t, tc.want, cfg.Directories("/work/proj", tc.home))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := configs.New()
	require.NoError(t, cfg.Validate())

	cfg.Rules.Filter = `name == "go"`
	require.NoError(t, cfg.Validate())

	f, err := cfg.Filter()
	require.NoError(t, err)
	assert.Equal(t, `name == "go"`, f.String())

	cfg.Rules.Filter = `name`
	require.ErrorIs(t, cfg.Validate(), configs.ErrInvalidConfig)
}

func TestSchemaJSON(t *testing.T) {
	t.Parallel()

	var schema map[string]any
	require.NoError(t, json.Unmarshal(configs.SchemaJSON, &schema))

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "apiVersion")
	assert.Contains(t, props, "kind")
	assert.Contains(t, props, "rules")
	assert.Contains(t, props, "prompt")
	assert.Contains(t, props, "keywords")
	assert.ElementsMatch(t, []any{"apiVersion", "kind"}, schema["required"])
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "agentrules", "config.yaml")

	require.NoError(t, configs.WriteDefault(path, false))

	assert.FileExists(t, path)
	assert.FileExists(t, filepath.Join(dir, "agentrules", configs.SchemaFile))

	// Existing files are kept unless forced.
	require.NoError(t, os.WriteFile(path, []byte("custom"), 0o600))
	require.NoError(t, configs.WriteDefault(path, false))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", string(got))

	require.NoError(t, configs.WriteDefault(path, true))

	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, "custom", string(got))
}

func TestEmbeddedConfigMatchesSourceFile(t *testing.T) {
	t.Parallel()

	sourceConfig, err := os.ReadFile("config.yaml")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, configs.WriteDefault(path, false))

	embeddedConfig, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(sourceConfig), string(embeddedConfig))
}

func TestDefaultConfigYAMLIsValid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, configs.WriteDefault(path, false))

	cl, err := config.NewLoaderFromFile(path, configs.NewEmpty, configs.DefaultValidator)
	require.NoError(t, err)
	require.NoError(t, cl.Validate())

	cfg, err := cl.Load()
	require.NoError(t, err)

	cfgYAML, err := cfg.MarshalYAML()
	require.NoError(t, err)

	defaultCfgYAML, err := configs.New().MarshalYAML()
	require.NoError(t, err)

	assert.YAMLEq(t, string(defaultCfgYAML), string(cfgYAML))
}

func TestConfig_MarshalYAML(t *testing.T) {
	t.Parallel()

	data, err := configs.New().MarshalYAML()
	require.NoError(t, err)

	assert.Contains(t, string(data), "apiVersion: agentrules.jacobcolvin.com/v1beta1")
	assert.Contains(t, string(data), "kind: Configuration")
	assert.Contains(t, string(data), "## Task Rules")
}
