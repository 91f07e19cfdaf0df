// Package configs provides the global Config configuration type for agentrules.
package configs

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/macropower/agentrules/api"
	"github.com/macropower/agentrules/api/v1beta1"
	"github.com/macropower/agentrules/pkg/expr"
	"github.com/macropower/agentrules/pkg/rule"
	"github.com/macropower/agentrules/pkg/yaml"
)

const (
	// SchemaFile is the file name the JSON schema is written under.
	SchemaFile = "configs.v1beta1.json"

	DefaultHeader       = "## Task Rules"
	DefaultInstructions = "Follow these rules for this task."
)

var (
	//go:embed config.yaml
	defaultConfigYAML []byte

	// ValidKinds contains the valid kind values for global configurations.
	ValidKinds = []string{"Configuration"}

	// DefaultDirectories are searched when no directories are configured.
	// Earlier entries take precedence.
	DefaultDirectories = []string{".claude/rules", "~/.claude/rules"}

	// SchemaJSON is the JSON schema for [Config].
	SchemaJSON = yaml.NewSchemaGenerator(&Config{}, "/"+SchemaFile).MustGenerate()

	// DefaultValidator validates global configuration against the JSON schema.
	DefaultValidator = yaml.MustNewValidator("/"+SchemaFile, SchemaJSON)

	// ErrInvalidConfig is returned by [Config.Validate].
	ErrInvalidConfig = errors.New("invalid configuration")

	// Compile-time interface checks.
	_ v1beta1.Object = (*Config)(nil)
)

// Config represents the global agentrules configuration.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	Rules  *RulesConfig  `json:"rules,omitempty"  jsonschema:"title=Rules"`
	Prompt *PromptConfig `json:"prompt,omitempty" jsonschema:"title=Prompt"`
	// Keywords maps a file extension to phrases that imply it.
	// An empty map disables keyword matching.
	Keywords         map[string][]string `json:"keywords,omitempty" jsonschema:"title=Keywords"`
	v1beta1.TypeMeta `json:",inline"`
}

// RulesConfig controls rule discovery.
type RulesConfig struct {
	// Filter is a CEL expression over name, path, alwaysApply, extensions
	// and pathHints. Rules for which it is false are not loaded.
	Filter string `json:"filter,omitempty" jsonschema:"title=Filter"`
	// Directories are searched in order; earlier entries win when the same
	// file is reachable twice. Relative paths resolve against the project
	// directory and a leading ~ against the home directory.
	Directories []string `json:"directories,omitempty" jsonschema:"title=Directories"`
}

// PromptConfig controls the rendered section appended to the system prompt.
type PromptConfig struct {
	Header string `json:"header,omitempty" jsonschema:"title=Header"`
	// Instructions follows the header. Unset uses [DefaultInstructions];
	// an empty string omits the line.
	Instructions *string `json:"instructions,omitempty" jsonschema:"title=Instructions"`
}

// New creates a new global [Config] with default values.
func New() *Config {
	c := &Config{
		TypeMeta: v1beta1.TypeMeta{
			APIVersion: v1beta1.APIVersion,
			Kind:       "Configuration",
		},
	}
	c.EnsureDefaults()

	return c
}

// NewEmpty creates a [Config] with no fields set. Loaders decode into it so
// that maps in the document replace the defaults instead of merging with them.
func NewEmpty() *Config {
	return &Config{}
}

// EnsureDefaults initializes unset fields to their default values.
func (c *Config) EnsureDefaults() {
	if c.Rules == nil {
		c.Rules = &RulesConfig{}
	}
	if c.Rules.Directories == nil {
		c.Rules.Directories = slices.Clone(DefaultDirectories)
	}

	if c.Prompt == nil {
		c.Prompt = &PromptConfig{}
	}
	if c.Prompt.Header == "" {
		c.Prompt.Header = DefaultHeader
	}
	if c.Prompt.Instructions == nil {
		instructions := DefaultInstructions
		c.Prompt.Instructions = &instructions
	}

	if c.Keywords == nil {
		c.Keywords = make(map[string][]string, len(rule.DefaultKeywords))
		for ext, phrases := range rule.DefaultKeywords {
			c.Keywords[ext] = slices.Clone(phrases)
		}
	}
}

// Validate checks the requirements that can't be represented in the schema.
func (c *Config) Validate() error {
	if c.Rules == nil {
		return nil
	}

	_, err := expr.NewFilter(c.Rules.Filter)
	if err != nil {
		return fmt.Errorf("%w: rules.filter: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Directories returns the configured rule directories as absolute paths.
// Relative entries are joined to projectDir; "~" and "~/..." are expanded
// to home. Entries that need an empty home are dropped.
func (c *Config) Directories(projectDir, home string) []string {
	dirs := DefaultDirectories
	if c.Rules != nil && c.Rules.Directories != nil {
		dirs = c.Rules.Directories
	}

	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		resolved, ok := resolveDir(dir, projectDir, home)
		if ok {
			out = append(out, resolved)
		}
	}

	return out
}

// Matcher creates a [rule.Matcher] for the configured keywords.
func (c *Config) Matcher() *rule.Matcher {
	if c.Keywords == nil {
		return rule.NewMatcher(nil)
	}

	return rule.NewMatcher(rule.Keywords(maps.Clone(c.Keywords)))
}

// Filter compiles the configured rule filter.
func (c *Config) Filter() (*expr.Filter, error) {
	if c.Rules == nil {
		return expr.NewFilter("")
	}

	return expr.NewFilter(c.Rules.Filter)
}

func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// MarshalYAML serializes the config to YAML.
func (c Config) MarshalYAML() ([]byte, error) {
	type alias Config

	b, err := api.MarshalYAML(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return b, nil
}

// WriteDefault writes the embedded default config.yaml to the specified
// path, and the JSON schema next to it.
func WriteDefault(path string, force bool) error {
	_, err := api.WriteDefaultFile(path, defaultConfigYAML, force, "configuration")
	if err != nil {
		return fmt.Errorf("write default config: %w", err)
	}

	schemaPath := filepath.Join(filepath.Dir(path), SchemaFile)

	err = os.WriteFile(schemaPath, SchemaJSON, 0o600)
	if err != nil {
		return fmt.Errorf("write schema file: %w", err)
	}

	return nil
}

// GetPath returns the path to the global configuration file.
func GetPath() string {
	return api.GetConfigPath("config.yaml")
}

func resolveDir(dir, projectDir, home string) (string, bool) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", false
	}

	if dir == "~" || strings.HasPrefix(dir, "~/") {
		if home == "" {
			return "", false
		}

		return filepath.Join(home, dir[1:]), true
	}

	if filepath.IsAbs(dir) {
		return filepath.Clean(dir), true
	}

	return filepath.Join(projectDir, dir), true
}
