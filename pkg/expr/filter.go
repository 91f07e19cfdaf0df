package expr

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/macropower/agentrules/pkg/rule"
)

// Filter is a compiled CEL expression that decides whether a loaded rule is
// kept. An empty expression keeps every rule.
type Filter struct {
	program    cel.Program
	Expression string
}

// NewFilter compiles expression against the rule variables.
func NewFilter(expression string) (*Filter, error) {
	f := &Filter{Expression: expression}
	if expression == "" {
		return f, nil
	}

	env, err := NewEnvironment(
		cel.Variable("name", cel.StringType),
		cel.Variable("path", cel.StringType),
		cel.Variable("alwaysApply", cel.BoolType),
		cel.Variable("extensions", cel.ListType(cel.StringType)),
		cel.Variable("pathHints", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, err
	}

	program, err := env.CompileBool(expression)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}

	f.program = program

	return f, nil
}

// MustNewFilter creates a new [Filter] and panics if there's an error.
func MustNewFilter(expression string) *Filter {
	f, err := NewFilter(expression)
	if err != nil {
		panic(err)
	}

	return f
}

// Keep evaluates the filter for r.
// Evaluation errors and non-boolean results are returned as errors.
func (f *Filter) Keep(r *rule.Rule) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}

	result, _, err := f.program.Eval(map[string]any{
		"name":        r.Name(),
		"path":        r.Path(),
		"alwaysApply": r.AlwaysApply(),
		"extensions":  nonNil(r.Extensions()),
		"pathHints":   nonNil(r.PathHints()),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate filter: %w", err)
	}

	keep, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w, got %T", ErrNotBoolean, result.Value())
	}

	return keep, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}

	return f.Expression
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
