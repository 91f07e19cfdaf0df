package yaml

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/printer"
	"github.com/goccy/go-yaml/token"
)

func NewPathBuilder() *yaml.PathBuilder {
	return &yaml.PathBuilder{}
}

// Error represents a YAML error. It includes the original error, and the
// [*yaml.Path] or [*token.Token] where the error occurred.
type Error struct {
	Err    error
	Path   *yaml.Path
	Token  *token.Token
	Source []byte
}

type ErrorOpt func(e *Error)

func NewError(err error, opts ...ErrorOpt) *Error {
	e := &Error{Err: err}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

func WithPath(path *yaml.Path) ErrorOpt {
	return func(e *Error) {
		e.Path = path
	}
}

func WithToken(tk *token.Token) ErrorOpt {
	return func(e *Error) {
		e.Token = tk
	}
}

// WithSource sets the document the error refers to.
// When set, [Error.Error] includes the offending lines.
func WithSource(source []byte) ErrorOpt {
	return func(e *Error) {
		e.Source = source
	}
}

func (e Error) Error() string {
	if e.Err == nil {
		return ""
	}
	if e.Path == nil && e.Token == nil {
		return e.Err.Error()
	}

	tk := e.Token
	if tk == nil && e.Source != nil {
		tk = getTokenFromPath(e.Source, e.Path)
	}

	if tk == nil {
		return fmt.Sprintf("error at %s: %v", e.Path.String(), e.Err)
	}

	var pp printer.Printer

	return fmt.Sprintf("[%d:%d] %v:\n%s",
		tk.Position.Line, tk.Position.Column, e.Err,
		pp.PrintErrorToken(tk, false),
	)
}

func (e Error) Unwrap() error {
	return e.Err
}

// getTokenFromPath returns the key token for path in source, falling back to
// the value token. It returns nil when the path cannot be resolved.
func getTokenFromPath(source []byte, path *yaml.Path) *token.Token {
	file, err := parser.ParseBytes(source, 0)
	if err != nil {
		return nil
	}

	node, err := path.FilterFile(file)
	if err != nil {
		return nil
	}

	// FilterFile returns the value node, but errors should point at the key.
	if keyToken := findKeyToken(file, path); keyToken != nil {
		return keyToken
	}

	return node.GetToken()
}

// findKeyToken attempts to find the key token for the given path by looking
// in the parent node.
func findKeyToken(file *ast.File, path *yaml.Path) *token.Token {
	pathStr := path.String()

	lastDot := strings.LastIndex(pathStr, ".")
	lastBracket := strings.LastIndex(pathStr, "[")

	// Root paths and array indexes have no key.
	if lastDot == -1 || lastDot <= lastBracket {
		return nil
	}

	parentPath, err := yaml.PathString(pathStr[:lastDot])
	if err != nil {
		return nil
	}

	parentNode, err := parentPath.FilterFile(file)
	if err != nil {
		return nil
	}

	mapping, ok := parentNode.(*ast.MappingNode)
	if !ok {
		return nil
	}

	lastSegment := pathStr[lastDot+1:]
	for _, val := range mapping.Values {
		if val.Key.String() == lastSegment {
			return val.Key.GetToken()
		}
	}

	return nil
}
