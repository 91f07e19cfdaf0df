package expr

import (
	"path/filepath"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
)

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Strings(),
		ext.Lists(),

		// `pathBase` returns the last element of the path.
		// Example: pathBase(path) != "draft.md".
		cel.Function("pathBase",
			cel.Overload("path_base", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(pathFunc("pathBase", filepath.Base)),
			),
		),

		// `pathDir` returns all but the last element of the path.
		// Example: !pathDir(path).contains("/archive").
		cel.Function("pathDir",
			cel.Overload("path_dir", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(pathFunc("pathDir", filepath.Dir)),
			),
		),

		// `pathExt` returns the file extension of the path.
		// Example: pathExt(path) == ".md".
		cel.Function("pathExt",
			cel.Overload("path_ext", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(pathFunc("pathExt", filepath.Ext)),
			),
		),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

func pathFunc(name string, fn func(string) string) func(ref.Val) ref.Val {
	return func(path ref.Val) ref.Val {
		pathValue, ok := path.Value().(string)
		if !ok {
			return types.NewErr("%s: invalid string value", name)
		}

		return types.String(fn(pathValue))
	}
}
