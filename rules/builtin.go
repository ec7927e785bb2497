package rules

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/deepsourcelabs/vow/types"
)

//go:embed builtin/*.toml
var builtinFS embed.FS

// Builtin returns the embedded rule sets in name order.
func Builtin() ([]RuleSet, error) {
	names, err := fs.Glob(builtinFS, "builtin/*.toml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	sets := make([]RuleSet, 0, len(names))
	for _, name := range names {
		f, err := builtinFS.Open(name)
		if err != nil {
			return nil, &types.RuleCompileError{RuleSet: name, Reason: "reading built-in rules", Err: err}
		}

		set, err := ReadRuleSet(f, FormatTOML, strings.TrimSuffix(path.Base(name), ".toml"))
		f.Close()
		if err != nil {
			return nil, &types.RuleCompileError{RuleSet: name, Reason: "decoding built-in rules", Err: err}
		}
		sets = append(sets, set)
	}

	return sets, nil
}

// Load compiles the built-in rule sets followed by the documents at sources.
// Custom rules override built-in rules with the same id.
func Load(opts Options, sources ...string) (*Table, error) {
	sets, err := Builtin()
	if err != nil {
		return nil, err
	}

	custom, err := LoadRuleSets(sources...)
	if err != nil {
		return nil, err
	}

	return Compile(opts, append(sets, custom...)...)
}
