// Package goast extracts the imports of Go source files with go/parser.
package goast

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
)

// Import is one import spec.
type Import struct {
	Path   string
	Name   string
	Line   int
	Column int
}

// Imports returns the imports of a Go source file in source order. Files with
// syntax errors after the import block still yield their imports; err is only
// returned when nothing could be recovered.
func Imports(filename string, src []byte) ([]Import, error) {
	fset := token.NewFileSet()

	f, err := parser.ParseFile(fset, filename, src, parser.ImportsOnly)
	if f == nil {
		return nil, err
	}

	var imports []Import
	for _, spec := range f.Imports {
		imp, ok := newImport(fset, spec)
		if ok {
			imports = append(imports, imp)
		}
	}

	if len(imports) == 0 && err != nil {
		return nil, err
	}
	return imports, nil
}

func newImport(fset *token.FileSet, spec *ast.ImportSpec) (Import, bool) {
	if spec.Path == nil {
		return Import{}, false
	}

	path, err := strconv.Unquote(spec.Path.Value)
	if err != nil || path == "" {
		return Import{}, false
	}

	pos := fset.Position(spec.Path.Pos())
	imp := Import{Path: path, Line: pos.Line, Column: pos.Column}
	if spec.Name != nil {
		imp.Name = spec.Name.Name
	}
	return imp, true
}

// standardRoots are the standard library directories that hold packages of
// their own, like encoding in encoding/json.
var standardRoots = map[string]struct{}{
	"archive": {}, "cmd": {}, "compress": {}, "container": {}, "crypto": {},
	"database": {}, "debug": {}, "encoding": {}, "go": {}, "hash": {},
	"html": {}, "image": {}, "index": {}, "internal": {}, "io": {},
	"log": {}, "math": {}, "mime": {}, "net": {}, "os": {}, "path": {},
	"regexp": {}, "runtime": {}, "sync": {}, "testing": {}, "text": {},
	"time": {}, "unicode": {}, "vendor": {},
}

// Standard reports whether path has the shape of a standard library import:
// its first element contains no dot, and a nested path starts with a standard
// library directory. A dotless module path such as myapp/handlers is not
// standard.
func Standard(path string) bool {
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '/':
			_, ok := standardRoots[path[:i]]
			return ok
		case '.':
			return false
		}
	}
	return true
}
