package code

import (
	"regexp"
	"strings"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/analyzers/goast"
)

// importRef is one imported package name with the position of its first byte.
type importRef struct {
	Name   string
	Line   int
	Column int
}

var (
	pyImport       = regexp.MustCompile(`^\s*import\s+(.+)`)
	pyFromImport   = regexp.MustCompile(`^\s*from\s+(?P<mod>\.*[\w.]*)\s+import\b`)
	pyDunderImport = regexp.MustCompile(`__import__\(\s*["'](?P<mod>[\w.]+)["']`)
	pyImportlib    = regexp.MustCompile(`importlib\.import_module\(\s*["'](?P<mod>[\w.]+)["']`)

	jsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:^|[;\s])(?:import|export)\b[^'"]*?\bfrom\s*["'](?P<mod>[^"']+)["']`),
		regexp.MustCompile(`^\s*\}?\s*from\s*["'](?P<mod>[^"']+)["']`),
		regexp.MustCompile(`^\s*import\s*["'](?P<mod>[^"']+)["']`),
		regexp.MustCompile(`\b(?:require|import)\s*\(\s*["'](?P<mod>[^"']+)["']\s*\)`),
	}

	rustUse    = regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?use\s+(?:::)?(?P<mod>\w+)`)
	rustExtern = regexp.MustCompile(`^\s*extern\s+crate\s+(?P<mod>\w+)`)
	rustMod    = regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?mod\s+(?P<mod>\w+)`)
)

// extractImports returns the packages src imports. Relative and local paths
// are skipped.
func extractImports(src *analyzers.Source) []importRef {
	switch src.Language {
	case "python":
		return pythonImports(src)
	case "javascript", "typescript":
		return jsImports(src)
	case "rust":
		return rustImports(src)
	case "go":
		return goImports(src)
	default:
		return nil
	}
}

func pythonImports(src *analyzers.Source) []importRef {
	var refs []importRef
	inString := false

	for idx, line := range src.Lines() {
		lineNo := idx + 1

		// skip docstrings and other triple-quoted blocks
		quotes := strings.Count(line, `"""`) + strings.Count(line, `'''`)
		if inString {
			if quotes%2 == 1 {
				inString = false
			}
			continue
		}
		if quotes%2 == 1 {
			inString = true
			continue
		}

		code := line
		if i := strings.IndexByte(code, '#'); i >= 0 {
			code = code[:i]
		}

		if m := pyFromImport.FindStringSubmatchIndex(code); m != nil {
			mod := code[m[2]:m[3]]
			if mod != "" && !strings.HasPrefix(mod, ".") {
				refs = append(refs, importRef{Name: topLevel(mod, "."), Line: lineNo, Column: m[2] + 1})
			}
			continue
		}

		if m := pyImport.FindStringSubmatchIndex(code); m != nil {
			offset := m[2]
			for _, part := range strings.Split(code[m[2]:m[3]], ",") {
				name := strings.Fields(part)
				if len(name) > 0 && name[0] != "(" {
					col := offset + strings.Index(part, name[0]) + 1
					refs = append(refs, importRef{Name: topLevel(strings.Trim(name[0], "()"), "."), Line: lineNo, Column: col})
				}
				offset += len(part) + 1
			}
			continue
		}

		for _, exp := range []*regexp.Regexp{pyDunderImport, pyImportlib} {
			for _, m := range exp.FindAllStringSubmatchIndex(code, -1) {
				refs = append(refs, importRef{Name: topLevel(code[m[2]:m[3]], "."), Line: lineNo, Column: m[2] + 1})
			}
		}
	}

	return refs
}

func jsImports(src *analyzers.Source) []importRef {
	var refs []importRef
	for idx, line := range src.Lines() {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") {
			continue
		}

		seen := make(map[int]struct{})
		for _, exp := range jsPatterns {
			for _, m := range exp.FindAllStringSubmatchIndex(line, -1) {
				if _, dup := seen[m[2]]; dup {
					continue
				}
				seen[m[2]] = struct{}{}

				name, ok := jsPackage(line[m[2]:m[3]])
				if !ok {
					continue
				}
				refs = append(refs, importRef{Name: name, Line: idx + 1, Column: m[2] + 1})
			}
		}
	}
	return refs
}

// jsPackage reduces a module specifier to its package name.
func jsPackage(spec string) (string, bool) {
	switch {
	case spec == "",
		strings.HasPrefix(spec, "."),
		strings.HasPrefix(spec, "/"),
		strings.HasPrefix(spec, "~"),
		strings.HasPrefix(spec, "#"),
		strings.HasPrefix(spec, "@/"),
		strings.Contains(spec, "://"),
		strings.HasPrefix(spec, "data:"),
		strings.HasPrefix(spec, "virtual:"):
		return "", false
	}

	spec = strings.TrimPrefix(spec, "node:")
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 || parts[1] == "" {
			return "", false
		}
		return parts[0] + "/" + parts[1], true
	}
	return parts[0], true
}

func rustImports(src *analyzers.Source) []importRef {
	local := map[string]struct{}{
		"crate": {}, "self": {}, "super": {}, "Self": {},
	}
	for _, line := range src.Lines() {
		if m := rustMod.FindStringSubmatch(line); m != nil {
			local[m[1]] = struct{}{}
		}
	}

	var refs []importRef
	for idx, line := range src.Lines() {
		for _, exp := range []*regexp.Regexp{rustUse, rustExtern} {
			m := exp.FindStringSubmatchIndex(line)
			if m == nil {
				continue
			}
			name := line[m[2]:m[3]]
			if _, ok := local[name]; ok {
				continue
			}
			refs = append(refs, importRef{Name: name, Line: idx + 1, Column: m[2] + 1})
		}
	}
	return refs
}

func goImports(src *analyzers.Source) []importRef {
	imports, err := goast.Imports(src.Path, []byte(src.Text))
	if err != nil {
		return nil
	}

	refs := make([]importRef, 0, len(imports))
	for _, imp := range imports {
		refs = append(refs, importRef{Name: imp.Path, Line: imp.Line, Column: imp.Column})
	}
	return refs
}

func topLevel(name, sep string) string {
	if i := strings.Index(name, sep); i >= 0 {
		return name[:i]
	}
	return name
}
