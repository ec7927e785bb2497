// Package code implements the code analyzer: hallucinated imports and API
// endpoints, compiled code rules, and CSS/HTML vocabulary checks.
package code

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/deepsourcelabs/vow/allowlist"
	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/analyzers/goast"
	"github.com/deepsourcelabs/vow/rules"
	"github.com/deepsourcelabs/vow/types"
)

// RuleHallucinatedImport flags imports of packages that do not exist.
const RuleHallucinatedImport = "hallucinated-import"

// Languages the analyzer supports without any rules targeting them.
var builtinLanguages = []string{"python", "javascript", "typescript", "rust", "go", "css", "html"}

// Prose belongs to the text analyzer; rules without a file type never pull
// it into the code analyzer.
var prose = analyzers.NewLanguageSet("markdown", "text")

// Names that are almost always project-local modules.
var conventionalLocal = map[string]struct{}{
	"app": {}, "api": {}, "lib": {}, "src": {}, "utils": {}, "util": {},
	"config": {}, "configs": {}, "settings": {}, "models": {}, "model": {},
	"tests": {}, "test": {}, "helpers": {}, "helper": {}, "common": {},
	"core": {}, "main": {}, "constants": {}, "types": {}, "schemas": {},
	"services": {}, "views": {}, "routes": {}, "handlers": {}, "components": {},
	"internal": {}, "shared": {}, "db": {}, "database": {}, "conftest": {},
	"fixtures": {}, "scripts": {}, "server": {}, "client": {},
}

var packageShape = map[string]*regexp.Regexp{
	"python":     regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`),
	"javascript": regexp.MustCompile(`^(?:@[a-z0-9][a-z0-9._~-]*/)?[a-z0-9][a-z0-9._~-]*$`),
	"rust":       regexp.MustCompile(`^[a-z_][a-z0-9_]*$`),
	"go":         regexp.MustCompile(`^[a-z0-9][a-z0-9_./-]*$`),
}

// Options configure an Analyzer.
type Options struct {
	// Allowlist holds the known package names. A nil snapshot disables
	// import checks.
	Allowlist *allowlist.Snapshot
	// Rules are the compiled rules; only those for the code analyzer apply.
	Rules *rules.Table
	// LocalModules are project module names never reported as imports. A Go
	// module with a dotless single-element path, such as "myapp", needs to be
	// listed here; nested paths like myapp/handlers are never judged.
	LocalModules []string
}

// Analyzer is the code analyzer. It holds only immutable data and is safe
// for concurrent use.
type Analyzer struct {
	allowlist *allowlist.Snapshot
	rules     *rules.Table
	local     map[string]struct{}
	// languages get the import and API checks as well as the rules.
	languages analyzers.LanguageSet
	// ruled are reached by rules only.
	ruled    analyzers.LanguageSet
	wildcard bool
}

// New returns a code analyzer.
func New(opts Options) *Analyzer {
	local := make(map[string]struct{}, len(opts.LocalModules))
	for _, m := range opts.LocalModules {
		local[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}

	langs := analyzers.NewLanguageSet(builtinLanguages...)
	for _, ft := range opts.Rules.Languages(types.AnalyzerCode) {
		if !strings.HasPrefix(ft, ".") {
			langs[ft] = struct{}{}
		}
	}

	ruled := analyzers.NewLanguageSet()
	for _, lang := range opts.Rules.Targets(types.AnalyzerCode) {
		if !langs.Contains(lang) {
			ruled[lang] = struct{}{}
		}
	}

	return &Analyzer{
		allowlist: opts.Allowlist,
		rules:     opts.Rules,
		local:     local,
		languages: langs,
		ruled:     ruled,
		wildcard:  opts.Rules.HasWildcard(types.AnalyzerCode),
	}
}

func (*Analyzer) Name() string { return types.AnalyzerCode }

// Supports reports whether language is built in or reached by a code rule,
// either by name, by extension or through a rule for every file type.
func (a *Analyzer) Supports(language string) bool {
	if a.languages.Contains(language) || a.ruled.Contains(language) {
		return true
	}
	return a.wildcard && !prose.Contains(language)
}

// Analyze runs every code check over src.
func (a *Analyzer) Analyze(ctx context.Context, src *analyzers.Source) (types.AnalyzerOutput, error) {
	out := analyzers.NewOutput(types.AnalyzerCode, src)

	if a.languages.Contains(src.Language) {
		a.checkImports(out, src)

		switch src.Language {
		case "css":
			if err := checkCSS(ctx, out, src); err != nil {
				return types.AnalyzerOutput{}, err
			}
		case "html":
			checkHTML(out, src)
		default:
			checkAPIs(out, src)
		}
	}

	if a.rules != nil {
		diags, err := a.rules.Evaluate(ctx, types.AnalyzerCode, src)
		if err != nil {
			return types.AnalyzerOutput{}, err
		}
		for _, d := range diags {
			out.Report(d)
		}
	}

	if err := ctx.Err(); err != nil {
		return types.AnalyzerOutput{}, err
	}
	return out.Finish(), nil
}

func (a *Analyzer) checkImports(out *analyzers.Output, src *analyzers.Source) {
	if a.allowlist == nil {
		return
	}

	lang := allowlist.Language(src.Language)
	for _, ref := range extractImports(src) {
		if !a.hallucinated(lang, ref.Name) {
			continue
		}
		out.Report(analyzers.Diagnostic{
			RuleID:   RuleHallucinatedImport,
			Severity: types.SeverityHigh,
			Message:  fmt.Sprintf("Potentially hallucinated package import: '%s'", ref.Name),
			Line:     ref.Line,
			Column:   ref.Column,
		})
	}
}

// hallucinated reports whether an import of name should be flagged.
func (a *Analyzer) hallucinated(lang, name string) bool {
	known, found := a.allowlist.Lookup(lang, name)
	if found {
		return !known
	}

	// only standard library shaped Go paths can be judged offline
	if lang == "go" && !goast.Standard(name) {
		return false
	}

	if len(name) < 3 {
		return false
	}
	if shape, ok := packageShape[lang]; ok && !shape.MatchString(name) {
		return false
	}

	base := strings.ToLower(name)
	if lang == "go" {
		base = topLevel(base, "/")
	} else if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if _, ok := conventionalLocal[base]; ok {
		return false
	}
	if _, ok := a.local[base]; ok {
		return false
	}
	if _, ok := a.local[strings.ToLower(name)]; ok {
		return false
	}
	return true
}
