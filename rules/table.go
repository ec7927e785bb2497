package rules

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/analyzers/scope"
)

// Table holds compiled rules indexed by file type. It is immutable and safe for
// concurrent use.
type Table struct {
	rules    []*Rule
	byType   map[string][]*Rule
	wildcard []*Rule
	byID     map[string]*Rule
}

func newTable(rules []*Rule) *Table {
	t := &Table{
		byType: make(map[string][]*Rule),
		byID:   make(map[string]*Rule, len(rules)),
	}

	for i, r := range rules {
		r.index = i
		t.rules = append(t.rules, r)
		t.byID[r.ID] = r

		if len(r.FileTypes) == 0 || contains(r.FileTypes, Wildcard) {
			t.wildcard = append(t.wildcard, r)
			continue
		}
		for _, ft := range r.FileTypes {
			t.byType[ft] = append(t.byType[ft], r)
		}
	}

	return t
}

// Len returns the number of active rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Rules returns the active rules in compile order.
func (t *Table) Rules() []*Rule {
	if t == nil {
		return nil
	}
	out := make([]*Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Lookup returns the active rule with the given id.
func (t *Table) Lookup(id string) (*Rule, bool) {
	if t == nil {
		return nil, false
	}
	r, ok := t.byID[id]
	return r, ok
}

// ForFile returns the rules of an analyzer that apply to a file, in compile order.
func (t *Table) ForFile(analyzer, language, path string) []*Rule {
	if t == nil {
		return nil
	}

	lang := strings.ToLower(language)
	ext := strings.ToLower(filepath.Ext(path))

	seen := make(map[*Rule]struct{})
	var out []*Rule
	collect := func(list []*Rule) {
		for _, r := range list {
			if _, ok := seen[r]; ok {
				continue
			}
			if r.Analyzer != analyzer || !r.Applies(lang, path) {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}

	collect(t.byType[lang])
	if ext != "" {
		collect(t.byType[ext])
	}
	collect(t.wildcard)

	sort.Slice(out, func(i, j int) bool {
		return out[i].index < out[j].index
	})
	return out
}

// Languages returns every language or extension some rule of analyzer targets
// explicitly.
func (t *Table) Languages(analyzer string) []string {
	if t == nil {
		return nil
	}
	set := make(map[string]struct{})
	for ft, list := range t.byType {
		for _, r := range list {
			if r.Analyzer == analyzer {
				set[ft] = struct{}{}
				break
			}
		}
	}
	out := make([]string, 0, len(set))
	for ft := range set {
		out = append(out, ft)
	}
	sort.Strings(out)
	return out
}

// Targets returns the language tags of the files analyzer's rules name
// explicitly. Extensions are mapped to their language; an extension with no
// known language maps to "", the tag of unrecognized files.
func (t *Table) Targets(analyzer string) []string {
	set := make(map[string]struct{})
	for _, ft := range t.Languages(analyzer) {
		if strings.HasPrefix(ft, ".") {
			ft = analyzers.DetectLanguage("file" + ft)
		}
		set[ft] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for lang := range set {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// HasWildcard reports whether analyzer has rules that apply to every file.
func (t *Table) HasWildcard(analyzer string) bool {
	if t == nil {
		return false
	}
	for _, r := range t.wildcard {
		if r.Analyzer == analyzer {
			return true
		}
	}
	return false
}

// Evaluate applies the analyzer's rules for src and returns their diagnostics.
func (t *Table) Evaluate(ctx context.Context, analyzer string, src *analyzers.Source) ([]analyzers.Diagnostic, error) {
	rules := t.ForFile(analyzer, src.Language, src.Path)
	if len(rules) == 0 {
		return nil, nil
	}

	var (
		diags     []analyzers.Diagnostic
		bodyLines map[int]struct{}
		resolved  bool
	)

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch rule.Scope {
		case ScopeWholeFile:
			diags = append(diags, matchWholeFile(rule, src)...)

		case ScopeFunctionBody:
			if !resolved {
				ranges, ok, err := scope.Functions(ctx, src.Language, []byte(src.Text))
				if err != nil {
					return nil, err
				}
				// without a grammar the whole file counts as one body
				if ok {
					bodyLines = scope.Lines(ranges)
				}
				resolved = true
			}
			d, err := matchLines(ctx, rule, src, bodyLines)
			if err != nil {
				return nil, err
			}
			diags = append(diags, d...)

		default:
			d, err := matchLines(ctx, rule, src, nil)
			if err != nil {
				return nil, err
			}
			diags = append(diags, d...)
		}
	}

	return diags, nil
}

// matchLines reports the first match of each pattern on every line. When only
// is non-nil, lines outside it are skipped.
func matchLines(ctx context.Context, rule *Rule, src *analyzers.Source, only map[int]struct{}) ([]analyzers.Diagnostic, error) {
	var diags []analyzers.Diagnostic
	for idx, line := range src.Lines() {
		if idx%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		lineNo := idx + 1
		if only != nil {
			if _, ok := only[lineNo]; !ok {
				continue
			}
		}

		for _, p := range rule.Patterns {
			matches := p.Match(line)
			if len(matches) == 0 {
				continue
			}
			m := matches[0]
			diags = append(diags, analyzers.Diagnostic{
				RuleID:   rule.ID,
				Severity: rule.Severity,
				Message:  p.Message(m),
				Line:     lineNo,
				Column:   m.Start + 1,
			})
		}
	}
	return diags, nil
}

func matchWholeFile(rule *Rule, src *analyzers.Source) []analyzers.Diagnostic {
	var diags []analyzers.Diagnostic
	for _, p := range rule.Patterns {
		for _, m := range p.Match(src.Text) {
			line, col := src.Position(m.Start)
			diags = append(diags, analyzers.Diagnostic{
				RuleID:   rule.ID,
				Severity: rule.Severity,
				Message:  p.Message(m),
				Line:     line,
				Column:   col,
			})
		}
	}
	return diags
}
