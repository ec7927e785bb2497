package rules

import (
	"path/filepath"
	"strings"

	"github.com/deepsourcelabs/vow/analyzers/processors"
	"github.com/deepsourcelabs/vow/types"
)

// Scope selects what a rule's patterns are matched against.
type Scope string

const (
	// ScopeLine matches every pattern against each line.
	ScopeLine Scope = "line"
	// ScopeWholeFile matches every pattern against the whole buffer.
	ScopeWholeFile Scope = "whole-file"
	// ScopeFunctionBody matches line by line, inside function bodies only.
	ScopeFunctionBody Scope = "function-body"
)

func parseScope(s string) (Scope, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "line":
		return ScopeLine, true
	case "whole-file", "whole_file", "file":
		return ScopeWholeFile, true
	case "function-body", "function_body", "function":
		return ScopeFunctionBody, true
	default:
		return "", false
	}
}

// Wildcard is the file type that matches every file.
const Wildcard = "*"

// Rule is a compiled rule. Rules are shared by every worker and must not be
// modified after compilation.
type Rule struct {
	ID          string
	Name        string
	Description string
	Severity    types.Severity
	Analyzer    string
	Patterns    []processors.Matcher
	FileTypes   []string
	Languages   []string
	Scope       Scope
	Strictness  types.Strictness

	// Set is the name of the rule set the rule came from.
	Set string

	index int
}

// Applies reports whether the rule targets a file with the given language and path.
func (r *Rule) Applies(language, path string) bool {
	lang := strings.ToLower(language)
	ext := strings.ToLower(filepath.Ext(path))

	if len(r.Languages) > 0 && !contains(r.Languages, lang) {
		return false
	}
	if len(r.FileTypes) == 0 {
		return true
	}
	for _, ft := range r.FileTypes {
		if ft == Wildcard || ft == lang || (ext != "" && ft == ext) {
			return true
		}
	}
	return false
}

// Describe renders the rule's markdown description as sanitized HTML.
func (r *Rule) Describe() (string, error) {
	return renderMarkdown(r.Description)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
