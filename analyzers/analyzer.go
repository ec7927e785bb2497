// Package analyzers defines the capability every analyzer implements, plus
// the helpers analyzers share for turning matches into issues.
package analyzers

import (
	"context"
	"sort"

	"github.com/deepsourcelabs/vow/types"
)

// Analyzer inspects a single file. Built-in and custom analyzers implement the
// same interface and the pipeline treats them uniformly.
//
// Analyze must not keep state between calls; the pipeline calls it from many
// goroutines at once.
type Analyzer interface {
	Name() string
	Supports(language string) bool
	Analyze(ctx context.Context, src *Source) (types.AnalyzerOutput, error)
}

// LanguageSet is a convenience for implementing Supports.
type LanguageSet map[string]struct{}

// NewLanguageSet returns a set of the given language tags.
func NewLanguageSet(languages ...string) LanguageSet {
	s := make(LanguageSet, len(languages))
	for _, lang := range languages {
		s[lang] = struct{}{}
	}
	return s
}

// Contains reports whether language is in the set.
func (s LanguageSet) Contains(language string) bool {
	_, ok := s[language]
	return ok
}

// Sorted returns the languages in lexical order.
func (s LanguageSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for lang := range s {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// ByName sorts analyzers by name.
func ByName(list []Analyzer) []Analyzer {
	sorted := make([]Analyzer, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name() < sorted[j].Name()
	})
	return sorted
}
