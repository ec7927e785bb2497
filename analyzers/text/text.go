// Package text implements the text analyzer for markdown and plain text:
// AI-typical phrasing, unsourced claims and malformed references.
package text

import (
	"context"
	"strings"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/rules"
	"github.com/deepsourcelabs/vow/types"
)

// Rule ids reported by the text analyzer.
const (
	RulePhraseDensity      = "ai-phrase-density"
	RuleSelfReference      = "ai-self-reference"
	RuleSentenceUniformity = "sentence-uniformity"
	RuleUnsourcedClaim     = "unsourced-claim"
	RuleBrokenReference    = "broken-reference"
)

var languages = analyzers.NewLanguageSet("markdown", "text")

// Analyzer is the text analyzer. It is safe for concurrent use.
type Analyzer struct {
	rules *rules.Table
	// ruled are reached by text rules only.
	ruled analyzers.LanguageSet
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRules makes the analyzer evaluate the rules of t that target it.
func WithRules(t *rules.Table) Option {
	return func(a *Analyzer) { a.rules = t }
}

// New returns a text analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{}
	for _, opt := range opts {
		opt(a)
	}
	a.ruled = analyzers.NewLanguageSet(a.rules.Targets(types.AnalyzerText)...)
	return a
}

func (*Analyzer) Name() string { return types.AnalyzerText }

// Supports reports whether language is prose or named by a text rule.
func (a *Analyzer) Supports(language string) bool {
	return languages.Contains(language) || a.ruled.Contains(language)
}

// Analyze runs every text check over src. The checks are independent of
// each other.
func (a *Analyzer) Analyze(ctx context.Context, src *analyzers.Source) (types.AnalyzerOutput, error) {
	out := analyzers.NewOutput(types.AnalyzerText, src)

	if languages.Contains(src.Language) {
		prose := src.Text
		if src.Language == "markdown" {
			prose = maskCode(prose)
		}

		checkPhrases(out, src, prose)
		checkUniformity(out, prose)
		checkClaims(out, prose)
		if err := ctx.Err(); err != nil {
			return types.AnalyzerOutput{}, err
		}

		checkReferences(out, src, prose)
		if src.Language == "markdown" {
			checkLinks(out, src)
		}
	}

	if a.rules != nil {
		diags, err := a.rules.Evaluate(ctx, types.AnalyzerText, src)
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

// maskCode blanks fenced code blocks and inline code spans, keeping every
// byte offset and line break in place.
func maskCode(text string) string {
	b := []byte(text)

	var fence string
	start := 0
	for start < len(b) {
		end := start
		for end < len(b) && b[end] != '\n' {
			end++
		}
		line := strings.TrimSpace(string(b[start:end]))

		switch {
		case fence != "":
			if strings.HasPrefix(line, fence) {
				fence = ""
			}
			blank(b[start:end])
		case strings.HasPrefix(line, "```"), strings.HasPrefix(line, "~~~"):
			fence = line[:3]
			blank(b[start:end])
		default:
			maskInline(b[start:end])
		}
		start = end + 1
	}

	return string(b)
}

func maskInline(line []byte) {
	open := -1
	for i, c := range line {
		if c != '`' {
			continue
		}
		if open < 0 {
			open = i
			continue
		}
		blank(line[open : i+1])
		open = -1
	}
}

func blank(b []byte) {
	for i := range b {
		if b[i] != '\r' {
			b[i] = ' '
		}
	}
}
