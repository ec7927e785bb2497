package analyzers

import (
	"strings"

	"github.com/deepsourcelabs/vow/score"
	"github.com/deepsourcelabs/vow/types"
)

const maxContext = 200

// Diagnostic is a finding before it is attached to a file and an analyzer.
type Diagnostic struct {
	RuleID   string
	Severity types.Severity
	Message  string
	Line     int
	Column   int
}

// Issue builds the issue for d, using the trimmed source line as context.
func (s *Source) Issue(analyzer string, d Diagnostic) types.Issue {
	return types.Issue{
		RuleID:   d.RuleID,
		Analyzer: analyzer,
		Severity: d.Severity,
		Message:  d.Message,
		FilePath: s.Path,
		Line:     d.Line,
		Column:   d.Column,
		Context:  Snippet(s.Line(d.Line)),
	}
}

// Snippet trims a source line for use as issue context.
func Snippet(line string) string {
	line = strings.TrimSpace(line)
	if len(line) > maxContext {
		// cut on a rune boundary
		cut := maxContext
		for cut > 0 && !utf8Start(line[cut]) {
			cut--
		}
		line = line[:cut] + "..."
	}
	return line
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}

// Output collects issues for one analyzer and one file.
type Output struct {
	analyzer string
	src      *Source
	issues   []types.Issue
	seen     map[dedupKey]struct{}
}

type dedupKey struct {
	rule string
	line int
	msg  string
}

// NewOutput returns an empty collector.
func NewOutput(analyzer string, src *Source) *Output {
	return &Output{analyzer: analyzer, src: src, seen: make(map[dedupKey]struct{})}
}

// Report adds a diagnostic. A second report of the same rule and message on
// the same line is dropped.
func (o *Output) Report(d Diagnostic) {
	key := dedupKey{rule: d.RuleID, line: d.Line, msg: d.Message}
	if _, ok := o.seen[key]; ok {
		return
	}
	o.seen[key] = struct{}{}
	o.issues = append(o.issues, o.src.Issue(o.analyzer, d))
}

// Add appends already built issues, applying the same de-duplication.
func (o *Output) Add(issues ...types.Issue) {
	for _, issue := range issues {
		key := dedupKey{rule: issue.RuleID, line: issue.Line, msg: issue.Message}
		if _, ok := o.seen[key]; ok {
			continue
		}
		o.seen[key] = struct{}{}
		issue.Analyzer = o.analyzer
		o.issues = append(o.issues, issue)
	}
}

// Issues returns the sorted issues collected so far.
func (o *Output) Issues() []types.Issue {
	return types.SortIssues(o.issues)
}

// Finish returns the analyzer output with its sub-score.
func (o *Output) Finish() types.AnalyzerOutput {
	issues := o.Issues()
	return types.AnalyzerOutput{
		Analyzer: o.analyzer,
		Issues:   issues,
		SubScore: score.SubScore(issues),
	}
}
