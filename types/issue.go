package types

import "sort"

// Issue is a single finding produced by an analyzer. Issues are values; derived
// copies are produced instead of mutating them.
type Issue struct {
	RuleID   string   `json:"rule_id"`
	Analyzer string   `json:"analyzer"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	FilePath string   `json:"file_path"`
	Line     int      `json:"line"`

	// Column is 1-based; zero means the column is not known.
	Column  int    `json:"column,omitempty"`
	Context string `json:"context,omitempty"`
}

// Less orders issues by line, then rule id. Column, message and analyzer break
// the remaining ties so the order is total.
func (i Issue) Less(o Issue) bool {
	if i.Line != o.Line {
		return i.Line < o.Line
	}
	if i.RuleID != o.RuleID {
		return i.RuleID < o.RuleID
	}
	if i.Column != o.Column {
		return i.Column < o.Column
	}
	if i.Message != o.Message {
		return i.Message < o.Message
	}
	return i.Analyzer < o.Analyzer
}

// SortIssues returns a sorted copy of issues.
func SortIssues(issues []Issue) []Issue {
	sorted := make([]Issue, len(issues))
	copy(sorted, issues)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Less(sorted[b])
	})
	return sorted
}
