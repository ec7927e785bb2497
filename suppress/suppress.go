// Package suppress reads inline suppression directives from a file's text.
//
//	x = eval(data)  # vow:ignore eval-usage
//	// vow:ignore
//	<!-- vow:ignore-file -->
//
// A "vow:ignore" directive silences issues on its own line and on the line
// directly below it. Without a rule list it silences every rule. A
// "vow:ignore-file" directive in the first FileHeaderLines lines silences
// the whole file.
package suppress

import (
	"regexp"
	"strings"

	"github.com/deepsourcelabs/vow/types"
)

// FileHeaderLines is how far into a file "vow:ignore-file" is honoured.
const FileHeaderLines = 5

var (
	fileDirective = regexp.MustCompile(`\bvow:ignore-file\b`)
	lineDirective = regexp.MustCompile(`\bvow:ignore(?:[ \t]+([\w-]+(?:[ \t]*,[ \t]*[\w-]+)*))?`)
)

// Directives holds the suppression directives of one file.
type Directives struct {
	file bool

	// lines maps a directive's line to the rules it names. A nil slice
	// means every rule.
	lines map[int][]string
}

// Parse collects the directives of text.
func Parse(text string) Directives {
	d := Directives{lines: make(map[int][]string)}
	if !strings.Contains(text, "vow:ignore") {
		return d
	}

	for idx, line := range strings.Split(text, "\n") {
		if fileDirective.MatchString(line) {
			if idx < FileHeaderLines {
				d.file = true
			}
			continue
		}

		m := lineDirective.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		var ids []string
		if m[1] != "" {
			for _, id := range strings.Split(m[1], ",") {
				ids = append(ids, strings.TrimSpace(id))
			}
		}
		d.lines[idx+1] = ids
	}

	return d
}

// Empty reports whether d suppresses nothing.
func (d Directives) Empty() bool {
	return !d.file && len(d.lines) == 0
}

// Suppressed reports whether issue is silenced by a directive.
func (d Directives) Suppressed(issue types.Issue) bool {
	if d.file {
		return true
	}
	return d.covers(issue.Line, issue.RuleID) || d.covers(issue.Line-1, issue.RuleID)
}

func (d Directives) covers(line int, rule string) bool {
	ids, ok := d.lines[line]
	if !ok {
		return false
	}
	if ids == nil {
		return true
	}
	for _, id := range ids {
		if id == rule {
			return true
		}
	}
	return false
}

// Filter returns the issues not silenced by d. The input is not modified.
func (d Directives) Filter(issues []types.Issue) []types.Issue {
	if d.Empty() {
		return issues
	}

	kept := make([]types.Issue, 0, len(issues))
	for _, issue := range issues {
		if !d.Suppressed(issue) {
			kept = append(kept, issue)
		}
	}
	return kept
}
