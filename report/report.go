// Package report summarizes pipeline reports, maps them to process exit
// codes and writes them out.
package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/deepsourcelabs/vow/types"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitIssues   = 1
	ExitConfig   = 2
	ExitRule     = 3
	ExitFileIO   = 4
	ExitInternal = 10
)

// Summary counts the outcomes of a run. Files analyzed with issues, files
// skipped because of errors and files never started are counted apart.
type Summary struct {
	FilesAnalyzed   int            `json:"files_analyzed"`
	FilesWithIssues int            `json:"files_with_issues"`
	FilesClean      int            `json:"files_clean"`
	FilesSkipped    int            `json:"files_skipped"`
	Unprocessed     int            `json:"unprocessed"`
	TotalIssues     int            `json:"total_issues"`
	BySeverity      map[string]int `json:"by_severity"`
}

// Summarize counts the results, errors and unprocessed files of r.
func Summarize(r types.Report) Summary {
	s := Summary{
		FilesAnalyzed: len(r.Results),
		FilesSkipped:  len(r.Errors),
		Unprocessed:   len(r.Unprocessed),
		BySeverity:    make(map[string]int),
	}

	for _, res := range r.Results {
		if len(res.Issues) == 0 {
			s.FilesClean++
			continue
		}
		s.FilesWithIssues++
		for _, issue := range res.Issues {
			s.TotalIssues++
			s.BySeverity[issue.Severity.String()]++
		}
	}

	return s
}

func (s Summary) String() string {
	msg := fmt.Sprintf("%d files analyzed: %d with issues, %d clean; %d issues",
		s.FilesAnalyzed, s.FilesWithIssues, s.FilesClean, s.TotalIssues)
	if s.FilesSkipped > 0 {
		msg += fmt.Sprintf("; %d skipped due to errors", s.FilesSkipped)
	}
	if s.Unprocessed > 0 {
		msg += fmt.Sprintf("; %d not processed", s.Unprocessed)
	}
	return msg
}

// ExitCode maps the outcome of a run to a process exit code. err is the
// error that stopped the run, if any. An issue at or above threshold (any
// issue when threshold is zero) exits with ExitIssues.
//
// Fatal errors take precedence, then internal per-file errors, then issues,
// then the remaining per-file errors.
func ExitCode(err error, r types.Report, threshold types.Severity) int {
	if err != nil {
		var (
			configErr    *types.ConfigError
			allowlistErr *types.AllowlistLoadError
			ruleErr      *types.RuleCompileError
		)
		switch {
		case errors.As(err, &configErr), errors.As(err, &allowlistErr):
			return ExitConfig
		case errors.As(err, &ruleErr):
			return ExitRule
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// a cancelled run is judged on what it completed
		default:
			return ExitInternal
		}
	}

	fileErrors := false
	for _, fe := range r.Errors {
		if fe.Kind == types.ErrorKindInternal {
			return ExitInternal
		}
		fileErrors = true
	}

	for _, res := range r.Results {
		for _, issue := range res.Issues {
			if issue.Severity.AtLeast(threshold) {
				return ExitIssues
			}
		}
	}

	if fileErrors {
		return ExitFileIO
	}
	return ExitOK
}
