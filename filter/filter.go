// Package filter drops issues below a severity floor and rescores what is left.
package filter

import (
	"github.com/deepsourcelabs/vow/score"
	"github.com/deepsourcelabs/vow/types"
)

// Resolve returns the effective minimum severity. A run-time override wins over
// the configured value; zero means no filtering.
func Resolve(override types.Severity, cfg types.Config) types.Severity {
	if override.Valid() {
		return override
	}
	if cfg.MinSeverity.Valid() {
		return cfg.MinSeverity
	}
	return 0
}

// Apply returns a copy of result without the issues strictly below min. Scores
// are recomputed from the reduced issue set over the same participating
// analyzers. The input is never modified.
func Apply(result types.AnalysisResult, min types.Severity, weights score.Weights) (types.AnalysisResult, error) {
	kept := make([]types.Issue, 0, len(result.Issues))
	for _, issue := range result.Issues {
		if issue.Severity.AtLeast(min) {
			kept = append(kept, issue)
		}
	}

	participants := make([]string, 0, len(result.Analyzers))
	for _, a := range result.Analyzers {
		participants = append(participants, a.Analyzer)
	}

	scores, trust, err := score.Aggregate(participants, kept, weights)
	if err != nil {
		return types.AnalysisResult{}, err
	}

	return types.AnalysisResult{
		FilePath:   result.FilePath,
		Language:   result.Language,
		Issues:     types.SortIssues(kept),
		TrustScore: trust,
		Analyzers:  scores,
	}, nil
}

// ApplyAll filters every result in order.
func ApplyAll(results []types.AnalysisResult, min types.Severity, weights score.Weights) ([]types.AnalysisResult, error) {
	out := make([]types.AnalysisResult, 0, len(results))
	for _, r := range results {
		filtered, err := Apply(r, min, weights)
		if err != nil {
			return nil, err
		}
		out = append(out, filtered)
	}
	return out, nil
}
