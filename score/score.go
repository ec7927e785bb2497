// Package score converts issue lists into trust scores.
package score

import (
	"fmt"
	"math"
	"sort"

	"github.com/deepsourcelabs/vow/types"
)

const (
	// MaxScore is the score of an analyzer that reported nothing.
	MaxScore = 100.0
	MinScore = 0.0
)

// Penalties maps each severity to the amount it removes from a sub-score.
var Penalties = map[types.Severity]float64{
	types.SeverityCritical: 25,
	types.SeverityHigh:     15,
	types.SeverityMedium:   8,
	types.SeverityLow:      3,
}

// SubScore returns 100 minus the penalty of every issue, clamped to [0, 100].
func SubScore(issues []types.Issue) float64 {
	total := MaxScore
	for _, issue := range issues {
		total -= Penalties[issue.Severity]
	}
	return clamp(total)
}

// Weights maps analyzer names to their relative weight.
type Weights map[string]float64

// Normalize returns the weights of the given analyzers rescaled to sum to 1.
// Analyzers without a configured weight get the smallest configured weight, so
// a plugin analyzer never dominates or vanishes.
func (w Weights) Normalize(analyzers []string) (Weights, error) {
	if len(analyzers) == 0 {
		return Weights{}, nil
	}

	fallback := w.smallest()

	out := make(Weights, len(analyzers))
	var sum float64
	for _, name := range analyzers {
		weight, ok := w[name]
		if !ok {
			weight = fallback
		}
		if weight < 0 || math.IsNaN(weight) {
			return nil, &types.InternalError{Op: "score.Normalize", Detail: fmt.Sprintf("negative weight %v for analyzer %q", weight, name)}
		}
		out[name] = weight
		sum += weight
	}

	// all weights zero: fall back to an unweighted mean
	if sum == 0 {
		for name := range out {
			out[name] = 1 / float64(len(out))
		}
		return out, nil
	}

	for name := range out {
		out[name] /= sum
	}
	return out, nil
}

func (w Weights) smallest() float64 {
	smallest := 1.0
	found := false
	for _, weight := range w {
		if weight > 0 && (!found || weight < smallest) {
			smallest = weight
			found = true
		}
	}
	return smallest
}

// Combine returns the weighted average of the analyzers' sub-scores, rounded to
// the nearest integer. Analyzers are visited in name order so the floating
// point sum does not depend on execution order.
func Combine(scores []types.AnalyzerScore, weights Weights) (int, error) {
	if len(scores) == 0 {
		return int(MaxScore), nil
	}

	sorted := make([]types.AnalyzerScore, len(scores))
	copy(sorted, scores)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Analyzer < sorted[j].Analyzer
	})

	names := make([]string, 0, len(sorted))
	for _, s := range sorted {
		names = append(names, s.Analyzer)
	}

	normalized, err := weights.Normalize(names)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, s := range sorted {
		total += normalized[s.Analyzer] * s.SubScore
	}

	// a well-formed combination of clamped sub-scores cannot leave the range
	rounded := math.Round(total)
	if rounded < MinScore || rounded > MaxScore || math.IsNaN(rounded) {
		return 0, &types.InternalError{Op: "score.Combine", Detail: fmt.Sprintf("trust score %v outside [0, 100]", total)}
	}

	return int(rounded), nil
}

// Aggregate groups issues by analyzer, computes every participating analyzer's
// sub-score and combines them. Issues from analyzers that are not listed as
// participating are ignored.
func Aggregate(participants []string, issues []types.Issue, weights Weights) ([]types.AnalyzerScore, int, error) {
	byAnalyzer := make(map[string][]types.Issue, len(participants))
	for _, issue := range issues {
		byAnalyzer[issue.Analyzer] = append(byAnalyzer[issue.Analyzer], issue)
	}

	names := make([]string, len(participants))
	copy(names, participants)
	sort.Strings(names)

	scores := make([]types.AnalyzerScore, 0, len(names))
	for _, name := range names {
		scores = append(scores, types.AnalyzerScore{
			Analyzer: name,
			SubScore: SubScore(byAnalyzer[name]),
		})
	}

	trust, err := Combine(scores, weights)
	if err != nil {
		return nil, 0, err
	}

	return scores, trust, nil
}

func clamp(v float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, v))
}
