package filter

import (
	"testing"

	"github.com/go-test/deep"

	"github.com/deepsourcelabs/vow/score"
	"github.com/deepsourcelabs/vow/types"
)

func sample() types.AnalysisResult {
	return types.AnalysisResult{
		FilePath: "app.py",
		Language: "python",
		Issues: []types.Issue{
			{RuleID: "reverse-shell", Analyzer: "security", Severity: types.SeverityCritical, Line: 4},
			{RuleID: "env-secret-access", Analyzer: "security", Severity: types.SeverityMedium, Line: 9},
			{RuleID: "dns-lookup", Analyzer: "security", Severity: types.SeverityLow, Line: 12},
		},
		TrustScore: 64,
		Analyzers:  []types.AnalyzerScore{{Analyzer: "security", SubScore: 64}},
	}
}

func TestResolve(t *testing.T) {
	type test struct {
		description string
		override    types.Severity
		configured  types.Severity
		want        types.Severity
	}

	tests := []test{
		{description: "override wins over config", override: types.SeverityHigh, configured: types.SeverityLow, want: types.SeverityHigh},
		{description: "config used without override", configured: types.SeverityMedium, want: types.SeverityMedium},
		{description: "no filtering when neither is set", want: 0},
	}

	for _, tc := range tests {
		cfg := types.DefaultConfig()
		cfg.MinSeverity = tc.configured
		if got := Resolve(tc.override, cfg); got != tc.want {
			t.Errorf("description: %s, got %v, want %v", tc.description, got, tc.want)
		}
	}
}

func TestApply_HighThreshold(t *testing.T) {
	in := sample()
	got, err := Apply(in, types.SeverityHigh, score.Weights(types.DefaultWeights()))
	if err != nil {
		t.Fatal(err)
	}

	want := types.AnalysisResult{
		FilePath:   "app.py",
		Language:   "python",
		Issues:     []types.Issue{in.Issues[0]},
		TrustScore: 75,
		Analyzers:  []types.AnalyzerScore{{Analyzer: "security", SubScore: 75}},
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("filtered result differs: %v", diff)
	}

	if diff := deep.Equal(in, sample()); diff != nil {
		t.Errorf("input was mutated: %v", diff)
	}
}

func TestApply_NoThresholdKeepsEverything(t *testing.T) {
	got, err := Apply(sample(), 0, score.Weights(types.DefaultWeights()))
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Issues) != 3 {
		t.Errorf("got %d issues, want 3", len(got.Issues))
	}
	// 100 - 25 - 8 - 3
	if got.TrustScore != 64 {
		t.Errorf("got trust %d, want 64", got.TrustScore)
	}
}

func TestApply_Idempotent(t *testing.T) {
	weights := score.Weights(types.DefaultWeights())
	for _, sev := range types.Severities {
		once, err := Apply(sample(), sev, weights)
		if err != nil {
			t.Fatal(err)
		}
		twice, err := Apply(once, sev, weights)
		if err != nil {
			t.Fatal(err)
		}
		if diff := deep.Equal(once, twice); diff != nil {
			t.Errorf("threshold %s: second application changed the result: %v", sev, diff)
		}
	}
}

func TestApply_Antitone(t *testing.T) {
	weights := score.Weights(types.DefaultWeights())
	for _, x := range types.Severities {
		for _, y := range types.Severities {
			if x < y {
				continue
			}
			stricter, err := Apply(sample(), x, weights)
			if err != nil {
				t.Fatal(err)
			}
			looser, err := Apply(sample(), y, weights)
			if err != nil {
				t.Fatal(err)
			}

			for _, issue := range stricter.Issues {
				found := false
				for _, other := range looser.Issues {
					if issue == other {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("issue %s kept at %s but dropped at %s", issue.RuleID, x, y)
				}
			}
			if stricter.TrustScore < looser.TrustScore {
				t.Errorf("stricter threshold %s scored lower than %s", x, y)
			}
		}
	}
}

func TestApplyAll(t *testing.T) {
	clean := types.AnalysisResult{
		FilePath:   "lib.py",
		Language:   "python",
		TrustScore: 100,
		Analyzers:  []types.AnalyzerScore{{Analyzer: "code", SubScore: 100}},
	}
	in := []types.AnalysisResult{sample(), clean}

	got, err := ApplyAll(in, types.SeverityMedium, score.Weights(types.DefaultWeights()))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}

	type test struct {
		description string
		result      types.AnalysisResult
		path        string
		issues      int
		trust       int
	}
	tests := []test{
		// 100 - 25 - 8
		{description: "low issue dropped and rescored", result: got[0], path: "app.py", issues: 2, trust: 67},
		{description: "clean result unchanged", result: got[1], path: "lib.py", issues: 0, trust: 100},
	}
	for _, tc := range tests {
		if tc.result.FilePath != tc.path || len(tc.result.Issues) != tc.issues || tc.result.TrustScore != tc.trust {
			t.Errorf("description: %s, got %s with %d issues and trust %d", tc.description, tc.result.FilePath, len(tc.result.Issues), tc.result.TrustScore)
		}
	}

	if diff := deep.Equal(in[0], sample()); diff != nil {
		t.Errorf("input was mutated: %v", diff)
	}
}
