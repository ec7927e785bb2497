package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/go-test/deep"

	"github.com/deepsourcelabs/vow/types"
)

func sampleReport() types.Report {
	return types.Report{
		RunID: "run-1",
		Results: []types.AnalysisResult{
			{
				FilePath: "app/main.py",
				Language: "python",
				Issues: []types.Issue{
					{RuleID: "hallucinated-import", Analyzer: "code", Severity: types.SeverityHigh, Message: "Potentially hallucinated package import: 'fake_pkg'", FilePath: "app/main.py", Line: 2, Column: 8},
					{RuleID: "env-secret-access", Analyzer: "security", Severity: types.SeverityMedium, Message: "Read of a secret environment variable", FilePath: "app/main.py", Line: 5, Column: 7},
				},
				TrustScore: 84,
			},
			{FilePath: "docs/README.md", Language: "markdown", TrustScore: 100},
		},
		Errors: []types.FileError{
			{FilePath: "bin/blob.py", Language: "python", Kind: types.ErrorKindDecode, Message: "file contains NUL bytes"},
		},
		Unprocessed: []string{"z.py"},
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(sampleReport())
	want := Summary{
		FilesAnalyzed:   2,
		FilesWithIssues: 1,
		FilesClean:      1,
		FilesSkipped:    1,
		Unprocessed:     1,
		TotalIssues:     2,
		BySeverity:      map[string]int{"high": 1, "medium": 1},
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("summary: %s", diff)
	}

	wantText := "2 files analyzed: 1 with issues, 1 clean; 2 issues; 1 skipped due to errors; 1 not processed"
	if got.String() != wantText {
		t.Errorf("summary text: got %q", got.String())
	}
}

func TestExitCode(t *testing.T) {
	clean := types.Report{Results: []types.AnalysisResult{{FilePath: "a.py"}}}
	ioOnly := types.Report{Errors: []types.FileError{{FilePath: "a.py", Kind: types.ErrorKindFileRead}}}
	internal := sampleReport()
	internal.Errors = append(internal.Errors, types.FileError{FilePath: "c.py", Kind: types.ErrorKindInternal})

	type test struct {
		description string
		err         error
		report      types.Report
		threshold   types.Severity
		want        int
	}

	tests := []test{
		{"clean run", nil, clean, 0, ExitOK},
		{"issues without threshold", nil, sampleReport(), 0, ExitIssues},
		{"issues at threshold", nil, sampleReport(), types.SeverityHigh, ExitIssues},
		{"issues below threshold leave file errors", nil, sampleReport(), types.SeverityCritical, ExitFileIO},
		{"file errors only", nil, ioOnly, 0, ExitFileIO},
		{"internal file error", nil, internal, 0, ExitInternal},
		{"configuration error", &types.ConfigError{Source: "vow.toml", Err: errors.New("bad")}, types.Report{}, 0, ExitConfig},
		{"allowlist error", fmt.Errorf("startup: %w", &types.AllowlistLoadError{Source: "pkgs.toml", Err: errors.New("bad")}), types.Report{}, 0, ExitConfig},
		{"rule error", &types.RuleCompileError{RuleSet: "custom", Reason: "bad regex"}, types.Report{}, 0, ExitRule},
		{"cancelled run is judged on its results", context.Canceled, sampleReport(), 0, ExitIssues},
		{"unknown error", errors.New("boom"), clean, 0, ExitInternal},
	}

	for _, tc := range tests {
		got := ExitCode(tc.err, tc.report, tc.threshold)
		if diff := deep.Equal(got, tc.want); diff != nil {
			t.Errorf("description: %s, %s", tc.description, diff)
		}
	}
}

func TestWriteUnix(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteUnix(&buf, sampleReport()); err != nil {
		t.Fatal(err)
	}

	want := "app/main.py:2:8: high: Potentially hallucinated package import: 'fake_pkg' (hallucinated-import)\n" +
		"app/main.py:5:7: medium: Read of a secret environment variable (env-secret-access)\n" +
		"bin/blob.py:0:0: error: file contains NUL bytes (decode)\n"
	if diff := deep.Equal(buf.String(), want); diff != nil {
		t.Errorf("unix output: %s", diff)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleReport()); err != nil {
		t.Fatal(err)
	}

	var got struct {
		RunID   string                 `json:"run_id"`
		Results []types.AnalysisResult `json:"results"`
		Summary Summary                `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}

	if got.RunID != "run-1" || len(got.Results) != 2 || got.Summary.TotalIssues != 2 {
		t.Errorf("unexpected document: %+v", got)
	}
	if got.Results[0].Issues[0].Severity != types.SeverityHigh {
		t.Errorf("severity must round trip as text, got %v", got.Results[0].Issues[0].Severity)
	}

	buf.Reset()
	if err := WriteJSON(&buf, types.Report{}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"results": []`)) {
		t.Errorf("empty results must encode as an empty list: %s", buf.String())
	}
}
