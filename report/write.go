package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/deepsourcelabs/vow/types"
)

type document struct {
	types.Report
	Summary Summary `json:"summary"`
}

// WriteJSON writes r and its summary as indented JSON.
func WriteJSON(w io.Writer, r types.Report) error {
	if r.Results == nil {
		r.Results = []types.AnalysisResult{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	return enc.Encode(document{Report: r, Summary: Summarize(r)})
}

// WriteUnix writes one line per issue and per file error, in the
//
//	path:line:column: severity: message (rule)
//
// format understood by editors and CI annotators.
func WriteUnix(w io.Writer, r types.Report) error {
	for _, res := range r.Results {
		for _, issue := range res.Issues {
			_, err := fmt.Fprintf(w, "%s:%d:%d: %s: %s (%s)\n",
				issue.FilePath, issue.Line, issue.Column, issue.Severity, issue.Message, issue.RuleID)
			if err != nil {
				return err
			}
		}
	}

	for _, fe := range r.Errors {
		if _, err := fmt.Fprintf(w, "%s:0:0: error: %s (%s)\n", fe.FilePath, fe.Message, fe.Kind); err != nil {
			return err
		}
	}

	return nil
}
