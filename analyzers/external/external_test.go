package external

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/go-test/deep"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/types"
)

func TestUnixProcessor(t *testing.T) {
	type test struct {
		description string
		output      string
		want        []analyzers.Diagnostic
		wantErr     bool
	}

	tests := []test{
		{
			description: "line and column",
			output:      "main.py:2:8: Unused import os\n",
			want:        []analyzers.Diagnostic{{RuleID: "lint", Severity: types.SeverityLow, Message: "Unused import os", Line: 2, Column: 8}},
		},
		{
			description: "trailing code becomes the rule id",
			output:      "main.go:12:5: should omit comparison to bool constant (S1002)\n\n",
			want:        []analyzers.Diagnostic{{RuleID: "S1002", Severity: types.SeverityLow, Message: "should omit comparison to bool constant", Line: 12, Column: 5}},
		},
		{
			description: "column is optional",
			output:      "-:7: line too long\n",
			want:        []analyzers.Diagnostic{{RuleID: "lint", Severity: types.SeverityLow, Message: "line too long", Line: 7}},
		},
		{
			description: "blank output",
			output:      "\n\n",
		},
		{
			description: "unparseable line",
			output:      "panic: something broke\n",
			wantErr:     true,
		},
	}

	p := &UnixProcessor{RuleID: "lint", Severity: types.SeverityLow}
	for _, tc := range tests {
		var buf bytes.Buffer
		buf.WriteString(tc.output)

		got, err := p.Process(buf)
		if (err != nil) != tc.wantErr {
			t.Errorf("description: %s, unexpected error %v", tc.description, err)
			continue
		}
		if diff := deep.Equal(got, tc.want); diff != nil {
			t.Errorf("description: %s, %s", tc.description, diff)
		}
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Tool{Command: "true"}); err == nil {
		t.Errorf("expected an error for a checker without a name")
	}
	if _, err := New(Tool{Name: "x"}); err == nil {
		t.Errorf("expected an error for a checker without a command")
	}
	if _, err := New(Tool{Name: "x", Command: "true", Severity: "loud"}); err == nil {
		t.Errorf("expected an error for an unknown severity")
	}

	c, err := New(Tool{Name: "pylint", Command: "pylint", Languages: []string{"python"}})
	if err != nil {
		t.Fatal(err)
	}
	if !c.Supports("python") || c.Supports("go") {
		t.Errorf("supports: unexpected language set")
	}
}

func TestCommand_Analyze(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	// reports every TODO line it reads on stdin and exits 1 when it found any
	script := `n=0; found=0
while IFS= read -r line; do
  n=$((n+1))
  case "$line" in *TODO*) echo "$1:$n:1: TODO left in file"; found=1;; esac
done
exit $found`

	c, err := New(Tool{
		Name:             "todo",
		Command:          "sh",
		Args:             []string{"-c", script, "sh", PathPlaceholder},
		AllowedExitCodes: []int{1},
		Severity:         "low",
	})
	if err != nil {
		t.Fatal(err)
	}

	src := analyzers.NewSourceText("app/main.py", "python", "import os\n# TODO remove\nx = 1\n")
	out, err := c.Analyze(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}

	want := []types.Issue{{
		RuleID:   "todo",
		Analyzer: "todo",
		Severity: types.SeverityLow,
		Message:  "TODO left in file",
		FilePath: "app/main.py",
		Line:     2,
		Column:   1,
		Context:  "# TODO remove",
	}}
	if diff := deep.Equal(out.Issues, want); diff != nil {
		t.Errorf("issues: %s", diff)
	}

	strict, err := New(Tool{Name: "todo", Command: "sh", Args: []string{"-c", script}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := strict.Analyze(context.Background(), src); err == nil {
		t.Errorf("expected an error for a disallowed exit code")
	}
}
