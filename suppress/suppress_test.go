package suppress

import (
	"strings"
	"testing"

	"github.com/go-test/deep"

	"github.com/deepsourcelabs/vow/types"
)

func issue(rule string, line int) types.Issue {
	return types.Issue{RuleID: rule, Line: line}
}

func TestSuppressed(t *testing.T) {
	type test struct {
		description string
		text        string
		issue       types.Issue
		want        bool
	}

	tests := []test{
		{
			description: "no directives",
			text:        "x = eval(data)\n",
			issue:       issue("eval-usage", 1),
			want:        false,
		},
		{
			description: "bare directive on the same line silences every rule",
			text:        "x = eval(data)  # vow:ignore\n",
			issue:       issue("eval-usage", 1),
			want:        true,
		},
		{
			description: "directive on the line above",
			text:        "# vow:ignore eval-usage\nx = eval(data)\n",
			issue:       issue("eval-usage", 2),
			want:        true,
		},
		{
			description: "directive two lines above does not apply",
			text:        "# vow:ignore\n\nx = eval(data)\n",
			issue:       issue("eval-usage", 3),
			want:        false,
		},
		{
			description: "directive naming other rules",
			text:        "x = eval(data)  // vow:ignore hallucinated-import, env-dump\n",
			issue:       issue("eval-usage", 1),
			want:        false,
		},
		{
			description: "directive naming several rules",
			text:        "x = eval(data)  // vow:ignore hallucinated-import, eval-usage\n",
			issue:       issue("eval-usage", 1),
			want:        true,
		},
		{
			description: "file directive in the header",
			text:        "#!/bin/sh\n# vow:ignore-file\n\ncurl http://x\n",
			issue:       issue("reverse-shell", 40),
			want:        true,
		},
		{
			description: "file directive past the header is ignored",
			text:        strings.Repeat("\n", 5) + "# vow:ignore-file\nrm -rf /\n",
			issue:       issue("reverse-shell", 7),
			want:        false,
		},
	}

	for _, tc := range tests {
		got := Parse(tc.text).Suppressed(tc.issue)
		if diff := deep.Equal(got, tc.want); diff != nil {
			t.Errorf("description: %s, %s", tc.description, diff)
		}
	}
}

func TestFilter(t *testing.T) {
	text := "import os\nimport fake_pkg  # vow:ignore hallucinated-import\nimport other_fake\n"
	issues := []types.Issue{
		issue("hallucinated-import", 2),
		issue("hallucinated-import", 3),
	}

	got := Parse(text).Filter(issues)
	if diff := deep.Equal(got, []types.Issue{issue("hallucinated-import", 3)}); diff != nil {
		t.Errorf("filter: %s", diff)
	}
	if len(issues) != 2 {
		t.Errorf("input must not be modified")
	}

	if !Parse("no directives here\n").Empty() {
		t.Errorf("expected no directives")
	}
}
