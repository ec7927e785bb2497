package external

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/types"
)

var (
	// group descriptions:
	// 1: path
	// 2: line number
	// 3: column number, optional
	// 4: message
	unixLine = regexp.MustCompile(`^(.*?):(\d+):(?:(\d+):)?\s*(.+)$`)

	// a trailing "(CODE)" names the checker's own rule
	trailingCode = regexp.MustCompile(`^(.+?)\s*\(([A-Za-z][\w.-]*)\)$`)
)

// UnixProcessor reads "path:line:column: message" lines. The path is
// ignored since the checker only ever sees one file.
type UnixProcessor struct {
	RuleID   string
	Severity types.Severity
}

// Process parses every non-blank line of out.
func (u *UnixProcessor) Process(out bytes.Buffer) ([]analyzers.Diagnostic, error) {
	var diags []analyzers.Diagnostic

	for _, line := range strings.Split(out.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		groups := unixLine.FindStringSubmatch(line)
		if groups == nil {
			return nil, fmt.Errorf("failed to parse output line %q", line)
		}

		lineNo, err := strconv.Atoi(groups[2])
		if err != nil {
			return nil, err
		}
		col := 0
		if groups[3] != "" {
			if col, err = strconv.Atoi(groups[3]); err != nil {
				return nil, err
			}
		}

		rule, msg := u.RuleID, groups[4]
		if m := trailingCode.FindStringSubmatch(msg); m != nil {
			msg, rule = m[1], m[2]
		}

		diags = append(diags, analyzers.Diagnostic{
			RuleID:   rule,
			Severity: u.Severity,
			Message:  msg,
			Line:     lineNo,
			Column:   col,
		})
	}

	return diags, nil
}
