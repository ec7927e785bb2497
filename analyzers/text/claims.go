package text

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/types"
)

var (
	claimMarker = regexp.MustCompile(`(?i)(?:^\s*(?:(?:[-*+>]|\d+\.)\s+)?|[.!?:]\s+)(?P<claim>studies (?:show|have shown|suggest|prove)|research (?:indicates|shows|suggests|has shown|proves)|experts (?:agree|say|believe|recommend)|scientists (?:agree|say|have found)|it is (?:a )?(?:proven|well[- ]known|widely (?:accepted|known)|scientifically proven)|science (?:shows|says|proves)|(?:the )?data (?:shows|show|proves)|evidence (?:suggests|shows)|according to (?:research|experts|studies)|statistics show|surveys show)\b`)

	citations = []*regexp.Regexp{
		regexp.MustCompile(`\[\d+(?:\s*[,–-]\s*\d+)*\]`),
		regexp.MustCompile(`\[\^[^\]]+\]`),
		regexp.MustCompile(`\([^()]*\b(?:1[5-9]|20)\d{2}[a-z]?\b[^()]*\)`),
		regexp.MustCompile(`https?://\S+`),
		regexp.MustCompile(`(?i)\bdoi:\s*\S+|\bdoi\.org/|\barxiv:\s*\d`),
	}
)

// checkClaims reports sentences opening with a confidence marker when neither
// their line nor an adjacent one carries a citation.
func checkClaims(out *analyzers.Output, prose string) {
	lines := strings.Split(prose, "\n")
	for idx, line := range lines {
		m := claimMarker.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}

		if cited(lines, idx) {
			continue
		}
		claim := line[m[2]:m[3]]
		out.Report(analyzers.Diagnostic{
			RuleID:   RuleUnsourcedClaim,
			Severity: types.SeverityMedium,
			Message:  fmt.Sprintf("Confident claim without a citation: %q", claim),
			Line:     idx + 1,
			Column:   m[2] + 1,
		})
	}
}

func cited(lines []string, idx int) bool {
	for i := idx - 1; i <= idx+1; i++ {
		if i < 0 || i >= len(lines) {
			continue
		}
		for _, c := range citations {
			if c.MatchString(lines[i]) {
				return true
			}
		}
	}
	return false
}
