package text

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/types"
)

const (
	minSentences      = 6
	minSentenceLength = 10
	uniformVariation  = 0.2
)

var sentenceEnd = regexp.MustCompile(`[.!?]+["')\]]*(?:\s+|$)`)

type sentence struct {
	start int
	text  string
}

// checkUniformity reports prose whose sentences are all nearly the same
// length, measured as the coefficient of variation of their lengths.
func checkUniformity(out *analyzers.Output, prose string) {
	list := sentences(prose)
	if len(list) < minSentences {
		return
	}

	var sum float64
	for _, s := range list {
		sum += float64(len(s.text))
	}
	mean := sum / float64(len(list))

	var variance float64
	for _, s := range list {
		d := float64(len(s.text)) - mean
		variance += d * d
	}
	variance /= float64(len(list))

	cv := math.Sqrt(variance) / mean
	if cv >= uniformVariation {
		return
	}

	out.Report(analyzers.Diagnostic{
		RuleID:   RuleSentenceUniformity,
		Severity: types.SeverityLow,
		Message: fmt.Sprintf("Uniform sentence lengths: %d sentences, mean %.1f characters, coefficient of variation %.2f",
			len(list), mean, cv),
		Line: lineOf(prose, list[0].start),
	})
}

// sentences splits prose into sentences. Blank lines and markdown headings
// end a sentence; fragments of ten characters or fewer are dropped.
func sentences(prose string) []sentence {
	var (
		out   []sentence
		start = -1
		end   int
	)

	flush := func() {
		if start >= 0 {
			out = append(out, splitParagraph(prose[start:end], start)...)
		}
		start = -1
	}

	offset := 0
	for _, line := range strings.SplitAfter(prose, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "", strings.HasPrefix(trimmed, "#"), strings.HasPrefix(trimmed, "|"):
			flush()
		default:
			if start < 0 {
				start = offset
			}
			end = offset + len(line)
		}
		offset += len(line)
	}
	flush()

	return out
}

func splitParagraph(para string, base int) []sentence {
	var out []sentence
	prev := 0
	add := func(from, to int) {
		raw := para[from:to]
		text := strings.TrimSpace(raw)
		if len(text) <= minSentenceLength {
			return
		}
		lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
		out = append(out, sentence{start: base + from + lead, text: strings.Join(strings.Fields(text), " ")})
	}

	for _, loc := range sentenceEnd.FindAllStringIndex(para, -1) {
		add(prev, loc[1])
		prev = loc[1]
	}
	if prev < len(para) {
		add(prev, len(para))
	}
	return out
}

func lineOf(text string, offset int) int {
	return strings.Count(text[:offset], "\n") + 1
}
