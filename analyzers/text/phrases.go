package text

import (
	"fmt"
	"regexp"
	"strings"

	ahocorasick "github.com/BobuSumisu/aho-corasick"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/types"
)

// minDensityWords is the shortest text phrase density is measured on.
const minDensityWords = 50

// category is a group of phrases with a density threshold per 100 words.
type category struct {
	name      string
	threshold float64
	phrases   []string
}

var categories = []category{
	{
		name:      "hedging",
		threshold: 1.0,
		phrases: []string{
			"it's important to note", "it is important to note", "it's worth noting",
			"it is worth noting", "it's worth mentioning", "it is worth mentioning",
			"it should be noted", "it's crucial to understand", "it's essential to",
			"one might argue", "it could be said", "generally speaking", "broadly speaking",
			"in many cases", "in most cases", "to a large extent", "for the most part",
			"more often than not", "as a general rule", "arguably", "presumably",
			"conceivably", "potentially",
		},
	},
	{
		name:      "transition",
		threshold: 1.5,
		phrases: []string{
			"furthermore", "moreover", "additionally", "consequently", "nevertheless",
			"accordingly", "subsequently", "in addition", "in contrast", "on the contrary",
			"as a result", "in conclusion", "to summarize", "in summary", "that being said",
			"having said that", "with that in mind", "all things considered", "moving forward",
			"in light of this", "let's dive in", "without further ado", "let's explore",
		},
	},
	{
		name:      "emphasis",
		threshold: 0.5,
		phrases: []string{
			"it cannot be overstated", "it bears repeating", "it's worth emphasizing",
			"it's particularly noteworthy", "it's especially important", "one cannot ignore",
			"it should be emphasized", "it's critically important", "it must be emphasized",
			"underscores the importance", "plays a crucial role", "plays a pivotal role",
			"a testament to",
		},
	},
	{
		name:      "buzzword",
		threshold: 1.0,
		phrases: []string{
			"delve", "delves", "delving", "tapestry", "multifaceted", "plethora", "myriad",
			"nuanced", "intricate", "seamless", "seamlessly", "robust", "cutting-edge",
			"cutting edge", "state-of-the-art", "paradigm", "holistic", "synergy",
			"leverage", "leveraging", "utilize", "facilitate", "comprehensive",
			"game-changer", "ever-evolving", "landscape", "realm", "embark",
		},
	},
}

var (
	phraseTrie     *ahocorasick.Trie
	phraseCategory = make(map[string]int)

	selfReference = regexp.MustCompile(`(?i)(?:\bas an (?:ai|artificial intelligence)(?: language model| assistant| model)?\b|\bi(?:'m|’m| am) (?:just |only )?an ai\b|\bmy (?:training data|knowledge cutoff)\b|\bi (?:do not|don't|don’t) have (?:personal (?:opinions|experiences)|real-time|the ability to browse))`)
)

func init() {
	var all []string
	for i, c := range categories {
		for _, p := range c.phrases {
			all = append(all, p)
			phraseCategory[p] = i
			if strings.Contains(p, "'") {
				curly := strings.ReplaceAll(p, "'", "’")
				all = append(all, curly)
				phraseCategory[curly] = i
			}
		}
	}
	phraseTrie = ahocorasick.NewTrieBuilder().AddStrings(all).Build()
}

// checkPhrases reports phrase categories whose density exceeds their
// threshold, and every line where the author identifies as an AI.
func checkPhrases(out *analyzers.Output, src *analyzers.Source, prose string) {
	for idx, line := range strings.Split(prose, "\n") {
		if loc := selfReference.FindStringIndex(line); loc != nil {
			out.Report(analyzers.Diagnostic{
				RuleID:   RuleSelfReference,
				Severity: types.SeverityMedium,
				Message:  fmt.Sprintf("AI self-identification: %q", line[loc[0]:loc[1]]),
				Line:     idx + 1,
				Column:   loc[0] + 1,
			})
		}
	}

	words := len(strings.Fields(prose))
	if words < minDensityWords {
		return
	}

	lower := asciiLower(prose)
	counts := make([]int, len(categories))
	first := make([]int, len(categories))
	for _, m := range phraseTrie.MatchString(lower) {
		start := int(m.Pos())
		end := start + len(m.MatchString())
		if !boundary(lower, start-1) || !boundary(lower, end) {
			continue
		}

		c := phraseCategory[m.MatchString()]
		if counts[c] == 0 || start < first[c] {
			first[c] = start
		}
		counts[c]++
	}

	for i, c := range categories {
		if counts[i] == 0 {
			continue
		}
		density := float64(counts[i]) * 100 / float64(words)
		if density <= c.threshold {
			continue
		}

		severity := types.SeverityLow
		if density >= 2*c.threshold {
			severity = types.SeverityMedium
		}
		line, col := src.Position(first[i])
		out.Report(analyzers.Diagnostic{
			RuleID:   RulePhraseDensity,
			Severity: severity,
			Message: fmt.Sprintf("High density of AI-typical %s phrases: %d in %d words (%.1f per 100 words, threshold %.1f)",
				c.name, counts[i], words, density, c.threshold),
			Line:   line,
			Column: col,
		})
	}
}

// boundary reports whether the byte at i does not continue a word.
func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	b := s[i]
	return !(b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_')
}

// asciiLower lowercases ASCII letters only, so byte offsets are preserved.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
