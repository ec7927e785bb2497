// Package processors implements the pattern matchers rules are built from.
package processors

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind names a matcher variant.
type Kind string

const (
	KindContains   Kind = "contains"
	KindStartsWith Kind = "starts_with"
	KindEndsWith   Kind = "ends_with"
	KindRegex      Kind = "regex"
)

var kindAliases = map[string]Kind{
	"contains":    KindContains,
	"substring":   KindContains,
	"starts_with": KindStartsWith,
	"startswith":  KindStartsWith,
	"prefix":      KindStartsWith,
	"ends_with":   KindEndsWith,
	"endswith":    KindEndsWith,
	"suffix":      KindEndsWith,
	"regex":       KindRegex,
	"regexp":      KindRegex,
}

// ParseKind resolves a pattern type as written in a rule document.
func ParseKind(s string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown pattern type %q", s)
	}
	return k, nil
}

// Match is one occurrence of a pattern. Start and End are byte offsets into
// the matched string.
type Match struct {
	Start  int
	End    int
	Text   string
	Groups map[string]string
}

// Matcher finds occurrences of a pattern in a line or a whole buffer.
type Matcher interface {
	Kind() Kind
	// Pattern returns the source form of the pattern.
	Pattern() string
	Match(s string) []Match
	// Message renders the matcher's message template for m.
	Message(m Match) string
}

// New validates and compiles a matcher.
func New(kind Kind, value, message string) (Matcher, error) {
	if value == "" {
		return nil, fmt.Errorf("empty %s pattern", kind)
	}

	t := template(message)
	switch kind {
	case KindContains:
		return &ContainsMatcher{Value: value, template: t}, nil
	case KindStartsWith:
		return &StartsWithMatcher{Value: value, template: t}, nil
	case KindEndsWith:
		return &EndsWithMatcher{Value: value, template: t}, nil
	case KindRegex:
		return NewRegex(value, message)
	default:
		return nil, fmt.Errorf("unknown pattern type %q", kind)
	}
}

type template string

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// render substitutes {match} and named groups. Unknown placeholders are left in place.
func (t template) render(m Match) string {
	if !strings.Contains(string(t), "{") {
		return string(t)
	}

	return placeholder.ReplaceAllStringFunc(string(t), func(s string) string {
		name := s[1 : len(s)-1]
		if name == "match" {
			return m.Text
		}
		if v, ok := m.Groups[name]; ok {
			return v
		}
		return s
	})
}

// ContainsMatcher matches every non-overlapping occurrence of a substring.
type ContainsMatcher struct {
	Value    string
	template template
}

func (c *ContainsMatcher) Kind() Kind      { return KindContains }
func (c *ContainsMatcher) Pattern() string { return c.Value }

func (c *ContainsMatcher) Match(s string) []Match {
	var matches []Match
	offset := 0
	for {
		idx := strings.Index(s[offset:], c.Value)
		if idx < 0 {
			return matches
		}
		start := offset + idx
		end := start + len(c.Value)
		matches = append(matches, Match{Start: start, End: end, Text: c.Value})
		offset = end
	}
}

func (c *ContainsMatcher) Message(m Match) string { return c.template.render(m) }

// StartsWithMatcher matches a prefix, ignoring leading whitespace.
type StartsWithMatcher struct {
	Value    string
	template template
}

func (p *StartsWithMatcher) Kind() Kind      { return KindStartsWith }
func (p *StartsWithMatcher) Pattern() string { return p.Value }

func (p *StartsWithMatcher) Match(s string) []Match {
	trimmed := strings.TrimLeft(s, " \t")
	if !strings.HasPrefix(trimmed, p.Value) {
		return nil
	}
	start := len(s) - len(trimmed)
	return []Match{{Start: start, End: start + len(p.Value), Text: p.Value}}
}

func (p *StartsWithMatcher) Message(m Match) string { return p.template.render(m) }

// EndsWithMatcher matches a suffix, ignoring trailing whitespace.
type EndsWithMatcher struct {
	Value    string
	template template
}

func (e *EndsWithMatcher) Kind() Kind      { return KindEndsWith }
func (e *EndsWithMatcher) Pattern() string { return e.Value }

func (e *EndsWithMatcher) Match(s string) []Match {
	trimmed := strings.TrimRight(s, " \t\r\n")
	if !strings.HasSuffix(trimmed, e.Value) {
		return nil
	}
	end := len(trimmed)
	return []Match{{Start: end - len(e.Value), End: end, Text: e.Value}}
}

func (e *EndsWithMatcher) Message(m Match) string { return e.template.render(m) }
