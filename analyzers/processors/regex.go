package processors

import (
	"regexp"
)

// RegexMatcher matches a regular expression. Named groups are exposed to the
// message template.
type RegexMatcher struct {
	exp      *regexp.Regexp
	template template
}

// NewRegex compiles pattern.
func NewRegex(pattern, message string) (*RegexMatcher, error) {
	exp, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &RegexMatcher{exp: exp, template: template(message)}, nil
}

func (r *RegexMatcher) Kind() Kind      { return KindRegex }
func (r *RegexMatcher) Pattern() string { return r.exp.String() }

func (r *RegexMatcher) Match(s string) []Match {
	locs := r.exp.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return nil
	}

	// get groups
	groupNames := r.exp.SubexpNames()

	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		m := Match{Start: loc[0], End: loc[1], Text: s[loc[0]:loc[1]]}
		for idx, name := range groupNames {
			if name == "" || loc[2*idx] < 0 {
				continue
			}
			if m.Groups == nil {
				m.Groups = make(map[string]string)
			}
			m.Groups[name] = s[loc[2*idx]:loc[2*idx+1]]
		}
		matches = append(matches, m)
	}
	return matches
}

func (r *RegexMatcher) Message(m Match) string { return r.template.render(m) }
