package rules

import (
	"fmt"
	"strings"

	"github.com/deepsourcelabs/vow/analyzers/processors"
	"github.com/deepsourcelabs/vow/types"
)

// Options control compilation.
type Options struct {
	// Strictness is the level rules must be active at to be kept. Zero means medium.
	Strictness types.Strictness
}

// Compile validates every rule set and builds a table. Nothing is returned
// unless every rule compiles. When several sets define the same rule id, the
// later set wins; within one set a repeated id is an error.
func Compile(opts Options, sets ...RuleSet) (*Table, error) {
	strictness := opts.Strictness
	if strictness == 0 {
		strictness = types.StrictnessMedium
	}

	var ordered []*Rule
	byID := make(map[string]int)

	for setIdx, set := range sets {
		setName := set.Name
		if setName == "" {
			setName = fmt.Sprintf("rule set #%d", setIdx+1)
		}

		seen := make(map[string]struct{}, len(set.Rules))
		for _, doc := range set.Rules {
			id := strings.TrimSpace(doc.ID)
			if _, dup := seen[id]; dup && id != "" {
				return nil, &types.RuleCompileError{RuleSet: setName, RuleID: id, Reason: "duplicate rule id"}
			}
			seen[id] = struct{}{}

			rule, err := compileRule(setName, doc)
			if err != nil {
				return nil, err
			}

			// later sets override earlier rules in place
			if idx, ok := byID[rule.ID]; ok {
				ordered[idx] = rule
				continue
			}
			byID[rule.ID] = len(ordered)
			ordered = append(ordered, rule)
		}
	}

	var active []*Rule
	for _, rule := range ordered {
		if rule.Strictness <= strictness {
			active = append(active, rule)
		}
	}

	return newTable(active), nil
}

func compileRule(setName string, doc RuleDoc) (*Rule, error) {
	id := strings.TrimSpace(doc.ID)
	fail := func(reason string, err error) error {
		return &types.RuleCompileError{RuleSet: setName, RuleID: id, Reason: reason, Err: err}
	}

	if id == "" {
		return nil, fail("rule has no id", nil)
	}

	severity, err := types.ParseSeverity(doc.Severity)
	if err != nil {
		return nil, fail("invalid severity", err)
	}

	scope, ok := parseScope(doc.Scope)
	if !ok {
		return nil, fail(fmt.Sprintf("unknown scope %q", doc.Scope), nil)
	}

	strictness := types.StrictnessLow
	if doc.Strictness != "" {
		strictness, err = types.ParseStrictness(doc.Strictness)
		if err != nil {
			return nil, fail("invalid strictness", err)
		}
	}

	if len(doc.Patterns) == 0 {
		return nil, fail("rule has no patterns", nil)
	}

	name := doc.Name
	if name == "" {
		name = id
	}

	var patterns []processors.Matcher
	for i, p := range doc.Patterns {
		kindName := p.Type
		if kindName == "" {
			kindName = p.PatternType
		}
		kind, err := processors.ParseKind(kindName)
		if err != nil {
			return nil, fail(fmt.Sprintf("pattern %d", i+1), err)
		}

		message := p.Message
		if message == "" {
			message = name
		}

		m, err := processors.New(kind, p.Value, message)
		if err != nil {
			return nil, fail(fmt.Sprintf("pattern %d does not compile", i+1), err)
		}
		patterns = append(patterns, m)
	}

	analyzer := strings.ToLower(strings.TrimSpace(doc.Analyzer))
	switch analyzer {
	case "":
		analyzer = types.AnalyzerCode
	case types.AnalyzerCode, types.AnalyzerText, types.AnalyzerSecurity:
	default:
		return nil, fail("unknown analyzer", fmt.Errorf("%q is not one of code, text, security", analyzer))
	}

	return &Rule{
		ID:          id,
		Name:        name,
		Description: doc.Description,
		Severity:    severity,
		Analyzer:    analyzer,
		Patterns:    patterns,
		FileTypes:   lowerAll(doc.FileTypes),
		Languages:   lowerAll(doc.Languages),
		Scope:       scope,
		Strictness:  strictness,
		Set:         setName,
	}, nil
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
