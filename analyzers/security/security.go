// Package security implements the security analyzer: secret access,
// exfiltration, backdoor and prompt injection detectors, plus combinators
// that merge weak signals found close together into a single finding.
package security

import (
	"context"
	"fmt"
	"strings"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/rules"
	"github.com/deepsourcelabs/vow/types"
)

const (
	// DefaultWindow is the default combinator proximity, in lines.
	DefaultWindow = 10
	// DefaultMaxDepth bounds how many nested base64 layers are decoded.
	DefaultMaxDepth = 3

	cancelCheckInterval = 512
)

// Options configure an Analyzer.
type Options struct {
	// Window is the largest line distance at which weak signals combine.
	Window int
	// MaxDepth is the number of nested base64 layers decoded; zero disables
	// decoding.
	MaxDepth int
	// Rules, when set, are evaluated for rules that target the security
	// analyzer.
	Rules *rules.Table
}

// DefaultOptions returns the default window and decode depth.
func DefaultOptions() Options {
	return Options{Window: DefaultWindow, MaxDepth: DefaultMaxDepth}
}

// Analyzer is the security analyzer. It is safe for concurrent use.
type Analyzer struct {
	opts Options
}

// New returns a security analyzer.
func New(opts Options) *Analyzer {
	if opts.Window < 0 {
		opts.Window = 0
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}
	return &Analyzer{opts: opts}
}

func (*Analyzer) Name() string { return types.AnalyzerSecurity }

// Supports reports true for every language: injected instructions and
// exfiltration code can hide in any file.
func (*Analyzer) Supports(string) bool { return true }

// Analyze runs every detector over src.
func (a *Analyzer) Analyze(ctx context.Context, src *analyzers.Source) (types.AnalyzerOutput, error) {
	out := analyzers.NewOutput(types.AnalyzerSecurity, src)

	found, err := a.scan(ctx, src.Lines(), 0)
	if err != nil {
		return types.AnalyzerOutput{}, err
	}

	for _, f := range found {
		msg := f.message
		if f.depth > 0 {
			msg = fmt.Sprintf("%s (decoded from base64, depth %d)", msg, f.depth)
		}
		out.Report(analyzers.Diagnostic{
			RuleID:   f.id,
			Severity: Severities[f.id],
			Message:  msg,
			Line:     f.line,
			Column:   f.column,
		})
	}

	if a.opts.Rules != nil {
		diags, err := a.opts.Rules.Evaluate(ctx, types.AnalyzerSecurity, src)
		if err != nil {
			return types.AnalyzerOutput{}, err
		}
		for _, d := range diags {
			out.Report(d)
		}
	}

	return out.Finish(), nil
}

// finding is a reportable detection. depth is the number of base64 layers
// that had to be decoded to reach it.
type finding struct {
	id      string
	line    int
	column  int
	message string
	depth   int
}

// scan runs detectors and combinators over lines. Findings inside decoded
// literals are moved to the literal's line.
func (a *Analyzer) scan(ctx context.Context, lines []string, depth int) ([]finding, error) {
	var (
		found []finding
		weak  []signal
	)

	for idx, line := range lines {
		if idx%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		lineNo := idx + 1

		for _, d := range detectors {
			if loc := d.pattern.FindStringIndex(line); loc != nil {
				found = append(found, finding{id: d.id, line: lineNo, column: loc[0] + 1, message: d.message, depth: depth})
			}
		}

		if col, ok := outbound(line); ok {
			weak = append(weak, signal{id: outboundHTTP, line: lineNo, column: col + 1})
		}
		if loc := encodeCall.FindStringIndex(line); loc != nil {
			weak = append(weak, signal{id: base64Encode, line: lineNo, column: loc[0] + 1})
		}

		if depth < a.opts.MaxDepth {
			decoded, err := a.decodeLiterals(ctx, line, lineNo, depth)
			if err != nil {
				return nil, err
			}
			found = append(found, decoded...)
		}
	}

	return combine(found, weak, a.opts.Window), nil
}

// combine merges weak signals with the findings they escalate. The escalated
// findings are replaced by the combined one.
func combine(found []finding, weak []signal, window int) []finding {
	var (
		out        []finding
		suppressed = make(map[int]struct{})
	)

	for i, f := range found {
		switch f.id {
		case EnvSecretAccess:
			// the read must come first
			call, ok := nearest(weak, outboundHTTP, f.line, 0, window)
			if !ok {
				continue
			}
			suppressed[i] = struct{}{}
			out = append(out, finding{
				id:      EnvExfiltration,
				line:    f.line,
				column:  f.column,
				message: fmt.Sprintf("Secret environment variable sent over HTTP on line %d", call.line),
				depth:   f.depth,
			})

		case SecretFileAccess:
			enc, encOK := nearest(weak, base64Encode, f.line, -window, window)
			call, callOK := nearest(weak, outboundHTTP, f.line, -window, window)
			if !encOK || !callOK {
				continue
			}
			suppressed[i] = struct{}{}
			out = append(out, finding{
				id:      FileExfiltration,
				line:    f.line,
				column:  f.column,
				message: fmt.Sprintf("Secret file encoded on line %d and sent over HTTP on line %d", enc.line, call.line),
				depth:   f.depth,
			})
		}
	}

	for i, f := range found {
		if _, ok := suppressed[i]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// nearest returns the closest signal of id whose offset from line lies in
// [lo, hi].
func nearest(weak []signal, id string, line, lo, hi int) (signal, bool) {
	var (
		best  signal
		found bool
	)
	for _, s := range weak {
		if s.id != id {
			continue
		}
		delta := s.line - line
		if delta < lo || delta > hi {
			continue
		}
		if !found || abs(delta) < abs(best.line-line) {
			best, found = s, true
		}
	}
	return best, found
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// splitLines splits decoded text the way analyzers.Source does.
func splitLines(text string) []string {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
