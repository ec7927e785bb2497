package text

import (
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gtext "github.com/yuin/goldmark/text"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/types"
)

var (
	urlCandidate = regexp.MustCompile("(?i)\\b(?P<scheme>[a-z]{3,6})(?P<sep>:/*|/{2,3}|;/{2})(?P<rest>[^\\s<>\"'`]+)|\\b(?P<www>www\\.[^\\s<>\"'`]+)")
	hostLabel    = regexp.MustCompile(`^(?i:[a-z0-9\p{L}](?:[a-z0-9\p{L}-]{0,61}[a-z0-9\p{L}])?)$`)
	digits       = regexp.MustCompile(`^\d+$`)

	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
)

var webSchemes = []string{"http", "https", "ftp", "ftps"}

// checkReferences reports URL-shaped tokens in prose that cannot be valid URLs.
func checkReferences(out *analyzers.Output, src *analyzers.Source, prose string) {
	for _, m := range urlCandidate.FindAllStringSubmatchIndex(prose, -1) {
		var (
			token  string
			reason string
			bad    bool
		)

		if m[8] >= 0 {
			token = trimURL(prose[m[8]:m[9]])
			reason, bad = checkURL("http://" + token)
		} else {
			scheme := strings.ToLower(prose[m[2]:m[3]])
			if !webLike(scheme) {
				continue
			}
			sep := prose[m[4]:m[5]]
			rest := trimURL(prose[m[6]:m[7]])
			token = prose[m[2]:m[3]] + sep + rest
			reason, bad = checkToken(scheme, sep, rest)
		}
		if !bad {
			continue
		}

		line, col := src.Position(m[0])
		report(out, token, reason, line, col)
	}
}

// checkLinks reports markdown link and image destinations that look like
// URLs but are malformed. Bare URLs are left to checkReferences.
func checkLinks(out *analyzers.Output, src *analyzers.Source) {
	source := []byte(src.Text)
	doc := markdown.Parser().Parse(gtext.NewReader(source))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		var dest string
		switch node := n.(type) {
		case *ast.Link:
			dest = string(node.Destination)
		case *ast.Image:
			dest = string(node.Destination)
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.CodeSpan:
			return ast.WalkSkipChildren, nil
		default:
			return ast.WalkContinue, nil
		}

		reason, bad := checkDestination(dest)
		if !bad {
			return ast.WalkContinue, nil
		}

		offset := blockStart(n)
		if i := strings.Index(src.Text[offset:], dest); i >= 0 {
			offset += i
		}
		line, col := src.Position(offset)
		report(out, dest, reason, line, col)
		return ast.WalkContinue, nil
	})
}

func report(out *analyzers.Output, token, reason string, line, col int) {
	out.Report(analyzers.Diagnostic{
		RuleID:   RuleBrokenReference,
		Severity: types.SeverityLow,
		Message:  fmt.Sprintf("Malformed URL %s: %s", token, reason),
		Line:     line,
		Column:   col,
	})
}

// checkDestination validates a link destination. Relative links are not
// URL-shaped and pass.
func checkDestination(dest string) (string, bool) {
	if strings.ContainsAny(dest, " \t") {
		if strings.Contains(dest, "://") || strings.HasPrefix(strings.ToLower(dest), "www.") {
			return "contains spaces", true
		}
		return "", false
	}

	if strings.HasPrefix(strings.ToLower(dest), "www.") {
		return checkURL("http://" + dest)
	}

	m := urlCandidate.FindStringSubmatchIndex(dest)
	if m == nil || m[0] != 0 || m[2] < 0 {
		return "", false
	}
	scheme := strings.ToLower(dest[m[2]:m[3]])
	if !webLike(scheme) {
		return "", false
	}
	return checkToken(scheme, dest[m[4]:m[5]], dest[m[6]:m[7]])
}

// checkToken validates a scheme, its separator and the rest of a URL.
func checkToken(scheme, sep, rest string) (string, bool) {
	if !contains(webSchemes, scheme) {
		return fmt.Sprintf("misspelled scheme %q", scheme), true
	}
	if sep != "://" {
		return "scheme must be followed by ://", true
	}
	return checkURL(scheme + "://" + rest)
}

// checkURL validates the host and port of an absolute URL.
func checkURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "does not parse", true
	}

	host := u.Hostname()
	if host == "" {
		return "empty host", true
	}

	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Sprintf("invalid port %s", port), true
		}
	} else if strings.HasSuffix(u.Host, ":") {
		return "empty port", true
	}

	if !validHost(host) {
		return fmt.Sprintf("invalid host %s", host), true
	}
	return "", false
}

func validHost(host string) bool {
	if _, err := netip.ParseAddr(host); err == nil {
		return true
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}

	labels := strings.Split(strings.TrimSuffix(host, "."), ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if !hostLabel.MatchString(l) {
			return false
		}
	}
	return !digits.MatchString(labels[len(labels)-1])
}

// webLike reports whether scheme is, or is one edit away from, a web scheme.
func webLike(scheme string) bool {
	if scheme == "" || (scheme[0] != 'h' && scheme[0] != 'f') {
		return false
	}
	for _, s := range webSchemes {
		if editDistance(scheme, s) <= 1 {
			return true
		}
	}
	return false
}

func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// trimURL drops punctuation that ends the surrounding sentence.
func trimURL(s string) string {
	for len(s) > 0 {
		last := s[len(s)-1]
		switch {
		case strings.IndexByte(".,;:!?'\"*_", last) >= 0:
			s = s[:len(s)-1]
		case last == ')' && strings.Count(s, "(") < strings.Count(s, ")"):
			s = s[:len(s)-1]
		case last == ']' && strings.Count(s, "[") < strings.Count(s, "]"):
			s = s[:len(s)-1]
		default:
			return s
		}
	}
	return s
}

// blockStart returns the offset of the first line of the block holding n.
func blockStart(n ast.Node) int {
	for p := n; p != nil; p = p.Parent() {
		if p.Type() == ast.TypeBlock && p.Lines().Len() > 0 {
			return p.Lines().At(0).Start
		}
	}
	return 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
