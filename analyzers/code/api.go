package code

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/types"
)

// RuleHallucinatedAPI flags network calls to endpoints that cannot exist.
const RuleHallucinatedAPI = "hallucinated-api"

var (
	networkCall = regexp.MustCompile(`(?i)(?:\b(?:requests|httpx|aiohttp|session|client|axios|http|https|urllib\.request|urllib3|got|superagent|reqwest|ky)\s*(?:\.|::)\s*(?:get|post|put|patch|delete|head|request|urlopen|fetch|newrequest\w*)\s*\(|\bfetch\s*\(|\burlopen\s*\(|\bnew\s+URL\s*\(|\bXMLHttpRequest\b|\.open\s*\(\s*["'](?:GET|POST|PUT|DELETE)["'])`)
	urlLiteral  = regexp.MustCompile("[\"'`](?P<url>https?://[^\"'`\\s]+)")
	versionSeg  = regexp.MustCompile(`^v?(\d+)((?:\.\d+)*)$`)
)

// placeholderHosts are hosts generated code uses when it does not know the real one.
var placeholderHosts = []string{
	"example.com", "example.org", "example.net",
	"domain.com", "yourdomain.com", "mydomain.com",
	"placeholder.com", "yourcompany.com", "yourservice.com",
	"yourapp.com", "your-domain.com", "your-api.com",
	"api-endpoint.com", "someapi.com", "fakeapi.com",
}

// knownAPIVersions lists the path versions that exist for well-known API hosts.
// An empty list means the API does not version its paths at all.
var knownAPIVersions = map[string][]string{
	"api.openai.com":       {"1"},
	"api.anthropic.com":    {"1"},
	"api.stripe.com":       {"1"},
	"api.github.com":       {},
	"api.sendgrid.com":     {"3"},
	"api.mailgun.net":      {"3", "4"},
	"api.spotify.com":      {"1"},
	"api.notion.com":       {"1"},
	"api.twitter.com":      {"1.1", "2"},
	"discord.com":          {"6", "7", "8", "9", "10"},
	"api.dropboxapi.com":   {"2"},
	"api.cloudflare.com":   {"4"},
	"api.digitalocean.com": {"2"},
}

// checkAPIs reports network calls whose URL literal is a placeholder or names an
// API version that does not exist.
func checkAPIs(out *analyzers.Output, src *analyzers.Source) {
	for idx, line := range src.Lines() {
		if !networkCall.MatchString(line) {
			continue
		}

		for _, m := range urlLiteral.FindAllStringSubmatchIndex(line, -1) {
			raw := line[m[2]:m[3]]
			reason, bad := suspiciousURL(raw)
			if !bad {
				continue
			}
			out.Report(analyzers.Diagnostic{
				RuleID:   RuleHallucinatedAPI,
				Severity: types.SeverityMedium,
				Message:  fmt.Sprintf("Potentially hallucinated API endpoint %s: %s", raw, reason),
				Line:     idx + 1,
				Column:   m[2] + 1,
			})
		}
	}
}

// suspiciousURL explains why raw cannot be a real endpoint.
func suspiciousURL(raw string) (string, bool) {
	host := rawHost(raw)
	if host == "" {
		return "", false
	}

	lower := strings.ToLower(host)
	if strings.ContainsAny(host, "<>{}$") || strings.Contains(host, "YOUR_") || strings.Contains(lower, "your_") {
		return "host is a template placeholder", true
	}
	if isLocal(lower) {
		return "", false
	}

	for _, p := range placeholderHosts {
		if lower == p || strings.HasSuffix(lower, "."+p) {
			return fmt.Sprintf("%s is a placeholder host", lower), true
		}
	}
	for _, label := range strings.Split(lower, ".") {
		if strings.HasPrefix(label, "your") && len(label) > 4 {
			return fmt.Sprintf("%s is a placeholder host", lower), true
		}
	}
	if strings.HasSuffix(lower, ".example") || strings.HasSuffix(lower, ".invalid") {
		return fmt.Sprintf("%s uses a reserved top-level domain", lower), true
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	segments := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")
	for i, seg := range segments {
		// the version is either the first segment or follows /api
		if i > 1 || (i == 1 && segments[0] != "api") {
			break
		}
		vm := versionSeg.FindStringSubmatch(seg)
		if vm == nil || (!strings.HasPrefix(seg, "v") && !strings.Contains(seg, ".")) {
			continue
		}

		major, _ := strconv.Atoi(vm[1])
		if strings.Count(vm[2], ".") >= 2 {
			return fmt.Sprintf("path version %s is not a plausible API version", seg), true
		}
		if major >= 11 {
			return fmt.Sprintf("path version %s is implausibly high", seg), true
		}

		versions, known := knownAPIVersions[lower]
		if !known {
			continue
		}
		version := strings.TrimPrefix(seg, "v")
		if !containsString(versions, version) {
			return fmt.Sprintf("%s has no API version %s", lower, seg), true
		}
	}

	return "", false
}

// rawHost extracts the host without relying on url.Parse, which rejects
// template characters.
func rawHost(raw string) string {
	rest := raw
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndexByte(rest, '@'); i >= 0 {
		rest = rest[i+1:]
	}
	if i := strings.LastIndexByte(rest, ':'); i >= 0 && !strings.Contains(rest[i:], "]") {
		rest = rest[:i]
	}
	return rest
}

func isLocal(host string) bool {
	return host == "localhost" || strings.HasSuffix(host, ".localhost") ||
		strings.HasPrefix(host, "127.") || host == "0.0.0.0" || host == "[::1]"
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
