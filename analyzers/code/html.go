package code

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/types"
)

const (
	// RuleHallucinatedHTMLTag flags elements that do not exist in HTML.
	RuleHallucinatedHTMLTag = "hallucinated-html-tag"
	// RuleDeprecatedHTMLTag flags obsolete elements.
	RuleDeprecatedHTMLTag = "deprecated-html-tag"
)

var htmlElements = wordSet(`
a abbr address area article aside audio b base bdi bdo blockquote body br button canvas
caption cite code col colgroup data datalist dd del details dfn dialog div dl dt em embed
fieldset figcaption figure footer form h1 h2 h3 h4 h5 h6 head header hgroup hr html i
iframe img input ins kbd label legend li link main map mark menu meta meter nav noscript
object ol optgroup option output p param picture portal pre progress q rp rt ruby s samp
script search section select slot small source span strong style sub summary sup table
tbody td template textarea tfoot th thead time title tr track u ul var video wbr svg math
`)

var deprecatedElements = map[string]string{
	"acronym":   "use <abbr>",
	"applet":    "use <object> or modern web technologies",
	"basefont":  "use CSS for base font styling",
	"big":       "use CSS font-size",
	"blink":     "use CSS animations",
	"center":    "use CSS text-align: center",
	"dir":       "use <ul>",
	"font":      "use CSS for styling",
	"frame":     "use CSS layout",
	"frameset":  "use CSS layout",
	"isindex":   "use form controls",
	"marquee":   "use CSS animations",
	"noframes":  "no longer needed",
	"strike":    "use <s> or CSS text-decoration",
	"tt":        "use <code> or CSS font-family: monospace",
	"xmp":       "use <pre>",
	"plaintext": "use <pre>",
}

// checkHTML reports unknown and deprecated elements. Custom elements (names
// with a hyphen) and SVG or MathML content are not checked.
func checkHTML(out *analyzers.Output, src *analyzers.Source) {
	z := html.NewTokenizer(strings.NewReader(src.Text))

	line := 1
	foreign := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return
		}

		raw := z.Raw()
		tokenLine := line
		line += bytes.Count(raw, []byte{'\n'})

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)

			if foreign > 0 {
				if tt == html.StartTagToken && (tag == "svg" || tag == "math") {
					foreign++
				}
				continue
			}
			if tag == "svg" || tag == "math" {
				if tt == html.StartTagToken {
					foreign++
				}
				continue
			}

			reportTag(out, tag, tokenLine)

		case html.EndTagToken:
			name, _ := z.TagName()
			if foreign > 0 && (string(name) == "svg" || string(name) == "math") {
				foreign--
			}
		}
	}
}

func reportTag(out *analyzers.Output, tag string, line int) {
	if hint, ok := deprecatedElements[tag]; ok {
		out.Report(analyzers.Diagnostic{
			RuleID:   RuleDeprecatedHTMLTag,
			Severity: types.SeverityLow,
			Message:  fmt.Sprintf("Deprecated HTML element <%s>: %s", tag, hint),
			Line:     line,
		})
		return
	}

	if _, ok := htmlElements[tag]; ok || strings.Contains(tag, "-") {
		return
	}

	out.Report(analyzers.Diagnostic{
		RuleID:   RuleHallucinatedHTMLTag,
		Severity: types.SeverityMedium,
		Message:  fmt.Sprintf("Unknown or hallucinated HTML element <%s>", tag),
		Line:     line,
	})
}
