package security

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minLiteral = 20
	previewLen = 50
)

var (
	base64Literal = regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)

	suspiciousDecoded = []string{
		"you are", "system:", "password", "secret", "api_key",
		"curl ", "wget ", "bash -i", "/dev/tcp", "authorized_keys",
	}
)

// decodeLiterals decodes every base64 literal on line and scans the decoded
// text one level deeper. Findings are reported at lineNo.
func (a *Analyzer) decodeLiterals(ctx context.Context, line string, lineNo, depth int) ([]finding, error) {
	var found []finding

	for _, loc := range base64Literal.FindAllStringIndex(line, -1) {
		literal := line[loc[0]:loc[1]]
		text, ok := decode(literal)
		if !ok {
			continue
		}

		if suspiciousText(text) {
			found = append(found, finding{
				id:      Base64SuspiciousContent,
				line:    lineNo,
				column:  loc[0] + 1,
				message: fmt.Sprintf("Suspicious base64 encoded content: '%s'", preview(text)),
				depth:   depth + 1,
			})
		}

		nested, err := a.scan(ctx, splitLines(text), depth+1)
		if err != nil {
			return nil, err
		}
		for _, f := range nested {
			f.line = lineNo
			f.column = loc[0] + 1
			found = append(found, f)
		}
	}

	return found, nil
}

// decode returns the decoded text of a padded base64 literal. Literals that
// do not decode to printable UTF-8 are rejected.
func decode(literal string) (string, bool) {
	if len(literal) < minLiteral || len(literal)%4 != 0 {
		return "", false
	}

	raw, err := base64.StdEncoding.DecodeString(literal)
	if err != nil || !utf8.Valid(raw) {
		return "", false
	}

	text := string(raw)
	for _, r := range text {
		if !unicode.IsPrint(r) && r != '\n' && r != '\r' && r != '\t' {
			return "", false
		}
	}
	return text, true
}

func suspiciousText(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "ignore") && strings.Contains(lower, "instruction") {
		return true
	}
	for _, s := range suspiciousDecoded {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= previewLen {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLen]) + "..."
}
