// Package baseline recognises issues that were already known when the
// baseline was taken, so that only new issues are reported.
//
// An issue is identified by a fingerprint of its file path, its rule id and
// the trimmed text of its line. Line numbers are left out so that unrelated
// edits above an issue do not resurface it.
package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/types"
)

// Version is the baseline document version written by Write.
const Version = 1

// Baseline is an immutable set of fingerprints.
type Baseline struct {
	set map[string]struct{}
}

type document struct {
	Version      int      `json:"version"`
	Fingerprints []string `json:"fingerprints"`
}

// Fingerprint identifies an issue of rule at a line with the given text.
func Fingerprint(path, rule, line string) string {
	h := sha256.New()
	h.Write([]byte(filepath.ToSlash(path)))
	h.Write([]byte{0})
	h.Write([]byte(rule))
	h.Write([]byte{0})
	h.Write([]byte(analyzers.Snippet(line)))
	return hex.EncodeToString(h.Sum(nil))
}

// New returns a baseline holding fingerprints.
func New(fingerprints ...string) *Baseline {
	b := &Baseline{set: make(map[string]struct{}, len(fingerprints))}
	for _, f := range fingerprints {
		b.set[f] = struct{}{}
	}
	return b
}

// Read decodes a JSON baseline document.
func Read(r io.Reader) (*Baseline, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding baseline: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("unsupported baseline version %d", doc.Version)
	}
	return New(doc.Fingerprints...), nil
}

// FromResults builds a baseline from every issue in results. Issue context
// holds the trimmed line text, so the source files are not needed.
func FromResults(results []types.AnalysisResult) *Baseline {
	b := New()
	for _, res := range results {
		for _, issue := range res.Issues {
			b.set[Fingerprint(issue.FilePath, issue.RuleID, issue.Context)] = struct{}{}
		}
	}
	return b
}

// Len returns the number of fingerprints.
func (b *Baseline) Len() int {
	if b == nil {
		return 0
	}
	return len(b.set)
}

// Contains reports whether issue, found on a line with text line, is known.
func (b *Baseline) Contains(issue types.Issue, line string) bool {
	if b.Len() == 0 {
		return false
	}
	_, ok := b.set[Fingerprint(issue.FilePath, issue.RuleID, line)]
	return ok
}

// Write encodes b as JSON with sorted fingerprints.
func (b *Baseline) Write(w io.Writer) error {
	doc := document{Version: Version, Fingerprints: make([]string, 0, b.Len())}
	if b != nil {
		for f := range b.set {
			doc.Fingerprints = append(doc.Fingerprints, f)
		}
	}
	sort.Strings(doc.Fingerprints)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
