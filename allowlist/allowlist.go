// Package allowlist holds the package names the code analyzer treats as real.
//
// A Snapshot is built once before a run and never changes afterwards. Adding
// records produces a new Snapshot through With, so analyses already holding
// the old one are unaffected.
package allowlist

import (
	"regexp"
	"sort"
	"strings"
)

// Record is a single package entry. Known is false for names that must always
// be reported, for example typosquatted packages.
type Record struct {
	Language string
	Name     string
	Known    bool
}

// Key identifies a package within a snapshot.
type Key struct {
	Language string
	Name     string
}

// NewKey returns the normalized key for a package name.
func NewKey(language, name string) Key {
	lang := Language(language)
	return Key{Language: lang, Name: Normalize(lang, name)}
}

var languageAliases = map[string]string{
	"py":         "python",
	"python3":    "python",
	"js":         "javascript",
	"jsx":        "javascript",
	"mjs":        "javascript",
	"cjs":        "javascript",
	"node":       "javascript",
	"ts":         "javascript",
	"tsx":        "javascript",
	"typescript": "javascript",
	"rs":         "rust",
	"golang":     "go",
}

// Language maps a language tag onto the allowlist that serves it. TypeScript
// resolves to the JavaScript list since both import from npm.
func Language(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if alias, ok := languageAliases[tag]; ok {
		return alias
	}
	return tag
}

var pythonSeparators = regexp.MustCompile(`[-_.]+`)

// Normalize returns the canonical form of a package name in a language.
func Normalize(language, name string) string {
	name = strings.TrimSpace(name)

	switch Language(language) {
	case "python":
		// PEP 503
		return pythonSeparators.ReplaceAllString(strings.ToLower(name), "-")
	case "javascript":
		return strings.TrimPrefix(strings.ToLower(name), "node:")
	case "rust":
		return strings.ReplaceAll(strings.ToLower(name), "-", "_")
	case "go":
		// import paths are case sensitive
		return strings.TrimSuffix(name, "/")
	default:
		return strings.ToLower(name)
	}
}

// Snapshot is an immutable set of package records. The zero value is empty and
// ready to use. A Snapshot is safe for concurrent use.
type Snapshot struct {
	entries map[Key]bool
}

// Lookup reports whether the package is known. found is false when the
// snapshot has no record for it at all.
func (s *Snapshot) Lookup(language, name string) (known, found bool) {
	if s == nil {
		return false, false
	}
	known, found = s.entries[NewKey(language, name)]
	return known, found
}

// Known reports whether the package is listed and not marked unknown.
func (s *Snapshot) Known(language, name string) bool {
	known, found := s.Lookup(language, name)
	return found && known
}

// Denied reports whether the package is explicitly marked as not real.
func (s *Snapshot) Denied(language, name string) bool {
	known, found := s.Lookup(language, name)
	return found && !known
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Languages returns the languages that have at least one record, sorted.
func (s *Snapshot) Languages() []string {
	if s == nil {
		return nil
	}

	seen := make(map[string]struct{})
	for k := range s.entries {
		seen[k.Language] = struct{}{}
	}

	langs := make([]string, 0, len(seen))
	for lang := range seen {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// With returns a new snapshot holding the receiver's records plus records.
// Later records replace earlier ones with the same key. The receiver is not
// modified.
func (s *Snapshot) With(records ...Record) *Snapshot {
	b := NewBuilder()
	if s != nil {
		for k, v := range s.entries {
			b.entries[k] = v
		}
	}
	b.Add(records...)
	return b.Build()
}

// Builder accumulates records for a Snapshot. It is not safe for concurrent use.
type Builder struct {
	entries map[Key]bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[Key]bool)}
}

// Add records packages. Empty names are ignored.
func (b *Builder) Add(records ...Record) *Builder {
	for _, r := range records {
		key := NewKey(r.Language, r.Name)
		if key.Name == "" || key.Language == "" {
			continue
		}
		b.entries[key] = r.Known
	}
	return b
}

// AddNames records known packages of one language.
func (b *Builder) AddNames(language string, names ...string) *Builder {
	for _, name := range names {
		b.Add(Record{Language: language, Name: name, Known: true})
	}
	return b
}

// Build returns a snapshot of the records added so far. The builder can keep
// being used without affecting the snapshot.
func (b *Builder) Build() *Snapshot {
	entries := make(map[Key]bool, len(b.entries))
	for k, v := range b.entries {
		entries[k] = v
	}
	return &Snapshot{entries: entries}
}
