package analyzers

import (
	"sort"
	"strings"

	"github.com/deepsourcelabs/vow/types"
)

// Source is a file prepared for analysis: its text and a line index. A Source
// is read-only once created and may be shared by analyzers running in parallel.
type Source struct {
	Path     string
	Language string
	Text     string

	lines  []string
	starts []int
}

// NewSource indexes the lines of f.
func NewSource(f types.File) *Source {
	return NewSourceText(f.Path, f.Language, string(f.Content))
}

// NewSourceText indexes text directly.
func NewSourceText(path, language, text string) *Source {
	s := &Source{Path: path, Language: language, Text: text}

	start := 0
	for {
		idx := strings.IndexByte(text[start:], '\n')
		if idx < 0 {
			break
		}
		s.starts = append(s.starts, start)
		s.lines = append(s.lines, strings.TrimSuffix(text[start:start+idx], "\r"))
		start += idx + 1
	}
	if start < len(text) {
		s.starts = append(s.starts, start)
		s.lines = append(s.lines, strings.TrimSuffix(text[start:], "\r"))
	}

	return s
}

// Lines returns every line without its terminator. Index i holds line i+1.
func (s *Source) Lines() []string {
	return s.lines
}

// LineCount returns the number of lines.
func (s *Source) LineCount() int {
	return len(s.lines)
}

// Line returns the 1-based line n, or "" when out of range.
func (s *Source) Line(n int) string {
	if n < 1 || n > len(s.lines) {
		return ""
	}
	return s.lines[n-1]
}

// Position converts a byte offset in Text into a 1-based line and column.
func (s *Source) Position(offset int) (line, column int) {
	if len(s.starts) == 0 {
		return 1, offset + 1
	}
	idx := sort.Search(len(s.starts), func(i int) bool {
		return s.starts[i] > offset
	}) - 1
	if idx < 0 {
		idx = 0
	}
	return idx + 1, offset - s.starts[idx] + 1
}
