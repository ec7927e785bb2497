// Package analysistest runs an analyzer over testdata files and checks the
// issues it reports against "raise:" annotations written in the files'
// comments:
//
//	import nonexistent_lib_xyz  # raise: hallucinated-import
//
// Comments are found with tree-sitter for languages that have a grammar.
// Markdown and plain text files use HTML comments, matched lexically.
package analysistest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/types"
)

// Expectation is an issue declared by an annotation.
type Expectation struct {
	RuleID string
	Line   int
}

var (
	annotation     = regexp.MustCompile(`raise:\s*([\w-]+(?:\s*,\s*[\w-]+)*)`)
	htmlAnnotation = regexp.MustCompile(`<!--\s*raise:\s*([\w-]+(?:\s*,\s*[\w-]+)*)\s*-->`)
)

func grammar(language string) *sitter.Language {
	switch language {
	case "python":
		return python.GetLanguage()
	case "javascript":
		return javascript.GetLanguage()
	case "typescript":
		return typescript.GetLanguage()
	case "go":
		return golang.GetLanguage()
	case "rust":
		return rust.GetLanguage()
	case "css":
		return css.GetLanguage()
	case "html":
		return html.GetLanguage()
	default:
		return nil
	}
}

// Run analyzes every file under dir with a and compares the issues with the
// files' annotations. Files a does not support are skipped.
func Run(dir string, a analyzers.Analyzer) error {
	files, err := filenames(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no testdata files in %s", dir)
	}

	ctx := context.Background()
	for _, name := range files {
		language := analyzers.DetectLanguage(name)
		if !a.Supports(language) {
			continue
		}

		content, err := os.ReadFile(name)
		if err != nil {
			return err
		}

		expected, err := Expectations(ctx, language, content)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		out, err := a.Analyze(ctx, analyzers.NewSourceText(name, language, string(content)))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		if err := compare(expected, out.Issues); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	return nil
}

// filenames returns every regular file under dir, sorted.
func filenames(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Expectations extracts the annotations of a file.
func Expectations(ctx context.Context, language string, content []byte) ([]Expectation, error) {
	lang := grammar(language)
	if lang == nil {
		return lexicalExpectations(content), nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var expected []Expectation
	stack := []*sitter.Node{tree.RootNode()}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == nil {
			continue
		}

		// rust has line_comment and block_comment
		if strings.Contains(node.Type(), "comment") {
			line := int(node.StartPoint().Row) + 1
			expected = append(expected, parseAnnotation(annotation, node.Content(content), line)...)
			continue
		}

		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.Child(i))
		}
	}

	return expected, nil
}

func lexicalExpectations(content []byte) []Expectation {
	var expected []Expectation
	for idx, line := range strings.Split(string(content), "\n") {
		expected = append(expected, parseAnnotation(htmlAnnotation, line, idx+1)...)
	}
	return expected
}

func parseAnnotation(exp *regexp.Regexp, comment string, line int) []Expectation {
	m := exp.FindStringSubmatch(comment)
	if m == nil {
		return nil
	}

	var expected []Expectation
	for _, id := range strings.Split(m[1], ",") {
		expected = append(expected, Expectation{RuleID: strings.TrimSpace(id), Line: line})
	}
	return expected
}

// compare checks that issues and expectations match one to one on rule id
// and line.
func compare(expected []Expectation, issues []types.Issue) error {
	remaining := make(map[Expectation]int)
	for _, e := range expected {
		remaining[e]++
	}

	var unexpected []string
	for _, issue := range issues {
		key := Expectation{RuleID: issue.RuleID, Line: issue.Line}
		if remaining[key] > 0 {
			remaining[key]--
			continue
		}
		unexpected = append(unexpected, fmt.Sprintf("%d: %s (%s)", issue.Line, issue.RuleID, issue.Message))
	}

	var missing []string
	for e, n := range remaining {
		for ; n > 0; n-- {
			missing = append(missing, fmt.Sprintf("%d: %s", e.Line, e.RuleID))
		}
	}
	sort.Strings(missing)

	if len(unexpected) == 0 && len(missing) == 0 {
		return nil
	}

	var msg strings.Builder
	msg.WriteString("mismatch between reported and annotated issues")
	if len(unexpected) > 0 {
		msg.WriteString("\nunexpected:\n\t" + strings.Join(unexpected, "\n\t"))
	}
	if len(missing) > 0 {
		msg.WriteString("\nmissing:\n\t" + strings.Join(missing, "\n\t"))
	}
	return errors.New(msg.String())
}
