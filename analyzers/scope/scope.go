// Package scope resolves the line ranges of function bodies with tree-sitter.
package scope

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Range is an inclusive, 1-based line range.
type Range struct {
	Start int
	End   int
}

// Contains reports whether line falls in r.
func (r Range) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// grammar pairs a language with the node types that declare functions.
type grammar struct {
	language  func() *sitter.Language
	functions map[string]struct{}
}

func nodeTypes(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

var jsFunctions = nodeTypes(
	"function_declaration",
	"function",
	"function_expression",
	"generator_function_declaration",
	"arrow_function",
	"method_definition",
)

var grammars = map[string]grammar{
	"python":     {language: python.GetLanguage, functions: nodeTypes("function_definition")},
	"javascript": {language: javascript.GetLanguage, functions: jsFunctions},
	"typescript": {language: typescript.GetLanguage, functions: jsFunctions},
	"go":         {language: golang.GetLanguage, functions: nodeTypes("function_declaration", "method_declaration", "func_literal")},
	"rust":       {language: rust.GetLanguage, functions: nodeTypes("function_item", "closure_expression")},
}

// Supported reports whether function bodies can be resolved for language.
func Supported(language string) bool {
	_, ok := grammars[language]
	return ok
}

// Functions returns the body ranges of every function in src, sorted by start
// line. Nested functions produce their own ranges. ok is false when the
// language has no grammar.
func Functions(ctx context.Context, language string, src []byte) (ranges []Range, ok bool, err error) {
	g, ok := grammars[language]
	if !ok {
		return nil, false, nil
	}

	// parsers are not safe for concurrent use, so one per call
	parser := sitter.NewParser()
	parser.SetLanguage(g.language())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, true, fmt.Errorf("parsing %s source: %w", language, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, true, nil
	}

	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, isFunc := g.functions[node.Type()]; isFunc {
			body := node.ChildByFieldName("body")
			if body == nil {
				body = node
			}
			ranges = append(ranges, Range{
				Start: int(body.StartPoint().Row) + 1,
				End:   int(body.EndPoint().Row) + 1,
			})
		}

		for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.NamedChild(i))
		}
	}

	sort.SliceStable(ranges, func(i, j int) bool {
		if ranges[i].Start != ranges[j].Start {
			return ranges[i].Start < ranges[j].Start
		}
		return ranges[i].End < ranges[j].End
	})
	return ranges, true, nil
}

// Lines returns the set of lines covered by any of ranges.
func Lines(ranges []Range) map[int]struct{} {
	lines := make(map[int]struct{})
	for _, r := range ranges {
		for l := r.Start; l <= r.End; l++ {
			lines[l] = struct{}{}
		}
	}
	return lines
}
