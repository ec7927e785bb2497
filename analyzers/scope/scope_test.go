package scope

import (
	"context"
	"testing"

	"github.com/go-test/deep"
)

func TestFunctions(t *testing.T) {
	type test struct {
		description string
		language    string
		src         string
		want        []Range
	}

	tests := []test{
		{
			description: "python function body",
			language:    "python",
			src: `import os

def run(cmd):
    os.system(cmd)
    return 1

x = eval("1")
`,
			want: []Range{{Start: 4, End: 5}},
		},
		{
			description: "go functions and methods",
			language:    "go",
			src: `package main

func a() {
	println("a")
}

type T struct{}

func (T) b() {
	println("b")
}
`,
			want: []Range{{Start: 3, End: 5}, {Start: 9, End: 11}},
		},
		{
			description: "javascript declarations and arrow functions",
			language:    "javascript",
			src: `const x = 1;
function f() {
  return x;
}
const g = () => {
  return f();
};
`,
			want: []Range{{Start: 2, End: 4}, {Start: 5, End: 7}},
		},
	}

	for _, tc := range tests {
		got, ok, err := Functions(context.Background(), tc.language, []byte(tc.src))
		if err != nil {
			t.Errorf("description: %s, unexpected error: %v", tc.description, err)
			continue
		}
		if !ok {
			t.Errorf("description: %s, expected a grammar", tc.description)
		}
		if diff := deep.Equal(got, tc.want); diff != nil {
			t.Errorf("description: %s, %s", tc.description, diff)
		}
	}
}

func TestFunctions_UnsupportedLanguage(t *testing.T) {
	ranges, ok, err := Functions(context.Background(), "markdown", []byte("# title"))
	if err != nil || ok || ranges != nil {
		t.Errorf("got %v, %v, %v; want nil, false, nil", ranges, ok, err)
	}
}

func TestSupported(t *testing.T) {
	for lang, want := range map[string]bool{
		"python": true, "javascript": true, "typescript": true, "go": true, "rust": true,
		"ruby": false, "markdown": false, "": false,
	} {
		if got := Supported(lang); got != want {
			t.Errorf("description: %q, got %v, want %v", lang, got, want)
		}
	}
}

func TestLines(t *testing.T) {
	lines := Lines([]Range{{Start: 2, End: 3}, {Start: 3, End: 4}})
	for _, l := range []int{2, 3, 4} {
		if _, ok := lines[l]; !ok {
			t.Errorf("line %d missing", l)
		}
	}
	if len(lines) != 3 {
		t.Errorf("got %d lines, want 3", len(lines))
	}
}
