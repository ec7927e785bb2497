package goast

import (
	"os"
	"testing"

	"github.com/go-test/deep"
)

func TestImports(t *testing.T) {
	type test struct {
		description string
		src         []byte
		want        []Import
		expectErr   bool
	}

	/////////////////////
	// prepare for tests
	/////////////////////

	content, err := os.ReadFile("testdata/src/imports/imports.go")
	if err != nil {
		t.Fatalf("failed to read testdata, err: %v\n", err)
	}

	/////////////
	// run tests
	/////////////

	tests := []test{
		{
			description: "must return imports in source order",
			src:         content,
			want: []Import{
				{Path: "fmt", Line: 4, Column: 2},
				{Path: "net/http", Line: 5, Column: 2},
				{Path: "encoding/yaml", Name: "yaml", Line: 7, Column: 7},
				{Path: "github.com/stretchr/testify/assert", Line: 8, Column: 2},
				{Path: "crypto/sha3", Name: "_", Line: 11, Column: 10},
			},
		},
		{
			description: "must tolerate errors after the imports",
			src:         []byte("package x\n\nimport \"os\"\n\nfunc {\n"),
			want:        []Import{{Path: "os", Line: 3, Column: 8}},
		},
		{
			description: "must fail when nothing parses",
			src:         []byte("this is not go"),
			expectErr:   true,
		},
	}

	for _, tc := range tests {
		got, err := Imports("x.go", tc.src)
		if (err != nil) != tc.expectErr {
			t.Errorf("description: %s, unexpected error state: %v", tc.description, err)
		}
		if diff := deep.Equal(got, tc.want); diff != nil {
			t.Errorf("description: %s, %s", tc.description, diff)
		}
	}
}

func TestStandard(t *testing.T) {
	cases := map[string]bool{
		"fmt":                        true,
		"net/http":                   true,
		"encoding/yaml":              true,
		"myapp/handlers":             false,
		"internal/app":               true,
		"github.com/spf13/cobra":     false,
		"golang.org/x/sync/errgroup": false,
		"example.com":                false,
	}

	for path, want := range cases {
		if got := Standard(path); got != want {
			t.Errorf("Standard(%q) = %v, want %v", path, got, want)
		}
	}
}
