package allowlist

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-test/deep"

	"github.com/deepsourcelabs/vow/types"
)

func TestNormalize(t *testing.T) {
	type test struct {
		description string
		language    string
		name        string
		want        string
	}

	tests := []test{
		{description: "python separators collapse", language: "python", name: "Typing_Extensions", want: "typing-extensions"},
		{description: "python dots collapse", language: "py", name: "ruamel.yaml", want: "ruamel-yaml"},
		{description: "node prefix is dropped", language: "javascript", name: "node:fs", want: "fs"},
		{description: "typescript shares javascript rules", language: "typescript", name: "@Angular/Core", want: "@angular/core"},
		{description: "rust hyphens become underscores", language: "rust", name: "serde-json", want: "serde_json"},
		{description: "go paths keep their case", language: "go", name: "github.com/BurntSushi/toml", want: "github.com/BurntSushi/toml"},
	}

	for _, tc := range tests {
		if got := Normalize(tc.language, tc.name); got != tc.want {
			t.Errorf("description: %s, got %q, want %q", tc.description, got, tc.want)
		}
	}
}

func TestDefault(t *testing.T) {
	snap, err := Default()
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	type test struct {
		language string
		name     string
		want     bool
	}

	tests := []test{
		{language: "python", name: "os", want: true},
		{language: "python", name: "requests", want: true},
		{language: "python", name: "charset_normalizer", want: true},
		{language: "python", name: "nonexistent_lib_xyz", want: false},
		{language: "javascript", name: "fs", want: true},
		{language: "typescript", name: "node:path", want: true},
		{language: "rust", name: "serde_json", want: true},
		{language: "go", name: "net/http", want: true},
		{language: "go", name: "encoding/yaml", want: false},
	}

	for _, tc := range tests {
		if got := snap.Known(tc.language, tc.name); got != tc.want {
			t.Errorf("Known(%s, %s) = %v, want %v", tc.language, tc.name, got, tc.want)
		}
	}

	if diff := deep.Equal(snap.Languages(), []string{"go", "javascript", "python", "rust"}); diff != nil {
		t.Errorf("languages differ: %v", diff)
	}
}

func TestSnapshot_WithIsCopyOnWrite(t *testing.T) {
	base := NewBuilder().AddNames("python", "requests").Build()
	next := base.With(
		Record{Language: "python", Name: "reqeusts", Known: false},
		Record{Language: "python", Name: "internal-sdk", Known: true},
	)

	if base.Len() != 1 {
		t.Errorf("base snapshot changed: %d records", base.Len())
	}
	if next.Len() != 3 {
		t.Errorf("got %d records, want 3", next.Len())
	}
	if !next.Denied("python", "reqeusts") {
		t.Error("expected reqeusts to be denied")
	}
	if !next.Known("python", "internal_sdk") {
		t.Error("expected internal_sdk to be known after normalization")
	}
	if _, found := base.Lookup("python", "internal-sdk"); found {
		t.Error("base snapshot must not see records added later")
	}
}

func TestBuilder_BuildIsIsolated(t *testing.T) {
	b := NewBuilder().AddNames("rust", "tokio")
	snap := b.Build()
	b.AddNames("rust", "serde")

	if snap.Known("rust", "serde") {
		t.Error("snapshot must not observe later builder additions")
	}
}

func TestReadText(t *testing.T) {
	in := "# comment\nrequests\n\n!reqeusts\n  flask  \n"
	got, err := ReadText(strings.NewReader(in), "python")
	if err != nil {
		t.Fatal(err)
	}

	want := []Record{
		{Language: "python", Name: "requests", Known: true},
		{Language: "python", Name: "reqeusts", Known: false},
		{Language: "python", Name: "flask", Known: true},
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("records differ: %v", diff)
	}
}

func TestReadTOML(t *testing.T) {
	in := `
[[package]]
language = "javascript"
name = "left-pad"

[[package]]
language = "python"
name = "python-jwt-helper"
known = false
`
	got, err := ReadTOML(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}

	want := []Record{
		{Language: "javascript", Name: "left-pad", Known: true},
		{Language: "python", Name: "python-jwt-helper", Known: false},
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("records differ: %v", diff)
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "python.txt")
	if err := os.WriteFile(good, []byte("internal_tools\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	b := NewBuilder()
	if err := LoadFiles(b, good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.Build().Known("python", "internal-tools") {
		t.Error("expected internal-tools to be loaded")
	}

	bad := filepath.Join(dir, "broken.toml")
	if err := os.WriteFile(bad, []byte("[[package]\nname="), 0o600); err != nil {
		t.Fatal(err)
	}

	err := LoadFiles(NewBuilder(), filepath.Join(dir, "missing.txt"), bad)
	var loadErr *types.AllowlistLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected AllowlistLoadError, got %v", err)
	}
	if !strings.HasSuffix(loadErr.Source, "missing.txt") {
		t.Errorf("error names %s, want the missing file", loadErr.Source)
	}
}
