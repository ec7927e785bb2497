package allowlist

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/deepsourcelabs/vow/types"
)

//go:embed data/*.txt
var defaults embed.FS

// Default returns the snapshot built from the embedded package lists.
func Default() (*Snapshot, error) {
	b := NewBuilder()
	if err := AddDefaults(b); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// AddDefaults adds the embedded package lists to b.
func AddDefaults(b *Builder) error {
	entries, err := defaults.ReadDir("data")
	if err != nil {
		return &types.AllowlistLoadError{Source: "embedded", Err: err}
	}

	for _, entry := range entries {
		name := path.Join("data", entry.Name())
		f, err := defaults.Open(name)
		if err != nil {
			return &types.AllowlistLoadError{Source: name, Err: err}
		}

		lang := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		records, err := ReadText(f, lang)
		f.Close()
		if err != nil {
			return &types.AllowlistLoadError{Source: name, Err: err}
		}
		b.Add(records...)
	}

	return nil
}

// ReadText reads a list with one package name per line. Blank lines and lines
// starting with # are skipped. A name prefixed with ! is recorded as not real.
func ReadText(r io.Reader, language string) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		known := true
		if strings.HasPrefix(line, "!") {
			known = false
			line = strings.TrimSpace(line[1:])
		}
		records = append(records, Record{Language: language, Name: line, Known: known})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

type recordFile struct {
	Packages []struct {
		Language string `toml:"language"`
		Name     string `toml:"name"`
		Known    *bool  `toml:"known"`
	} `toml:"package"`
}

// ReadTOML reads [[package]] tables with language, name and an optional known
// flag (default true).
func ReadTOML(r io.Reader) ([]Record, error) {
	var doc recordFile
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(doc.Packages))
	for i, p := range doc.Packages {
		if p.Language == "" || p.Name == "" {
			return nil, fmt.Errorf("package %d: language and name are required", i+1)
		}
		known := true
		if p.Known != nil {
			known = *p.Known
		}
		records = append(records, Record{Language: p.Language, Name: p.Name, Known: known})
	}
	return records, nil
}

// LoadFiles adds the records of every file to b. TOML files carry their own
// languages; any other file is read as a plain list whose language is the base
// file name, as in python.txt.
func LoadFiles(b *Builder, paths ...string) error {
	for _, p := range paths {
		records, err := loadFile(p)
		if err != nil {
			return &types.AllowlistLoadError{Source: p, Err: err}
		}
		b.Add(records...)
	}
	return nil
}

func loadFile(p string) ([]Record, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ext := filepath.Ext(p)
	if strings.EqualFold(ext, ".toml") {
		return ReadTOML(f)
	}

	lang := strings.TrimSuffix(filepath.Base(p), ext)
	if lang == "" {
		return nil, fmt.Errorf("cannot infer a language from the file name")
	}
	return ReadText(f, lang)
}
