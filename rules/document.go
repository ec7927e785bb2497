// Package rules compiles declarative rule-set documents into a rule table.
package rules

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/deepsourcelabs/vow/types"
)

// Format is the encoding of a rule-set document.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath returns the format implied by a file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return "", false
	}
}

// PatternDoc is a pattern as written in a rule document.
type PatternDoc struct {
	Type    string `toml:"type" yaml:"type"`
	Value   string `toml:"value" yaml:"value"`
	Message string `toml:"message,omitempty" yaml:"message,omitempty"`

	// PatternType is accepted as an alias of Type.
	PatternType string `toml:"pattern_type,omitempty" yaml:"pattern_type,omitempty"`
}

// RuleDoc is a rule as written in a rule document. Severity, scope and
// strictness are kept as text so that bad values surface as compile errors.
type RuleDoc struct {
	ID          string       `toml:"id" yaml:"id"`
	Name        string       `toml:"name" yaml:"name"`
	Description string       `toml:"description,omitempty" yaml:"description,omitempty"`
	Severity    string       `toml:"severity" yaml:"severity"`
	Analyzer    string       `toml:"analyzer,omitempty" yaml:"analyzer,omitempty"`
	FileTypes   []string     `toml:"file_types,omitempty" yaml:"file_types,omitempty"`
	Languages   []string     `toml:"languages,omitempty" yaml:"languages,omitempty"`
	Scope       string       `toml:"scope,omitempty" yaml:"scope,omitempty"`
	Strictness  string       `toml:"strictness,omitempty" yaml:"strictness,omitempty"`
	Patterns    []PatternDoc `toml:"patterns" yaml:"patterns"`
}

// RuleSet is one rule-set document.
type RuleSet struct {
	Name  string    `toml:"name" yaml:"name"`
	Rules []RuleDoc `toml:"rules" yaml:"rules"`
}

// ReadRuleSet decodes a rule set. name is used when the document does not
// carry one.
func ReadRuleSet(r io.Reader, format Format, name string) (RuleSet, error) {
	// read content from reader
	content, err := io.ReadAll(r)
	if err != nil {
		return RuleSet{}, err
	}

	var set RuleSet
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(content, &set); err != nil {
			return RuleSet{}, err
		}
	case FormatYAML:
		set, err = decodeYAML(content)
		if err != nil {
			return RuleSet{}, err
		}
	default:
		return RuleSet{}, fmt.Errorf("unsupported rule format %q", format)
	}

	if set.Name == "" {
		set.Name = name
	}
	return set, nil
}

// decodeYAML accepts either a mapping with name and rules, or a bare list of rules.
func decodeYAML(content []byte) (RuleSet, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(content, &node); err != nil {
		return RuleSet{}, err
	}

	// empty document
	if len(node.Content) == 0 {
		return RuleSet{}, nil
	}

	var set RuleSet
	if node.Content[0].Kind == yaml.SequenceNode {
		if err := node.Content[0].Decode(&set.Rules); err != nil {
			return RuleSet{}, err
		}
		return set, nil
	}

	if err := node.Content[0].Decode(&set); err != nil {
		return RuleSet{}, err
	}
	return set, nil
}

// LoadRuleSets reads rule sets from files and directories, in the order given.
// Directories contribute their .toml, .yaml and .yml files in lexical order.
// A document that cannot be read or decoded is reported as a RuleCompileError.
func LoadRuleSets(paths ...string) ([]RuleSet, error) {
	var sets []RuleSet
	for _, p := range paths {
		files, err := ruleFiles(p)
		if err != nil {
			return nil, &types.RuleCompileError{RuleSet: p, Reason: "reading rule source", Err: err}
		}

		for _, file := range files {
			set, err := loadRuleFile(file)
			if err != nil {
				return nil, &types.RuleCompileError{RuleSet: file, Reason: "decoding rule document", Err: err}
			}
			sets = append(sets, set)
		}
	}
	return sets, nil
}

func ruleFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := FormatFromPath(path); ok {
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

func loadRuleFile(path string) (RuleSet, error) {
	format, ok := FormatFromPath(path)
	if !ok {
		return RuleSet{}, fmt.Errorf("unknown rule document extension %q", filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return RuleSet{}, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ReadRuleSet(f, format, name)
}

// EncodeRuleSet writes set as TOML.
func EncodeRuleSet(w io.Writer, set RuleSet) error {
	return toml.NewEncoder(w).Encode(set)
}

// renderMarkdown converts a markdown description to sanitized HTML.
func renderMarkdown(content string) (string, error) {
	// use the Github-flavored Markdown extension
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return "", err
	}

	// sanitize rendered body
	p := bluemonday.UGCPolicy()
	return p.Sanitize(buf.String()), nil
}
