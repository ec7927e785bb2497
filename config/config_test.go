package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepsourcelabs/vow/types"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, types.DefaultConfig().EnabledAnalyzers, s.Core.EnabledAnalyzers)
	assert.Equal(t, types.StrictnessMedium, s.Core.Strictness)
	assert.Equal(t, types.Severity(0), s.Core.MinSeverity)
	assert.Equal(t, 10*time.Second, s.Core.FileTimeout)
	assert.Equal(t, 3, s.Core.MaxDecodeDepth)
	assert.Equal(t, 10, s.Core.ProximityWindow)
	assert.Equal(t, "info", s.LogLevel)
}

func TestLoad_TOML(t *testing.T) {
	path := write(t, "vow.toml", `
enabled_analyzers = ["Code", "security"]
min_severity = "high"
strictness = "paranoid"
workers = 4
file_timeout = "2s"
proximity_window = 5
rule_sources = ["rules/", "/etc/vow/extra.toml"]
allowlists = ["internal-packages.txt"]
local_modules = ["acme_internal"]

[analyzer_weights]
code = 0.7
security = 0.3
`)

	s, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, []string{"code", "security"}, s.Core.EnabledAnalyzers)
	assert.Equal(t, types.SeverityHigh, s.Core.MinSeverity)
	assert.Equal(t, types.StrictnessParanoid, s.Core.Strictness)
	assert.Equal(t, 4, s.Core.Workers)
	assert.Equal(t, 2*time.Second, s.Core.FileTimeout)
	assert.Equal(t, 5, s.Core.ProximityWindow)
	assert.Equal(t, []string{filepath.Join(dir, "rules"), "/etc/vow/extra.toml"}, s.Core.RuleSources)
	assert.Equal(t, []string{filepath.Join(dir, "internal-packages.txt")}, s.Allowlists)
	assert.Equal(t, []string{"acme_internal"}, s.Core.LocalModules)
	assert.InDelta(t, 0.7, s.Core.AnalyzerWeights["code"], 1e-9)
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "vow.yaml", "min_severity: critical\nmax_decode_depth: 1\nlog_level: debug\n")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, types.SeverityCritical, s.Core.MinSeverity)
	assert.Equal(t, 1, s.Core.MaxDecodeDepth)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoad_Environment(t *testing.T) {
	path := write(t, "vow.toml", "min_severity = \"low\"\n")
	t.Setenv("VOW_MIN_SEVERITY", "high")
	t.Setenv("VOW_WORKERS", "2")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, types.SeverityHigh, s.Core.MinSeverity)
	assert.Equal(t, 2, s.Core.Workers)
}

func TestLoad_External(t *testing.T) {
	path := write(t, "vow.toml", `
[[external]]
name = "shellcheck"
command = "shellcheck"
args = ["--format=gcc", "-"]
languages = ["shell"]
allowed_exit_codes = [1]
severity = "low"
`)

	s, err := Load(path)
	require.NoError(t, err)
	require.Len(t, s.External, 1)

	tool := s.External[0]
	assert.Equal(t, "shellcheck", tool.Name)
	assert.Equal(t, []string{"--format=gcc", "-"}, tool.Args)
	assert.Equal(t, []string{"shell"}, tool.Languages)
	assert.Equal(t, []int{1}, tool.AllowedExitCodes)
	assert.Equal(t, "low", tool.Severity)
}

func TestLoad_Errors(t *testing.T) {
	type test struct {
		description string
		content     string
	}

	tests := []test{
		{"unknown severity", "min_severity = \"severe\"\n"},
		{"unknown strictness", "strictness = \"extreme\"\n"},
		{"decode depth above the bound", "max_decode_depth = 5\n"},
		{"negative weight", "[analyzer_weights]\ncode = -1.0\n"},
		{"no analyzers", "enabled_analyzers = []\n"},
		{"malformed file", "min_severity = \n"},
		{"external checker without a command", "[[external]]\nname = \"lint\"\n"},
		{"external checker defined twice", "[[external]]\nname = \"lint\"\ncommand = \"lint\"\n[[external]]\nname = \"lint\"\ncommand = \"lint\"\n"},
	}

	for _, tc := range tests {
		_, err := Load(write(t, "vow.toml", tc.content))
		var cfgErr *types.ConfigError
		assert.True(t, errors.As(err, &cfgErr), "description: %s, got %v", tc.description, err)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	var cfgErr *types.ConfigError
	assert.True(t, errors.As(err, &cfgErr), "missing file")
}
