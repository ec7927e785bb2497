// Package config reads a vow configuration file into the configuration the
// core consumes.
//
// A configuration file is TOML or YAML:
//
//	enabled_analyzers = ["code", "text", "security"]
//	min_severity = "medium"
//	strictness = "high"
//	file_timeout = "5s"
//	rule_sources = ["rules/"]
//
//	[analyzer_weights]
//	code = 0.5
//
//	[[external]]
//	name = "shellcheck"
//	command = "shellcheck"
//	args = ["--format=gcc", "-"]
//	languages = ["shell"]
//	allowed_exit_codes = [1]
//
// Every key can be overridden by a VOW_ environment variable, for example
// VOW_MIN_SEVERITY=high or VOW_ENABLED_ANALYZERS=code,security.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/deepsourcelabs/vow/analyzers/external"
	"github.com/deepsourcelabs/vow/types"
)

// EnvPrefix prefixes the environment variables that override the file.
const EnvPrefix = "VOW"

var validate = validator.New()

// Settings is a loaded configuration: the core configuration plus what the
// command line tool needs to build the allowlist and the logger.
type Settings struct {
	Core       types.Config
	Allowlists []string
	LogLevel   string
	// External checkers run alongside the built-in analyzers.
	External []external.Tool
}

// file mirrors the configuration file. Severity and strictness stay text
// until they are parsed so errors can name the offending value.
type file struct {
	EnabledAnalyzers []string           `mapstructure:"enabled_analyzers"`
	MinSeverity      string             `mapstructure:"min_severity"`
	AnalyzerWeights  map[string]float64 `mapstructure:"analyzer_weights"`
	RuleSources      []string           `mapstructure:"rule_sources"`
	LocalModules     []string           `mapstructure:"local_modules"`
	Allowlists       []string           `mapstructure:"allowlists"`
	Strictness       string             `mapstructure:"strictness"`
	Workers          int                `mapstructure:"workers"`
	FileTimeout      time.Duration      `mapstructure:"file_timeout"`
	MaxDecodeDepth   int                `mapstructure:"max_decode_depth"`
	ProximityWindow  int                `mapstructure:"proximity_window"`
	LogLevel         string             `mapstructure:"log_level"`
	External         []external.Tool    `mapstructure:"external"`
}

func defaults(v *viper.Viper) {
	d := types.DefaultConfig()
	v.SetDefault("enabled_analyzers", d.EnabledAnalyzers)
	v.SetDefault("min_severity", "")
	v.SetDefault("analyzer_weights", d.AnalyzerWeights)
	v.SetDefault("rule_sources", []string{})
	v.SetDefault("local_modules", []string{})
	v.SetDefault("allowlists", []string{})
	v.SetDefault("strictness", d.Strictness.String())
	v.SetDefault("workers", d.Workers)
	v.SetDefault("file_timeout", d.FileTimeout)
	v.SetDefault("max_decode_depth", d.MaxDecodeDepth)
	v.SetDefault("proximity_window", d.ProximityWindow)
	v.SetDefault("log_level", "info")
}

// Load reads the configuration file at path and applies environment
// overrides. An empty path loads the defaults. Relative rule sources and
// allowlist files are resolved against the file's directory. Every failure
// is a *types.ConfigError.
func Load(path string) (Settings, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			v.SetConfigType("yaml")
		default:
			v.SetConfigType("toml")
		}
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, &types.ConfigError{Source: path, Err: err}
		}
	}

	var f file
	if err := v.Unmarshal(&f); err != nil {
		return Settings{}, &types.ConfigError{Source: path, Err: err}
	}

	s, err := f.settings(filepath.Dir(path))
	if err != nil {
		return Settings{}, &types.ConfigError{Source: path, Err: err}
	}
	if err := Validate(s.Core); err != nil {
		return Settings{}, &types.ConfigError{Source: path, Err: err}
	}

	return s, nil
}

func (f file) settings(base string) (Settings, error) {
	cfg := types.Config{
		EnabledAnalyzers: lowerAll(f.EnabledAnalyzers),
		AnalyzerWeights:  f.AnalyzerWeights,
		RuleSources:      resolve(base, f.RuleSources),
		LocalModules:     f.LocalModules,
		Workers:          f.Workers,
		FileTimeout:      f.FileTimeout,
		MaxDecodeDepth:   f.MaxDecodeDepth,
		ProximityWindow:  f.ProximityWindow,
	}

	if f.MinSeverity != "" {
		min, err := types.ParseSeverity(f.MinSeverity)
		if err != nil {
			return Settings{}, fmt.Errorf("min_severity: %w", err)
		}
		cfg.MinSeverity = min
	}

	strictness, err := types.ParseStrictness(f.Strictness)
	if err != nil {
		return Settings{}, fmt.Errorf("strictness: %w", err)
	}
	cfg.Strictness = strictness

	seen := make(map[string]bool, len(f.External))
	for _, tool := range f.External {
		if _, err := external.New(tool); err != nil {
			return Settings{}, fmt.Errorf("external: %w", err)
		}
		if seen[tool.Name] {
			return Settings{}, fmt.Errorf("external: checker %q is defined twice", tool.Name)
		}
		seen[tool.Name] = true
	}

	return Settings{
		Core:       cfg,
		Allowlists: resolve(base, f.Allowlists),
		LogLevel:   f.LogLevel,
		External:   f.External,
	}, nil
}

// Validate checks the ranges of cfg.
func Validate(cfg types.Config) error {
	return validate.Struct(cfg)
}

func resolve(base string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		out = append(out, p)
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
