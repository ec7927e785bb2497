package types

import (
	"fmt"
	"strings"
	"time"
)

// Built-in analyzer names.
const (
	AnalyzerCode     = "code"
	AnalyzerText     = "text"
	AnalyzerSecurity = "security"
)

// Strictness selects which built-in rules are active.
type Strictness int

const (
	StrictnessLow Strictness = iota + 1
	StrictnessMedium
	StrictnessHigh
	StrictnessParanoid
)

var strictnessNames = map[Strictness]string{
	StrictnessLow:      "low",
	StrictnessMedium:   "medium",
	StrictnessHigh:     "high",
	StrictnessParanoid: "paranoid",
}

// ParseStrictness parses low, medium, high or paranoid.
func ParseStrictness(s string) (Strictness, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for level, n := range strictnessNames {
		if n == name {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown strictness %q: expected one of low, medium, high, paranoid", s)
}

func (s Strictness) String() string {
	return strictnessNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Strictness) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strictness) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = 0
		return nil
	}
	level, err := ParseStrictness(string(text))
	if err != nil {
		return err
	}
	*s = level
	return nil
}

// Config is the resolved configuration the core consumes. It is produced by a
// collaborator before a run and never re-read during one.
type Config struct {
	EnabledAnalyzers []string           `json:"enabled_analyzers" validate:"required,min=1,dive,required"`
	MinSeverity      Severity           `json:"min_severity,omitempty"`
	AnalyzerWeights  map[string]float64 `json:"analyzer_weights" validate:"dive,gte=0,lte=1"`
	RuleSources      []string           `json:"rule_sources,omitempty" validate:"dive,required"`
	LocalModules     []string           `json:"local_modules,omitempty"`
	Strictness       Strictness         `json:"strictness"`
	Workers          int                `json:"workers" validate:"gte=0,lte=1024"`
	FileTimeout      time.Duration      `json:"file_timeout" validate:"gte=0"`
	MaxDecodeDepth   int                `json:"max_decode_depth" validate:"gte=0,lte=3"`
	ProximityWindow  int                `json:"proximity_window" validate:"gte=0,lte=1000"`
}

// DefaultWeights are used when the configuration does not supply any.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		AnalyzerCode:     0.40,
		AnalyzerText:     0.35,
		AnalyzerSecurity: 0.25,
	}
}

// DefaultConfig enables every built-in analyzer with no severity floor.
func DefaultConfig() Config {
	return Config{
		EnabledAnalyzers: []string{AnalyzerCode, AnalyzerText, AnalyzerSecurity},
		AnalyzerWeights:  DefaultWeights(),
		Strictness:       StrictnessMedium,
		FileTimeout:      10 * time.Second,
		MaxDecodeDepth:   3,
		ProximityWindow:  10,
	}
}

// Enabled reports whether the named analyzer is enabled.
func (c Config) Enabled(name string) bool {
	for _, n := range c.EnabledAnalyzers {
		if n == name {
			return true
		}
	}
	return false
}
