package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/baseline"
	"github.com/deepsourcelabs/vow/types"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMinSeverity overrides the configured minimum severity for this run.
func WithMinSeverity(min types.Severity) Option {
	return func(p *Pipeline) { p.override = min }
}

// WithRegisterer registers the pipeline metrics with reg instead of a
// private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Pipeline) { p.registerer = reg }
}

// WithBaseline drops issues recorded in b.
func WithBaseline(b *baseline.Baseline) Option {
	return func(p *Pipeline) { p.baseline = b }
}

// WithAnalyzers adds analyzers to the built-in ones. They run for every file
// they support, whether or not the configuration lists them.
func WithAnalyzers(list ...analyzers.Analyzer) Option {
	return func(p *Pipeline) { p.extra = append(p.extra, list...) }
}

// WithWorkers sets the number of files analyzed at once.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithTimeout sets the per-file time limit. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}
