// Package pipeline runs the analyzers over a batch of files and turns their
// outputs into scored, filtered results.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/fatih/semgroup"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/deepsourcelabs/vow/allowlist"
	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/analyzers/code"
	"github.com/deepsourcelabs/vow/analyzers/security"
	"github.com/deepsourcelabs/vow/analyzers/text"
	"github.com/deepsourcelabs/vow/baseline"
	"github.com/deepsourcelabs/vow/filter"
	"github.com/deepsourcelabs/vow/rules"
	"github.com/deepsourcelabs/vow/score"
	"github.com/deepsourcelabs/vow/suppress"
	"github.com/deepsourcelabs/vow/types"
)

var tracer = otel.Tracer("vow.pipeline")

// Pipeline analyzes files with a fixed set of analyzers. The rule table and
// allowlist snapshot it holds are shared read-only by every worker.
type Pipeline struct {
	analyzers []analyzers.Analyzer
	weights   score.Weights
	min       types.Severity

	override   types.Severity
	workers    int
	timeout    time.Duration
	baseline   *baseline.Baseline
	extra      []analyzers.Analyzer
	registerer prometheus.Registerer
	logger     zerolog.Logger
	metrics    *metrics
}

// Prepare compiles the built-in rule sets and the configured custom rule
// sources. It must succeed before any file is analyzed.
func Prepare(cfg types.Config) (*rules.Table, error) {
	return rules.Load(rules.Options{Strictness: cfg.Strictness}, cfg.RuleSources...)
}

// NewFromConfig compiles the configured rules and builds a pipeline.
func NewFromConfig(cfg types.Config, snapshot *allowlist.Snapshot, opts ...Option) (*Pipeline, error) {
	table, err := Prepare(cfg)
	if err != nil {
		return nil, err
	}
	return New(cfg, table, snapshot, opts...)
}

// New builds a pipeline running the analyzers cfg enables plus any added with
// WithAnalyzers.
func New(cfg types.Config, table *rules.Table, snapshot *allowlist.Snapshot, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		workers: cfg.Workers,
		timeout: cfg.FileTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.workers <= 0 {
		p.workers = runtime.NumCPU()
	}

	p.weights = score.Weights(cfg.AnalyzerWeights)
	if len(p.weights) == 0 {
		p.weights = types.DefaultWeights()
	}
	p.min = filter.Resolve(p.override, cfg)

	builtin := map[string]func() (analyzers.Analyzer, error){
		types.AnalyzerCode: func() (analyzers.Analyzer, error) {
			if snapshot == nil {
				return nil, &types.AllowlistLoadError{Source: "snapshot", Err: errors.New("no allowlist snapshot supplied")}
			}
			return code.New(code.Options{Allowlist: snapshot, Rules: table, LocalModules: cfg.LocalModules}), nil
		},
		types.AnalyzerText: func() (analyzers.Analyzer, error) {
			return text.New(text.WithRules(table)), nil
		},
		types.AnalyzerSecurity: func() (analyzers.Analyzer, error) {
			return security.New(security.Options{Window: cfg.ProximityWindow, MaxDepth: cfg.MaxDecodeDepth, Rules: table}), nil
		},
	}

	seen := make(map[string]bool)
	for _, a := range p.extra {
		if seen[a.Name()] {
			return nil, &types.ConfigError{Err: fmt.Errorf("analyzer %q registered twice", a.Name())}
		}
		seen[a.Name()] = true
		p.analyzers = append(p.analyzers, a)
	}

	for _, name := range cfg.EnabledAnalyzers {
		if seen[name] {
			continue
		}
		build, ok := builtin[name]
		if !ok {
			return nil, &types.ConfigError{Err: fmt.Errorf("unknown analyzer %q", name)}
		}
		a, err := build()
		if err != nil {
			return nil, err
		}
		seen[name] = true
		p.analyzers = append(p.analyzers, a)
	}
	p.analyzers = analyzers.ByName(p.analyzers)

	reg := p.registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m, err := newMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	p.metrics = m

	return p, nil
}

// Analyzers returns the names of the analyzers the pipeline runs, in order.
func (p *Pipeline) Analyzers() []string {
	names := make([]string, 0, len(p.analyzers))
	for _, a := range p.analyzers {
		names = append(names, a.Name())
	}
	return names
}

// outcome is what one worker produced for one file.
type outcome struct {
	result *types.AnalysisResult
	err    *types.FileError
}

// Run analyzes files. A file that cannot be analyzed yields a FileError and
// the batch continues. When ctx is cancelled no further files are started,
// the results already produced are kept, and the files that were not
// finished are listed as unprocessed; the context error is returned with the
// partial report.
func (p *Pipeline) Run(ctx context.Context, files []types.File) (types.Report, error) {
	report := types.Report{RunID: uuid.NewString()}
	logger := p.logger.With().Str("run", report.RunID).Logger()
	logger.Debug().Int("files", len(files)).Int("workers", p.workers).Msg("starting run")

	outcomes := make([]outcome, len(files))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, f := range files {
		if ctx.Err() != nil {
			break
		}
		i, f := i, f
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = p.processFile(ctx, logger, f)
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range outcomes {
		switch {
		case o.result != nil:
			report.Results = append(report.Results, *o.result)
		case o.err != nil:
			report.Errors = append(report.Errors, *o.err)
		default:
			report.Unprocessed = append(report.Unprocessed, files[i].Path)
			p.metrics.files.WithLabelValues(outcomeSkipped).Inc()
		}
	}

	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].FilePath < report.Results[j].FilePath
	})
	sort.SliceStable(report.Errors, func(i, j int) bool {
		return report.Errors[i].FilePath < report.Errors[j].FilePath
	})
	sort.Strings(report.Unprocessed)

	logger.Debug().
		Int("results", len(report.Results)).
		Int("errors", len(report.Errors)).
		Int("unprocessed", len(report.Unprocessed)).
		Msg("run finished")

	return report, ctx.Err()
}

// processFile runs every applicable analyzer over f. A zero outcome means
// the run was cancelled before f finished.
func (p *Pipeline) processFile(ctx context.Context, logger zerolog.Logger, f types.File) outcome {
	start := time.Now()
	if f.Language == "" {
		f.Language = analyzers.DetectLanguage(f.Path)
	}

	ctx, span := tracer.Start(ctx, "pipeline.File",
		trace.WithAttributes(
			attribute.String("file.path", f.Path),
			attribute.String("file.language", f.Language),
		),
	)
	defer span.End()

	logger = logger.With().Str("path", f.Path).Logger()

	fail := func(kind types.ErrorKind, msg string) outcome {
		p.metrics.files.WithLabelValues(outcomeError).Inc()
		span.SetStatus(codes.Error, msg)
		if kind == types.ErrorKindInternal {
			logger.Error().Str("kind", string(kind)).Msg(msg)
		} else {
			logger.Warn().Str("kind", string(kind)).Msg(msg)
		}
		return outcome{err: &types.FileError{FilePath: f.Path, Language: f.Language, Kind: kind, Message: msg}}
	}

	if f.Err != nil {
		return fail(types.ErrorKindFileRead, f.Err.Error())
	}
	if !utf8.Valid(f.Content) {
		return fail(types.ErrorKindDecode, "file is not valid UTF-8")
	}
	if bytes.IndexByte(f.Content, 0) >= 0 {
		return fail(types.ErrorKindDecode, "file contains NUL bytes")
	}

	src := analyzers.NewSource(f)

	var applicable []analyzers.Analyzer
	for _, a := range p.analyzers {
		if a.Supports(f.Language) {
			applicable = append(applicable, a)
		}
	}

	outputs, err := p.analyze(ctx, src, applicable)
	if err != nil {
		var internal *types.InternalError
		switch {
		case ctx.Err() != nil:
			// cancelled by the caller: the file is reported as unprocessed
			span.SetStatus(codes.Error, "cancelled")
			return outcome{}
		case errors.Is(err, context.DeadlineExceeded):
			return fail(types.ErrorKindTimeout, fmt.Sprintf("analysis exceeded %s", p.timeout))
		case errors.As(err, &internal):
			span.RecordError(err)
			return fail(types.ErrorKindInternal, internal.Error())
		default:
			span.RecordError(err)
			return fail(types.ErrorKindInternal, err.Error())
		}
	}

	var issues []types.Issue
	participants := make([]string, 0, len(outputs))
	for _, out := range outputs {
		participants = append(participants, out.Analyzer)
		issues = append(issues, out.Issues...)
	}

	issues = suppress.Parse(src.Text).Filter(issues)
	if p.baseline.Len() > 0 {
		kept := issues[:0:0]
		for _, issue := range issues {
			if !p.baseline.Contains(issue, src.Line(issue.Line)) {
				kept = append(kept, issue)
			}
		}
		issues = kept
	}

	scores, trust, err := score.Aggregate(participants, issues, p.weights)
	if err != nil {
		return fail(types.ErrorKindInternal, err.Error())
	}
	result := types.AnalysisResult{
		FilePath:   f.Path,
		Language:   f.Language,
		Issues:     types.SortIssues(issues),
		TrustScore: trust,
		Analyzers:  scores,
	}

	if p.min.Valid() {
		result, err = filter.Apply(result, p.min, p.weights)
		if err != nil {
			return fail(types.ErrorKindInternal, err.Error())
		}
	}

	for _, issue := range result.Issues {
		p.metrics.issues.WithLabelValues(issue.Analyzer, issue.Severity.String()).Inc()
	}
	p.metrics.files.WithLabelValues(outcomeAnalyzed).Inc()
	p.metrics.duration.Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.Int("file.issues", len(result.Issues)),
		attribute.Int("file.trust_score", result.TrustScore),
	)
	logger.Debug().Int("issues", len(result.Issues)).Int("trust_score", result.TrustScore).Msg("analyzed")

	return outcome{result: &result}
}

// analyze runs the analyzers concurrently under the per-file timeout and
// returns their outputs in analyzer order. Analyzer panics are recovered and
// returned as internal errors.
func (p *Pipeline) analyze(ctx context.Context, src *analyzers.Source, list []analyzers.Analyzer) ([]types.AnalyzerOutput, error) {
	if len(list) == 0 {
		return nil, nil
	}

	fctx, cancel := ctx, context.CancelFunc(func() {})
	if p.timeout > 0 {
		fctx, cancel = context.WithTimeout(ctx, p.timeout)
	}
	defer cancel()

	outputs := make([]types.AnalyzerOutput, len(list))
	done := make(chan error, 1)

	go func() {
		sg := semgroup.NewGroup(fctx, int64(len(list)))
		for i, a := range list {
			i, a := i, a
			sg.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = &types.InternalError{Op: "analyzer " + a.Name(), Detail: fmt.Sprintf("panic: %v", r)}
					}
				}()

				out, err := a.Analyze(fctx, src)
				if err != nil {
					return err
				}
				out.Analyzer = a.Name()
				outputs[i] = out
				return nil
			})
		}
		done <- sg.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			if cerr := fctx.Err(); cerr != nil {
				return nil, cerr
			}
			return nil, err
		}
		return outputs, nil
	case <-fctx.Done():
		return nil, fctx.Err()
	}
}
