package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepsourcelabs/vow/allowlist"
	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/baseline"
	"github.com/deepsourcelabs/vow/types"
)

// fakeAnalyzer reports fixed diagnostics for every file.
type fakeAnalyzer struct {
	name   string
	diags  []analyzers.Diagnostic
	delay  time.Duration
	panics bool
}

func (f *fakeAnalyzer) Name() string         { return f.name }
func (f *fakeAnalyzer) Supports(string) bool { return true }

func (f *fakeAnalyzer) Analyze(ctx context.Context, src *analyzers.Source) (types.AnalyzerOutput, error) {
	if f.panics {
		panic("index out of range")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return types.AnalyzerOutput{}, ctx.Err()
		}
	}

	out := analyzers.NewOutput(f.name, src)
	for _, d := range f.diags {
		out.Report(d)
	}
	return out.Finish(), nil
}

func defaultPipeline(t *testing.T, cfg types.Config, opts ...Option) *Pipeline {
	t.Helper()
	snapshot, err := allowlist.Default()
	require.NoError(t, err)

	p, err := NewFromConfig(cfg, snapshot, opts...)
	require.NoError(t, err)
	return p
}

func pythonFile(path, content string) types.File {
	return types.File{Path: path, Language: "python", Content: []byte(content)}
}

func ruleIDs(issues []types.Issue) []string {
	var ids []string
	for _, issue := range issues {
		ids = append(ids, issue.RuleID)
	}
	return ids
}

func TestRun_HallucinatedImportKeepsLowIssues(t *testing.T) {
	style := &fakeAnalyzer{name: "style", diags: []analyzers.Diagnostic{
		{RuleID: "trailing-space", Severity: types.SeverityLow, Message: "Trailing whitespace", Line: 1},
	}}
	p := defaultPipeline(t, types.DefaultConfig(), WithAnalyzers(style))

	report, err := p.Run(context.Background(), []types.File{
		pythonFile("main.py", "import os\nimport nonexistent_lib_xyz\n"),
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.NotEmpty(t, report.RunID)

	res := report.Results[0]
	assert.Equal(t, []string{"trailing-space", "hallucinated-import"}, ruleIDs(res.Issues))
	assert.Equal(t, types.SeverityHigh, res.Issues[1].Severity)
	assert.Equal(t, 2, res.Issues[1].Line)
	assert.Equal(t, []string{"code", "security", "style"}, p.Analyzers())
	assert.Len(t, res.Analyzers, 3)
}

func TestRun_StandardImportIsClean(t *testing.T) {
	p := defaultPipeline(t, types.DefaultConfig())

	report, err := p.Run(context.Background(), []types.File{pythonFile("main.py", "import os\n")})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Empty(t, report.Results[0].Issues)
	assert.Equal(t, 100, report.Results[0].TrustScore)
}

func TestRun_MinSeverityRescores(t *testing.T) {
	mixed := &fakeAnalyzer{name: "mixed", diags: []analyzers.Diagnostic{
		{RuleID: "critical-rule", Severity: types.SeverityCritical, Message: "c", Line: 1},
		{RuleID: "medium-rule", Severity: types.SeverityMedium, Message: "m", Line: 2},
		{RuleID: "low-rule", Severity: types.SeverityLow, Message: "l", Line: 3},
	}}

	cfg := types.Config{MinSeverity: types.SeverityHigh}
	p, err := New(cfg, nil, nil, WithAnalyzers(mixed))
	require.NoError(t, err)

	report, err := p.Run(context.Background(), []types.File{pythonFile("a.py", "a\nb\nc\n")})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	assert.Equal(t, []string{"critical-rule"}, ruleIDs(res.Issues))
	assert.Equal(t, 75, res.TrustScore)

	// a run-time override wins over the configuration
	p, err = New(cfg, nil, nil, WithAnalyzers(mixed), WithMinSeverity(types.SeverityLow))
	require.NoError(t, err)
	report, err = p.Run(context.Background(), []types.File{pythonFile("a.py", "a\nb\nc\n")})
	require.NoError(t, err)
	assert.Len(t, report.Results[0].Issues, 3)
	assert.Equal(t, 64, report.Results[0].TrustScore)
}

func TestNewFromConfig_MalformedRule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	doc := "name = \"custom\"\n\n[[rules]]\nid = \"broken\"\nseverity = \"high\"\n\n[[rules.patterns]]\ntype = \"regex\"\nvalue = \"([a-z\"\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg := types.DefaultConfig()
	cfg.RuleSources = []string{path}

	snapshot, err := allowlist.Default()
	require.NoError(t, err)

	p, err := NewFromConfig(cfg, snapshot)
	require.Error(t, err)
	assert.Nil(t, p)

	var compileErr *types.RuleCompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "broken", compileErr.RuleID)
}

func TestRun_CustomRulesReachUnlistedLanguages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	doc := `name = "custom"

[[rules]]
id = "runtime-exec"
severity = "high"
file_types = [".kt"]

  [[rules.patterns]]
  type = "contains"
  value = "Runtime.getRuntime().exec"

[[rules]]
id = "todo-left"
severity = "low"
file_types = ["*"]

  [[rules.patterns]]
  type = "contains"
  value = "TODO"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg := types.DefaultConfig()
	cfg.RuleSources = []string{path}
	p := defaultPipeline(t, cfg)

	report, err := p.Run(context.Background(), []types.File{
		{Path: "A.kt", Language: "kotlin", Content: []byte("fun run(cmd: String) {\n    Runtime.getRuntime().exec(cmd)\n}\n")},
		{Path: "conf.yaml", Language: "yaml", Content: []byte("debug: true # TODO remove\n")},
		{Path: "README.md", Language: "markdown", Content: []byte("# Notes\n\nTODO write this.\n")},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	byPath := make(map[string]types.AnalysisResult)
	for _, res := range report.Results {
		byPath[res.FilePath] = res
	}

	assert.Equal(t, []string{"runtime-exec"}, ruleIDs(byPath["A.kt"].Issues))
	assert.Less(t, byPath["A.kt"].TrustScore, 100)
	assert.Equal(t, []string{"todo-left"}, ruleIDs(byPath["conf.yaml"].Issues))
	assert.Empty(t, byPath["README.md"].Issues)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(types.DefaultConfig(), nil, nil)
	var allowErr *types.AllowlistLoadError
	assert.True(t, errors.As(err, &allowErr), "code analyzer without a snapshot")

	var cfgErr *types.ConfigError
	_, err = New(types.Config{EnabledAnalyzers: []string{"grammar"}}, nil, nil)
	assert.True(t, errors.As(err, &cfgErr), "unknown analyzer")

	dup := &fakeAnalyzer{name: "dup"}
	_, err = New(types.Config{}, nil, nil, WithAnalyzers(dup, dup))
	assert.True(t, errors.As(err, &cfgErr), "duplicate analyzer")
}

func TestRun_FileErrors(t *testing.T) {
	slow := &fakeAnalyzer{name: "slow", delay: time.Second}
	p, err := New(types.Config{}, nil, nil, WithAnalyzers(slow), WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	files := []types.File{
		{Path: "d.py", Language: "python", Err: errors.New("permission denied")},
		{Path: "c.py", Language: "python", Content: []byte("x = 1\x00\n")},
		{Path: "b.py", Language: "python", Content: []byte{0xff, 0xfe, 'x'}},
		{Path: "a.py", Language: "python", Content: []byte("x = 1\n")},
	}

	report, err := p.Run(context.Background(), files)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	require.Len(t, report.Errors, 4)

	kinds := map[string]types.ErrorKind{}
	for _, fe := range report.Errors {
		kinds[fe.FilePath] = fe.Kind
	}
	assert.Equal(t, map[string]types.ErrorKind{
		"a.py": types.ErrorKindTimeout,
		"b.py": types.ErrorKindDecode,
		"c.py": types.ErrorKindDecode,
		"d.py": types.ErrorKindFileRead,
	}, kinds)
	assert.Equal(t, "a.py", report.Errors[0].FilePath)
}

func TestRun_PanicIsIsolated(t *testing.T) {
	p, err := New(types.Config{}, nil, nil, WithAnalyzers(&fakeAnalyzer{name: "broken", panics: true}))
	require.NoError(t, err)

	report, err := p.Run(context.Background(), []types.File{pythonFile("a.py", "x\n"), pythonFile("b.py", "y\n")})
	require.NoError(t, err)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, types.ErrorKindInternal, report.Errors[0].Kind)
	assert.Contains(t, report.Errors[0].Message, "index out of range")
}

func TestRun_Cancelled(t *testing.T) {
	p := defaultPipeline(t, types.DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Run(ctx, []types.File{pythonFile("b.py", "import os\n"), pythonFile("a.py", "import os\n")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Results)
	assert.Equal(t, []string{"a.py", "b.py"}, report.Unprocessed)
}

func TestRun_Deterministic(t *testing.T) {
	files := []types.File{
		pythonFile("z.py", "import nonexistent_lib_xyz\nimport os\n"),
		pythonFile("m.py", "key = os.getenv(\"STRIPE_SECRET_KEY\")\n"),
		{Path: "README.md", Language: "markdown", Content: []byte("Studies show it is fast.\n")},
		pythonFile("a.py", "import os\n"),
	}

	p := defaultPipeline(t, types.DefaultConfig(), WithWorkers(3))
	first, err := p.Run(context.Background(), files)
	require.NoError(t, err)

	reversed := make([]types.File, len(files))
	for i, f := range files {
		reversed[len(files)-1-i] = f
	}
	second, err := p.Run(context.Background(), reversed)
	require.NoError(t, err)

	assert.Equal(t, first.Results, second.Results)
	paths := []string{}
	for _, res := range first.Results {
		paths = append(paths, res.FilePath)
	}
	assert.Equal(t, []string{"README.md", "a.py", "m.py", "z.py"}, paths)
}

func TestRun_SuppressionAndBaseline(t *testing.T) {
	p := defaultPipeline(t, types.DefaultConfig())

	report, err := p.Run(context.Background(), []types.File{
		pythonFile("main.py", "import madeup_pkg_abc\nimport nonexistent_lib_xyz  # vow:ignore hallucinated-import\n"),
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, []string{"hallucinated-import"}, ruleIDs(report.Results[0].Issues))
	assert.Equal(t, 1, report.Results[0].Issues[0].Line)

	known := baseline.FromResults(report.Results)
	p = defaultPipeline(t, types.DefaultConfig(), WithBaseline(known))

	// the baselined issue moved down a line and is still recognised
	report, err = p.Run(context.Background(), []types.File{
		pythonFile("main.py", "import os\nimport madeup_pkg_abc\nimport nonexistent_lib_xyz  # vow:ignore\n\nimport another_fake_pkg\n"),
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	require.Len(t, report.Results[0].Issues, 1)
	assert.Equal(t, 5, report.Results[0].Issues[0].Line)
}

func TestRun_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := defaultPipeline(t, types.DefaultConfig(), WithRegisterer(reg))

	_, err := p.Run(context.Background(), []types.File{
		pythonFile("a.py", "import nonexistent_lib_xyz\n"),
		{Path: "b.py", Language: "python", Err: errors.New("gone")},
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.files.WithLabelValues(outcomeAnalyzed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.files.WithLabelValues(outcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.issues.WithLabelValues("code", "high")))

	// a second pipeline on the same registry shares the collectors
	q := defaultPipeline(t, types.DefaultConfig(), WithRegisterer(reg))
	assert.Same(t, p.metrics.files, q.metrics.files)
}
