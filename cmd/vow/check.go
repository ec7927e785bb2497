package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deepsourcelabs/vow/allowlist"
	"github.com/deepsourcelabs/vow/analyzers/external"
	"github.com/deepsourcelabs/vow/baseline"
	"github.com/deepsourcelabs/vow/config"
	"github.com/deepsourcelabs/vow/logging"
	"github.com/deepsourcelabs/vow/pipeline"
	"github.com/deepsourcelabs/vow/report"
	"github.com/deepsourcelabs/vow/types"
)

var emptyReport types.Report

type checkOptions struct {
	format        string
	minSeverity   string
	failOn        string
	baselinePath  string
	writeBaseline string
	workers       int
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Analyze files and directories",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			return runCheck(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "unix", "output format: unix or json")
	cmd.Flags().StringVar(&opts.minSeverity, "min-severity", "", "drop issues below this severity")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", "", "exit with 1 only for issues at or above this severity")
	cmd.Flags().StringVar(&opts.baselinePath, "baseline", "", "ignore issues recorded in this baseline file")
	cmd.Flags().StringVar(&opts.writeBaseline, "write-baseline", "", "record every issue found in this baseline file")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "files analyzed at once (default: configuration or CPU count)")

	return cmd
}

func newLogger(cmd *cobra.Command, level string) zerolog.Logger {
	if flag, _ := cmd.Flags().GetString("log-level"); flag != "" {
		level = flag
	}
	asJSON, _ := cmd.Flags().GetBool("log-json")
	return logging.New(logging.Config{Level: level, JSON: asJSON, Writer: os.Stderr})
}

func runCheck(cmd *cobra.Command, opts checkOptions, paths []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	settings, err := config.Load(configPath)
	if err != nil {
		exitCode = report.ExitConfig
		return err
	}
	logger := newLogger(cmd, settings.LogLevel)

	var pipeOpts []pipeline.Option
	pipeOpts = append(pipeOpts, pipeline.WithLogger(logger))

	if opts.minSeverity != "" {
		min, err := types.ParseSeverity(opts.minSeverity)
		if err != nil {
			exitCode = report.ExitConfig
			return fmt.Errorf("--min-severity: %w", err)
		}
		pipeOpts = append(pipeOpts, pipeline.WithMinSeverity(min))
	}

	var threshold types.Severity
	if opts.failOn != "" {
		threshold, err = types.ParseSeverity(opts.failOn)
		if err != nil {
			exitCode = report.ExitConfig
			return fmt.Errorf("--fail-on: %w", err)
		}
	}

	if opts.workers > 0 {
		pipeOpts = append(pipeOpts, pipeline.WithWorkers(opts.workers))
	}

	if opts.baselinePath != "" {
		b, err := readBaseline(opts.baselinePath)
		if err != nil {
			exitCode = report.ExitConfig
			return err
		}
		pipeOpts = append(pipeOpts, pipeline.WithBaseline(b))
	}

	for _, tool := range settings.External {
		c, err := external.New(tool)
		if err != nil {
			exitCode = report.ExitConfig
			return err
		}
		pipeOpts = append(pipeOpts, pipeline.WithAnalyzers(c))
	}

	builder := allowlist.NewBuilder()
	if err := allowlist.AddDefaults(builder); err != nil {
		exitCode = report.ExitConfig
		return err
	}
	if err := allowlist.LoadFiles(builder, settings.Allowlists...); err != nil {
		exitCode = report.ExitConfig
		return err
	}

	p, err := pipeline.NewFromConfig(settings.Core, builder.Build(), pipeOpts...)
	if err != nil {
		exitCode = report.ExitCode(err, emptyReport, 0)
		return err
	}

	files, err := collect(paths)
	if err != nil {
		exitCode = report.ExitFileIO
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, runErr := p.Run(ctx, files)

	out := cmd.OutOrStdout()
	switch opts.format {
	case "json":
		err = report.WriteJSON(out, rep)
	default:
		err = report.WriteUnix(out, rep)
	}
	if err != nil {
		exitCode = report.ExitFileIO
		return err
	}

	summary := report.Summarize(rep)
	logger.Info().Str("run", rep.RunID).Msg(summary.String())

	if opts.writeBaseline != "" {
		if err := writeBaseline(opts.writeBaseline, baseline.FromResults(rep.Results)); err != nil {
			exitCode = report.ExitFileIO
			return err
		}
	}

	exitCode = report.ExitCode(runErr, rep, threshold)
	return nil
}

func readBaseline(path string) (*baseline.Baseline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return baseline.Read(f)
}

func writeBaseline(path string, b *baseline.Baseline) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := b.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
