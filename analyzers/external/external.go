// Package external runs third-party checkers as analyzers. The checker reads
// the file on stdin and prints its findings; a Processor turns the output
// into diagnostics.
package external

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/deepsourcelabs/vow/analyzers"
	"github.com/deepsourcelabs/vow/types"
)

// PathPlaceholder in an argument is replaced with the analyzed file's path.
const PathPlaceholder = "{path}"

// Tool describes an external checker as written in the configuration.
type Tool struct {
	Name             string   `mapstructure:"name"`
	Command          string   `mapstructure:"command"`
	Args             []string `mapstructure:"args"`
	Languages        []string `mapstructure:"languages"`
	AllowedExitCodes []int    `mapstructure:"allowed_exit_codes"`
	// Severity of every finding. Defaults to medium.
	Severity string `mapstructure:"severity"`
	// RuleID is used for findings that do not carry a code of their own.
	// Defaults to Name.
	RuleID string `mapstructure:"rule_id"`
}

// Processor turns a checker's stdout into diagnostics.
type Processor interface {
	Process(out bytes.Buffer) ([]analyzers.Diagnostic, error)
}

// Command is an analyzer backed by an external checker.
type Command struct {
	name             string
	command          string
	args             []string
	languages        analyzers.LanguageSet
	allowedExitCodes []int
	processor        Processor
}

// New validates the tool and returns the analyzer. Output is read in the unix
// format.
func New(tool Tool) (*Command, error) {
	if tool.Name == "" {
		return nil, errors.New("external checker has no name")
	}
	if tool.Command == "" {
		return nil, fmt.Errorf("external checker %q has no command", tool.Name)
	}

	severity := types.SeverityMedium
	if tool.Severity != "" {
		s, err := types.ParseSeverity(tool.Severity)
		if err != nil {
			return nil, fmt.Errorf("external checker %q: %w", tool.Name, err)
		}
		severity = s
	}

	rule := tool.RuleID
	if rule == "" {
		rule = tool.Name
	}

	return &Command{
		name:             tool.Name,
		command:          tool.Command,
		args:             tool.Args,
		languages:        analyzers.NewLanguageSet(tool.Languages...),
		allowedExitCodes: tool.AllowedExitCodes,
		processor:        &UnixProcessor{RuleID: rule, Severity: severity},
	}, nil
}

func (c *Command) Name() string { return c.name }

// Supports reports whether the checker handles language. A checker without
// languages handles every file.
func (c *Command) Supports(language string) bool {
	return len(c.languages) == 0 || c.languages.Contains(language)
}

// Analyze runs the checker over src.
func (c *Command) Analyze(ctx context.Context, src *analyzers.Source) (types.AnalyzerOutput, error) {
	args := make([]string, len(c.args))
	for i, arg := range c.args {
		args[i] = strings.ReplaceAll(arg, PathPlaceholder, src.Path)
	}

	stdout, stderr, err := run(ctx, c.command, args, src.Text, c.allowedExitCodes)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.AnalyzerOutput{}, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return types.AnalyzerOutput{}, fmt.Errorf("%s: %w: %s", c.name, err, msg)
		}
		return types.AnalyzerOutput{}, fmt.Errorf("%s: %w", c.name, err)
	}

	diags, err := c.processor.Process(stdout)
	if err != nil {
		return types.AnalyzerOutput{}, fmt.Errorf("%s: %w", c.name, err)
	}

	out := analyzers.NewOutput(c.name, src)
	for _, d := range diags {
		out.Report(d)
	}
	return out.Finish(), nil
}

// run executes command with input on stdin. A non-zero exit code is an
// error unless it is allowed.
func run(ctx context.Context, command string, args []string, input string, allowedExitCodes []int) (bytes.Buffer, bytes.Buffer, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdin = strings.NewReader(input)

	// store stdout and stderr in buffers
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			for _, v := range allowedExitCodes {
				if v == code {
					return outBuf, errBuf, nil
				}
			}
		}
		return outBuf, errBuf, err
	}

	return outBuf, errBuf, nil
}
