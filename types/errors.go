package types

import "fmt"

// RuleCompileError is returned when a rule set cannot be compiled. It is fatal
// for the whole run.
type RuleCompileError struct {
	RuleSet string
	RuleID  string
	Reason  string
	Err     error
}

func (e *RuleCompileError) Error() string {
	msg := fmt.Sprintf("rule set %q", e.RuleSet)
	if e.RuleID != "" {
		msg += fmt.Sprintf(", rule %q", e.RuleID)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RuleCompileError) Unwrap() error {
	return e.Err
}

// AllowlistLoadError is returned when a package allowlist cannot be loaded. It
// is fatal at startup.
type AllowlistLoadError struct {
	Source string
	Err    error
}

func (e *AllowlistLoadError) Error() string {
	return fmt.Sprintf("loading allowlist %s: %v", e.Source, e.Err)
}

func (e *AllowlistLoadError) Unwrap() error {
	return e.Err
}

// InternalError marks an invariant violation. It is a programming defect and is
// always surfaced.
type InternalError struct {
	Op     string
	Detail string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error in %s: %s", e.Op, e.Detail)
}

// ConfigError is returned when the configuration cannot be read or is
// invalid. It is fatal at startup.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
