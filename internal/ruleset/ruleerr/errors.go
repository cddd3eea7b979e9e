// Package ruleerr defines the error taxonomy shared by the ruleset loading
// pipeline: structural parse errors, severity-graded soft rule errors,
// namespace errors, and the aggregated link report.
package ruleerr

import (
	"errors"
	"fmt"
	"strings"
)

// Severity grades a soft rule error. Severities are ordered: Info < Warn < Error.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
	// SeverityNone is only meaningful as a threshold: nothing is promoted.
	SeverityNone
)

// String returns the lower-case config spelling of s.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	case SeverityNone:
		return "none"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// ParseSeverity converts a config spelling into a Severity.
//
// Postcondition: Returns an error for any value other than info, warn, error, none.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "info":
		return SeverityInfo, nil
	case "warn", "warning":
		return SeverityWarn, nil
	case "error":
		return SeverityError, nil
	case "none":
		return SeverityNone, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

var (
	// ErrTemplateDepth is returned when refNode delegation nests past the limit.
	ErrTemplateDepth = errors.New("template expansion depth exceeded")
	// ErrDuplicateMod is returned when two mods declare the same id.
	ErrDuplicateMod = errors.New("duplicate mod id")
	// ErrUnknownMod is returned when a resource reference names a mod that is not loaded.
	ErrUnknownMod = errors.New("unknown mod")
)

// Position locates a node inside a rule document.
type Position struct {
	File   string
	Line   int
	Column int
}

// String renders p as file:line:column, omitting missing parts.
func (p Position) String() string {
	switch {
	case p.File == "" && p.Line == 0:
		return ""
	case p.Line == 0:
		return p.File
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// StructuralError reports a malformed document: bad directive, misplaced tag,
// or a node of the wrong YAML kind. Always fatal for the current mod.
type StructuralError struct {
	Pos Position
	Msg string
	// Err is an optional sentinel the error wraps.
	Err error
}

func (e *StructuralError) Error() string {
	if s := e.Pos.String(); s != "" {
		return fmt.Sprintf("%s: %s", s, e.Msg)
	}
	return e.Msg
}

func (e *StructuralError) Unwrap() error { return e.Err }

// Structuralf builds a StructuralError at pos.
func Structuralf(pos Position, format string, args ...any) *StructuralError {
	return &StructuralError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// SoftError is a recoverable rule error graded by Severity.
type SoftError struct {
	Severity Severity
	Pos      Position
	Kind     string
	Rule     string
	Err      error
}

func (e *SoftError) Error() string {
	var b strings.Builder
	if s := e.Pos.String(); s != "" {
		b.WriteString(s)
		b.WriteString(": ")
	}
	if e.Kind != "" {
		fmt.Fprintf(&b, "%s %q: ", e.Kind, e.Rule)
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *SoftError) Unwrap() error { return e.Err }

// Promoted reports whether e is fatal under threshold.
func (e *SoftError) Promoted(threshold Severity) bool {
	return e.Severity >= threshold
}

// NamespaceError reports an offset or allocation failure. Always fatal.
type NamespaceError struct {
	ModID string
	Set   string
	Rule  string
	Err   error
}

func (e *NamespaceError) Error() string {
	var parts []string
	if e.Rule != "" {
		parts = append(parts, fmt.Sprintf("rule %q", e.Rule))
	}
	if e.ModID != "" {
		parts = append(parts, fmt.Sprintf("mod %q", e.ModID))
	}
	if e.Set != "" {
		parts = append(parts, fmt.Sprintf("set %q", e.Set))
	}
	if len(parts) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", strings.Join(parts, ", "), e.Err)
}

func (e *NamespaceError) Unwrap() error { return e.Err }

// ModError attributes a fatal error to the mod whose documents produced it.
type ModError struct {
	ModID string
	Err   error
}

func (e *ModError) Error() string {
	return fmt.Sprintf("mod %q: %v", e.ModID, e.Err)
}

func (e *ModError) Unwrap() error { return e.Err }

// LinkFailure is one unresolved reference found by the link pass.
type LinkFailure struct {
	Kind   string
	Rule   string
	Field  string
	Target string
	Name   string
}

func (f LinkFailure) String() string {
	return fmt.Sprintf("%s %q: field %q references unknown %s %q", f.Kind, f.Rule, f.Field, f.Target, f.Name)
}

// LinkReport aggregates every link failure collected in one pass.
type LinkReport struct {
	Failures []LinkFailure
	// Aborted is true when collection stopped at the configured maximum.
	Aborted bool
}

func (r *LinkReport) Error() string {
	lines := make([]string, 0, len(r.Failures)+1)
	for _, f := range r.Failures {
		lines = append(lines, f.String())
	}
	msg := fmt.Sprintf("linking failed with %d error(s)", len(r.Failures))
	if r.Aborted {
		msg += " (aborted at limit)"
	}
	return msg + ": " + strings.Join(lines, "; ")
}

// IsStructural reports whether err wraps a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// AsSoft extracts a SoftError from err's chain.
func AsSoft(err error) (*SoftError, bool) {
	var se *SoftError
	ok := errors.As(err, &se)
	return se, ok
}
