// Package diag implements the error and diagnostic model described in
// the assembler's error handling design: every diagnostic carries a
// kind, a source location, and a level, and diagnostics accumulate in
// a Bag instead of short-circuiting the pass that raised them.
package diag

import (
	"fmt"
	"strings"
)

// Kind tags a diagnostic with the error kind it was raised under.
type Kind string

const (
	LexError            Kind = "LexError"
	NumericLiteralError Kind = "NumericLiteralError"
	UnknownMnemonic     Kind = "UnknownMnemonic"
	InvalidOperand      Kind = "InvalidOperand"
	OperandOutOfRange   Kind = "OperandOutOfRange"
	DuplicateSymbol     Kind = "DuplicateSymbol"
	UnresolvedSymbol    Kind = "UnresolvedSymbol"
	AddressOverlap      Kind = "AddressOverlap"
	DirectiveError      Kind = "DirectiveError"
	TableLoadError      Kind = "TableLoadError"
	ConfigError         Kind = "ConfigError"
	PreprocessError     Kind = "PreprocessError"
)

// Level is the severity of a diagnostic.
type Level int

const (
	Debug Level = iota
	Info
	Warning
	Error
	Fatal
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Location is a source position: file, line, and column. Column is
// 0 when not meaningful for the diagnostic being raised.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Diagnostic is one reported condition.
type Diagnostic struct {
	Kind     Kind
	Level    Level
	Location Location
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", d.Location, d.Level, d.Message, d.Kind)
}

// Bag accumulates diagnostics across the lexer, parser, and linker
// instead of aborting the run at the first error. The driver decides
// whether to proceed to emission based on HasFatal.
type Bag struct {
	items []Diagnostic
}

// Add appends a diagnostic to the bag.
func (b *Bag) Add(level Level, kind Kind, loc Location, format string, args ...any) {
	b.items = append(b.items, Diagnostic{
		Kind:     kind,
		Level:    level,
		Location: loc,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Errorf is shorthand for Add(Error, kind, loc, ...).
func (b *Bag) Errorf(kind Kind, loc Location, format string, args ...any) {
	b.Add(Error, kind, loc, format, args...)
}

// Warnf is shorthand for Add(Warning, kind, loc, ...).
func (b *Bag) Warnf(kind Kind, loc Location, format string, args ...any) {
	b.Add(Warning, kind, loc, format, args...)
}

// All returns every accumulated diagnostic, in the order it was added.
func (b *Bag) All() []Diagnostic { return b.items }

// HasFatal reports whether any accumulated diagnostic is at Error
// level or above; the driver suppresses emission when true.
func (b *Bag) HasFatal() bool {
	for _, d := range b.items {
		if d.Level >= Error {
			return true
		}
	}
	return false
}

// Counts returns the number of diagnostics at each level, for the
// end-of-run summary line.
func (b *Bag) Counts() (errors, warnings, info, debug int) {
	for _, d := range b.items {
		switch d.Level {
		case Error, Fatal:
			errors++
		case Warning:
			warnings++
		case Info:
			info++
		case Debug:
			debug++
		}
	}
	return
}

// Merge appends another bag's diagnostics onto this one, preserving
// order: used when a sub-component (the table loader, the linker)
// keeps its own bag and reports back to the pipeline's.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
}

// Summary renders the stdout end-of-run counts line.
func (b *Bag) Summary() string {
	errors, warnings, info, debug := b.Counts()
	return fmt.Sprintf("errors=%d warnings=%d info=%d debug=%d", errors, warnings, info, debug)
}

// WriteTo renders every diagnostic in the §7 wire format, one per
// line, to sb.
func (b *Bag) WriteTo(sb *strings.Builder) {
	for _, d := range b.items {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
}
