// Package ast holds the canonical, post-normalisation representation
// of a source line: Statement and Operand. Everything upstream of the
// variant selector deals only in these types, never in raw tokens or
// vendor syntax.
package ast

import (
	"fmt"

	"github.com/tricore-tools/tcasm/internal/diag"
	"github.com/tricore-tools/tcasm/internal/isa"
)

// HighLow records whether an immediate was split with a HI:/LO:
// prefix.
type HighLow uint8

const (
	HLNone HighLow = iota
	HLHi
	HLLo
)

// Expr is the assembler's expression grammar: an optional label plus
// a running constant built from left-to-right +/- terms. Spec §4.2
// notes no multiplicative operators and no precedence beyond
// left-to-right are needed; this is that grammar, not a general
// arithmetic evaluator.
type Expr struct {
	HasLabel bool
	Label    string
	Constant int64

	// IsNumericLocal marks a GNU-style directional reference to a bare
	// numeric label ("1f"/"1b"): Label holds the digits, Forward
	// selects the next-forward or nearest-backward occurrence.
	IsNumericLocal bool
	Forward        bool
}

// ConstExpr builds an Expr with no label term.
func ConstExpr(v int64) Expr { return Expr{Constant: v} }

// LabelExpr builds an Expr referencing a bare label with no offset.
func LabelExpr(name string) Expr { return Expr{HasLabel: true, Label: name} }

func (e Expr) String() string {
	if !e.HasLabel {
		return fmt.Sprintf("%d", e.Constant)
	}
	label := e.Label
	if e.IsNumericLocal {
		if e.Forward {
			label += "f"
		} else {
			label += "b"
		}
	}
	if e.Constant == 0 {
		return label
	}
	if e.Constant > 0 {
		return fmt.Sprintf("%s+%d", label, e.Constant)
	}
	return fmt.Sprintf("%s%d", label, e.Constant)
}

// Register is a parsed register reference: bank, index, and whether it
// was written in bracketed ("[d4]") or bare ("d4") form, plus the
// post-increment flag carried by "[A[a]+]" forms.
type Register struct {
	Bank          isa.RegisterBank
	Index         int
	Deref         bool
	PostIncrement bool
}

func (r Register) String() string {
	s := fmt.Sprintf("%s%d", r.Bank, r.Index)
	if r.Deref {
		s = "[" + s + "]"
	}
	if r.PostIncrement {
		s += "+"
	}
	return s
}

// Operand is implemented by every canonical operand shape: Register,
// Immediate, Indexed, and Fixed. The set is closed; the encoder
// switches over it exhaustively.
type Operand interface {
	operand()
	String() string
}

// RegisterOperand is a bare or bracketed register reference, e.g. d4,
// D[4], [a15].
type RegisterOperand struct {
	Reg Register
}

func (RegisterOperand) operand()          {}
func (o RegisterOperand) String() string { return o.Reg.String() }

// ImmediateOperand is a literal, a label reference, or a label+offset
// expression, optionally split to its high or low half via HI:/LO:.
// Per §9, a token is treated as an immediate whether or not it carries
// a leading '#': "starts with '#', or parses as a pure number not
// matching a register."
type ImmediateOperand struct {
	Expr    Expr
	Hi      HighLow
	HasHash bool
}

func (ImmediateOperand) operand() {}
func (o ImmediateOperand) String() string {
	prefix := ""
	if o.HasHash {
		prefix = "#"
	}
	switch o.Hi {
	case HLHi:
		return prefix + "HI:" + o.Expr.String()
	case HLLo:
		return prefix + "LO:" + o.Expr.String()
	default:
		return prefix + o.Expr.String()
	}
}

// Indexed is a memory-with-offset operand produced from forms like
// "[a15]14" or "[A[b]+]off": a base register plus a displacement
// expression.
type Indexed struct {
	Base Register
	Disp Expr
}

func (Indexed) operand() {}
func (o Indexed) String() string { return fmt.Sprintf("[%s]%s", o.Base, o.Disp) }

// Fixed is a literal packed-suffix token such as LL, UU, L, U, UL, LU.
type Fixed struct {
	Token string
}

func (Fixed) operand()          {}
func (o Fixed) String() string { return o.Token }

// DirectiveKind tags the non-instruction statement forms of §3.
type DirectiveKind uint8

const (
	_ DirectiveKind = iota
	DirData                 // DB/DW/DD/DQ
	DirReserve               // RESB/RESW/RESD/RESQ
	DirEquate                // EQU
	DirTimes                 // TIMES count <inner statement>
	DirOrigin                // .ORG
	DirSection               // .section / .sect
	DirAlign                 // .align
	DirGlobal                // .global (declaration only)
	DirInclude               // resolved upstream; no-op here
)

// DataWidth is the element width for a Data or Reserve directive.
type DataWidth uint8

const (
	Width8 DataWidth = iota
	Width16
	Width32
	Width64
)

func (w DataWidth) Bytes() int {
	switch w {
	case Width8:
		return 1
	case Width16:
		return 2
	case Width32:
		return 4
	case Width64:
		return 8
	default:
		return 1
	}
}

// DataValue is one element of a Data directive: either a numeric/label
// expression or a raw byte run (from a string or character literal).
type DataValue struct {
	IsBytes bool
	Bytes   []byte
	Expr    Expr
}

// Kind distinguishes the statement forms of §3. The zero value is
// never valid; every Statement produced by the parser sets exactly
// one of the instruction or directive field groups, or neither for
// KindLabelOnly.
type Kind uint8

const (
	_ Kind = iota
	KindInstruction
	KindDirective
	KindLabelOnly // a bare label with no instruction or directive on the line
)

// Statement is the canonical form of one source line.
type Statement struct {
	Label string // optional symbol defined at this address; "" if none
	Kind  Kind
	Loc   diag.Location

	// Instruction fields (Kind == KindInstruction).
	Mnemonic string
	Operands []Operand

	// Directive fields (Kind == KindDirective).
	Directive DirectiveKind
	Width     DataWidth   // Data/Reserve
	Values    []DataValue // Data
	Count     int64       // Reserve (element count), Times (repeat count), Align (boundary)
	Name      string      // Equate/Section/Global: symbol or section name
	ValueExpr Expr        // Equate/Origin: the assigned value
	Inner     *Statement  // Times: the repeated inner statement

	// SourceText is preserved verbatim (including any trailing
	// comment) for the listing emitter.
	SourceText string
}

// IsLabelDefiningOnly reports whether this statement's only effect is
// to define Label at the current address (a bare "name:" line).
func (s *Statement) IsLabelDefiningOnly() bool {
	return s.Kind == KindLabelOnly
}
