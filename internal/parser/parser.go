package parser

import (
	"strings"

	"github.com/tricore-tools/tcasm/internal/ast"
	"github.com/tricore-tools/tcasm/internal/diag"
	"github.com/tricore-tools/tcasm/internal/lexer"
)

// Options configures a parse run.
type Options struct {
	// IncludeBaseDir resolves relative INCBIN paths; "" means the
	// current working directory.
	IncludeBaseDir string
}

// kindedError tags a parse error with the diagnostic kind it should
// be reported under.
type kindedError struct {
	kind diag.Kind
	err  error
}

func (e *kindedError) Error() string { return e.err.Error() }

func directiveErr(err error) error {
	if err == nil {
		return nil
	}
	return &kindedError{kind: diag.DirectiveError, err: err}
}

func operandErr(err error) error {
	if err == nil {
		return nil
	}
	return &kindedError{kind: diag.InvalidOperand, err: err}
}

var (
	errEqu        = directiveErr(errString("EQU requires exactly a name and a value"))
	errTimesInner = directiveErr(errString("TIMES requires exactly one inner statement"))
)

type errString string

func (e errString) Error() string { return string(e) }

// kindOf extracts the reporting Kind from a parse error, defaulting
// to DirectiveError for anything not explicitly classified.
func kindOf(err error) diag.Kind {
	if ke, ok := err.(*kindedError); ok {
		return ke.kind
	}
	return diag.DirectiveError
}

var directiveKeywords = map[string]bool{
	"DB": true, "DW": true, "DD": true, "DQ": true,
	"RESB": true, "RESW": true, "RESD": true, "RESQ": true,
	"EQU": true, "TIMES": true, "INCBIN": true,
	".ORG": true, ".SECTION": true, ".SECT": true, ".ALIGN": true,
	".GLOBAL": true, ".END": true, ".SDECL": true, ".TYPE": true,
}

// IsDirectiveKeyword reports whether word names one of the directives
// recognised by §4.2, case-insensitively.
func IsDirectiveKeyword(word string) bool {
	return directiveKeywords[strings.ToUpper(word)]
}

// Parse builds the canonical Statement stream for one source file,
// accumulating recoverable diagnostics into bag rather than
// aborting on the first bad line. It returns the statements produced
// and the NumericLabels table needed to resolve "Nf"/"Nb" references.
func Parse(file, src string, bag *diag.Bag, opts Options) ([]*ast.Statement, *NumericLabels) {
	lines := lexer.Scan(file, src)
	nl := NewNumericLabels()

	var stmts []*ast.Statement
	ended := false

	for _, line := range lines {
		if ended {
			break
		}

		label := line.Label
		if label != "" && line.LabelIsNumericLocal {
			label = nl.Record(line.Label, len(stmts))
		}

		if line.Rest == "" {
			if label != "" {
				stmts = append(stmts, &ast.Statement{
					Label: label, Kind: ast.KindLabelOnly, Loc: line.Loc, SourceText: line.Raw,
				})
			}
			continue
		}

		produced, stopAfter, err := parseStatementLine(label, line.Rest, line.Loc, opts)
		if err != nil {
			bag.Errorf(kindOf(err), line.Loc, "%v", err)
			continue
		}
		for i, st := range produced {
			st.Loc = line.Loc
			st.SourceText = line.Raw
			if i == 0 {
				st.Label = label
			}
			stmts = append(stmts, st)
		}
		if stopAfter {
			ended = true
		}
	}

	return stmts, nl
}

// parseStatementLine dispatches one line's remainder (after label
// extraction) to the directive or instruction parser. It returns the
// statement(s) produced (more than one only for .global's
// comma-separated name list) and whether this line (.end) should
// terminate parsing of the file.
func parseStatementLine(label, rest string, loc diag.Location, opts Options) ([]*ast.Statement, bool, error) {
	first, afterFirst := splitFirstWord(rest)
	second, afterSecond := splitFirstWord(afterFirst)

	// "foo: EQU 5" — a colon label naming the equated constant.
	if label != "" && strings.EqualFold(first, "EQU") {
		st, err := parseEquate(label, afterFirst, loc)
		return wrap(st, directiveErr(err))
	}

	// "NAME EQU expr" defines NAME without a colon.
	if strings.EqualFold(second, "EQU") {
		st, err := parseEquate(first, afterSecond, loc)
		if err != nil {
			return nil, false, err
		}
		return []*ast.Statement{st}, false, nil
	}

	keyword := strings.ToUpper(first)
	switch keyword {
	case "DB":
		st, err := parseDataDirective(ast.Width8, afterFirst, loc)
		return wrap(st, directiveErr(err))
	case "DW":
		st, err := parseDataDirective(ast.Width16, afterFirst, loc)
		return wrap(st, directiveErr(err))
	case "DD":
		st, err := parseDataDirective(ast.Width32, afterFirst, loc)
		return wrap(st, directiveErr(err))
	case "DQ":
		st, err := parseDataDirective(ast.Width64, afterFirst, loc)
		return wrap(st, directiveErr(err))
	case "RESB":
		st, err := parseReserveDirective(ast.Width8, afterFirst, loc)
		return wrap(st, directiveErr(err))
	case "RESW":
		st, err := parseReserveDirective(ast.Width16, afterFirst, loc)
		return wrap(st, directiveErr(err))
	case "RESD":
		st, err := parseReserveDirective(ast.Width32, afterFirst, loc)
		return wrap(st, directiveErr(err))
	case "RESQ":
		st, err := parseReserveDirective(ast.Width64, afterFirst, loc)
		return wrap(st, directiveErr(err))
	case "EQU":
		// "EQU name, expr" with no preceding label: unusual but accepted.
		parts := SplitOperands(afterFirst)
		if len(parts) != 2 {
			return nil, false, errEqu
		}
		st, err := parseEquate(strings.TrimSpace(parts[0]), parts[1], loc)
		return wrap(st, directiveErr(err))
	case "TIMES":
		st, err := parseTimes(afterFirst, loc, func(text string, l diag.Location) (*ast.Statement, error) {
			stmts, _, err := parseStatementLine("", text, l, opts)
			if err != nil {
				return nil, err
			}
			if len(stmts) != 1 {
				return nil, errTimesInner
			}
			return stmts[0], nil
		})
		return wrap(st, directiveErr(err))
	case "INCBIN":
		st, err := parseIncbin(afterFirst, opts.IncludeBaseDir, loc)
		return wrap(st, directiveErr(err))
	case ".ORG":
		st, err := parseOriginDirective(afterFirst, loc)
		return wrap(st, directiveErr(err))
	case ".SECTION", ".SECT":
		st, err := parseSectionDirective(afterFirst, loc)
		return wrap(st, directiveErr(err))
	case ".ALIGN":
		st, err := parseAlignDirective(afterFirst, loc)
		return wrap(st, directiveErr(err))
	case ".GLOBAL":
		sts, err := parseGlobalDirective(afterFirst, loc)
		if err != nil {
			return nil, false, err
		}
		return sts, false, nil
	case ".END":
		return nil, true, nil
	case ".SDECL", ".TYPE":
		// Reduced to attribute metadata the core doesn't model; consumed silently.
		return nil, false, nil
	default:
		st, err := parseInstruction(first, afterFirst, loc)
		return wrap(st, operandErr(err))
	}
}

func wrap(st *ast.Statement, err error) ([]*ast.Statement, bool, error) {
	if err != nil {
		return nil, false, err
	}
	return []*ast.Statement{st}, false, nil
}

func parseInstruction(mnemonic, operandText string, loc diag.Location) (*ast.Statement, error) {
	tokens := CompoundSplit(SplitOperands(operandText))
	var operands []ast.Operand
	for _, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		op, err := ParseOperand(tok)
		if err != nil {
			return nil, err
		}
		operands = append(operands, op)
	}
	return &ast.Statement{
		Kind: ast.KindInstruction, Mnemonic: strings.ToUpper(mnemonic), Operands: operands, Loc: loc,
	}, nil
}
