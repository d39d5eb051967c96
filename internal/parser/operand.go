package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tricore-tools/tcasm/internal/ast"
	"github.com/tricore-tools/tcasm/internal/isa"
)

var fixedLiteralTokens = map[string]bool{
	"LL": true, "UU": true, "L": true, "U": true, "UL": true, "LU": true,
}

// ParseOperand classifies one already comma-split, compound-split
// operand token into its canonical ast.Operand shape: a fixed
// packed-suffix literal, a post-increment indexed reference, a plain
// register, or an immediate/label expression.
func ParseOperand(tok string) (ast.Operand, error) {
	t := strings.TrimSpace(tok)
	if t == "" {
		return nil, fmt.Errorf("empty operand")
	}

	if fixedLiteralTokens[strings.ToUpper(t)] {
		return ast.Fixed{Token: strings.ToUpper(t)}, nil
	}
	if indexed, ok := tryParsePostIncrement(t); ok {
		return indexed, nil
	}
	if reg, ok := tryParseRegister(t); ok {
		return ast.RegisterOperand{Reg: reg}, nil
	}

	// Per §9: an immediate token either starts with '#', or is a pure
	// number/label expression that didn't match a register form above.
	hasHash := false
	rest := t
	if strings.HasPrefix(rest, "#") {
		hasHash = true
		rest = strings.TrimSpace(rest[1:])
	}

	hi := ast.HLNone
	switch {
	case len(rest) >= 3 && strings.EqualFold(rest[:3], "HI:"):
		hi = ast.HLHi
		rest = rest[3:]
	case len(rest) >= 3 && strings.EqualFold(rest[:3], "LO:"):
		hi = ast.HLLo
		rest = rest[3:]
	}

	expr, err := ParseExpr(rest)
	if err != nil {
		return nil, fmt.Errorf("operand %q is neither a register nor a valid immediate: %w", tok, err)
	}
	return ast.ImmediateOperand{Expr: expr, Hi: hi, HasHash: hasHash}, nil
}

// tryParseRegister recognises every form from §4.2's register-
// normalisation table: "d4", "D4", "d[4]", "D[4]", "%d4", and their
// bracketed (dereferenced) counterparts, for the D, A, E, and P banks.
func tryParseRegister(tok string) (ast.Register, bool) {
	t := strings.TrimPrefix(tok, "%")

	deref := false
	if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") && len(t) >= 2 {
		deref = true
		t = strings.TrimPrefix(t[1:len(t)-1], "%")
	}
	if len(t) < 2 {
		return ast.Register{}, false
	}

	var bank isa.RegisterBank
	switch t[0] {
	case 'd', 'D':
		bank = isa.BankData
	case 'a', 'A':
		bank = isa.BankAddr
	case 'e', 'E', 'p', 'P':
		bank = isa.BankExt
	default:
		return ast.Register{}, false
	}

	rest := t[1:]
	if strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]") && len(rest) >= 2 {
		rest = rest[1 : len(rest)-1]
	}
	if rest == "" {
		return ast.Register{}, false
	}
	idx, err := strconv.Atoi(rest)
	if err != nil || idx < 0 {
		return ast.Register{}, false
	}
	return ast.Register{Bank: bank, Index: idx, Deref: deref}, true
}

// tryParsePostIncrement recognises "[A[a]+]" and "[A[a]+]off": a
// bracketed register whose contents end in "+", optionally followed
// immediately by a displacement expression.
func tryParsePostIncrement(tok string) (ast.Indexed, bool) {
	if !strings.HasPrefix(tok, "[") {
		return ast.Indexed{}, false
	}
	depth := 0
	closeIdx := -1
	for i, c := range tok {
		switch c {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				closeIdx = i
			}
		}
		if closeIdx >= 0 {
			break
		}
	}
	if closeIdx < 0 {
		return ast.Indexed{}, false
	}
	inner := tok[1:closeIdx]
	if !strings.HasSuffix(inner, "+") {
		return ast.Indexed{}, false
	}
	reg, ok := tryParseRegister(inner[:len(inner)-1])
	if !ok {
		return ast.Indexed{}, false
	}
	reg.PostIncrement = true

	suffix := strings.TrimSpace(tok[closeIdx+1:])
	var disp ast.Expr
	if suffix != "" {
		e, err := ParseExpr(suffix)
		if err != nil {
			return ast.Indexed{}, false
		}
		disp = e
	}
	return ast.Indexed{Base: reg, Disp: disp}, true
}
