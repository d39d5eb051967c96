package parser

import (
	"fmt"
	"strings"

	"github.com/tricore-tools/tcasm/internal/ast"
	"github.com/tricore-tools/tcasm/internal/lexer"
)

// ParseExpr implements the §4.2 expression grammar: at most one
// label (or numeric-local "Nf"/"Nb" reference) plus a left-to-right
// chain of +/- numeric terms. No precedence beyond left-to-right and
// no multiplicative operators are needed, per §9's design notes.
func ParseExpr(s string) (ast.Expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ast.Expr{}, fmt.Errorf("empty expression")
	}

	terms := splitSignedTerms(s)
	var e ast.Expr
	haveLabel := false

	for _, term := range terms {
		text := strings.TrimSpace(term.text)
		if text == "" {
			return ast.Expr{}, fmt.Errorf("malformed expression %q", s)
		}
		if v, err := lexer.ParseNumericLiteral(text); err == nil {
			e.Constant += term.sign * v
			continue
		}
		if name, forward, ok := numericLocalRef(text); ok {
			if haveLabel {
				return ast.Expr{}, fmt.Errorf("expression %q references more than one label", s)
			}
			haveLabel = true
			e.HasLabel = true
			e.IsNumericLocal = true
			e.Label = name
			e.Forward = forward
			if term.sign < 0 {
				return ast.Expr{}, fmt.Errorf("expression %q: a label term cannot be negated", s)
			}
			continue
		}
		if !isIdentifier(text) {
			return ast.Expr{}, fmt.Errorf("malformed expression term %q", text)
		}
		if haveLabel {
			return ast.Expr{}, fmt.Errorf("expression %q references more than one label", s)
		}
		haveLabel = true
		e.HasLabel = true
		e.Label = text
		if term.sign < 0 {
			return ast.Expr{}, fmt.Errorf("expression %q: a label term cannot be negated", s)
		}
	}
	return e, nil
}

type signedTerm struct {
	sign int64
	text string
}

// splitSignedTerms splits s into +/- separated terms. A run of
// consecutive sign characters with no term text between them (e.g.
// "label+-4") compounds: each '-' flips the sign that will apply to
// the next term.
func splitSignedTerms(s string) []signedTerm {
	var terms []signedTerm
	nextSign := int64(1)
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '+' && c != '-' {
			continue
		}
		if i > start {
			terms = append(terms, signedTerm{nextSign, s[start:i]})
			nextSign = 1
		}
		if c == '-' {
			nextSign = -nextSign
		}
		start = i + 1
	}
	terms = append(terms, signedTerm{nextSign, s[start:]})
	return terms
}

func numericLocalRef(text string) (name string, forward bool, ok bool) {
	if len(text) < 2 {
		return "", false, false
	}
	last := text[len(text)-1]
	if last != 'f' && last != 'F' && last != 'b' && last != 'B' {
		return "", false, false
	}
	digits := text[:len(text)-1]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return "", false, false
		}
	}
	if digits == "" {
		return "", false, false
	}
	return digits, last == 'f' || last == 'F', true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		alnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !alnum && c != '_' && c != '.' && c != '$' {
			return false
		}
	}
	return true
}
