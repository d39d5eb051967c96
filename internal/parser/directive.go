package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tricore-tools/tcasm/internal/ast"
	"github.com/tricore-tools/tcasm/internal/diag"
)

func parseDataDirective(width ast.DataWidth, operandText string, loc diag.Location) (*ast.Statement, error) {
	parts := SplitOperands(operandText)
	if len(parts) == 0 {
		return nil, fmt.Errorf("data directive requires at least one value")
	}
	var values []ast.DataValue
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if isQuoted(p) {
			b, err := decodeQuoted(p)
			if err != nil {
				return nil, err
			}
			values = append(values, ast.DataValue{IsBytes: true, Bytes: b})
			continue
		}
		e, err := ParseExpr(p)
		if err != nil {
			return nil, fmt.Errorf("bad data value %q: %w", p, err)
		}
		values = append(values, ast.DataValue{Expr: e})
	}
	return &ast.Statement{Kind: ast.KindDirective, Directive: ast.DirData, Width: width, Values: values, Loc: loc}, nil
}

func parseReserveDirective(width ast.DataWidth, operandText string, loc diag.Location) (*ast.Statement, error) {
	e, err := ParseExpr(strings.TrimSpace(operandText))
	if err != nil {
		return nil, err
	}
	if e.HasLabel {
		return nil, fmt.Errorf("reserve count must be a constant")
	}
	return &ast.Statement{Kind: ast.KindDirective, Directive: ast.DirReserve, Width: width, Count: e.Constant, Loc: loc}, nil
}

func parseOriginDirective(operandText string, loc diag.Location) (*ast.Statement, error) {
	e, err := ParseExpr(strings.TrimSpace(operandText))
	if err != nil {
		return nil, err
	}
	return &ast.Statement{Kind: ast.KindDirective, Directive: ast.DirOrigin, ValueExpr: e, Loc: loc}, nil
}

func parseSectionDirective(operandText string, loc diag.Location) (*ast.Statement, error) {
	name := strings.Trim(strings.TrimSpace(operandText), `"'`)
	if name == "" {
		return nil, fmt.Errorf("section directive requires a name")
	}
	return &ast.Statement{Kind: ast.KindDirective, Directive: ast.DirSection, Name: name, Loc: loc}, nil
}

func parseAlignDirective(operandText string, loc diag.Location) (*ast.Statement, error) {
	e, err := ParseExpr(strings.TrimSpace(operandText))
	if err != nil {
		return nil, err
	}
	if e.HasLabel || e.Constant <= 0 {
		return nil, fmt.Errorf(".align boundary must be a positive constant")
	}
	return &ast.Statement{Kind: ast.KindDirective, Directive: ast.DirAlign, Count: e.Constant, Loc: loc}, nil
}

func parseGlobalDirective(operandText string, loc diag.Location) ([]*ast.Statement, error) {
	names := SplitOperands(operandText)
	var out []*ast.Statement
	for _, nm := range names {
		nm = strings.TrimSpace(nm)
		if nm == "" {
			continue
		}
		out = append(out, &ast.Statement{Kind: ast.KindDirective, Directive: ast.DirGlobal, Name: nm, Loc: loc})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf(".global requires at least one name")
	}
	return out, nil
}

func parseEquate(name, exprText string, loc diag.Location) (*ast.Statement, error) {
	e, err := ParseExpr(strings.TrimSpace(exprText))
	if err != nil {
		return nil, err
	}
	return &ast.Statement{Kind: ast.KindDirective, Directive: ast.DirEquate, Name: name, ValueExpr: e, Loc: loc}, nil
}

func parseIncbin(operandText, baseDir string, loc diag.Location) (*ast.Statement, error) {
	path := strings.Trim(strings.TrimSpace(operandText), `"'`)
	if path == "" {
		return nil, fmt.Errorf("INCBIN requires a file path")
	}
	full := path
	if baseDir != "" && !filepath.IsAbs(path) {
		full = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("INCBIN %q: %v", path, err)
	}
	return &ast.Statement{
		Kind: ast.KindDirective, Directive: ast.DirData, Width: ast.Width8,
		Values: []ast.DataValue{{IsBytes: true, Bytes: data}}, Loc: loc,
	}, nil
}

func parseTimes(operandText string, loc diag.Location, parseInner func(string, diag.Location) (*ast.Statement, error)) (*ast.Statement, error) {
	first, rest := splitFirstWord(operandText)
	e, err := ParseExpr(first)
	if err != nil {
		return nil, fmt.Errorf("TIMES count: %w", err)
	}
	if e.HasLabel {
		return nil, fmt.Errorf("TIMES count must be a constant")
	}
	inner, err := parseInner(rest, loc)
	if err != nil {
		return nil, fmt.Errorf("TIMES inner statement: %w", err)
	}
	return &ast.Statement{Kind: ast.KindDirective, Directive: ast.DirTimes, Count: e.Constant, Inner: inner, Loc: loc}, nil
}

// splitFirstWord peels the first whitespace-delimited word off s,
// treating a quoted string as a single word.
func splitFirstWord(s string) (first, rest string) {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return "", ""
	}
	if s[0] == '\'' || s[0] == '"' {
		q := s[0]
		for i := 1; i < len(s); i++ {
			if s[i] == q && s[i-1] != '\\' {
				return s[:i+1], strings.TrimLeft(s[i+1:], " \t")
			}
		}
		return s, ""
	}
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' {
			return s[:i], strings.TrimLeft(s[i:], " \t")
		}
	}
	return s, ""
}
