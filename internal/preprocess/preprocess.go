// Package preprocess implements the §6 preprocessor collaborator: a
// thin, independently testable macro expander that runs ahead of
// internal/lexer and internal/parser. The core never calls into it
// directly — cmd/tcasm wires it in front of the pipeline, or bypasses
// it entirely with --no-macros — matching §1's "explicitly out of
// scope, specified only at its interface" framing.
package preprocess

import (
	"fmt"
	"strings"

	"github.com/tricore-tools/tcasm/internal/diag"
)

// MaxDepth bounds macro expansion recursion (§6: "recommended 10").
const MaxDepth = 10

type macro struct {
	name   string
	params []string
	body   string
}

// Expander holds the macro table accumulated from #define lines and
// supplied macro files.
type Expander struct {
	macros  map[string]macro
	counter int
}

func New() *Expander {
	return &Expander{macros: make(map[string]macro)}
}

// LoadFile scans path's contents for #define lines, adding them to
// the macro table without otherwise expanding the file (macro files
// are definitions only, per common preprocessor convention).
func (e *Expander) LoadFile(name, contents string, bag *diag.Bag) {
	for i, line := range strings.Split(contents, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#define") {
			if err := e.define(line); err != nil {
				bag.Errorf(diag.PreprocessError, diag.Location{File: name, Line: i + 1}, "%v", err)
			}
		}
	}
}

// Expand runs the macro expansion contract of §6 over src, returning
// the pre-expanded line stream the core consumes. A pipe '|' inside a
// macro body becomes a line break in the expansion; '##' splices
// adjacent tokens; quoted fragments pass through without splitting on
// the macro's comma-separated argument list; __COUNTER__ yields a
// fresh integer per invocation.
func (e *Expander) Expand(file, src string, bag *diag.Bag) string {
	var out strings.Builder
	for i, line := range strings.Split(src, "\n") {
		loc := diag.Location{File: file, Line: i + 1}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#define") {
			if err := e.define(trimmed); err != nil {
				bag.Errorf(diag.PreprocessError, loc, "%v", err)
			}
			continue
		}
		expanded, err := e.expandLine(line, 0, loc)
		if err != nil {
			bag.Errorf(diag.PreprocessError, loc, "%v", err)
			continue
		}
		out.WriteString(expanded)
		out.WriteByte('\n')
	}
	return out.String()
}

func (e *Expander) define(line string) error {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "#define"))
	name, rest := splitWord(rest)
	if name == "" {
		return fmt.Errorf("#define requires a macro name")
	}
	var params []string
	if strings.HasPrefix(rest, "(") {
		end := strings.Index(rest, ")")
		if end < 0 {
			return fmt.Errorf("#define %s: unterminated parameter list", name)
		}
		for _, p := range strings.Split(rest[1:end], ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				params = append(params, p)
			}
		}
		rest = rest[end+1:]
	}
	e.macros[name] = macro{name: name, params: params, body: strings.TrimSpace(rest)}
	return nil
}

func (e *Expander) expandLine(line string, depth int, loc diag.Location) (string, error) {
	if depth > MaxDepth {
		return "", fmt.Errorf("macro expansion depth exceeds %d", MaxDepth)
	}
	var out strings.Builder
	i := 0
	for i < len(line) {
		if line[i] == '\'' || line[i] == '"' {
			j := closingQuote(line, i)
			out.WriteString(line[i : j+1])
			i = j + 1
			continue
		}
		if isIdentStart(line[i]) {
			j := i
			for j < len(line) && isIdentPart(line[j]) {
				j++
			}
			word := line[i:j]
			if word == "__COUNTER__" {
				fmt.Fprintf(&out, "%d", e.counter)
				e.counter++
				i = j
				continue
			}
			if m, ok := e.macros[word]; ok {
				args, after, err := readArgs(line, j, len(m.params) > 0)
				if err != nil {
					return "", err
				}
				body := substitute(m, args)
				expanded, err := e.expandLine(body, depth+1, loc)
				if err != nil {
					return "", err
				}
				out.WriteString(strings.ReplaceAll(expanded, "|", "\n"))
				i = after
				continue
			}
			out.WriteString(word)
			i = j
			continue
		}
		out.WriteByte(line[i])
		i++
	}
	return out.String(), nil
}

func substitute(m macro, args []string) string {
	body := m.body
	for i, p := range m.params {
		val := ""
		if i < len(args) {
			val = args[i]
		}
		body = strings.ReplaceAll(body, "##"+p, val)
		body = strings.ReplaceAll(body, p+"##", val)
		body = replaceToken(body, p, val)
	}
	body = strings.ReplaceAll(body, "##", "")
	return body
}

func replaceToken(s, token, val string) string {
	var out strings.Builder
	i := 0
	for i < len(s) {
		if isIdentStart(s[i]) {
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			word := s[i:j]
			if word == token {
				out.WriteString(val)
			} else {
				out.WriteString(word)
			}
			i = j
			continue
		}
		out.WriteByte(s[i])
		i++
	}
	return out.String()
}

func readArgs(line string, pos int, expectParens bool) (args []string, after int, err error) {
	for pos < len(line) && (line[pos] == ' ' || line[pos] == '\t') {
		pos++
	}
	if pos >= len(line) || line[pos] != '(' {
		if expectParens {
			return nil, pos, fmt.Errorf("macro invocation missing argument list")
		}
		return nil, pos, nil
	}
	depth := 0
	start := pos + 1
	i := pos
	for i < len(line) {
		switch line[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				raw := line[start:i]
				for _, a := range splitArgs(raw) {
					args = append(args, strings.TrimSpace(a))
				}
				return args, i + 1, nil
			}
		case '\'', '"':
			i = closingQuote(line, i)
		}
		i++
	}
	return nil, pos, fmt.Errorf("unterminated macro argument list")
}

// splitArgs splits a comma-separated argument list, leaving commas
// inside quoted fragments untouched (§6: "quoted code fragments are
// passed through without comma-splitting").
func splitArgs(s string) []string {
	var args []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '\'', '"':
			i = closingQuote(s, i)
		case ',':
			if depth == 0 {
				args = append(args, s[start:i])
				start = i + 1
			}
		}
	}
	args = append(args, s[start:])
	return args
}

func closingQuote(s string, open int) int {
	q := s[open]
	for i := open + 1; i < len(s); i++ {
		if s[i] == q && s[i-1] != '\\' {
			return i
		}
	}
	return len(s) - 1
}

func splitWord(s string) (word, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := 0
	for i < len(s) && isIdentPart(s[i]) {
		i++
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
