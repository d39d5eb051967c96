// Package linker drives the §4.5 two-pass size-fixpoint algorithm: it
// repeatedly re-walks the statement stream, asking internal/encoder to
// pick a variant for each instruction and internal/symtab to lay out
// addresses, until no statement's encoded size changes. Sizes are
// never allowed to shrink across passes (§4.5 invariant), which both
// bounds the number of passes and keeps the fixpoint from oscillating.
package linker

import (
	"fmt"

	"github.com/tricore-tools/tcasm/internal/ast"
	"github.com/tricore-tools/tcasm/internal/diag"
	"github.com/tricore-tools/tcasm/internal/encoder"
	"github.com/tricore-tools/tcasm/internal/isa"
	"github.com/tricore-tools/tcasm/internal/parser"
	"github.com/tricore-tools/tcasm/internal/symtab"
)

// Options mirrors the CLI's optimisation flags (§6's -O32/-Ono-implicit)
// plus a safety cap on fixpoint iterations.
type Options struct {
	ForceWidth int // 0, 16, or 32
	NoImplicit bool
	MaxPasses  int // default 50 if <= 0
}

// Program is the fully laid-out, fully encoded module ready for the
// output emitters.
type Program struct {
	Statements    []*ast.Statement
	Addresses     []int64
	Sizes         []int64
	Selections    []*encoder.Result // nil for non-instruction statements
	Symbols       *symtab.Table
	NumericLabels *parser.NumericLabels
	Passes        int
}

// Resolve evaluates an expression against the final, converged symbol
// table, for output emitters (e.g. data directive values) that run
// after Link has returned and need the same label resolution the
// encoder used during the fixpoint.
func (p *Program) Resolve(e ast.Expr, atStmtIndex int) (int64, bool) {
	if e.IsNumericLocal {
		name, ok := p.NumericLabels.Resolve(e.Label, e.Forward, atStmtIndex)
		if !ok {
			return 0, false
		}
		addr, ok := p.Symbols.Lookup(name)
		return addr + e.Constant, ok
	}
	if e.HasLabel {
		addr, ok := p.Symbols.Lookup(e.Label)
		return addr + e.Constant, ok
	}
	return e.Constant, true
}

// dualResolver resolves a label against the symbol table as built so
// far this pass (covers backward references), falling back to the
// previous pass's complete table (covers forward references, which
// have no address yet within the current in-progress walk).
type dualResolver struct {
	cur, prev *symtab.Table
	nl        *parser.NumericLabels
}

func (r *dualResolver) Resolve(e ast.Expr, atStmtIndex int) (int64, bool) {
	if e.IsNumericLocal {
		name, ok := r.nl.Resolve(e.Label, e.Forward, atStmtIndex)
		if !ok {
			return 0, false
		}
		if addr, ok := r.cur.Lookup(name); ok {
			return addr + e.Constant, true
		}
		if addr, ok := r.prev.Lookup(name); ok {
			return addr + e.Constant, true
		}
		return 0, false
	}
	if e.HasLabel {
		if addr, ok := r.cur.Lookup(e.Label); ok {
			return addr + e.Constant, true
		}
		if addr, ok := r.prev.Lookup(e.Label); ok {
			return addr + e.Constant, true
		}
		return 0, false
	}
	return e.Constant, true
}

// Link runs the fixpoint to convergence (or until MaxPasses is hit)
// and returns the final program layout. Diagnostics for unknown
// mnemonics, unmatched or out-of-range operands, unresolved symbols,
// and address overlaps are added to bag. A Program is always returned;
// a statement for which no variant matched has a nil Selections entry.
func Link(table *isa.Table, stmts []*ast.Statement, nl *parser.NumericLabels, bag *diag.Bag, opts Options) *Program {
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = 50
	}

	n := len(stmts)
	committedSize := make([]int64, n)
	selections := make([]*encoder.Result, n)
	prevSyms := symtab.New()

	var layout *symtab.Layout
	var curSyms *symtab.Table
	var passBag *diag.Bag
	pass := 0

	for ; pass < opts.MaxPasses; pass++ {
		curSyms = symtab.New()
		resolver := &dualResolver{cur: curSyms, prev: prevSyms, nl: nl}
		layout = symtab.NewLayout()
		changed := false
		passBag = &diag.Bag{} // suppress per-pass noise; only the final pass's diagnostics matter

		layout.Walk(stmts, curSyms, resolver, func(i int) int64 {
			st := stmts[i]
			if sz, ok := staticSize(st); ok {
				return sz
			}
			if st.Kind == ast.KindDirective && st.Directive == ast.DirTimes {
				passBag.Errorf(diag.DirectiveError, st.Loc, "TIMES of a variable-size instruction is not supported")
				return st.Count * 2
			}
			pc := layout.Addresses[i]
			res, _ := encoder.Select(table, st.Mnemonic, st.Operands, pc, resolver, i, encoder.Options{
				ForceWidth: opts.ForceWidth, NoImplicit: opts.NoImplicit, Optimistic: true,
			})
			if res == nil {
				if !table.Has(st.Mnemonic) {
					passBag.Errorf(diag.UnknownMnemonic, st.Loc, "unknown mnemonic %s", st.Mnemonic)
				} else {
					passBag.Errorf(diag.InvalidOperand, st.Loc, "no instruction variant matches %s with the given operands", st.Mnemonic)
				}
				selections[i] = nil
				if committedSize[i] == 0 {
					committedSize[i] = 2 // smallest possible opcode; keeps layout moving
				}
				return committedSize[i]
			}
			size := int64(res.Size)
			if size < committedSize[i] {
				// A previous pass already proved a larger size necessary;
				// re-select pinned to that width so the chosen variant and
				// its size agree (§4.5 monotonicity invariant).
				forced := int(committedSize[i] * 8)
				if pinned, _ := encoder.Select(table, st.Mnemonic, st.Operands, pc, resolver, i, encoder.Options{
					ForceWidth: forced, NoImplicit: opts.NoImplicit, Optimistic: true,
				}); pinned != nil {
					res = pinned
					size = int64(res.Size)
				}
			}
			if size != committedSize[i] {
				changed = true
			}
			committedSize[i] = size
			selections[i] = res
			return size
		}, passBag)

		if pass > 0 && !changed {
			break
		}
		prevSyms = curSyms
	}
	bag.Merge(passBag)

	// A selection still provisional after the final pass names a label
	// that no pass ever defined.
	for i, sel := range selections {
		if sel != nil && sel.Provisional {
			bag.Errorf(diag.UnresolvedSymbol, stmts[i].Loc, "%s: operand references an undefined symbol", stmts[i].Mnemonic)
		}
	}

	layout.CheckOverlaps(bag)

	addresses := make([]int64, n)
	sizes := make([]int64, n)
	copy(addresses, layout.Addresses)
	copy(sizes, committedSize)
	for i, st := range stmts {
		if sz, ok := staticSize(st); ok {
			sizes[i] = sz
		}
	}

	return &Program{
		Statements:    stmts,
		Addresses:     addresses,
		Sizes:         sizes,
		Selections:    selections,
		Symbols:       curSyms,
		NumericLabels: nl,
		Passes:        pass + 1,
	}
}

// staticSize returns the byte size of directive statements whose size
// never depends on variant selection, and reports false for
// instructions (and TIMES of an instruction) which must be asked of
// the encoder instead.
func staticSize(st *ast.Statement) (int64, bool) {
	switch st.Kind {
	case ast.KindLabelOnly:
		return 0, true
	case ast.KindDirective:
		switch st.Directive {
		case ast.DirData:
			var n int64
			for _, v := range st.Values {
				if v.IsBytes {
					n += int64(len(v.Bytes))
				} else {
					n += int64(st.Width.Bytes())
				}
			}
			return n, true
		case ast.DirReserve:
			return st.Count * int64(st.Width.Bytes()), true
		case ast.DirTimes:
			if inner, ok := staticSize(st.Inner); ok {
				return st.Count * inner, true
			}
			return 0, false
		default: // Origin/Section/Align/Global/Equate: sized by symtab.Layout directly
			return 0, true
		}
	}
	return 0, false
}

// StatementError formats a human-readable "no variant matched"
// message including the rejection reasons, for cmd/tcasm's final
// error report.
func StatementError(st *ast.Statement, rejections []encoder.Rejection) string {
	msg := fmt.Sprintf("%s: no matching instruction variant", st.Mnemonic)
	for _, r := range rejections {
		msg += fmt.Sprintf("\n  variant %d: %s", r.VariantID, r.Reason)
	}
	return msg
}
