package symtab

import (
	"fmt"

	"github.com/tricore-tools/tcasm/internal/ast"
	"github.com/tricore-tools/tcasm/internal/diag"
)

// Region records one section's claimed address range, used for the
// post-fixpoint overlap check (§4.3 invariant 2).
type Region struct {
	Section string
	Start   int64
	End     int64 // exclusive
}

// Resolver evaluates an expression to an address or constant value, as
// implemented by the linker's per-pass resolver. .ORG and EQU may name
// a label, not just a bare constant, so Walk needs the same label
// resolution the encoder uses rather than reading Expr.Constant alone.
type Resolver interface {
	Resolve(e ast.Expr, atStmtIndex int) (int64, bool)
}

// Layout walks a statement stream in source order, assigning each
// statement an address and recording label definitions. It implements
// the five numbered steps of §4.3: origin/section/align bookkeeping,
// label insertion, and address advancement by a caller-supplied size
// estimate (the current variant-selector guess during the linker's
// fixpoint, or a fixed directive size for data statements).
type Layout struct {
	Addresses []int64 // one entry per statement, its assigned starting address
	regions   []Region
	curStart  int64
	curSec    string
	haveOrg   bool
}

func NewLayout() *Layout {
	return &Layout{}
}

// Walk assigns addresses to every statement in stmts, calling
// sizeOf(i) to learn statement i's encoded size in bytes (an
// optimistic guess in pass 1, the fixpoint's current guess
// thereafter). Symbol definitions are inserted into syms; duplicate
// non-constant definitions are reported through bag and otherwise
// skipped so layout can continue. resolver evaluates .ORG and EQU
// value expressions, which may reference a label as well as a bare
// constant.
func (l *Layout) Walk(stmts []*ast.Statement, syms *Table, resolver Resolver, sizeOf func(i int) int64, bag *diag.Bag) {
	l.Addresses = make([]int64, len(stmts))
	l.regions = l.regions[:0]

	cur := l.curStart
	sectionStart := cur
	section := l.curSec

	flushRegion := func(end int64) {
		if section != "" && end > sectionStart {
			l.regions = append(l.regions, Region{Section: section, Start: sectionStart, End: end})
		}
	}

	for i, st := range stmts {
		switch {
		case st.Kind == ast.KindDirective && st.Directive == ast.DirOrigin:
			flushRegion(cur)
			if v, ok := resolver.Resolve(st.ValueExpr, i); ok {
				cur = v
			} else {
				bag.Errorf(diag.UnresolvedSymbol, st.Loc, ".ORG %s does not resolve to an address", st.ValueExpr)
			}
			sectionStart = cur
			l.Addresses[i] = cur
			continue
		case st.Kind == ast.KindDirective && st.Directive == ast.DirSection:
			flushRegion(cur)
			section = st.Name
			sectionStart = cur
			l.Addresses[i] = cur
			continue
		case st.Kind == ast.KindDirective && st.Directive == ast.DirAlign:
			n := st.Count
			if n > 0 && cur%n != 0 {
				cur += n - (cur % n)
			}
			l.Addresses[i] = cur
			continue
		case st.Kind == ast.KindDirective && st.Directive == ast.DirGlobal:
			syms.MarkGlobal(st.Name)
			l.Addresses[i] = cur
			continue
		case st.Kind == ast.KindDirective && st.Directive == ast.DirEquate:
			val, ok := resolver.Resolve(st.ValueExpr, i)
			if !ok {
				bag.Errorf(diag.UnresolvedSymbol, st.Loc, "EQU %s does not resolve to a value", st.ValueExpr)
			}
			if err := syms.Define(st.Name, val, true, false, section); err != nil {
				bag.Errorf(diag.DuplicateSymbol, st.Loc, "%v", err)
			}
			l.Addresses[i] = cur
			continue
		}

		if st.Label != "" {
			if err := syms.Define(st.Label, cur, false, false, section); err != nil {
				bag.Errorf(diag.DuplicateSymbol, st.Loc, "%v", err)
			}
		}

		l.Addresses[i] = cur
		if st.IsLabelDefiningOnly() {
			continue
		}
		cur += sizeOf(i)
	}

	flushRegion(cur)
	l.curStart = cur
	l.curSec = section
}

// CheckOverlaps reports every pair of same-pass regions whose address
// ranges intersect, per §4.3 invariant 2. Intended to run once after
// the linker's fixpoint has converged.
func (l *Layout) CheckOverlaps(bag *diag.Bag) {
	for i := 0; i < len(l.regions); i++ {
		for j := i + 1; j < len(l.regions); j++ {
			a, b := l.regions[i], l.regions[j]
			if a.Section == b.Section {
				continue
			}
			if a.Start < b.End && b.Start < a.End {
				bag.Errorf(diag.AddressOverlap, diag.Location{}, "section %q [%#x,%#x) overlaps section %q [%#x,%#x)",
					a.Section, a.Start, a.End, b.Section, b.Start, b.End)
			}
		}
	}
}

func (r Region) String() string {
	return fmt.Sprintf("%s: [%#x,%#x)", r.Section, r.Start, r.End)
}
