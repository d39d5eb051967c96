package symtab

import (
	"testing"

	"github.com/tricore-tools/tcasm/internal/ast"
	"github.com/tricore-tools/tcasm/internal/diag"
)

// constResolver evaluates a bare constant expression; none of these
// tests feed .ORG/EQU a label, so the label branch is never exercised
// here.
type constResolver struct{}

func (constResolver) Resolve(e ast.Expr, _ int) (int64, bool) { return e.Constant, true }

// symResolver resolves a label directly against syms, sufficient for
// tests where the referenced label is already defined by the time it
// is looked up.
type symResolver struct{ syms *Table }

func (r symResolver) Resolve(e ast.Expr, _ int) (int64, bool) {
	if e.HasLabel {
		addr, ok := r.syms.Lookup(e.Label)
		return addr + e.Constant, ok
	}
	return e.Constant, true
}

func equate(name string, expr ast.Expr) *ast.Statement {
	return &ast.Statement{Kind: ast.KindDirective, Directive: ast.DirEquate, Name: name, ValueExpr: expr}
}

func originExpr(e ast.Expr) *ast.Statement {
	return &ast.Statement{Kind: ast.KindDirective, Directive: ast.DirOrigin, ValueExpr: e}
}

func label(name string) *ast.Statement {
	return &ast.Statement{Kind: ast.KindLabelOnly, Label: name}
}

func insn(label string) *ast.Statement {
	return &ast.Statement{Kind: ast.KindInstruction, Label: label, Mnemonic: "NOP"}
}

func origin(addr int64) *ast.Statement {
	return &ast.Statement{Kind: ast.KindDirective, Directive: ast.DirOrigin, ValueExpr: ast.ConstExpr(addr)}
}

func section(name string) *ast.Statement {
	return &ast.Statement{Kind: ast.KindDirective, Directive: ast.DirSection, Name: name}
}

func TestLayoutAssignsSequentialAddresses(t *testing.T) {
	stmts := []*ast.Statement{
		origin(0x1000),
		insn("start"),
		insn(""),
		label("end"),
	}
	l := NewLayout()
	syms := New()
	bag := &diag.Bag{}
	l.Walk(stmts, syms, constResolver{}, func(i int) int64 { return 2 }, bag)

	want := []int64{0x1000, 0x1000, 0x1002, 0x1004}
	for i, w := range want {
		if l.Addresses[i] != w {
			t.Errorf("address[%d] = %#x, want %#x", i, l.Addresses[i], w)
		}
	}
	if addr, ok := syms.Lookup("start"); !ok || addr != 0x1000 {
		t.Errorf("start = %#x,%v, want 0x1000,true", addr, ok)
	}
	if addr, ok := syms.Lookup("end"); !ok || addr != 0x1004 {
		t.Errorf("end = %#x,%v, want 0x1004,true", addr, ok)
	}
}

func TestLayoutDuplicateSymbolReported(t *testing.T) {
	stmts := []*ast.Statement{insn("dup"), insn("dup")}
	l := NewLayout()
	syms := New()
	bag := &diag.Bag{}
	l.Walk(stmts, syms, constResolver{}, func(i int) int64 { return 2 }, bag)
	if !bag.HasFatal() {
		t.Fatalf("expected a DuplicateSymbol diagnostic")
	}
}

func TestLayoutAlignAdvancesToBoundary(t *testing.T) {
	stmts := []*ast.Statement{
		insn(""),
		{Kind: ast.KindDirective, Directive: ast.DirAlign, Count: 4},
		insn(""),
	}
	l := NewLayout()
	syms := New()
	bag := &diag.Bag{}
	l.Walk(stmts, syms, constResolver{}, func(i int) int64 { return 1 }, bag)
	if l.Addresses[1] != 4 {
		t.Errorf("align address = %#x, want 4", l.Addresses[1])
	}
	if l.Addresses[2] != 4 {
		t.Errorf("post-align instruction address = %#x, want 4", l.Addresses[2])
	}
}

func TestCheckOverlapsDetectsIntersectingSections(t *testing.T) {
	stmts := []*ast.Statement{
		origin(0x1000),
		section("text"),
		insn(""),
		origin(0x1001),
		section("data"),
		insn(""),
	}
	l := NewLayout()
	syms := New()
	bag := &diag.Bag{}
	l.Walk(stmts, syms, constResolver{}, func(i int) int64 { return 4 }, bag)
	overlapBag := &diag.Bag{}
	l.CheckOverlaps(overlapBag)
	if !overlapBag.HasFatal() {
		t.Fatalf("expected an AddressOverlap diagnostic")
	}
}

func TestEquateResolvesLabelReference(t *testing.T) {
	stmts := []*ast.Statement{
		origin(0x1000),
		insn("base"),
		equate("ALIAS", ast.LabelExpr("base")),
	}
	l := NewLayout()
	syms := New()
	bag := &diag.Bag{}
	l.Walk(stmts, syms, symResolver{syms: syms}, func(i int) int64 { return 2 }, bag)
	if bag.HasFatal() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	if addr, ok := syms.Lookup("ALIAS"); !ok || addr != 0x1000 {
		t.Errorf("ALIAS = %#x,%v, want 0x1000,true", addr, ok)
	}
}

func TestEquateReportsUnresolvedLabel(t *testing.T) {
	stmts := []*ast.Statement{equate("ALIAS", ast.LabelExpr("missing"))}
	l := NewLayout()
	syms := New()
	bag := &diag.Bag{}
	l.Walk(stmts, syms, symResolver{syms: syms}, func(i int) int64 { return 2 }, bag)
	if !bag.HasFatal() {
		t.Fatalf("expected an UnresolvedSymbol diagnostic")
	}
}

func TestOriginResolvesLabelPlusOffset(t *testing.T) {
	stmts := []*ast.Statement{
		origin(0x1000),
		insn("base"),
		originExpr(ast.Expr{HasLabel: true, Label: "base", Constant: 0x100}),
		insn("after"),
	}
	l := NewLayout()
	syms := New()
	bag := &diag.Bag{}
	l.Walk(stmts, syms, symResolver{syms: syms}, func(i int) int64 { return 2 }, bag)
	if bag.HasFatal() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	if l.Addresses[3] != 0x1100 {
		t.Errorf("after address = %#x, want 0x1100", l.Addresses[3])
	}
}

func TestCheckOverlapsAllowsDisjointSections(t *testing.T) {
	stmts := []*ast.Statement{
		origin(0x1000),
		section("text"),
		insn(""),
		origin(0x2000),
		section("data"),
		insn(""),
	}
	l := NewLayout()
	syms := New()
	bag := &diag.Bag{}
	l.Walk(stmts, syms, constResolver{}, func(i int) int64 { return 4 }, bag)
	overlapBag := &diag.Bag{}
	l.CheckOverlaps(overlapBag)
	if overlapBag.HasFatal() {
		t.Fatalf("unexpected overlap: %v", overlapBag.All())
	}
}
