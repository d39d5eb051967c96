package parser

import (
	"testing"

	"github.com/tricore-tools/tcasm/internal/ast"
	"github.com/tricore-tools/tcasm/internal/diag"
)

func TestCompoundOperandSplitting(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"bracket then reg", "[a15]14,d1", []string{"a15", "14", "d1"}},
		{"reg then bracket", "d15,[a5]18", []string{"d15", "a5", "18"}},
		{"bracket then reg 2", "[a15]2,d15", []string{"a15", "2", "d15"}},
		{"reg then bracket 2", "d15,[a2]6", []string{"d15", "a2", "6"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CompoundSplit(SplitOperands(tc.in))
			if len(got) != len(tc.want) {
				t.Fatalf("CompoundSplit(%q) = %v, want %v", tc.in, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("CompoundSplit(%q)[%d] = %q, want %q", tc.in, i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestCompoundSplitIsIdempotent(t *testing.T) {
	once := CompoundSplit(SplitOperands("[a15]14,d1"))
	twice := CompoundSplit(once)
	if len(once) != len(twice) {
		t.Fatalf("compound split is not idempotent: %v vs %v", once, twice)
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("compound split is not idempotent at index %d: %q vs %q", i, once[i], twice[i])
		}
	}
}

func TestPostIncrementNotSplit(t *testing.T) {
	got := CompoundSplit(SplitOperands("[a4+]8,d1"))
	want := []string{"[a4+]8", "d1"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("post-increment form was split: %v", got)
	}
}

func TestRegisterNormalisation(t *testing.T) {
	forms := []string{"d4", "D4", "d[4]", "D[4]", "%d4", "[d4]", "[D4]", "[d[4]]", "[D[4]]"}
	for _, f := range forms {
		t.Run(f, func(t *testing.T) {
			op, err := ParseOperand(f)
			if err != nil {
				t.Fatalf("ParseOperand(%q) error: %v", f, err)
			}
			reg, ok := op.(ast.RegisterOperand)
			if !ok {
				t.Fatalf("ParseOperand(%q) = %T, want RegisterOperand", f, op)
			}
			if reg.Reg.Index != 4 {
				t.Fatalf("ParseOperand(%q) index = %d, want 4", f, reg.Reg.Index)
			}
		})
	}
}

func TestParseInstructionAcceptsImmediateWithOrWithoutHash(t *testing.T) {
	bag := &diag.Bag{}
	stmts, _ := Parse("t.s", "mov d4, #1\nmov d4, 1\n", bag, Options{})
	if len(bag.All()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	if len(stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(stmts))
	}
	for _, st := range stmts {
		if len(st.Operands) != 2 {
			t.Fatalf("statement %+v has %d operands, want 2", st, len(st.Operands))
		}
		imm, ok := st.Operands[1].(ast.ImmediateOperand)
		if !ok {
			t.Fatalf("second operand is %T, want ImmediateOperand", st.Operands[1])
		}
		if imm.Expr.Constant != 1 {
			t.Fatalf("immediate value = %d, want 1", imm.Expr.Constant)
		}
	}
}

func TestParseDataDirectiveNumericEquivalence(t *testing.T) {
	bag := &diag.Bag{}
	stmts, _ := Parse("t.s", "DB 0xAB, 0o253, 0b10101011, 171, 0d171\n", bag, Options{})
	if len(bag.All()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	if len(stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(stmts))
	}
	if len(stmts[0].Values) != 5 {
		t.Fatalf("got %d values, want 5", len(stmts[0].Values))
	}
	for i, v := range stmts[0].Values {
		if v.Expr.Constant != 0xAB {
			t.Fatalf("value %d = %d, want 171", i, v.Expr.Constant)
		}
	}
}

func TestParseEquateColonForm(t *testing.T) {
	bag := &diag.Bag{}
	stmts, _ := Parse("t.s", "STACK_SIZE: EQU 256\n", bag, Options{})
	if len(bag.All()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	if len(stmts) != 1 || stmts[0].Directive != ast.DirEquate || stmts[0].Name != "STACK_SIZE" {
		t.Fatalf("got %+v", stmts)
	}
	if stmts[0].ValueExpr.Constant != 256 {
		t.Fatalf("equate value = %d, want 256", stmts[0].ValueExpr.Constant)
	}
}

func TestParseEquateBareForm(t *testing.T) {
	bag := &diag.Bag{}
	stmts, _ := Parse("t.s", "STACK_SIZE EQU 256\n", bag, Options{})
	if len(bag.All()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	if len(stmts) != 1 || stmts[0].Name != "STACK_SIZE" || stmts[0].ValueExpr.Constant != 256 {
		t.Fatalf("got %+v", stmts)
	}
}

func TestNumericLocalLabelsRecur(t *testing.T) {
	bag := &diag.Bag{}
	src := "1: nop\nj 1b\n1: nop\nj 1f\n"
	stmts, nl := Parse("t.s", src, bag, Options{})
	if len(bag.All()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	if stmts[0].Label == stmts[2].Label {
		t.Fatalf("two numeric-local definitions were not rewritten uniquely: %q", stmts[0].Label)
	}
	if _, ok := nl.Resolve("1", false, 1); !ok {
		t.Fatalf("backward reference from statement 1 failed to resolve")
	}
}

func TestParserReportsDiagnosticAndContinues(t *testing.T) {
	bag := &diag.Bag{}
	stmts, _ := Parse("t.s", "mov d4, not-a-number-or-register$$$\nadd d0, d1\n", bag, Options{})
	if len(bag.All()) == 0 {
		t.Fatalf("expected a diagnostic for the malformed operand")
	}
	if len(stmts) != 1 || stmts[0].Mnemonic != "ADD" {
		t.Fatalf("parser did not recover and continue: %+v", stmts)
	}
}
