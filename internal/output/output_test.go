package output

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/tricore-tools/tcasm/internal/ast"
	"github.com/tricore-tools/tcasm/internal/encoder"
	"github.com/tricore-tools/tcasm/internal/linker"
	"github.com/tricore-tools/tcasm/internal/symtab"
)

func dataStatement(addr int64, bytes ...byte) (*ast.Statement, int64) {
	vals := make([]ast.DataValue, len(bytes))
	for i, b := range bytes {
		vals[i] = ast.DataValue{IsBytes: false, Expr: ast.ConstExpr(int64(b))}
	}
	return &ast.Statement{Kind: ast.KindDirective, Directive: ast.DirData, Width: ast.Width8, Values: vals}, addr
}

func programOf(stmts []*ast.Statement, addrs []int64, sels []*encoder.Result) *linker.Program {
	sizes := make([]int64, len(stmts))
	return &linker.Program{
		Statements: stmts,
		Addresses:  addrs,
		Sizes:      sizes,
		Selections: sels,
		Symbols:    symtab.New(),
	}
}

func TestWriteBinaryPadsGap(t *testing.T) {
	st1, a1 := dataStatement(0, 0xAA)
	st2, a2 := dataStatement(4, 0xBB)
	prog := programOf([]*ast.Statement{st1, st2}, []int64{a1, a2}, []*encoder.Result{nil, nil})

	var buf bytes.Buffer
	if err := WriteBinary(prog, Little, &buf); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}
	want := []byte{0xAA, 0, 0, 0, 0xBB}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got %x, want %x", buf.Bytes(), want)
	}
}

// TestWriteHexWorkedExample is the §8 scenario 3 Intel-HEX round trip:
// the exact three-line output named in §4.6's worked example.
func TestWriteHexWorkedExample(t *testing.T) {
	st, addr := dataStatement(0x08000000, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xF0)
	prog := programOf([]*ast.Statement{st}, []int64{addr}, []*encoder.Result{nil})

	var buf bytes.Buffer
	if err := WriteHex(prog, Little, &buf); err != nil {
		t.Fatalf("WriteHex: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{
		":020000040800F2",
		":08000000123456789ABCDEF0C0",
		":00000001FF",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestMemoryOrderVsTextWordDiffer(t *testing.T) {
	bits := uint32(0xD4001234)
	mem := MemoryOrderWord(4, bits)
	wantMem := []byte{0x34, 0x12, 0x00, 0xD4}
	if !bytes.Equal(mem, wantMem) {
		t.Errorf("MemoryOrderWord = %x, want %x", mem, wantMem)
	}
	if got := TextWord(4, bits); got != "D4001234" {
		t.Errorf("TextWord = %q, want D4001234", got)
	}
}

// TestDataBytesResolvesLabelReference guards against a DD/DW value
// that names a label silently encoding as zero: the emitted bytes must
// carry the label's resolved address.
func TestDataBytesResolvesLabelReference(t *testing.T) {
	syms := symtab.New()
	if err := syms.Define("vector", 0x08001234, false, false, ""); err != nil {
		t.Fatalf("Define: %v", err)
	}
	st := &ast.Statement{
		Kind:      ast.KindDirective,
		Directive: ast.DirData,
		Width:     ast.Width32,
		Values:    []ast.DataValue{{Expr: ast.LabelExpr("vector")}},
	}
	prog := &linker.Program{
		Statements: []*ast.Statement{st},
		Addresses:  []int64{0},
		Sizes:      []int64{4},
		Selections: []*encoder.Result{nil},
		Symbols:    syms,
	}

	chunks, err := Chunks(prog, Little)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	want := []byte{0x34, 0x12, 0x00, 0x08}
	if !bytes.Equal(chunks[0].Bytes, want) {
		t.Errorf("got %x, want %x", chunks[0].Bytes, want)
	}
}

// TestDataBytesReportsUnresolvedLabel guards against the opposite
// failure mode: a DD/DW value naming a label that was never defined
// must be a hard error, not a silent zero-fill.
func TestDataBytesReportsUnresolvedLabel(t *testing.T) {
	st := &ast.Statement{
		Kind:      ast.KindDirective,
		Directive: ast.DirData,
		Width:     ast.Width32,
		Values:    []ast.DataValue{{Expr: ast.LabelExpr("missing")}},
	}
	prog := programOf([]*ast.Statement{st}, []int64{0}, []*encoder.Result{nil})

	if _, err := Chunks(prog, Little); err == nil {
		t.Fatalf("expected an error for an unresolved label in a data value")
	}
}

func TestWriteTextDumpUsesBigEndianWord(t *testing.T) {
	res := &encoder.Result{Size: 4, Bits: 0xD4001234}
	st := &ast.Statement{Kind: ast.KindInstruction, Mnemonic: "MOV"}
	prog := programOf([]*ast.Statement{st}, []int64{0}, []*encoder.Result{res})

	var buf bytes.Buffer
	if err := WriteTextDump(prog, Little, &buf); err != nil {
		t.Fatalf("WriteTextDump: %v", err)
	}
	want := "00000000 D4001234\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteMapListsSymbols(t *testing.T) {
	syms := symtab.New()
	syms.Define("start", 0x1000, false, true, "text")
	prog := &linker.Program{Statements: nil, Symbols: syms}

	var buf bytes.Buffer
	if err := WriteMap(prog, &buf); err != nil {
		t.Fatalf("WriteMap: %v", err)
	}
	if !strings.Contains(buf.String(), "start") || !strings.Contains(buf.String(), "global") {
		t.Errorf("map output missing expected fields: %q", buf.String())
	}
}

func TestDetectWidthFallsBackForNonTerminal(t *testing.T) {
	// A bytes.Buffer isn't an *os.File; use a pipe's read end, which is
	// never a terminal, to exercise the non-terminal fallback path.
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()
	if got := DetectWidth(r, 80); got != 80 {
		t.Errorf("DetectWidth = %d, want fallback 80", got)
	}
}
