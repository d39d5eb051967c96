package output

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/tricore-tools/tcasm/internal/linker"
)

// DetectWidth queries f's terminal width via golang.org/x/term, the
// way this module's listing/map formatting adapts to the console the
// way wut4's emul module queries its serial console's geometry.
// Returns fallback when f is not a terminal or the query fails.
func DetectWidth(f *os.File, fallback int) int {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return fallback
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// WriteListing emits §4.6's listing: per source line, address,
// memory-order bytes, and the original source text, followed by a
// trailing symbol block. width governs the symbol block's layout: one
// column below 80, otherwise width/40 columns.
func WriteListing(prog *linker.Program, end Endianness, width int, w io.Writer) error {
	for i, st := range prog.Statements {
		b, err := statementBytes(st, prog.Selections[i], prog, i, end)
		if err != nil {
			return err
		}
		hexBytes := ""
		for _, by := range b {
			hexBytes += fmt.Sprintf("%02X", by)
		}
		src := st.SourceText
		if _, err := fmt.Fprintf(w, "%08X  %-10s  %s\n", prog.Addresses[i], hexBytes, src); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Symbols:")
	colWidth := 40
	perRow := 1
	if width >= colWidth*2 {
		perRow = width / colWidth
	}
	col := 0
	for _, sym := range prog.Symbols.All() {
		if !sym.IsDefined {
			continue
		}
		entry := fmt.Sprintf("%-20s %#08x", sym.Name, sym.Address)
		fmt.Fprintf(w, "%-*s", colWidth, entry)
		col++
		if col >= perRow {
			fmt.Fprintln(w)
			col = 0
		}
	}
	if col != 0 {
		fmt.Fprintln(w)
	}
	return nil
}

