package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/tricore-tools/tcasm/internal/ast"
	"github.com/tricore-tools/tcasm/internal/linker"
)

// WriteTextDump emits §4.6's text dump: one line per emitted
// instruction or data chunk, an 8-hex-digit address, a space, then
// the bytes. An instruction is rendered as a single big-endian integer
// (the instruction word as the manual shows it, not memory order); a
// data chunk's bytes are printed in memory order.
func WriteTextDump(prog *linker.Program, end Endianness, w io.Writer) error {
	for i, st := range prog.Statements {
		switch st.Kind {
		case ast.KindInstruction:
			sel := prog.Selections[i]
			if sel == nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "%08X %s\n", prog.Addresses[i], TextWord(sel.Size, sel.Bits)); err != nil {
				return err
			}
		case ast.KindDirective:
			b, err := statementBytes(st, nil, prog, i, end)
			if err != nil {
				return err
			}
			if len(b) == 0 {
				continue
			}
			var sb strings.Builder
			for _, by := range b {
				fmt.Fprintf(&sb, "%02X", by)
			}
			if _, err := fmt.Fprintf(w, "%08X %s\n", prog.Addresses[i], sb.String()); err != nil {
				return err
			}
		}
	}
	return nil
}
