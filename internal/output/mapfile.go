package output

import (
	"fmt"
	"io"

	"github.com/tricore-tools/tcasm/internal/linker"
)

// WriteMap emits §4.6's symbol map: one line per symbol with name,
// address, section, and scope.
func WriteMap(prog *linker.Program, w io.Writer) error {
	for _, sym := range prog.Symbols.All() {
		if !sym.IsDefined {
			continue
		}
		scope := "local"
		if sym.IsGlobal {
			scope = "global"
		}
		section := sym.Section
		if section == "" {
			section = "-"
		}
		if _, err := fmt.Fprintf(w, "%-24s %#08x %-12s %s\n", sym.Name, sym.Address, section, scope); err != nil {
			return err
		}
	}
	return nil
}
