// Package output implements the §4.6 emitters: binary, Intel HEX,
// text dump, listing, and symbol map. Every emitter consumes the same
// linker.Program and renders it in one of the spec's output
// conventions; none of them re-derive addresses or sizes.
package output

import (
	"fmt"

	"github.com/tricore-tools/tcasm/internal/ast"
	"github.com/tricore-tools/tcasm/internal/encoder"
	"github.com/tricore-tools/tcasm/internal/linker"
)

// Endianness is the configured byte order for multi-byte data
// directive values (§6 architecture.endianness). Instruction words
// always follow the memory-order/text-word conventions fixed by §4.6
// regardless of this setting, since those are properties of the
// TriCore encoding itself, not a configurable data layout.
type Endianness uint8

const (
	Little Endianness = iota
	Big
)

// Chunk is one statement's contribution to the emitted byte stream:
// its start address and its bytes in memory order.
type Chunk struct {
	Address int64
	Bytes   []byte
	Stmt    *ast.Statement
}

// Chunks renders every statement in prog to its memory-order bytes,
// skipping statements with no byte representation (labels, .org,
// .section, .align, .global, EQU). Returns one Chunk per remaining
// statement, in source order.
func Chunks(prog *linker.Program, end Endianness) ([]Chunk, error) {
	var out []Chunk
	for i, st := range prog.Statements {
		b, err := statementBytes(st, prog.Selections[i], prog, i, end)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", st.Loc, err)
		}
		if b == nil {
			continue
		}
		out = append(out, Chunk{Address: prog.Addresses[i], Bytes: b, Stmt: st})
	}
	return out, nil
}

// statementBytes renders one statement's memory-order bytes. sel is
// nil for every non-instruction statement and for an instruction that
// failed selection; for the latter an error is returned.
// idx is st's position in prog.Statements, needed to resolve numeric
// local label references in data values.
func statementBytes(st *ast.Statement, sel *encoder.Result, prog *linker.Program, idx int, end Endianness) ([]byte, error) {
	switch st.Kind {
	case ast.KindLabelOnly:
		return nil, nil
	case ast.KindInstruction:
		if sel == nil {
			return nil, fmt.Errorf("%s: no encoding available", st.Mnemonic)
		}
		return MemoryOrderWord(sel.Size, sel.Bits), nil
	case ast.KindDirective:
		switch st.Directive {
		case ast.DirData:
			return dataBytes(st, prog, idx, end)
		case ast.DirReserve:
			return make([]byte, st.Count*int64(st.Width.Bytes())), nil
		case ast.DirTimes:
			inner, err := statementBytes(st.Inner, nil, prog, idx, end)
			if err != nil {
				return nil, err
			}
			out := make([]byte, 0, int64(len(inner))*st.Count)
			for i := int64(0); i < st.Count; i++ {
				out = append(out, inner...)
			}
			return out, nil
		default:
			return nil, nil
		}
	default:
		return nil, nil
	}
}

func dataBytes(st *ast.Statement, prog *linker.Program, idx int, end Endianness) ([]byte, error) {
	var out []byte
	for _, v := range st.Values {
		if v.IsBytes {
			out = append(out, v.Bytes...)
			continue
		}
		w := st.Width.Bytes()
		val, ok := prog.Resolve(v.Expr, idx)
		if !ok {
			return nil, fmt.Errorf("unresolved symbol in data value %s", v.Expr)
		}
		buf := make([]byte, w)
		for i := 0; i < w; i++ {
			shift := uint(i * 8)
			if end == Big {
				shift = uint((w - 1 - i) * 8)
			}
			buf[i] = byte(val >> shift)
		}
		out = append(out, buf...)
	}
	return out, nil
}

// MemoryOrderWord renders an encoded instruction word in the
// little-endian, half-word-granular memory order used by the binary
// and listing emitters: for a 32-bit instruction, the low half-word's
// two bytes precede the high half-word's two bytes, each half-word
// itself stored little-endian. This is deliberately distinct from
// TextWord's big-endian rendering of the same bits.
func MemoryOrderWord(size int, bits uint32) []byte {
	switch size {
	case 2:
		return []byte{byte(bits), byte(bits >> 8)}
	case 4:
		lo := uint16(bits)
		hi := uint16(bits >> 16)
		return []byte{byte(lo), byte(lo >> 8), byte(hi), byte(hi >> 8)}
	default:
		return nil
	}
}

// TextWord renders an encoded instruction word as the single
// big-endian integer the TriCore manual shows (half-words
// concatenated MSB-first), e.g. 0xD4001234 for a 32-bit instruction.
func TextWord(size int, bits uint32) string {
	if size == 2 {
		return fmt.Sprintf("%04X", bits&0xFFFF)
	}
	return fmt.Sprintf("%08X", bits)
}
