package isa

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Decode finds the single variant of the given opcode size whose
// fixed opcode bits match bits, and extracts each slot's raw value.
// It is the reverse of the encoder's bit-packing: every bit not
// claimed by a slot must equal the candidate variant's BaseOpcode bit
// (relying on the slot/fixed-bit disjointness Variant.Validate checks).
func Decode(table *Table, bits uint32, size int) (*Variant, []int64, bool) {
	for _, v := range table.All() {
		if v.OpcodeSizeBits != size {
			continue
		}
		covered := make([]bool, size)
		for _, s := range v.Slots {
			if !s.EncodesBits() {
				continue
			}
			for i := s.BitPosition; i < s.BitPosition+s.BitLength; i++ {
				covered[i] = true
			}
		}
		match := true
		for i := 0; i < size; i++ {
			if covered[i] {
				continue
			}
			want := v.BaseOpcode&(1<<uint(i)) != 0
			got := bits&(1<<uint(i)) != 0
			if want != got {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		values := make([]int64, len(v.Slots))
		for i, s := range v.Slots {
			if !s.EncodesBits() {
				continue
			}
			mask := uint32((1 << uint(s.BitLength)) - 1)
			raw := int64((bits >> uint(s.BitPosition)) & mask)
			if s.Signed && raw&(1<<uint(s.BitLength-1)) != 0 {
				raw -= 1 << uint(s.BitLength)
			}
			values[i] = raw * int64(s.effectiveScale())
		}
		return v, values, true
	}
	return nil, nil, false
}

// DisassembleAll decodes a contiguous byte stream, preferring a
// 16-bit match at each position and falling back to 32-bit, mirroring
// the variant selector's own size preference. Each decoded
// instruction's displacement and immediate slots are rendered as raw
// numbers; label resolution is out of scope for this disassembler, as
// the binary carries no symbol table.
func DisassembleAll(table *Table, data []byte) ([]string, error) {
	var lines []string
	pos := 0
	addr := 0
	for pos < len(data) {
		if pos+2 <= len(data) {
			word16 := uint32(binary.LittleEndian.Uint16(data[pos:]))
			if v, vals, ok := Decode(table, word16, 16); ok {
				lines = append(lines, formatDecoded(addr, v, vals))
				pos += 2
				addr += 2
				continue
			}
		}
		if pos+4 <= len(data) {
			lo := binary.LittleEndian.Uint16(data[pos:])
			hi := binary.LittleEndian.Uint16(data[pos+2:])
			word32 := uint32(hi)<<16 | uint32(lo)
			if v, vals, ok := Decode(table, word32, 32); ok {
				lines = append(lines, formatDecoded(addr, v, vals))
				pos += 4
				addr += 4
				continue
			}
		}
		return nil, fmt.Errorf("no instruction matches bytes at offset %d", pos)
	}
	return lines, nil
}

func formatDecoded(addr int, v *Variant, vals []int64) string {
	var operands []string
	for i, s := range v.Slots {
		switch s.Kind {
		case SlotDataReg, SlotAddrReg, SlotExtReg:
			operands = append(operands, fmt.Sprintf("%s%d", s.Bank, vals[i]))
		case SlotLiteralRegister:
			operands = append(operands, fmt.Sprintf("%s%d", s.Bank, s.RequiredRegister))
		case SlotFixedLiteral:
			operands = append(operands, s.LiteralValue)
		default:
			operands = append(operands, fmt.Sprintf("%d", vals[i]))
		}
	}
	return fmt.Sprintf("%08X: %s %s", addr, v.Mnemonic, strings.Join(operands, ", "))
}
