package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/tricore-tools/tcasm/internal/linker"
)

// WriteHex emits Intel HEX per §4.6: 16-byte (or smaller, never
// crossing a 64KB boundary) data records, an Extended Linear Address
// (04) record whenever the address's upper 16 bits change, and a
// single 00000001FF EOF record. All hex digits are uppercase.
func WriteHex(prog *linker.Program, end Endianness, w io.Writer) error {
	chunks, err := Chunks(prog, end)
	if err != nil {
		return err
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Address < chunks[j].Address })

	lastUpper := int64(-1)
	for _, c := range chunks {
		pos := 0
		for pos < len(c.Bytes) {
			addr := c.Address + int64(pos)
			upper := addr >> 16
			rowLen := 16
			if remaining := len(c.Bytes) - pos; remaining < rowLen {
				rowLen = remaining
			}
			boundary := (upper + 1) << 16
			if addr+int64(rowLen) > boundary {
				rowLen = int(boundary - addr)
			}

			if upper != lastUpper {
				data := []byte{byte(upper >> 8), byte(upper)}
				if _, err := fmt.Fprintln(w, record(uint16(0), 0x04, data)); err != nil {
					return err
				}
				lastUpper = upper
			}

			if _, err := fmt.Fprintln(w, record(uint16(addr&0xFFFF), 0x00, c.Bytes[pos:pos+rowLen])); err != nil {
				return err
			}
			pos += rowLen
		}
	}

	_, err = fmt.Fprintln(w, record(0, 0x01, nil))
	return err
}

func record(address uint16, recType byte, data []byte) string {
	sum := len(data) + int(address>>8) + int(address&0xFF) + int(recType)
	for _, b := range data {
		sum += int(b)
	}
	checksum := byte(-sum & 0xFF)
	hex := fmt.Sprintf(":%02X%04X%02X", len(data), address, recType)
	for _, b := range data {
		hex += fmt.Sprintf("%02X", b)
	}
	hex += fmt.Sprintf("%02X", checksum)
	return hex
}
