package output

import (
	"fmt"
	"io"

	"github.com/tricore-tools/tcasm/internal/linker"
)

// WriteBinary concatenates every chunk's bytes into one contiguous,
// zero-padded blob spanning from the lowest to the highest emitted
// address (§4.6 Binary).
func WriteBinary(prog *linker.Program, end Endianness, w io.Writer) error {
	chunks, err := Chunks(prog, end)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	lo := chunks[0].Address
	hi := chunks[0].Address
	for _, c := range chunks {
		if c.Address < lo {
			lo = c.Address
		}
		end := c.Address + int64(len(c.Bytes))
		if end > hi {
			hi = end
		}
	}
	buf := make([]byte, hi-lo)
	for _, c := range chunks {
		off := c.Address - lo
		copy(buf[off:], c.Bytes)
	}
	_, err = w.Write(buf)
	if err != nil {
		return fmt.Errorf("writing binary output: %w", err)
	}
	return nil
}
