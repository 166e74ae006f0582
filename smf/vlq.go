package smf

import (
	"io"
	"math"

	"github.com/midicsv/midicsv"
)

// AppendVLQ appends the variable-length quantity encoding of v to dst: the
// minimal big-endian sequence of 7-bit groups, every byte but the last with
// its top bit set.
func AppendVLQ(dst []byte, v uint64) []byte {
	var buf [10]byte
	i := len(buf) - 1
	buf[i] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		buf[i] = byte(v&0x7F) | 0x80
	}
	return append(dst, buf[i:]...)
}

// VLQLen returns the number of bytes AppendVLQ writes for v.
func VLQLen(v uint64) int {
	n := 1
	for v >>= 7; v > 0; v >>= 7 {
		n++
	}
	return n
}

// ReadVLQ reads a variable-length quantity. It fails with
// midicsv.ErrStreamExhausted if r ends before a byte with the top bit clear,
// and with midicsv.ErrMalformed if the quantity does not fit 64 bits.
func ReadVLQ(r io.ByteReader) (uint64, error) {
	var v uint64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, midicsv.StructuralError(midicsv.ErrStreamExhausted, "reading variable-length quantity")
		}
		if v > math.MaxUint64>>7 {
			return 0, midicsv.StructuralError(midicsv.ErrMalformed, "variable-length quantity overflows 64 bits")
		}
		v = v<<7 | uint64(b&0x7F)
		if b&0x80 == 0 {
			return v, nil
		}
	}
}
