package bdi

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/sarchlab/ocsim/compression"
	"github.com/sarchlab/ocsim/mem/mem"
)

// unpack reads size-byte little-endian words from buf into zero-extended
// 64-bit values.
func unpack(dst []uint64, buf []byte, size int) {
	for i := range dst {
		dst[i] = readWord(buf[i*size:], size)
	}
}

// pack writes the low size bytes of every value into buf.
func pack(buf []byte, src []uint64, size int) {
	for i, v := range src {
		writeWord(buf[i*size:], v, size)
	}
}

func readWord(buf []byte, size int) uint64 {
	switch size {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf))
	case 8:
		return binary.LittleEndian.Uint64(buf)
	default:
		panic(fmt.Sprintf("unsupported BDI word size %d", size))
	}
}

func writeWord(buf []byte, v uint64, size int) {
	switch size {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf, v)
	default:
		panic(fmt.Sprintf("unsupported BDI word size %d", size))
	}
}

type encoding struct {
	bitmap uint64
	base   uint64
	values [32]uint64
}

// encode runs the single scan of the algorithm. It returns false as soon as a
// delta does not fit.
func encode(line *mem.Line, p Param, e *encoding) bool {
	n := p.NumWords()
	values := e.values[:n]
	unpack(values, line[:], p.WordSize)

	// The base field of a line without a base stays zero.
	baseAssigned := false
	e.base = 0
	e.bitmap = 0

	for i := range values {
		if p.isSmall(values[i]) {
			e.bitmap |= 1 << i
			continue
		}

		if !baseAssigned {
			baseAssigned = true
			e.base = values[i]
		}

		values[i] -= e.base
		if !p.isSmall(values[i]) {
			return false
		}
	}

	return true
}

// Fits reports whether the line can be encoded with p without producing the
// encoding.
func Fits(line *mem.Line, p Param) bool {
	var e encoding
	return encode(line, p, &e)
}

// Compress encodes the line with p. It returns compression.ErrIncompressible
// if some delta does not fit. The result is always p.CompressedSize bytes.
func Compress(line *mem.Line, p Param) ([]byte, error) {
	var e encoding
	if !encode(line, p, &e) {
		return nil, compression.ErrIncompressible
	}

	out := make([]byte, p.CompressedSize)
	writeWord(out, e.bitmap, p.BitmapSize)
	writeWord(out[p.BitmapSize:], e.base, p.WordSize)
	pack(out[p.BodyOffset:], e.values[:p.NumWords()], p.TargetSize)

	return out, nil
}

// BestType returns the first parameter set in priority order that can encode
// the line, or TypeInvalid.
func BestType(line *mem.Line) Type {
	for _, t := range order {
		if Fits(line, params[t]) {
			return t
		}
	}

	return TypeInvalid
}

// CompressBest encodes the line with the first parameter set that succeeds.
// It returns TypeInvalid and a nil buffer if none does.
func CompressBest(line *mem.Line) (Type, []byte) {
	for _, t := range order {
		out, err := Compress(line, params[t])
		if err == nil {
			return t, out
		}
	}

	return TypeInvalid, nil
}

// Decompress restores a line encoded with type t.
func Decompress(buf []byte, t Type) mem.Line {
	p := ParamOf(t)
	if len(buf) < p.CompressedSize {
		panic(fmt.Sprintf("%s needs %d bytes, got %d",
			t, p.CompressedSize, len(buf)))
	}

	bitmap := readWord(buf, p.BitmapSize)
	base := readWord(buf[p.BitmapSize:], p.WordSize)

	var values [32]uint64
	vs := values[:p.NumWords()]
	unpack(vs, buf[p.BodyOffset:], p.TargetSize)

	for i := range vs {
		if vs[i]&p.HighMask != 0 {
			vs[i] |= p.HighMask
		}

		if bitmap&(1<<i) == 0 {
			vs[i] += base
		}
	}

	var line mem.Line
	pack(line[:], vs, p.WordSize)

	return line
}

// VerticalSize returns the size of in once every packed value identical to
// the value at the same position of base is dropped. A bitmap of one bit per
// value is added to flag the dropped positions. Both buffers must be encoded
// with type t.
func VerticalSize(base, in []byte, t Type) int {
	p := ParamOf(t)
	n := p.NumWords()
	size := p.CompressedSize + n/8

	body := p.BodyOffset
	for i := 0; i < n; i++ {
		off := body + i*p.TargetSize
		if readWord(base[off:], p.TargetSize) == readWord(in[off:], p.TargetSize) {
			size -= p.TargetSize
		}
	}

	return size
}

// Describe renders an encoded line for debugging.
func Describe(buf []byte, t Type) string {
	p := ParamOf(t)
	n := p.NumWords()
	bitmap := readWord(buf, p.BitmapSize)
	base := readWord(buf[p.BitmapSize:], p.WordSize)

	var sb strings.Builder

	fmt.Fprintf(&sb, "%s bitmap 0x%x base 0x%x\n", t, bitmap, base)
	sb.WriteString("small:")

	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, " %d", (bitmap>>i)&1)
	}

	sb.WriteString("\nvalues:")

	values := make([]uint64, n)
	unpack(values, buf[p.BodyOffset:], p.TargetSize)

	shift := 64 - 8*p.TargetSize
	for _, v := range values {
		fmt.Fprintf(&sb, " %d", int64(v<<shift)>>shift)
	}

	sb.WriteString("\n")

	return sb.String()
}
