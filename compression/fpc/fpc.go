// Package fpc implements frequent pattern compression of a cache line.
//
// The line is processed as 16 little-endian 32-bit words. Every word, or run
// of up to seven zero words, becomes a 3-bit type tag followed by a payload
// whose width depends on the type. Fields are packed densely with no
// alignment.
package fpc

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/sarchlab/ocsim/compression/bitpack"
	"github.com/sarchlab/ocsim/mem/mem"
)

// Type is the 3-bit pattern tag of a word.
type Type int

// Pattern types.
const (
	TypeZeroRun    Type = iota // run of zero words, payload is the count
	TypeSign4                  // sign-extended 4-bit value
	TypeSign8                  // sign-extended 8-bit value
	TypeSign16                 // sign-extended 16-bit value
	TypeHighHalf               // low halfword zero, payload is the high half
	TypeTwoHalves              // each halfword a sign-extended byte
	TypeRepeated               // four identical bytes
	TypeUncompressed           // raw 32 bits
	numTypes
)

const (
	tagBits     = 3
	wordsInLine = mem.LineSize / 4
	maxZeroRun  = 7
)

// payloadBits is the payload width of every type.
var payloadBits = [numTypes]int{3, 4, 8, 16, 16, 16, 8, 32}

var typeNames = [numTypes]string{
	"zero-run", "sign4", "sign8", "sign16",
	"high-half", "two-halves", "repeated", "uncompressed",
}

func (t Type) String() string {
	if t < 0 || t >= numTypes {
		return fmt.Sprintf("Type(%d)", int(t))
	}

	return typeNames[t]
}

// PayloadBits returns the payload width of t.
func PayloadBits(t Type) int {
	return payloadBits[t]
}

// MaxBits is the longest possible encoding of a line.
const MaxBits = wordsInLine * (tagBits + 32)

func signExtends(w, mask uint32) bool {
	m := w & mask
	return m == 0 || m == mask
}

// classify picks the type and payload of a non-zero word. The first matching
// type in numeric order wins.
func classify(w uint32) (Type, uint64) {
	switch {
	case signExtends(w, 0xFFFFFFF8):
		return TypeSign4, uint64(w)
	case signExtends(w, 0xFFFFFF80):
		return TypeSign8, uint64(w)
	case signExtends(w, 0xFFFF8000):
		return TypeSign16, uint64(w)
	case w&0x0000FFFF == 0:
		return TypeHighHalf, uint64(w >> 16)
	case isTwoHalves(w):
		return TypeTwoHalves, uint64(w&0xFF | (w&0xFF0000)>>8)
	case isRepeated(w):
		return TypeRepeated, uint64(w & 0xFF)
	default:
		return TypeUncompressed, uint64(w)
	}
}

func isTwoHalves(w uint32) bool {
	switch w & 0xFF80FF80 {
	case 0, 0xFF80FF80, 0xFF800000, 0x0000FF80:
		return true
	}

	return false
}

func isRepeated(w uint32) bool {
	b := w & 0xFF
	return w == b|b<<8|b<<16|b<<24
}

func words(line *mem.Line) [wordsInLine]uint32 {
	var ws [wordsInLine]uint32
	for i := range ws {
		ws[i] = binary.LittleEndian.Uint32(line[i*4:])
	}

	return ws
}

// scan walks the line and calls emit once per encoded tuple.
func scan(line *mem.Line, emit func(t Type, payload uint64)) {
	ws := words(line)
	run := 0

	for i, w := range ws {
		if w == 0 {
			run++
			if run == maxZeroRun || i == len(ws)-1 || ws[i+1] != 0 {
				emit(TypeZeroRun, uint64(run))
				run = 0
			}

			continue
		}

		emit(classify(w))
	}
}

// Compress encodes the line and returns the packed stream and its length in
// bits.
func Compress(line *mem.Line) ([]uint64, int) {
	w := bitpack.NewWriter(MaxBits)

	scan(line, func(t Type, payload uint64) {
		w.Write(uint64(t), tagBits)
		w.Write(payload, payloadBits[t])
	})

	return w.Words(), w.Len()
}

// DrySize returns the bit length Compress would produce without writing the
// stream.
func DrySize(line *mem.Line) int {
	bits := 0

	scan(line, func(t Type, _ uint64) {
		bits += tagBits + payloadBits[t]
	})

	return bits
}

// Decompress restores a line from a stream produced by Compress. It panics on
// a stream that does not decode to exactly one line.
func Decompress(stream []uint64) mem.Line {
	var line mem.Line

	r := bitpack.NewReader(stream)
	count := 0

	for count < wordsInLine {
		t := Type(r.Read(tagBits))
		payload := uint32(r.Read(payloadBits[t]))

		if t == TypeZeroRun {
			if payload == 0 || count+int(payload) > wordsInLine {
				panic(fmt.Sprintf("bad FPC zero run of %d at word %d",
					payload, count))
			}

			count += int(payload)

			continue
		}

		binary.LittleEndian.PutUint32(line[count*4:], expand(t, payload))
		count++
	}

	return line
}

func expand(t Type, p uint32) uint32 {
	switch t {
	case TypeSign4:
		return signExtend(p, 4)
	case TypeSign8:
		return signExtend(p, 8)
	case TypeSign16:
		return signExtend(p, 16)
	case TypeHighHalf:
		return p << 16
	case TypeTwoHalves:
		lo := signExtend(p&0xFF, 8) & 0xFFFF
		hi := signExtend(p>>8&0xFF, 8) << 16
		return lo | hi
	case TypeRepeated:
		b := p & 0xFF
		return b | b<<8 | b<<16 | b<<24
	case TypeUncompressed:
		return p
	default:
		panic(fmt.Sprintf("illegal FPC type %d", int(t)))
	}
}

func signExtend(v uint32, bits int) uint32 {
	shift := 32 - bits
	return uint32(int32(v<<shift) >> shift)
}

// Describe lists the tuples of a stream, one per line.
func Describe(stream []uint64) string {
	var sb strings.Builder

	r := bitpack.NewReader(stream)
	count := 0

	for count < wordsInLine {
		offset := r.Offset()
		t := Type(r.Read(tagBits))
		payload := r.Read(payloadBits[t])

		fmt.Fprintf(&sb, "@%-4d word %2d %-12s 0x%x\n", offset, count, t, payload)

		if t == TypeZeroRun {
			if payload == 0 {
				break
			}

			count += int(payload)
		} else {
			count++
		}
	}

	fmt.Fprintf(&sb, "%d bits\n", r.Offset())

	return sb.String()
}
