// Package bitpack writes and reads values of 1 to 64 bits at arbitrary bit
// offsets of a dense little-endian bit stream.
//
// Bit i of the stream is bit i%64 of word i/64. A value written at offset o
// occupies bits [o, o+n) with its least significant bit first, so a value can
// straddle two words.
package bitpack

import (
	"encoding/binary"
	"fmt"
)

const wordBits = 64

func mustBeValidWidth(bits int) {
	if bits <= 0 || bits > wordBits {
		panic(fmt.Sprintf("bit width %d out of range [1, 64]", bits))
	}
}

func lowMask(bits int) uint64 {
	if bits >= wordBits {
		return ^uint64(0)
	}

	return (uint64(1) << bits) - 1
}

// Put writes the low bits of value into dst at bit offset and returns the
// offset after the value. Bits of value above the width are ignored. dst must
// be long enough to hold offset+bits bits. Bits following the value in the
// touched words are cleared, so a stream must be written in offset order.
func Put(dst []uint64, offset int, value uint64, bits int) int {
	mustBeValidWidth(bits)

	value &= lowMask(bits)
	index := offset / wordBits
	shift := offset % wordBits
	remains := wordBits - shift

	dst[index] = dst[index]&lowMask(shift) | value<<shift
	if bits > remains {
		dst[index+1] = value >> remains
	}

	return offset + bits
}

// Get reads bits bits from src at bit offset and returns the value and the
// offset after it. Bits outside src read as zero.
func Get(src []uint64, offset int, bits int) (uint64, int) {
	mustBeValidWidth(bits)

	index := offset / wordBits
	shift := offset % wordBits
	remains := wordBits - shift

	var value uint64
	if index < len(src) {
		value = src[index] >> shift
	}

	if bits > remains && index+1 < len(src) {
		value |= src[index+1] << remains
	}

	return value & lowMask(bits), offset + bits
}

// A Writer appends values to a growing bit stream.
type Writer struct {
	words []uint64
	bits  int
}

// NewWriter creates a writer with room for capacityBits bits.
func NewWriter(capacityBits int) *Writer {
	return &Writer{
		words: make([]uint64, 0, (capacityBits+wordBits-1)/wordBits+1),
	}
}

// Write appends the low bits of value.
func (w *Writer) Write(value uint64, bits int) {
	need := (w.bits+bits+wordBits-1)/wordBits + 1
	for len(w.words) < need {
		w.words = append(w.words, 0)
	}

	w.bits = Put(w.words, w.bits, value, bits)
}

// Len returns the number of bits written.
func (w *Writer) Len() int {
	return w.bits
}

// Words returns the packed stream. Bits past Len are zero.
func (w *Writer) Words() []uint64 {
	n := (w.bits + wordBits - 1) / wordBits
	return w.words[:n]
}

// Bytes returns the stream as ceil(Len/8) little-endian bytes.
func (w *Writer) Bytes() []byte {
	return WordsToBytes(w.Words(), w.bits)
}

// A Reader consumes values from a bit stream in order.
type Reader struct {
	words  []uint64
	offset int
}

// NewReader creates a reader positioned at bit 0 of words.
func NewReader(words []uint64) *Reader {
	return &Reader{words: words}
}

// NewReaderFromBytes creates a reader over a little-endian byte stream.
func NewReaderFromBytes(buf []byte) *Reader {
	return NewReader(BytesToWords(buf))
}

// Read consumes the next bits bits.
func (r *Reader) Read(bits int) uint64 {
	var v uint64
	v, r.offset = Get(r.words, r.offset, bits)

	return v
}

// Offset returns the number of bits consumed so far.
func (r *Reader) Offset() int {
	return r.offset
}

// WordsToBytes serializes the first bits bits of words as little-endian bytes.
func WordsToBytes(words []uint64, bits int) []byte {
	buf := make([]byte, len(words)*8)
	for i, w := range words {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}

	return buf[:(bits+7)/8]
}

// BytesToWords is the inverse of WordsToBytes. Missing high bytes of the last
// word are zero.
func BytesToWords(buf []byte) []uint64 {
	words := make([]uint64, (len(buf)+7)/8)
	for i := range words {
		var tmp [8]byte
		copy(tmp[:], buf[i*8:])
		words[i] = binary.LittleEndian.Uint64(tmp[:])
	}

	return words
}
