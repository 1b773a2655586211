// Package cpack implements C-Pack compression of a cache line.
//
// Words are 32-bit little-endian values matched against a 16-entry FIFO
// dictionary that starts empty for every line. Codes are written tag first,
// least significant bit first:
//
//	zz    tag 0          2 bits  zero word
//	xxxx  tag 1 + 32    34 bits  literal
//	mmmm  tag 2 + 4      6 bits  full dictionary match
//	mmxx  tag 3,0 +4+16 24 bits  high halfword matches an entry
//	zzzx  tag 3,1 + 8   12 bits  zero-extended byte
//	mmmx  tag 3,2 +4+8  16 bits  high 24 bits match an entry
//
// Every word except zero and zzzx words is inserted into the dictionary once
// it has been encoded.
package cpack

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/ocsim/compression/bitpack"
	"github.com/sarchlab/ocsim/compression/dictionary"
	"github.com/sarchlab/ocsim/mem/mem"
)

// DictSize is the number of dictionary entries.
const DictSize = 16

const (
	indexBits   = 4
	wordsInLine = mem.LineSize / 4
)

// Pattern identifies the code of a word.
type Pattern int

// Code patterns.
const (
	PatternZero Pattern = iota
	PatternLiteral
	PatternMatch
	PatternMatchHalf
	PatternZeroByte
	PatternMatch3
)

var patternNames = [...]string{"zzzz", "xxxx", "mmmm", "mmxx", "zzzx", "mmmx"}

func (p Pattern) String() string {
	if p < 0 || int(p) >= len(patternNames) {
		return fmt.Sprintf("Pattern(%d)", int(p))
	}

	return patternNames[p]
}

// Bits returns the length of a code of pattern p.
func (p Pattern) Bits() int {
	switch p {
	case PatternZero:
		return 2
	case PatternLiteral:
		return 34
	case PatternMatch:
		return 6
	case PatternMatchHalf:
		return 24
	case PatternZeroByte:
		return 12
	case PatternMatch3:
		return 16
	default:
		panic(fmt.Sprintf("unknown CPACK pattern %d", int(p)))
	}
}

const (
	tagZero     = 0
	tagLiteral  = 1
	tagMatch    = 2
	tagExtended = 3

	extMatchHalf = 0
	extZeroByte  = 1
	extMatch3    = 2
)

// MaxBits is the longest possible encoding of a line.
const MaxBits = wordsInLine * 34

// A Code is one encoded word.
type Code struct {
	Pattern Pattern
	Index   int    // dictionary slot, for matching patterns
	Payload uint32 // literal bits carried by the code
}

// NewDictionary returns the empty dictionary a line starts with.
func NewDictionary() *dictionary.Dictionary {
	return dictionary.New(DictSize, dictionary.PolicyFIFO)
}

// EncodeWord returns the code of w against d and updates d.
func EncodeWord(d *dictionary.Dictionary, w uint32) Code {
	if w == 0 {
		return Code{Pattern: PatternZero}
	}

	if w&0xFFFFFF00 == 0 {
		return Code{Pattern: PatternZeroByte, Payload: w}
	}

	var c Code

	if i, ok := d.Find(w); ok {
		c = Code{Pattern: PatternMatch, Index: i}
	} else if i, ok := d.FindMasked(w, 0xFFFFFF00); ok {
		c = Code{Pattern: PatternMatch3, Index: i, Payload: w & 0xFF}
	} else if i, ok := d.FindMasked(w, 0xFFFF0000); ok {
		c = Code{Pattern: PatternMatchHalf, Index: i, Payload: w & 0xFFFF}
	} else {
		c = Code{Pattern: PatternLiteral, Payload: w}
	}

	d.Insert(w)

	return c
}

// Encode returns the code of every word of the line.
func Encode(line *mem.Line) []Code {
	d := NewDictionary()
	codes := make([]Code, 0, wordsInLine)

	for i := 0; i < wordsInLine; i++ {
		w := binary.LittleEndian.Uint32(line[i*4:])
		codes = append(codes, EncodeWord(d, w))
	}

	return codes
}

func writeCode(w *bitpack.Writer, c Code) {
	switch c.Pattern {
	case PatternZero:
		w.Write(tagZero, 2)
	case PatternLiteral:
		w.Write(tagLiteral, 2)
		w.Write(uint64(c.Payload), 32)
	case PatternMatch:
		w.Write(tagMatch, 2)
		w.Write(uint64(c.Index), indexBits)
	case PatternMatchHalf:
		w.Write(tagExtended, 2)
		w.Write(extMatchHalf, 2)
		w.Write(uint64(c.Index), indexBits)
		w.Write(uint64(c.Payload), 16)
	case PatternZeroByte:
		w.Write(tagExtended, 2)
		w.Write(extZeroByte, 2)
		w.Write(uint64(c.Payload), 8)
	case PatternMatch3:
		w.Write(tagExtended, 2)
		w.Write(extMatch3, 2)
		w.Write(uint64(c.Index), indexBits)
		w.Write(uint64(c.Payload), 8)
	}
}

// Compress encodes the line and returns the packed stream and its length in
// bits.
func Compress(line *mem.Line) ([]uint64, int) {
	w := bitpack.NewWriter(MaxBits)
	for _, c := range Encode(line) {
		writeCode(w, c)
	}

	return w.Words(), w.Len()
}

// DrySize returns the bit length Compress would produce.
func DrySize(line *mem.Line) int {
	d := NewDictionary()
	bits := 0

	for i := 0; i < wordsInLine; i++ {
		w := binary.LittleEndian.Uint32(line[i*4:])
		bits += EncodeWord(d, w).Pattern.Bits()
	}

	return bits
}

func readCode(r *bitpack.Reader) Code {
	switch r.Read(2) {
	case tagZero:
		return Code{Pattern: PatternZero}
	case tagLiteral:
		return Code{Pattern: PatternLiteral, Payload: uint32(r.Read(32))}
	case tagMatch:
		return Code{Pattern: PatternMatch, Index: int(r.Read(indexBits))}
	}

	switch ext := r.Read(2); ext {
	case extMatchHalf:
		i := int(r.Read(indexBits))
		return Code{Pattern: PatternMatchHalf, Index: i, Payload: uint32(r.Read(16))}
	case extZeroByte:
		return Code{Pattern: PatternZeroByte, Payload: uint32(r.Read(8))}
	case extMatch3:
		i := int(r.Read(indexBits))
		return Code{Pattern: PatternMatch3, Index: i, Payload: uint32(r.Read(8))}
	default:
		panic(fmt.Sprintf("illegal CPACK extended tag %d", ext))
	}
}

// DecodeWord turns a code back into its word, updating d the same way the
// encoder did.
func DecodeWord(d *dictionary.Dictionary, c Code) uint32 {
	var w uint32

	switch c.Pattern {
	case PatternZero:
		return 0
	case PatternZeroByte:
		return c.Payload
	case PatternLiteral:
		w = c.Payload
	case PatternMatch:
		w = d.Get(c.Index)
	case PatternMatch3:
		w = d.Get(c.Index)&0xFFFFFF00 | c.Payload
	case PatternMatchHalf:
		w = d.Get(c.Index)&0xFFFF0000 | c.Payload
	default:
		panic(fmt.Sprintf("unknown CPACK pattern %d", int(c.Pattern)))
	}

	d.Insert(w)

	return w
}

// Decompress restores a line from a stream produced by Compress.
func Decompress(stream []uint64) mem.Line {
	var line mem.Line

	d := NewDictionary()
	r := bitpack.NewReader(stream)

	for i := 0; i < wordsInLine; i++ {
		w := DecodeWord(d, readCode(r))
		binary.LittleEndian.PutUint32(line[i*4:], w)
	}

	return line
}
