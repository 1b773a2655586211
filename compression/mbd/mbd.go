// Package mbd implements multi-base delta compression of a cache line.
//
// Like C-Pack, each 32-bit word is coded against a dictionary that starts
// empty for every line. A word is coded as zero, as an exact match, as a
// signed delta of 4, 8, 12 or 16 bits from an entry, or raw:
//
//	tag 0                         zero
//	tag 1, index                  exact match
//	tag 2, width, index, delta    delta from an entry
//	tag 3, 32 bits                raw word
//
// Tags and width selectors are 2 bits. The index width comes from Config.
// Every non-zero word is inserted into the dictionary after it is coded.
package mbd

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/ocsim/compression/bitpack"
	"github.com/sarchlab/ocsim/compression/dictionary"
	"github.com/sarchlab/ocsim/mem/mem"
)

const wordsInLine = mem.LineSize / 4

// Kind identifies the code of a word.
type Kind int

// Code kinds, equal to their tags.
const (
	KindZero Kind = iota
	KindExact
	KindDelta
	KindRaw
)

var kindNames = [...]string{"zero", "exact", "delta", "raw"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}

	return kindNames[k]
}

// DeltaWidths are the delta widths in bits, indexed by the width selector.
var DeltaWidths = [4]int{4, 8, 12, 16}

// A Code is one encoded word.
type Code struct {
	Kind  Kind
	Index int   // dictionary slot of exact and delta codes
	Width int   // delta width in bits
	Delta int32 // word minus the entry
	Raw   uint32

	// Producer is the position in the line of the code that wrote the
	// referenced slot, or -1.
	Producer int
}

// A Codec compresses lines with one configuration.
type Codec struct {
	cfg   Config
	timer Timer
}

// New creates a codec. It panics if the configuration is invalid.
func New(cfg Config) *Codec {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	return &Codec{cfg: cfg, timer: NewTimer(cfg)}
}

// Config returns the configuration of the codec.
func (c *Codec) Config() Config {
	return c.cfg
}

// NewDictionary returns the empty dictionary a line starts with.
func (c *Codec) NewDictionary() *dictionary.Dictionary {
	return dictionary.New(c.cfg.DictSize, c.cfg.Policy)
}

// Bits returns the encoded length of code.
func (c *Codec) Bits(code Code) int {
	switch code.Kind {
	case KindZero:
		return 2
	case KindExact:
		return 2 + c.cfg.IndexBits
	case KindDelta:
		return 4 + c.cfg.IndexBits + code.Width
	case KindRaw:
		return 34
	default:
		panic(fmt.Sprintf("unknown MBD code kind %d", int(code.Kind)))
	}
}

func fitsSigned(d int32, bits int) bool {
	limit := int32(1) << (bits - 1)
	return d >= -limit && d < limit
}

// search finds the best code for a non-zero w.
func search(d *dictionary.Dictionary, w uint32) Code {
	if i, ok := d.Find(w); ok {
		return Code{Kind: KindExact, Index: i}
	}

	entries := d.Entries()
	for _, width := range DeltaWidths {
		for i, e := range entries {
			delta := int32(w - e)
			if fitsSigned(delta, width) {
				return Code{Kind: KindDelta, Index: i, Width: width, Delta: delta}
			}
		}
	}

	return Code{Kind: KindRaw, Raw: w}
}

// lineCoder carries the dictionary state shared by the encoder and the
// decoder of one line.
type lineCoder struct {
	dict      *dictionary.Dictionary
	producers []int
}

func (c *Codec) newLineCoder() *lineCoder {
	lc := &lineCoder{
		dict:      c.NewDictionary(),
		producers: make([]int, c.cfg.DictSize),
	}

	for i := range lc.producers {
		lc.producers[i] = -1
	}

	return lc
}

// commit records the code at position k and inserts its word.
func (lc *lineCoder) commit(k int, code *Code, w uint32) {
	code.Producer = -1
	if code.Kind == KindExact || code.Kind == KindDelta {
		code.Producer = lc.producers[code.Index]
	}

	if code.Kind == KindZero {
		return
	}

	slot := lc.dict.Insert(w)
	if code.Kind != KindExact || slot != code.Index {
		lc.producers[slot] = k
	}
}

// Encode returns the code of every word of the line.
func (c *Codec) Encode(line *mem.Line) []Code {
	lc := c.newLineCoder()
	codes := make([]Code, wordsInLine)

	for k := range codes {
		w := binary.LittleEndian.Uint32(line[k*4:])

		code := Code{Kind: KindZero}
		if w != 0 {
			code = search(lc.dict, w)
		}

		lc.commit(k, &code, w)
		codes[k] = code
	}

	return codes
}

func (c *Codec) maxBits() int {
	return wordsInLine * 34
}

func widthSelector(width int) uint64 {
	for i, w := range DeltaWidths {
		if w == width {
			return uint64(i)
		}
	}

	panic(fmt.Sprintf("unsupported MBD delta width %d", width))
}

// Compress encodes the line and returns the packed stream and its length in
// bits.
func (c *Codec) Compress(line *mem.Line) ([]uint64, int) {
	w := bitpack.NewWriter(c.maxBits())

	for _, code := range c.Encode(line) {
		w.Write(uint64(code.Kind), 2)

		switch code.Kind {
		case KindExact:
			w.Write(uint64(code.Index), c.cfg.IndexBits)
		case KindDelta:
			w.Write(widthSelector(code.Width), 2)
			w.Write(uint64(code.Index), c.cfg.IndexBits)
			w.Write(uint64(uint32(code.Delta)), code.Width)
		case KindRaw:
			w.Write(uint64(code.Raw), 32)
		}
	}

	return w.Words(), w.Len()
}

// DrySize returns the bit length Compress would produce.
func (c *Codec) DrySize(line *mem.Line) int {
	bits := 0
	for _, code := range c.Encode(line) {
		bits += c.Bits(code)
	}

	return bits
}

func signExtend(v uint64, bits int) int32 {
	shift := 64 - bits
	return int32(int64(v<<shift) >> shift)
}

// Decode reads the codes of one line back from a stream and returns the line
// together with the codes.
func (c *Codec) Decode(stream []uint64) (mem.Line, []Code) {
	var line mem.Line

	lc := c.newLineCoder()
	r := bitpack.NewReader(stream)
	codes := make([]Code, wordsInLine)

	for k := range codes {
		code := Code{Kind: Kind(r.Read(2))}

		var w uint32

		switch code.Kind {
		case KindExact:
			code.Index = int(r.Read(c.cfg.IndexBits))
			w = lc.dict.Get(code.Index)
		case KindDelta:
			code.Width = DeltaWidths[r.Read(2)]
			code.Index = int(r.Read(c.cfg.IndexBits))
			code.Delta = signExtend(r.Read(code.Width), code.Width)
			w = lc.dict.Get(code.Index) + uint32(code.Delta)
		case KindRaw:
			code.Raw = uint32(r.Read(32))
			w = code.Raw
		}

		lc.commit(k, &code, w)
		codes[k] = code

		binary.LittleEndian.PutUint32(line[k*4:], w)
	}

	return line, codes
}

// Decompress restores a line from a stream produced by Compress.
func (c *Codec) Decompress(stream []uint64) mem.Line {
	line, _ := c.Decode(stream)
	return line
}

// DecodeCycles returns the cycles needed to decode the line under the
// configured timing model.
func (c *Codec) DecodeCycles(line *mem.Line) uint64 {
	if c.cfg.Throughput == 0 {
		return 0
	}

	return c.timer.Cycles(c.Encode(line))
}
