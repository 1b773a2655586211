// Package bdi implements base-delta-immediate compression of a cache line.
//
// A line is split into words of WordSize bytes. Words whose high bits are a
// sign extension of their low TargetSize bytes are stored as immediates and
// flagged in a bitmap. The first other word becomes the base, and every later
// word must be within a TargetSize delta of it. The encoded line is
//
//	[bitmap][base][64/WordSize values of TargetSize bytes]
//
// with the bitmap and base each sized by WordSize.
package bdi

import "fmt"

// Type identifies a BDI parameter set in encoded form.
type Type int

// Type values. Values below TypeBegin are reserved for non-BDI encodings.
const (
	TypeNotFound Type = -2
	TypeInvalid  Type = -1

	TypeBegin Type = 2
	Type8x1   Type = 2
	Type8x2   Type = 3
	Type8x4   Type = 4
	Type4x1   Type = 5
	Type4x2   Type = 6
	Type2x1   Type = 7
	TypeEnd   Type = 8
)

// IsValid reports whether t names a BDI parameter set.
func (t Type) IsValid() bool {
	return t >= TypeBegin && t < TypeEnd
}

func (t Type) String() string {
	switch t {
	case TypeNotFound:
		return "NotFound"
	case TypeInvalid:
		return "Invalid"
	}

	if !t.IsValid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}

	p := ParamOf(t)

	return fmt.Sprintf("BDI-%d-%d", p.WordSize, p.TargetSize)
}

// A Param describes one (word size, target size) scheme.
type Param struct {
	Type           Type
	WordSize       int // bytes per input word
	TargetSize     int // bytes per stored delta or immediate
	CompressedSize int // bytes of the whole encoding
	BitmapSize     int // bytes of the small-value bitmap
	BodyOffset     int // offset of the packed values

	// HighMask covers the bits of a word that must all be zero or all be one
	// for the word to fit in TargetSize bytes. It includes the target's sign
	// bit and nothing above WordSize.
	HighMask uint64
}

// NumWords returns the number of input words of a line.
func (p Param) NumWords() int {
	return 64 / p.WordSize
}

func (p Param) isSmall(v uint64) bool {
	m := v & p.HighMask
	return m == 0 || m == p.HighMask
}

var params = [TypeEnd]Param{
	Type8x1: {Type8x1, 8, 1, 17, 1, 9, 0xFFFFFFFFFFFFFF80},
	Type8x2: {Type8x2, 8, 2, 25, 1, 9, 0xFFFFFFFFFFFF8000},
	Type8x4: {Type8x4, 8, 4, 41, 1, 9, 0xFFFFFFFF80000000},
	Type4x1: {Type4x1, 4, 1, 22, 2, 6, 0x00000000FFFFFF80},
	Type4x2: {Type4x2, 4, 2, 38, 2, 6, 0x00000000FFFF8000},
	Type2x1: {Type2x1, 2, 1, 38, 4, 6, 0x000000000000FF80},
}

// order is the priority in which schemes are attempted.
var order = [...]Type{Type8x1, Type4x1, Type8x2, Type4x2, Type2x1, Type8x4}

// ParamOf returns the parameter set of t. It panics if t is not a BDI type.
func ParamOf(t Type) Param {
	if !t.IsValid() {
		panic(fmt.Sprintf("%d is not a BDI type", int(t)))
	}

	return params[t]
}

// Order returns the parameter sets in the order Compress tries them.
func Order() []Param {
	ps := make([]Param, 0, len(order))
	for _, t := range order {
		ps = append(ps, params[t])
	}

	return ps
}
