// Package mem defines the value types shared by the codecs, the data map and
// the overlay cache.
package mem

import "fmt"

// Line geometry. All codecs operate on exactly one line.
const (
	LineSize = 64
	LineBits = 6
	PageSize = 4096
	PageBits = 12

	LinesPerPage = PageSize / LineSize
)

// Size units.
const (
	KB uint64 = 1 << 10
	MB uint64 = 1 << 20
)

// A Line is the raw, uncompressed content of one cache line.
type Line [LineSize]byte

// IsZero reports whether every byte of the line is zero.
func (l *Line) IsZero() bool {
	for _, b := range l {
		if b != 0 {
			return false
		}
	}

	return true
}

// LineAddr aligns an address down to its cache line.
func LineAddr(addr uint64) uint64 {
	return addr &^ uint64(LineSize-1)
}

// PageAddr aligns an address down to its page.
func PageAddr(addr uint64) uint64 {
	return addr &^ uint64(PageSize-1)
}

// IsLineAligned reports whether addr is the first byte of a line.
func IsLineAligned(addr uint64) bool {
	return addr&uint64(LineSize-1) == 0
}

// MustBeLineAligned panics if addr is not line aligned.
func MustBeLineAligned(addr uint64) {
	if !IsLineAligned(addr) {
		panic(fmt.Sprintf("address must be cache line aligned (see 0x%x)", addr))
	}
}

// MustBePageAligned panics if addr is not page aligned.
func MustBePageAligned(addr uint64) {
	if addr&uint64(PageSize-1) != 0 {
		panic(fmt.Sprintf("address must be page aligned (see 0x%x)", addr))
	}
}
