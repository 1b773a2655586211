package overlay

import (
	"fmt"

	"github.com/sarchlab/ocsim/mem/mem"
)

// Slot is one physical tag entry. An unshaped slot holds one uncompressed
// line at index 0. A shaped slot holds up to 4 compressed lines of one
// super-block and OID/Addr are the base of the super-block.
type Slot struct {
	OID   uint64
	Addr  uint64
	LRU   uint64
	Shape mem.Shape

	Valid [mem.SuperBlockSize]bool
	Dirty [mem.SuperBlockSize]bool
	Sizes [mem.SuperBlockSize]int
}

// Location identifies a slot by set and way.
type Location struct {
	Set int
	Way int
}

func (l Location) String() string {
	return fmt.Sprintf("(%d, %d)", l.Set, l.Way)
}

// IsEmpty reports whether no line is valid in the slot.
func (s Slot) IsEmpty() bool {
	for _, v := range s.Valid {
		if v {
			return false
		}
	}

	return true
}

// NumValid returns the number of valid lines in the slot.
func (s Slot) NumValid() int {
	n := 0

	for _, v := range s.Valid {
		if v {
			n++
		}
	}

	return n
}

// IsDirty reports whether any line in the slot is dirty.
func (s Slot) IsDirty() bool {
	for _, d := range s.Dirty {
		if d {
			return true
		}
	}

	return false
}

// Used returns the number of bytes taken by the lines in the slot.
func (s Slot) Used() int {
	sum := 0
	for _, size := range s.Sizes {
		sum += size
	}

	return sum
}

func (s Slot) fits(size int) bool {
	return s.Used()+size <= mem.LineSize
}

// Lines returns the object id and address of every valid line.
func (s Slot) Lines() (oids, addrs []uint64) {
	for i, v := range s.Valid {
		if !v {
			continue
		}

		oid, addr := mem.AddrInSuperBlock(s.OID, s.Addr, i, s.Shape)
		oids = append(oids, oid)
		addrs = append(addrs, addr)
	}

	return oids, addrs
}

// index returns the position of (oid, addr) in a shaped slot, or -1 if the
// line does not belong to the slot's super-block.
func (s Slot) index(oid, addr uint64) int {
	if s.Shape == mem.ShapeNone {
		return -1
	}

	baseOID, baseAddr, i := mem.SuperBlockTag(oid, addr, s.Shape)
	if baseOID != s.OID || baseAddr != s.Addr {
		return -1
	}

	return i
}

func (s *Slot) clearIndex(i int) {
	mustBeValidIndex(i)

	s.Valid[i] = false
	s.Dirty[i] = false
	s.Sizes[i] = 0
}

func (s *Slot) clearLines() {
	s.Valid = [mem.SuperBlockSize]bool{}
	s.Dirty = [mem.SuperBlockSize]bool{}
	s.Sizes = [mem.SuperBlockSize]int{}
}

func (s *Slot) reset() {
	*s = Slot{}
}

func (s *Slot) setLine(i, size int, dirty bool) {
	mustBeValidIndex(i)

	if size < 1 || size > mem.LineSize {
		panic(fmt.Sprintf("line size %d out of range", size))
	}

	s.Valid[i] = true
	s.Dirty[i] = s.Dirty[i] || dirty
	s.Sizes[i] = size

	if s.Used() > mem.LineSize {
		panic(fmt.Sprintf("slot occupancy %d exceeds %d bytes",
			s.Used(), mem.LineSize))
	}
}

func mustBeValidIndex(i int) {
	if i < 0 || i >= mem.SuperBlockSize {
		panic(fmt.Sprintf("super-block index %d out of range", i))
	}
}
