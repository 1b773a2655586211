package sizing

import (
	"github.com/sarchlab/ocsim/compression"
	"github.com/sarchlab/ocsim/compression/bdi"
	"github.com/sarchlab/ocsim/mem/mem"
)

// VerticalStats follows a line through BDI and then vertical compression
// against the base line of its super-block.
type VerticalStats struct {
	Attempts   uint64
	BDISuccess uint64
	BDIBefore  uint64
	BDIAfter   uint64

	InCompressed uint64
	NotBase      uint64
	BaseFound    uint64
	SameType     uint64

	VerticalSuccess uint64
	VerticalBefore  uint64
	VerticalAfter   uint64
}

// BDISizer sizes lines with BDI and, when the base line of the super-block
// has the same BDI type, with vertical compression.
type BDISizer struct {
	src      LineSource
	stats    Stats
	vertical VerticalStats
}

// NewBDISizer creates a BDI sizer.
func NewBDISizer(src LineSource) *BDISizer {
	return &BDISizer{src: src}
}

// Kind returns compression.KindBDI.
func (s *BDISizer) Kind() compression.Kind {
	return compression.KindBDI
}

// Stats returns the sizing statistics.
func (s *BDISizer) Stats() Stats {
	return s.stats
}

// VerticalStats returns the vertical compression statistics.
func (s *BDISizer) VerticalStats() VerticalStats {
	return s.vertical
}

// CompressedSize returns the BDI size of the line, or the vertical size if it
// is smaller. Incompressible lines take a whole slot.
func (s *BDISizer) CompressedSize(oid, addr uint64, shape mem.Shape) int {
	size := s.size(oid, addr, shape)
	s.stats.record(size)

	return size
}

func (s *BDISizer) size(oid, addr uint64, shape mem.Shape) int {
	v := &s.vertical
	v.Attempts++

	line := s.src.Insert(oid, addr)

	t, in := bdi.CompressBest(&line)
	if t == bdi.TypeInvalid {
		return mem.LineSize
	}

	p := bdi.ParamOf(t)
	v.BDISuccess++
	v.BDIBefore += mem.LineSize
	v.BDIAfter += uint64(p.CompressedSize)
	v.InCompressed++

	if shape == mem.ShapeNone {
		return p.CompressedSize
	}

	baseOID := mem.VerticalBaseOID(oid, shape)
	if baseOID == oid {
		return p.CompressedSize
	}

	v.NotBase++

	baseType, base := s.src.FindCompressed(baseOID, addr)
	if baseType == bdi.TypeNotFound {
		return p.CompressedSize
	}

	v.BaseFound++

	if baseType != t {
		return p.CompressedSize
	}

	v.SameType++

	vertical := bdi.VerticalSize(base, in, t)
	if vertical >= p.CompressedSize {
		return p.CompressedSize
	}

	v.VerticalSuccess++
	v.VerticalBefore += uint64(p.CompressedSize)
	v.VerticalAfter += uint64(vertical)

	return vertical
}

// ExtraHitCycles returns BDIHitCycles.
func (s *BDISizer) ExtraHitCycles(oid, addr uint64, shape mem.Shape) uint64 {
	s.stats.HitCycles += BDIHitCycles
	return BDIHitCycles
}
