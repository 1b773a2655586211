package sizing

import (
	"github.com/sarchlab/ocsim/compression"
	"github.com/sarchlab/ocsim/compression/mbd"
	"github.com/sarchlab/ocsim/mem/mem"
)

// MBDSizer sizes lines with MBD. Hit latency comes from the decode timing
// model of the codec.
type MBDSizer struct {
	src   LineSource
	codec *mbd.Codec
	stats Stats
}

// NewMBDSizer creates an MBD sizer.
func NewMBDSizer(src LineSource, codec *mbd.Codec) *MBDSizer {
	return &MBDSizer{src: src, codec: codec}
}

// Kind returns compression.KindMBD.
func (s *MBDSizer) Kind() compression.Kind {
	return compression.KindMBD
}

// Stats returns the sizing statistics.
func (s *MBDSizer) Stats() Stats {
	return s.stats
}

// Codec returns the codec of the sizer.
func (s *MBDSizer) Codec() *mbd.Codec {
	return s.codec
}

// CompressedSize returns the MBD output length in bytes, capped at the line
// size.
func (s *MBDSizer) CompressedSize(oid, addr uint64, shape mem.Shape) int {
	line := s.src.Insert(oid, addr)
	size := bitsToSize(s.codec.DrySize(&line))
	s.stats.record(size)

	return size
}

// ExtraHitCycles returns the cycles needed to decode the line.
func (s *MBDSizer) ExtraHitCycles(oid, addr uint64, shape mem.Shape) uint64 {
	line := s.src.Insert(oid, addr)
	cycles := s.codec.DecodeCycles(&line)
	s.stats.HitCycles += cycles

	return cycles
}
