package sizing

import (
	"github.com/sarchlab/ocsim/compression"
	"github.com/sarchlab/ocsim/compression/cpack"
	"github.com/sarchlab/ocsim/compression/fpc"
	"github.com/sarchlab/ocsim/mem/mem"
)

// StreamSizer sizes lines with a bit-stream codec that has a fixed
// decompression latency.
type StreamSizer struct {
	kind      compression.Kind
	src       LineSource
	drySize   func(line *mem.Line) int
	hitCycles uint64
	stats     Stats
}

// NewFPCSizer creates an FPC sizer.
func NewFPCSizer(src LineSource) *StreamSizer {
	return &StreamSizer{
		kind:      compression.KindFPC,
		src:       src,
		drySize:   fpc.DrySize,
		hitCycles: FPCHitCycles,
	}
}

// NewCPACKSizer creates a CPACK sizer.
func NewCPACKSizer(src LineSource) *StreamSizer {
	return &StreamSizer{
		kind:      compression.KindCPACK,
		src:       src,
		drySize:   cpack.DrySize,
		hitCycles: CPACKHitCycles,
	}
}

// Kind returns the codec of the sizer.
func (s *StreamSizer) Kind() compression.Kind {
	return s.kind
}

// Stats returns the sizing statistics.
func (s *StreamSizer) Stats() Stats {
	return s.stats
}

// CompressedSize returns the length of the codec output in bytes, capped at
// the line size.
func (s *StreamSizer) CompressedSize(oid, addr uint64, shape mem.Shape) int {
	line := s.src.Insert(oid, addr)
	size := bitsToSize(s.drySize(&line))
	s.stats.record(size)

	return size
}

// ExtraHitCycles returns the fixed latency of the codec.
func (s *StreamSizer) ExtraHitCycles(oid, addr uint64, shape mem.Shape) uint64 {
	s.stats.HitCycles += s.hitCycles
	return s.hitCycles
}
