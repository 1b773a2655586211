package sizing

import (
	"github.com/sarchlab/ocsim/compression"
	"github.com/sarchlab/ocsim/mem/mem"
)

// NoneSizer stores every line uncompressed.
type NoneSizer struct {
	stats Stats
}

// Kind returns compression.KindNone.
func (s *NoneSizer) Kind() compression.Kind {
	return compression.KindNone
}

// CompressedSize always returns the line size.
func (s *NoneSizer) CompressedSize(oid, addr uint64, shape mem.Shape) int {
	s.stats.record(mem.LineSize)
	return mem.LineSize
}

// ExtraHitCycles is always 0.
func (s *NoneSizer) ExtraHitCycles(oid, addr uint64, shape mem.Shape) uint64 {
	return 0
}

// Stats returns the sizing statistics.
func (s *NoneSizer) Stats() Stats {
	return s.stats
}
