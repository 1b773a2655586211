package overlay

import "github.com/sarchlab/ocsim/mem/mem"

// Stats counts cache events. The occupancy fields are only current after
// RefreshStats.
type Stats struct {
	Lookups        uint64
	Hits           uint64
	CompressedHits uint64
	Misses         uint64
	Inserts        uint64
	Evictions      uint64
	DirtyEvictions uint64
	Invalidations  uint64
	Downgrades     uint64
	Repacks        uint64
	RepackedSlots  uint64

	ValidLines        uint64
	UncompressedLines uint64
	SuperBlocks       uint64
	SuperBlockLines   uint64
	ShapeCounts       [mem.NumShapes]uint64
}

// HitRate returns hits over lookups.
func (s Stats) HitRate() float64 {
	if s.Lookups == 0 {
		return 0
	}

	return float64(s.Hits) / float64(s.Lookups)
}

// LinesPerSuperBlock returns the average number of valid lines in a shaped
// slot.
func (s Stats) LinesPerSuperBlock() float64 {
	if s.SuperBlocks == 0 {
		return 0
	}

	return float64(s.SuperBlockLines) / float64(s.SuperBlocks)
}

// Stats returns the counters.
func (c *Cache) Stats() Stats {
	return c.stats
}

// ResetStats clears the event counters and the occupancy census.
func (c *Cache) ResetStats() {
	c.stats = Stats{}
}

// RefreshStats recounts the lines held by the cache.
func (c *Cache) RefreshStats() Stats {
	st := &c.stats
	st.ValidLines = 0
	st.UncompressedLines = 0
	st.SuperBlocks = 0
	st.SuperBlockLines = 0
	st.ShapeCounts = [mem.NumShapes]uint64{}

	for i := range c.slots {
		s := &c.slots[i]
		if s.IsEmpty() {
			continue
		}

		if s.Shape == mem.ShapeNone {
			st.ValidLines++
			st.UncompressedLines++
			st.ShapeCounts[mem.ShapeNone]++

			continue
		}

		n := uint64(s.NumValid())
		st.ValidLines += n
		st.SuperBlocks++
		st.SuperBlockLines += n
		st.ShapeCounts[s.Shape]++
	}

	return c.stats
}
