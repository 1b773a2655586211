package overlay

import (
	"sort"

	"github.com/sarchlab/ocsim/mem/mem"
)

type packedLine struct {
	index int
	size  int
	dirty bool
}

// repackSuperBlock gathers the lines of the super-block held at loc from every
// slot of the set and packs them again. Slots keep their LRU stamps. If the
// lines fit in fewer slots, the surplus slots are reset. It returns the new
// position of the line at (loc, index).
func (c *Cache) repackSuperBlock(
	access Access,
	loc Location,
	index int,
) (Location, int) {
	owner := *c.slot(loc)

	var (
		locs  []Location
		lines []packedLine
	)

	for way := 0; way < c.numWays; way++ {
		l := Location{Set: loc.Set, Way: way}
		s := c.slot(l)

		if s.IsEmpty() || s.Shape != owner.Shape ||
			s.OID != owner.OID || s.Addr != owner.Addr {
			continue
		}

		locs = append(locs, l)

		for i := 0; i < mem.SuperBlockSize; i++ {
			if s.Valid[i] {
				lines = append(lines, packedLine{i, s.Sizes[i], s.Dirty[i]})
			}
		}
	}

	if len(locs) < 2 {
		return loc, index
	}

	bins := packLines(alternate(lines))
	if len(bins) >= len(locs) {
		return loc, index
	}

	newLoc := loc

	for k, l := range locs {
		s := c.slot(l)

		if k >= len(bins) {
			s.reset()
			continue
		}

		s.clearLines()

		for _, line := range bins[k] {
			s.setLine(line.index, line.size, line.dirty)

			if line.index == index {
				newLoc = l
			}
		}
	}

	c.stats.Repacks++
	c.stats.RepackedSlots += uint64(len(locs) - len(bins))

	c.invoke(HookPosRepack, access,
		RepackDetail{Set: loc.Set, Before: len(locs), After: len(bins)})

	return newLoc, index
}

// alternate orders lines smallest, largest, second smallest, second largest
// and so on.
func alternate(lines []packedLine) []packedLine {
	sorted := make([]packedLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].size < sorted[j].size
	})

	out := make([]packedLine, 0, len(sorted))
	lo, hi := 0, len(sorted)-1

	for lo <= hi {
		out = append(out, sorted[lo])
		lo++

		if lo <= hi {
			out = append(out, sorted[hi])
			hi--
		}
	}

	return out
}

// packLines fills 64-byte bins in order, opening a new bin when a line does
// not fit in the current one.
func packLines(lines []packedLine) [][]packedLine {
	var (
		bins [][]packedLine
		used int
	)

	for _, line := range lines {
		if len(bins) == 0 || used+line.size > mem.LineSize {
			bins = append(bins, nil)
			used = 0
		}

		bins[len(bins)-1] = append(bins[len(bins)-1], line)
		used += line.size
	}

	return bins
}
