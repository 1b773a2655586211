// Package overlay implements a set-associative cache whose slots hold either
// one uncompressed line or a super-block of up to four compressed lines.
//
// The cache only tracks occupancy. It asks a Compressor for the size of every
// compressed line it admits and never keeps the compressed bytes.
package overlay

import (
	"fmt"
	"strings"

	"github.com/sarchlab/ocsim/instrumentation/hooking"
	"github.com/sarchlab/ocsim/mem/mem"
)

// A Compressor sizes the lines admitted into a cache.
type Compressor interface {
	// CompressedSize returns the size in bytes, in [1, 64], of the line at
	// (oid, addr) when stored under the shape.
	CompressedSize(oid, addr uint64, shape mem.Shape) int

	// ExtraHitCycles returns the decompression latency of a hit on a
	// compressed line.
	ExtraHitCycles(oid, addr uint64, shape mem.Shape) uint64
}

// LookupState is the outcome of a lookup.
type LookupState int

// Lookup outcomes.
const (
	Miss LookupState = iota
	HitNormal
	HitCompressed
)

func (s LookupState) String() string {
	switch s {
	case Miss:
		return "miss"
	case HitNormal:
		return "hit-normal"
	case HitCompressed:
		return "hit-compressed"
	}

	return fmt.Sprintf("LookupState(%d)", int(s))
}

// Candidate is a slot that holds the super-block of a line, with the index the
// line takes in it.
type Candidate struct {
	Loc   Location
	Index int
}

// LookupResult describes where a line is and where it could go.
type LookupResult struct {
	State LookupState
	Loc   Location
	Index int

	// Candidates and LRU are only filled by write lookups (Probe and the
	// lookups that insertions run).
	Candidates []Candidate
	LRU        Location
}

// InsertResult describes an insertion. Loc and Index give the final position
// of the line, after any repacking.
type InsertResult struct {
	Evicted bool
	Victim  Slot
	Loc     Location
	Index   int
	Size    int
}

// InvalidateResult describes an invalidation. Victim is a copy of the whole
// slot before the line was removed and Dirty tells whether the removed line
// needs a write back.
type InvalidateResult struct {
	Hit    bool
	Dirty  bool
	Loc    Location
	Index  int
	Victim Slot
}

type setIndex struct {
	addrMask  uint64
	addrShift uint
	oidMask   uint64
	oidShift  uint
}

// Cache is the overlay cache. It is not safe for concurrent use.
type Cache struct {
	hooking.HookableBase

	name       string
	numSets    int
	numWays    int
	setBits    uint
	latency    uint64
	compressor Compressor
	repack     bool

	indexes    [mem.NumShapes]setIndex
	slots      []Slot
	lruCounter uint64
	stats      Stats
}

// Name returns the name of the cache.
func (c *Cache) Name() string {
	return c.name
}

// NumSets returns the number of sets.
func (c *Cache) NumSets() int {
	return c.numSets
}

// NumWays returns the associativity.
func (c *Cache) NumWays() int {
	return c.numWays
}

// Latency returns the number of cycles every operation takes.
func (c *Cache) Latency() uint64 {
	return c.latency
}

// Slot returns a copy of the slot at loc.
func (c *Cache) Slot(loc Location) Slot {
	return *c.slot(loc)
}

func (c *Cache) slot(loc Location) *Slot {
	if loc.Set < 0 || loc.Set >= c.numSets || loc.Way < 0 || loc.Way >= c.numWays {
		panic(fmt.Sprintf("slot %s out of range", loc))
	}

	return &c.slots[loc.Set*c.numWays+loc.Way]
}

// SetOf returns the set that (oid, addr) maps to under the shape.
func (c *Cache) SetOf(oid, addr uint64, shape mem.Shape) int {
	shape.MustBeValid()

	ix := c.indexes[shape]
	s := ((addr & ix.addrMask) >> ix.addrShift) ^ ((oid & ix.oidMask) >> ix.oidShift)

	return int(s)
}

func (c *Cache) touch(s *Slot) {
	s.LRU = c.lruCounter
	c.lruCounter++
}

func (c *Cache) mustAcceptShape(shape mem.Shape) {
	shape.MustBeValid()

	if shape != mem.ShapeNone && c.compressor == nil {
		panic(fmt.Sprintf("cache %s has no compressor for shape %s",
			c.name, shape))
	}
}

// match checks one slot for (oid, addr). It returns the state and index of a
// hit, and the index the line would take in a shaped slot (-1 if the slot
// does not hold its super-block).
func match(s *Slot, oid, addr uint64) (state LookupState, hitIndex, sbIndex int) {
	if s.Shape == mem.ShapeNone {
		if s.Valid[0] && s.OID == oid && s.Addr == addr {
			return HitNormal, 0, -1
		}

		return Miss, -1, -1
	}

	if s.IsEmpty() {
		return Miss, -1, -1
	}

	i := s.index(oid, addr)
	if i >= 0 && s.Valid[i] {
		return HitCompressed, i, i
	}

	return Miss, -1, i
}

func (c *Cache) lookupRead(oid, addr uint64, shape mem.Shape) LookupResult {
	set := c.SetOf(oid, addr, shape)

	for way := 0; way < c.numWays; way++ {
		loc := Location{Set: set, Way: way}
		s := c.slot(loc)

		state, index, _ := match(s, oid, addr)
		if state == Miss {
			continue
		}

		c.touch(s)

		return LookupResult{State: state, Loc: loc, Index: index}
	}

	return LookupResult{State: Miss, Index: -1}
}

func (c *Cache) lookupWrite(oid, addr uint64, shape mem.Shape) LookupResult {
	set := c.SetOf(oid, addr, shape)
	r := LookupResult{State: Miss, Index: -1, LRU: Location{Set: set}}
	minLRU := c.slot(r.LRU).LRU

	for way := 0; way < c.numWays; way++ {
		loc := Location{Set: set, Way: way}
		s := c.slot(loc)

		state, hitIndex, sbIndex := match(s, oid, addr)
		if state != Miss {
			r.State = state
			r.Loc = loc
			r.Index = hitIndex
		}

		if sbIndex >= 0 {
			r.Candidates = append(r.Candidates, Candidate{Loc: loc, Index: sbIndex})
		}

		if s.LRU < minLRU {
			minLRU = s.LRU
			r.LRU = loc
		}
	}

	return r
}

// Lookup searches for a line as a read does. A hit refreshes the LRU stamp of
// the slot. The returned cycle includes the decompression latency of a
// compressed hit.
func (c *Cache) Lookup(
	now, oid, addr uint64,
	shape mem.Shape,
) (LookupResult, uint64) {
	mem.MustBeLineAligned(addr)
	c.mustAcceptShape(shape)

	r := c.lookupRead(oid, addr, shape)
	done := now + c.latency

	c.stats.Lookups++

	switch r.State {
	case HitNormal:
		c.stats.Hits++
	case HitCompressed:
		c.stats.Hits++
		c.stats.CompressedHits++
		done += c.compressor.ExtraHitCycles(oid, addr, c.slot(r.Loc).Shape)
	default:
		c.stats.Misses++
	}

	c.invoke(HookPosLookup, Access{Cycle: now, OID: oid, Addr: addr, Shape: shape}, r)

	return r, done
}

// Probe searches for a line as a write does. It reports every slot that holds
// the super-block of the line and the LRU slot of the set. It changes
// nothing.
func (c *Cache) Probe(oid, addr uint64, shape mem.Shape) LookupResult {
	mem.MustBeLineAligned(addr)
	c.mustAcceptShape(shape)

	return c.lookupWrite(oid, addr, shape)
}

// Insert places a line in the cache, evicting a slot if needed. At most one
// slot is evicted.
func (c *Cache) Insert(
	now, oid, addr uint64,
	shape mem.Shape,
	dirty bool,
) (InsertResult, uint64) {
	mem.MustBeLineAligned(addr)
	c.mustAcceptShape(shape)

	access := Access{Cycle: now, OID: oid, Addr: addr, Shape: shape, Dirty: dirty}
	r := c.lookupWrite(oid, addr, shape)

	var res InsertResult
	if shape == mem.ShapeNone {
		res = c.insertUncompressed(oid, addr, dirty, r)
	} else {
		res = c.insertCompressed(oid, addr, shape, dirty, r)
	}

	c.stats.Inserts++

	if res.Evicted {
		c.stats.Evictions++
		if res.Victim.IsDirty() {
			c.stats.DirtyEvictions++
		}

		c.invoke(HookPosEvict, access, res.Victim)
	}

	if c.repack && shape != mem.ShapeNone {
		res.Loc, res.Index = c.repackSuperBlock(access, res.Loc, res.Index)
	}

	c.invoke(HookPosInsert, access, res)

	return res, now + c.latency
}

func (c *Cache) insertUncompressed(
	oid, addr uint64,
	dirty bool,
	r LookupResult,
) InsertResult {
	switch r.State {
	case HitCompressed:
		panic(fmt.Sprintf("line (0x%x, 0x%x) is compressed in %s",
			oid, addr, c.name))
	case HitNormal:
		s := c.slot(r.Loc)
		c.touch(s)
		s.Dirty[0] = s.Dirty[0] || dirty

		return InsertResult{Loc: r.Loc, Index: 0, Size: mem.LineSize}
	}

	res := InsertResult{Loc: r.LRU, Index: 0, Size: mem.LineSize}
	s := c.claim(r.LRU, &res)

	s.OID = oid
	s.Addr = addr
	s.setLine(0, mem.LineSize, dirty)
	c.touch(s)

	return res
}

// claim empties the slot at loc, recording its content in res if it held any.
func (c *Cache) claim(loc Location, res *InsertResult) *Slot {
	s := c.slot(loc)

	if !s.IsEmpty() {
		res.Evicted = true
		res.Victim = *s
	}

	s.reset()

	return s
}

func (c *Cache) compressedSize(oid, addr uint64, shape mem.Shape) int {
	size := c.compressor.CompressedSize(oid, addr, shape)
	if size < 1 || size > mem.LineSize {
		panic(fmt.Sprintf("compressed size %d of line (0x%x, 0x%x) out of range",
			size, oid, addr))
	}

	return size
}

func (c *Cache) insertCompressed(
	oid, addr uint64,
	shape mem.Shape,
	dirty bool,
	r LookupResult,
) InsertResult {
	if r.State == HitNormal {
		panic(fmt.Sprintf("line (0x%x, 0x%x) is uncompressed in %s, "+
			"cannot insert it as %s", oid, addr, c.name, shape))
	}

	size := c.compressedSize(oid, addr, shape)

	if r.State == HitCompressed {
		s := c.slot(r.Loc)
		dirty = dirty || s.Dirty[r.Index]
		s.clearIndex(r.Index)

		if s.fits(size) {
			s.setLine(r.Index, size, dirty)
			c.touch(s)

			return InsertResult{Loc: r.Loc, Index: r.Index, Size: size}
		}
	}

	if res, ok := c.admit(shape, dirty, size, r); ok {
		return res
	}

	return c.insertIntoLRU(oid, addr, shape, dirty, size, r)
}

// admit places the line into the first candidate slot with enough room.
func (c *Cache) admit(
	shape mem.Shape,
	dirty bool,
	size int,
	r LookupResult,
) (InsertResult, bool) {
	for _, cand := range r.Candidates {
		s := c.slot(cand.Loc)

		if s.Shape != shape {
			panic(fmt.Sprintf("slot %s has shape %s, cannot hold a %s line",
				cand.Loc, s.Shape, shape))
		}

		if s.Valid[cand.Index] || s.Sizes[cand.Index] != 0 {
			panic(fmt.Sprintf("index %d of candidate slot %s is in use",
				cand.Index, cand.Loc))
		}

		if !s.fits(size) {
			continue
		}

		s.setLine(cand.Index, size, dirty)
		c.touch(s)

		return InsertResult{Loc: cand.Loc, Index: cand.Index, Size: size}, true
	}

	return InsertResult{}, false
}

func (c *Cache) insertIntoLRU(
	oid, addr uint64,
	shape mem.Shape,
	dirty bool,
	size int,
	r LookupResult,
) InsertResult {
	baseOID, baseAddr, index := mem.SuperBlockTag(oid, addr, shape)

	res := InsertResult{Loc: r.LRU, Index: index, Size: size}
	s := c.claim(r.LRU, &res)

	s.OID = baseOID
	s.Addr = baseAddr
	s.Shape = shape
	s.setLine(index, size, dirty)
	c.touch(s)

	return res
}

// Invalidate removes a line. A hit refreshes the LRU stamp of the slot before
// the line is removed, and a slot left without valid lines is reset.
func (c *Cache) Invalidate(
	now, oid, addr uint64,
	shape mem.Shape,
) (InvalidateResult, uint64) {
	mem.MustBeLineAligned(addr)
	c.mustAcceptShape(shape)

	done := now + c.latency

	r := c.lookupRead(oid, addr, shape)
	if r.State == Miss {
		return InvalidateResult{Index: -1}, done
	}

	s := c.slot(r.Loc)
	res := InvalidateResult{
		Hit:    true,
		Dirty:  s.Dirty[r.Index],
		Loc:    r.Loc,
		Index:  r.Index,
		Victim: *s,
	}

	s.clearIndex(r.Index)
	if s.IsEmpty() {
		s.reset()
	}

	c.stats.Invalidations++
	c.invoke(HookPosInvalidate,
		Access{Cycle: now, OID: oid, Addr: addr, Shape: shape}, res)

	return res, done
}

// Downgrade clears the dirty bit of a line without touching its LRU stamp. It
// reports whether the line was found.
func (c *Cache) Downgrade(
	now, oid, addr uint64,
	shape mem.Shape,
) (bool, uint64) {
	mem.MustBeLineAligned(addr)
	c.mustAcceptShape(shape)

	done := now + c.latency

	r := c.lookupWrite(oid, addr, shape)
	if r.State == Miss {
		return false, done
	}

	c.slot(r.Loc).Dirty[r.Index] = false

	c.stats.Downgrades++
	c.invoke(HookPosDowngrade,
		Access{Cycle: now, OID: oid, Addr: addr, Shape: shape}, r)

	return true, done
}

// InvalidateRange resets every slot whose address is in [lo, hi). Both bounds
// must be page aligned. It returns the number of slots reset.
func (c *Cache) InvalidateRange(lo, hi uint64) int {
	mem.MustBePageAligned(lo)
	mem.MustBePageAligned(hi)

	n := 0

	for i := range c.slots {
		s := &c.slots[i]
		if s.IsEmpty() || s.Addr < lo || s.Addr >= hi {
			continue
		}

		s.reset()
		n++
	}

	return n
}

// InvalidateAll resets every slot. It returns the number of slots that held
// lines.
func (c *Cache) InvalidateAll() int {
	n := 0

	for i := range c.slots {
		s := &c.slots[i]
		if s.IsEmpty() {
			continue
		}

		s.reset()
		n++
	}

	return n
}

// MRU returns the most recently used slot of a set.
func (c *Cache) MRU(set int) Location {
	mru := Location{Set: set}
	maxLRU := c.slot(mru).LRU

	for way := 1; way < c.numWays; way++ {
		loc := Location{Set: set, Way: way}
		if lru := c.slot(loc).LRU; lru > maxLRU {
			maxLRU = lru
			mru = loc
		}
	}

	return mru
}

// SetString dumps the slots of a set. Sub-line bits and sizes are listed from
// index 3 down to index 0.
func (c *Cache) SetString(set int) string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "set %d of %s\n", set, c.name)

	for way := 0; way < c.numWays; way++ {
		s := c.slot(Location{Set: set, Way: way})

		valid, dirty := make([]byte, 0, 4), make([]byte, 0, 4)
		sizes := make([]string, 0, 4)

		for i := mem.SuperBlockSize - 1; i >= 0; i-- {
			valid = append(valid, bit(s.Valid[i]))
			dirty = append(dirty, bit(s.Dirty[i]))
			sizes = append(sizes, fmt.Sprint(s.Sizes[i]))
		}

		fmt.Fprintf(&sb,
			"  way %d oid 0x%x addr 0x%x shape %s lru %d valid %s dirty %s sizes %s\n",
			way, s.OID, s.Addr, s.Shape, s.LRU,
			valid, dirty, strings.Join(sizes, " "))
	}

	return sb.String()
}

func bit(b bool) byte {
	if b {
		return '1'
	}

	return '0'
}

// GenAddr returns a line address with the given tag that maps to set under
// the shape when the object id is 0.
func (c *Cache) GenAddr(tag uint64, set int, shape mem.Shape) uint64 {
	shift := uint(mem.LineBits)

	switch shape {
	case mem.Shape2x2:
		shift++
	case mem.Shape1x4:
		shift += 2
	}

	s := uint64(set) & uint64(c.numSets-1)

	return tag<<(shift+c.setBits) | s<<shift
}

// GenAddrWithOID returns a line address with the given tag such that
// (oid, address) maps to set under the shape.
func (c *Cache) GenAddrWithOID(oid, tag uint64, set int, shape mem.Shape) uint64 {
	switch shape {
	case mem.Shape4x1:
		oid >>= 2
	case mem.Shape2x2:
		oid >>= 1
	}

	s := int(oid&uint64(c.numSets-1)) ^ set

	return c.GenAddr(tag, s, shape)
}

func (c *Cache) invoke(pos *hooking.HookPos, item Access, detail interface{}) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
