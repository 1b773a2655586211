// Package datamap keeps the canonical uncompressed content of every line the
// cache may hold, keyed by (object id, address).
//
// Entries live in an arena and are chained per hash bucket through arena
// indices. A lookup that hits moves the entry to the head of its chain.
package datamap

import (
	"errors"
	"fmt"

	"github.com/sarchlab/ocsim/compression/bdi"
	"github.com/sarchlab/ocsim/mem/mem"
)

// ErrNotFound is returned when no line is stored for an (object id, address)
// pair.
var ErrNotFound = errors.New("line not found in data map")

// PageOID is the object id reserved for page records.
const PageOID = ^uint64(0)

type handle int32

const nilHandle handle = -1

type payloadKind uint8

const (
	payloadFree payloadKind = iota
	payloadLine
	payloadPage
)

// entry is one arena record. The payload is either a line or the shape of a
// page, selected by kind.
type entry struct {
	oid  uint64
	addr uint64

	prev, next handle
	kind       payloadKind

	line  mem.Line
	shape mem.Shape
}

// Stats summarizes the table.
type Stats struct {
	Lines      uint64
	Pages      uint64
	Queries    uint64
	Iterations uint64
}

// AvgProbe returns the average number of chain entries visited per query.
func (s Stats) AvgProbe() float64 {
	if s.Queries == 0 {
		return 0
	}

	return float64(s.Iterations) / float64(s.Queries)
}

// Map is the data map.
type Map struct {
	name    string
	buckets []handle
	mask    uint64
	arena   []entry
	free    []handle
	stats   Stats
}

// Name returns the name of the map.
func (m *Map) Name() string {
	return m.name
}

func hash64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33

	return x
}

func (m *Map) bucket(oid, addr uint64) uint64 {
	return (hash64(oid) ^ hash64(addr)) & m.mask
}

// find walks the chain of (oid, addr) and moves a hit to the head.
func (m *Map) find(oid, addr uint64) handle {
	b := m.bucket(oid, addr)
	head := m.buckets[b]
	iter := uint64(0)

	cur := head
	for cur != nilHandle {
		iter++

		e := &m.arena[cur]
		if e.oid == oid && e.addr == addr {
			if cur != head {
				m.unlink(cur)
				m.pushFront(b, cur)
			}

			break
		}

		cur = e.next
	}

	m.stats.Iterations += iter
	m.stats.Queries++

	return cur
}

func (m *Map) unlink(h handle) {
	e := &m.arena[h]

	if e.prev != nilHandle {
		m.arena[e.prev].next = e.next
	} else {
		m.buckets[m.bucket(e.oid, e.addr)] = e.next
	}

	if e.next != nilHandle {
		m.arena[e.next].prev = e.prev
	}

	e.prev = nilHandle
	e.next = nilHandle
}

func (m *Map) pushFront(b uint64, h handle) {
	head := m.buckets[b]

	e := &m.arena[h]
	e.prev = nilHandle
	e.next = head

	if head != nilHandle {
		m.arena[head].prev = h
	}

	m.buckets[b] = h
}

func (m *Map) alloc() handle {
	if n := len(m.free); n > 0 {
		h := m.free[n-1]
		m.free = m.free[:n-1]

		return h
	}

	m.arena = append(m.arena, entry{})

	return handle(len(m.arena) - 1)
}

// insert finds or creates the record of (oid, addr).
func (m *Map) insert(oid, addr uint64, kind payloadKind) (handle, bool) {
	if h := m.find(oid, addr); h != nilHandle {
		return h, false
	}

	h := m.alloc()
	m.arena[h] = entry{oid: oid, addr: addr, kind: kind}
	m.pushFront(m.bucket(oid, addr), h)

	switch kind {
	case payloadLine:
		m.stats.Lines++
	case payloadPage:
		m.stats.Pages++
	}

	return h, true
}

func (m *Map) remove(h handle) {
	e := &m.arena[h]

	switch e.kind {
	case payloadLine:
		m.stats.Lines--
	case payloadPage:
		m.stats.Pages--
	}

	m.unlink(h)
	*e = entry{prev: nilHandle, next: nilHandle}
	m.free = append(m.free, h)
}

func mustBeLineKey(oid, addr uint64) {
	if oid == PageOID {
		panic(fmt.Sprintf("object id 0x%x is reserved for pages", oid))
	}

	mem.MustBeLineAligned(addr)
}

// Find returns a copy of the line at (oid, addr).
func (m *Map) Find(oid, addr uint64) (mem.Line, error) {
	mustBeLineKey(oid, addr)

	h := m.find(oid, addr)
	if h == nilHandle {
		return mem.Line{}, ErrNotFound
	}

	return m.arena[h].line, nil
}

// Contains reports whether a line is stored at (oid, addr). It does not
// reorder chains or count as a query.
func (m *Map) Contains(oid, addr uint64) bool {
	mustBeLineKey(oid, addr)

	for cur := m.buckets[m.bucket(oid, addr)]; cur != nilHandle; cur = m.arena[cur].next {
		if m.arena[cur].oid == oid && m.arena[cur].addr == addr {
			return true
		}
	}

	return false
}

// Insert returns the line at (oid, addr), creating a zero line if there is
// none.
func (m *Map) Insert(oid, addr uint64) mem.Line {
	mustBeLineKey(oid, addr)

	h, _ := m.insert(oid, addr, payloadLine)

	return m.arena[h].line
}

// Store sets the content of the line at (oid, addr), creating it if needed.
func (m *Map) Store(oid, addr uint64, line *mem.Line) {
	mustBeLineKey(oid, addr)

	h, _ := m.insert(oid, addr, payloadLine)
	m.arena[h].line = *line
}

// Evict drops the line at (oid, addr). It reports whether a line was there.
func (m *Map) Evict(oid, addr uint64) bool {
	mustBeLineKey(oid, addr)

	h := m.find(oid, addr)
	if h == nilHandle {
		return false
	}

	m.remove(h)

	return true
}

// FindCompressed BDI-compresses the line at (oid, addr). It returns
// bdi.TypeNotFound if there is no line and bdi.TypeInvalid if the line is not
// compressible. The buffer is nil in both cases.
func (m *Map) FindCompressed(oid, addr uint64) (bdi.Type, []byte) {
	line, err := m.Find(oid, addr)
	if err != nil {
		return bdi.TypeNotFound, nil
	}

	return bdi.CompressBest(&line)
}

// access copies between buf and the span starting at addr. Missing lines are
// created.
func (m *Map) access(oid, addr uint64, buf []byte, write bool) {
	if oid == PageOID {
		panic(fmt.Sprintf("object id 0x%x is reserved for pages", oid))
	}

	lineAddr := mem.LineAddr(addr)
	offset := int(addr - lineAddr)

	for len(buf) > 0 {
		h, _ := m.insert(oid, lineAddr, payloadLine)
		data := m.arena[h].line[offset:]

		var n int
		if write {
			n = copy(data, buf)
		} else {
			n = copy(buf, data)
		}

		buf = buf[n:]
		lineAddr += mem.LineSize
		offset = 0
	}
}

// Read fills buf from the bytes at addr of object oid. The span may be
// unaligned and may cross lines.
func (m *Map) Read(oid, addr uint64, buf []byte) {
	m.access(oid, addr, buf, false)
}

// Write copies buf to the bytes at addr of object oid.
func (m *Map) Write(oid, addr uint64, buf []byte) {
	m.access(oid, addr, buf, true)
}

// Len returns the number of lines stored.
func (m *Map) Len() int {
	return int(m.stats.Lines)
}

// Stats returns the table statistics.
func (m *Map) Stats() Stats {
	return m.stats
}

// Reset drops every record and clears the statistics.
func (m *Map) Reset() {
	for i := range m.buckets {
		m.buckets[i] = nilHandle
	}

	m.arena = m.arena[:0]
	m.free = m.free[:0]
	m.stats = Stats{}
}

// Each calls fn for every stored line until fn returns false. The order is
// unspecified.
func (m *Map) Each(fn func(oid, addr uint64, line *mem.Line) bool) {
	for i := range m.arena {
		e := &m.arena[i]
		if e.kind != payloadLine {
			continue
		}

		if !fn(e.oid, e.addr, &e.line) {
			return
		}
	}
}
