package datamap

import (
	"fmt"

	"github.com/sarchlab/ocsim/mem/mem"
)

// PageMap records the super-block shape of every 4 KB page. Records share
// the table of a Map under PageOID.
type PageMap struct {
	m            *Map
	defaultShape mem.Shape
}

// NewPageMap creates a page map stored in m. Pages without a record have the
// default shape.
func NewPageMap(m *Map, defaultShape mem.Shape) *PageMap {
	defaultShape.MustBeValid()

	return &PageMap{m: m, defaultShape: defaultShape}
}

// DefaultShape returns the shape of pages without a record.
func (p *PageMap) DefaultShape() mem.Shape {
	return p.defaultShape
}

// SetDefaultShape changes the shape of pages without a record.
func (p *PageMap) SetDefaultShape(s mem.Shape) {
	s.MustBeValid()
	p.defaultShape = s
}

// Shape returns the shape of the page that contains addr.
func (p *PageMap) Shape(addr uint64) mem.Shape {
	h := p.m.find(PageOID, mem.PageAddr(addr))
	if h == nilHandle {
		return p.defaultShape
	}

	return p.m.arena[h].shape
}

// Insert creates the record of the page that contains addr with the default
// shape, if there is none, and returns the shape of the page.
func (p *PageMap) Insert(addr uint64) mem.Shape {
	h, created := p.m.insert(PageOID, mem.PageAddr(addr), payloadPage)
	if created {
		p.m.arena[h].shape = p.defaultShape
	}

	return p.m.arena[h].shape
}

// Set records the shape of the page that contains addr.
func (p *PageMap) Set(addr uint64, s mem.Shape) {
	s.MustBeValid()

	h, _ := p.m.insert(PageOID, mem.PageAddr(addr), payloadPage)
	p.m.arena[h].shape = s
}

// InsertRange sets the shape of every page that overlaps [addr, addr+size).
func (p *PageMap) InsertRange(addr, size uint64, s mem.Shape) {
	if size == 0 {
		panic(fmt.Sprintf("empty page range at 0x%x", addr))
	}

	first := mem.PageAddr(addr)
	last := mem.PageAddr(addr + size - 1)

	for page := first; ; page += mem.PageSize {
		p.Set(page, s)

		if page == last {
			break
		}
	}
}

// Remove drops the record of the page that contains addr.
func (p *PageMap) Remove(addr uint64) bool {
	h := p.m.find(PageOID, mem.PageAddr(addr))
	if h == nilHandle {
		return false
	}

	p.m.remove(h)

	return true
}

// Len returns the number of page records.
func (p *PageMap) Len() int {
	return int(p.m.stats.Pages)
}
