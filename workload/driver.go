package workload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sarchlab/ocsim/mem/datamap"
	"github.com/sarchlab/ocsim/mem/mem"
	"github.com/sarchlab/ocsim/mem/overlay"
)

// Stats counts what a driver did.
type Stats struct {
	Loads      uint64
	Stores     uint64
	LoadMisses uint64
	Writebacks uint64
	Cycles     uint64
}

// Progress is told about every finished record.
type Progress interface {
	IncrementFinished(amount uint64)
}

// Driver feeds accesses to one overlay cache, one at a time. Each access is
// issued when the previous one completes.
type Driver struct {
	cache         *overlay.Cache
	data          *datamap.Map
	pages         *datamap.PageMap
	memoryLatency uint64
	progress      Progress

	now   atomic.Uint64
	stats Stats

	pauseLock sync.Mutex
	paused    bool
	resumed   *sync.Cond
}

// DriverBuilder builds drivers.
type DriverBuilder struct {
	data          *datamap.Map
	pages         *datamap.PageMap
	memoryLatency uint64
	progress      Progress
}

// MakeDriverBuilder creates a builder with a memory latency of 100 cycles.
func MakeDriverBuilder() DriverBuilder {
	return DriverBuilder{memoryLatency: 100}
}

// WithDataMap sets the map that holds the content of the lines. It must be
// the map the sizer of the cache reads.
func (b DriverBuilder) WithDataMap(m *datamap.Map) DriverBuilder {
	b.data = m
	return b
}

// WithPageMap sets the map that gives the shape of every page. Without a page
// map, every line is accessed uncompressed.
func (b DriverBuilder) WithPageMap(p *datamap.PageMap) DriverBuilder {
	b.pages = p
	return b
}

// WithMemoryLatency sets the cycles a miss waits for the memory.
func (b DriverBuilder) WithMemoryLatency(cycles uint64) DriverBuilder {
	b.memoryLatency = cycles
	return b
}

// WithProgress sets the tracker of finished records.
func (b DriverBuilder) WithProgress(p Progress) DriverBuilder {
	b.progress = p
	return b
}

// Build creates a driver of the cache.
func (b DriverBuilder) Build(cache *overlay.Cache) *Driver {
	if b.data == nil {
		panic("a driver needs a data map")
	}

	d := &Driver{
		cache:         cache,
		data:          b.data,
		pages:         b.pages,
		memoryLatency: b.memoryLatency,
		progress:      b.progress,
	}
	d.resumed = sync.NewCond(&d.pauseLock)

	return d
}

// Cache returns the cache being driven.
func (d *Driver) Cache() *overlay.Cache {
	return d.cache
}

// Stats returns the counters.
func (d *Driver) Stats() Stats {
	s := d.stats
	s.Cycles = d.now.Load()

	return s
}

// CurrentCycle returns the cycle at which the next access issues.
func (d *Driver) CurrentCycle() uint64 {
	return d.now.Load()
}

// Pause blocks the next Step until Continue is called.
func (d *Driver) Pause() {
	d.pauseLock.Lock()
	defer d.pauseLock.Unlock()

	d.paused = true
}

// Continue releases a paused driver.
func (d *Driver) Continue() {
	d.pauseLock.Lock()
	defer d.pauseLock.Unlock()

	d.paused = false
	d.resumed.Broadcast()
}

func (d *Driver) waitIfPaused() {
	d.pauseLock.Lock()
	defer d.pauseLock.Unlock()

	for d.paused {
		d.resumed.Wait()
	}
}

func (d *Driver) shapeOf(addr uint64) mem.Shape {
	if d.pages == nil {
		return mem.ShapeNone
	}

	return d.pages.Shape(addr)
}

// Step performs one access and returns the cycle it completes. A load looks
// the line up and fills it from memory on a miss. A store updates the data
// and inserts the line dirty.
func (d *Driver) Step(rec Record) uint64 {
	d.waitIfPaused()

	now := d.now.Load()
	addr := mem.LineAddr(rec.Addr)
	shape := d.shapeOf(addr)

	var done uint64

	switch rec.Op {
	case OpLoad:
		d.stats.Loads++

		var r overlay.LookupResult

		r, done = d.cache.Lookup(now, rec.OID, addr, shape)
		if r.State == overlay.Miss {
			d.stats.LoadMisses++
			done = d.insert(done+d.memoryLatency, rec.OID, addr, shape, false)
		}
	case OpStore:
		d.stats.Stores++

		if len(rec.Data) > 0 {
			d.data.Write(rec.OID, rec.Addr, rec.Data)
		} else {
			d.data.Insert(rec.OID, addr)
		}

		done = d.insert(now, rec.OID, addr, shape, true)
	default:
		panic(fmt.Sprintf("unknown operation %s", rec.Op))
	}

	d.now.Store(done)

	if d.progress != nil {
		d.progress.IncrementFinished(1)
	}

	return done
}

func (d *Driver) insert(now, oid, addr uint64, shape mem.Shape, dirty bool) uint64 {
	res, done := d.cache.Insert(now, oid, addr, shape, dirty)
	if res.Evicted && res.Victim.IsDirty() {
		d.stats.Writebacks++
	}

	return done
}

// Run steps through every record of the source. It stops early if the
// context is cancelled.
func (d *Driver) Run(ctx context.Context, src Source) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read workload: %w", err)
		}

		d.Step(rec)
	}
}
