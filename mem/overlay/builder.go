package overlay

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/ocsim/mem/mem"
)

// Builder can build overlay caches.
type Builder struct {
	byteSize   uint64
	numWays    int
	latency    uint64
	compressor Compressor
	repack     bool
}

// MakeBuilder creates a builder for a 32 KB, 8-way cache with a latency of 1
// cycle and no compressor.
func MakeBuilder() Builder {
	return Builder{
		byteSize: 32 * mem.KB,
		numWays:  8,
		latency:  1,
	}
}

// WithByteSize sets the capacity in bytes. It must be a multiple of the line
// size.
func (b Builder) WithByteSize(byteSize uint64) Builder {
	b.byteSize = byteSize
	return b
}

// WithNumWays sets the associativity.
func (b Builder) WithNumWays(numWays int) Builder {
	b.numWays = numWays
	return b
}

// WithLatency sets the number of cycles every operation takes.
func (b Builder) WithLatency(latency uint64) Builder {
	b.latency = latency
	return b
}

// WithCompressor sets the compressor that sizes compressed lines. A cache
// without a compressor only holds unshaped lines.
func (b Builder) WithCompressor(c Compressor) Builder {
	b.compressor = c
	return b
}

// WithRepack enables repacking super-blocks after every compressed insert.
func (b Builder) WithRepack(repack bool) Builder {
	b.repack = repack
	return b
}

// Build creates the cache.
func (b Builder) Build(name string) *Cache {
	if b.byteSize == 0 || b.byteSize%mem.LineSize != 0 {
		panic(fmt.Sprintf("cache size %d is not a multiple of %d",
			b.byteSize, mem.LineSize))
	}

	numLines := int(b.byteSize / mem.LineSize)
	if b.numWays <= 0 || numLines%b.numWays != 0 {
		panic(fmt.Sprintf("%d lines cannot be divided into %d ways",
			numLines, b.numWays))
	}

	numSets := numLines / b.numWays
	if numSets&(numSets-1) != 0 {
		panic(fmt.Sprintf("number of sets %d is not a power of two", numSets))
	}

	c := &Cache{
		name:       name,
		numSets:    numSets,
		numWays:    b.numWays,
		setBits:    uint(bits.TrailingZeros(uint(numSets))),
		latency:    b.latency,
		compressor: b.compressor,
		repack:     b.repack,
		slots:      make([]Slot, numLines),
		lruCounter: 1,
	}

	mask := uint64(numSets - 1)
	c.indexes[mem.ShapeNone] = setIndex{mask << 6, 6, mask, 0}
	c.indexes[mem.Shape4x1] = setIndex{mask << 6, 6, mask << 2, 2}
	c.indexes[mem.Shape1x4] = setIndex{mask << 8, 8, mask, 0}
	c.indexes[mem.Shape2x2] = setIndex{mask << 7, 7, mask << 1, 1}

	return c
}
