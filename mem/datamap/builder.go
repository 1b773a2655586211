package datamap

import "fmt"

// Builder can build data maps.
type Builder struct {
	numBuckets int
}

// MakeBuilder creates a builder with 1M buckets.
func MakeBuilder() Builder {
	return Builder{
		numBuckets: 1 << 20,
	}
}

// WithNumBuckets sets the number of hash buckets. It must be a power of two.
func (b Builder) WithNumBuckets(n int) Builder {
	b.numBuckets = n
	return b
}

// Build creates a data map.
func (b Builder) Build(name string) *Map {
	if b.numBuckets <= 0 || b.numBuckets&(b.numBuckets-1) != 0 {
		panic(fmt.Sprintf("number of buckets %d must be a power of two",
			b.numBuckets))
	}

	m := &Map{
		name:    name,
		buckets: make([]handle, b.numBuckets),
		mask:    uint64(b.numBuckets - 1),
	}

	for i := range m.buckets {
		m.buckets[i] = nilHandle
	}

	return m
}
