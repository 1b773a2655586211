// Package dictionary provides the small word dictionary shared by the CPACK
// and MBD codecs.
//
// Entries are addressed by slot index, and an entry never moves once
// written, so an encoder and a decoder that apply the same sequence of
// Insert and Touch calls always agree on every index.
package dictionary

import (
	"fmt"
	"strings"
)

// Policy selects the slot replaced when a full dictionary takes a new word.
type Policy int

// Replacement policies.
const (
	// PolicyFIFO overwrites the oldest slot.
	PolicyFIFO Policy = iota
	// PolicyFIFOReservedZero behaves like PolicyFIFO but never overwrites
	// slot 0 once it holds a word.
	PolicyFIFOReservedZero
	// PolicyLRU overwrites the least recently used slot. An Insert of a word
	// already present promotes it instead of adding a copy.
	PolicyLRU
	numPolicies
)

var policyNames = [numPolicies]string{"fifo", "fifo-reserved-zero", "lru"}

func (p Policy) String() string {
	if p < 0 || p >= numPolicies {
		return fmt.Sprintf("Policy(%d)", int(p))
	}

	return policyNames[p]
}

// ParsePolicy converts a policy name into a Policy.
func ParsePolicy(name string) (Policy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range policyNames {
		if n == s {
			return Policy(i), nil
		}
	}

	return PolicyFIFO, fmt.Errorf("unknown dictionary policy %q", name)
}

// A Dictionary is an ordered set of up to Size 32-bit words.
type Dictionary struct {
	policy  Policy
	entries []uint32
	used    int

	next int // FIFO pointer

	clock uint64
	stamp []uint64 // LRU timestamps
}

// New creates an empty dictionary.
func New(size int, policy Policy) *Dictionary {
	if size <= 0 {
		panic(fmt.Sprintf("dictionary size %d must be positive", size))
	}

	if policy == PolicyFIFOReservedZero && size < 2 {
		panic("a dictionary with a reserved slot needs at least 2 slots")
	}

	if policy < 0 || policy >= numPolicies {
		panic(fmt.Sprintf("unknown dictionary policy %d", int(policy)))
	}

	d := &Dictionary{
		policy:  policy,
		entries: make([]uint32, size),
		stamp:   make([]uint64, size),
	}

	return d
}

// Size returns the capacity.
func (d *Dictionary) Size() int {
	return len(d.entries)
}

// Len returns the number of filled slots.
func (d *Dictionary) Len() int {
	return d.used
}

// Policy returns the replacement policy.
func (d *Dictionary) Policy() Policy {
	return d.policy
}

// Get returns the word in slot i.
func (d *Dictionary) Get(i int) uint32 {
	if i < 0 || i >= d.used {
		panic(fmt.Sprintf("dictionary slot %d out of range [0, %d)", i, d.used))
	}

	return d.entries[i]
}

// Find returns the first slot holding w.
func (d *Dictionary) Find(w uint32) (int, bool) {
	return d.FindMasked(w, 0xFFFFFFFF)
}

// FindMasked returns the first slot whose word equals w on the bits set in
// mask.
func (d *Dictionary) FindMasked(w, mask uint32) (int, bool) {
	for i := 0; i < d.used; i++ {
		if (d.entries[i]^w)&mask == 0 {
			return i, true
		}
	}

	return -1, false
}

// Touch marks slot i as used now. It only matters under PolicyLRU.
func (d *Dictionary) Touch(i int) {
	d.clock++
	d.stamp[i] = d.clock
}

// Insert stores w and returns its slot.
func (d *Dictionary) Insert(w uint32) int {
	if d.policy == PolicyLRU {
		if i, ok := d.Find(w); ok {
			d.Touch(i)
			return i
		}
	}

	i := d.victim()
	d.entries[i] = w
	d.Touch(i)

	if i == d.used {
		d.used++
	}

	return i
}

func (d *Dictionary) victim() int {
	if d.used < len(d.entries) {
		return d.used
	}

	switch d.policy {
	case PolicyLRU:
		v := 0
		for i := 1; i < len(d.stamp); i++ {
			if d.stamp[i] < d.stamp[v] {
				v = i
			}
		}

		return v
	case PolicyFIFOReservedZero:
		if d.next == 0 {
			d.next = 1
		}

		fallthrough
	default:
		v := d.next
		d.next = (d.next + 1) % len(d.entries)

		return v
	}
}

// Reset empties the dictionary.
func (d *Dictionary) Reset() {
	d.used = 0
	d.next = 0
	d.clock = 0

	for i := range d.entries {
		d.entries[i] = 0
		d.stamp[i] = 0
	}
}

// Entries returns a copy of the filled slots in slot order.
func (d *Dictionary) Entries() []uint32 {
	out := make([]uint32, d.used)
	copy(out, d.entries[:d.used])

	return out
}
