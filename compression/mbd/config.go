package mbd

import (
	"fmt"
	"strings"

	"github.com/sarchlab/ocsim/compression/dictionary"
)

// TimingModel selects how decode latency is accounted.
type TimingModel int

// Timing models.
const (
	TimingSerial TimingModel = iota
	TimingStall
	TimingForwarding
	numTimingModels
)

var timingNames = [numTimingModels]string{"serial", "stall", "forwarding"}

func (m TimingModel) String() string {
	if m < 0 || m >= numTimingModels {
		return fmt.Sprintf("TimingModel(%d)", int(m))
	}

	return timingNames[m]
}

// ParseTimingModel converts a timing model name into a TimingModel.
func ParseTimingModel(name string) (TimingModel, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range timingNames {
		if n == s {
			return TimingModel(i), nil
		}
	}

	return TimingSerial, fmt.Errorf("unknown MBD timing model %q", name)
}

// Limits of the configuration.
const (
	MaxDictSize   = 256
	MaxIndexBits  = 8
	MaxRunAhead   = 8
	MaxThroughput = 8
)

// Config holds the parameters of the MBD codec.
type Config struct {
	DictSize  int
	IndexBits int
	Policy    dictionary.Policy

	// RunAhead is how many codes after a producer can take its value by
	// forwarding in the producer's own cycle.
	RunAhead int
	// Throughput is the number of codes decoded per cycle. Zero disables
	// timing.
	Throughput int
	Timing     TimingModel
}

// DefaultConfig returns a 16-entry LRU dictionary decoded two codes per
// cycle with forwarding.
func DefaultConfig() Config {
	return Config{
		DictSize:   16,
		IndexBits:  4,
		Policy:     dictionary.PolicyLRU,
		RunAhead:   2,
		Throughput: 2,
		Timing:     TimingForwarding,
	}
}

// Validate checks that every parameter is in range.
func (c Config) Validate() error {
	if c.DictSize < 2 || c.DictSize > MaxDictSize || c.DictSize&(c.DictSize-1) != 0 {
		return fmt.Errorf("MBD dictionary size %d must be a power of two in [2, %d]",
			c.DictSize, MaxDictSize)
	}

	if c.IndexBits < 1 || c.IndexBits > MaxIndexBits {
		return fmt.Errorf("MBD index width %d must be in [1, %d]",
			c.IndexBits, MaxIndexBits)
	}

	if 1<<c.IndexBits < c.DictSize {
		return fmt.Errorf("MBD index width %d cannot address %d entries",
			c.IndexBits, c.DictSize)
	}

	if c.Policy != dictionary.PolicyLRU &&
		c.Policy != dictionary.PolicyFIFOReservedZero {
		return fmt.Errorf("MBD policy must be lru or fifo-reserved-zero, not %s",
			c.Policy)
	}

	if c.RunAhead < 0 || c.RunAhead > MaxRunAhead {
		return fmt.Errorf("MBD run-ahead %d must be in [0, %d]",
			c.RunAhead, MaxRunAhead)
	}

	if c.Throughput < 0 || c.Throughput > MaxThroughput {
		return fmt.Errorf("MBD throughput %d must be in [0, %d]",
			c.Throughput, MaxThroughput)
	}

	if c.Timing < 0 || c.Timing >= numTimingModels {
		return fmt.Errorf("unknown MBD timing model %d", int(c.Timing))
	}

	return nil
}
