// Package sizing connects the codecs to the overlay cache. A Sizer reads the
// raw line from a data source, runs one codec on it and reports the number of
// bytes the line takes in a slot.
package sizing

import (
	"fmt"

	"github.com/sarchlab/ocsim/compression"
	"github.com/sarchlab/ocsim/compression/bdi"
	"github.com/sarchlab/ocsim/compression/mbd"
	"github.com/sarchlab/ocsim/mem/mem"
	"github.com/sarchlab/ocsim/mem/overlay"
)

// Decompression latencies, in cycles, added to hits on compressed lines.
const (
	BDIHitCycles   uint64 = 1
	FPCHitCycles   uint64 = 5
	CPACKHitCycles uint64 = 8
)

// A LineSource provides the raw content of lines. Insert creates a zero line
// if there is none, so that lines never written compress as zeros.
type LineSource interface {
	Insert(oid, addr uint64) mem.Line
	FindCompressed(oid, addr uint64) (bdi.Type, []byte)
}

// A Sizer sizes lines with one codec.
type Sizer interface {
	overlay.Compressor

	// Kind returns the codec the sizer runs.
	Kind() compression.Kind

	// Stats returns what the sizer has seen so far.
	Stats() Stats
}

// Stats summarizes the sizes a sizer reported.
type Stats struct {
	Attempts    uint64
	Compressed  uint64
	BeforeBytes uint64
	AfterBytes  uint64
	HitCycles   uint64
}

// Ratio returns the compression ratio over every sized line.
func (s Stats) Ratio() float64 {
	if s.AfterBytes == 0 {
		return 0
	}

	return float64(s.BeforeBytes) / float64(s.AfterBytes)
}

func (s *Stats) record(size int) {
	s.Attempts++
	s.BeforeBytes += mem.LineSize
	s.AfterBytes += uint64(size)

	if size < mem.LineSize {
		s.Compressed++
	}
}

// New creates the sizer of a codec. The MBD configuration is only used by
// compression.KindMBD and must be valid.
func New(kind compression.Kind, src LineSource, mbdCfg mbd.Config) (Sizer, error) {
	switch kind {
	case compression.KindNone:
		return &NoneSizer{}, nil
	case compression.KindBDI:
		return NewBDISizer(src), nil
	case compression.KindFPC:
		return NewFPCSizer(src), nil
	case compression.KindCPACK:
		return NewCPACKSizer(src), nil
	case compression.KindMBD:
		if err := mbdCfg.Validate(); err != nil {
			return nil, fmt.Errorf("creating MBD sizer: %w", err)
		}

		return NewMBDSizer(src, mbd.New(mbdCfg)), nil
	}

	return nil, fmt.Errorf("no sizer for compression kind %s", kind)
}

// bitsToSize converts a codec output length to a slot size. Outputs longer
// than a line are stored uncompressed.
func bitsToSize(bits int) int {
	size := compression.BytesFromBits(bits)
	if size > mem.LineSize {
		return mem.LineSize
	}

	if size < 1 {
		return 1
	}

	return size
}
