package workload

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/sarchlab/ocsim/mem/datamap"
	"github.com/sarchlab/ocsim/mem/mem"
)

// Pattern is the kind of data a synthetic object holds.
type Pattern int

// Data patterns.
const (
	PatternZero Pattern = iota
	PatternSmallInt
	PatternPointer
	PatternRandom
	numPatterns
)

var patternNames = [numPatterns]string{"zero", "smallint", "pointer", "random"}

func (p Pattern) String() string {
	if p < 0 || p >= numPatterns {
		return fmt.Sprintf("Pattern(%d)", int(p))
	}

	return patternNames[p]
}

// ParsePattern converts a pattern name to a Pattern.
func ParsePattern(name string) (Pattern, error) {
	for i, n := range patternNames {
		if strings.EqualFold(n, name) {
			return Pattern(i), nil
		}
	}

	return 0, fmt.Errorf("unknown data pattern %q", name)
}

const pointerBase = 0x00007f3a_00000000

// GeneratorConfig describes a synthetic workload. Object i holds data of
// pattern Patterns[i%len(Patterns)]; every object spans the addresses
// [0, LinesPerObject*64).
type GeneratorConfig struct {
	Seed           int64
	NumRecords     int
	NumObjects     int
	LinesPerObject int
	StoreFraction  float64
	Patterns       []Pattern
}

// Validate checks the configuration.
func (c GeneratorConfig) Validate() error {
	switch {
	case c.NumRecords < 0:
		return fmt.Errorf("negative number of records %d", c.NumRecords)
	case c.NumObjects <= 0:
		return fmt.Errorf("number of objects must be positive, got %d", c.NumObjects)
	case c.LinesPerObject <= 0:
		return fmt.Errorf("lines per object must be positive, got %d", c.LinesPerObject)
	case c.StoreFraction < 0 || c.StoreFraction > 1:
		return fmt.Errorf("store fraction %g not in [0, 1]", c.StoreFraction)
	case len(c.Patterns) == 0:
		return fmt.Errorf("no data pattern")
	}

	for _, p := range c.Patterns {
		if p < 0 || p >= numPatterns {
			return fmt.Errorf("invalid data pattern %d", int(p))
		}
	}

	return nil
}

// Generator produces a deterministic synthetic stream of accesses.
type Generator struct {
	cfg     GeneratorConfig
	rng     *rand.Rand
	emitted int
}

// NewGenerator creates a generator. The same configuration always yields
// the same stream.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// PatternOf returns the data pattern of an object.
func (g *Generator) PatternOf(oid uint64) Pattern {
	return g.cfg.Patterns[oid%uint64(len(g.cfg.Patterns))]
}

// Line creates one line of the given pattern.
func (g *Generator) Line(p Pattern) mem.Line {
	var line mem.Line

	switch p {
	case PatternSmallInt:
		for i := 0; i < mem.LineSize; i += 4 {
			binary.LittleEndian.PutUint32(line[i:], uint32(g.rng.Intn(256)))
		}
	case PatternPointer:
		for i := 0; i < mem.LineSize; i += 8 {
			ptr := uint64(pointerBase + g.rng.Intn(1<<12)*8)
			binary.LittleEndian.PutUint64(line[i:], ptr)
		}
	case PatternRandom:
		g.rng.Read(line[:])
	}

	return line
}

// Populate stores the initial content of every object in the data map.
func (g *Generator) Populate(m *datamap.Map) {
	for oid := 0; oid < g.cfg.NumObjects; oid++ {
		p := g.PatternOf(uint64(oid))

		for i := 0; i < g.cfg.LinesPerObject; i++ {
			line := g.Line(p)
			m.Store(uint64(oid), uint64(i)*mem.LineSize, &line)
		}
	}
}

// Next returns the next access, or io.EOF once NumRecords were produced.
func (g *Generator) Next() (Record, error) {
	if g.emitted >= g.cfg.NumRecords {
		return Record{}, io.EOF
	}

	g.emitted++

	oid := uint64(g.rng.Intn(g.cfg.NumObjects))
	addr := uint64(g.rng.Intn(g.cfg.LinesPerObject)) * mem.LineSize

	if g.rng.Float64() >= g.cfg.StoreFraction {
		return Record{Op: OpLoad, OID: oid, Addr: addr}, nil
	}

	line := g.Line(g.PatternOf(oid))

	return Record{Op: OpStore, OID: oid, Addr: addr, Data: line[:]}, nil
}
