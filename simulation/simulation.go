// Package simulation assembles a data map, a sizer, an overlay cache and a
// driver from a configuration, and reports the outcome of a run.
package simulation

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/sarchlab/ocsim/config"
	"github.com/sarchlab/ocsim/datarecording"
	"github.com/sarchlab/ocsim/instrumentation/tracing"
	"github.com/sarchlab/ocsim/mem/datamap"
	"github.com/sarchlab/ocsim/mem/overlay"
	"github.com/sarchlab/ocsim/mem/sizing"
	"github.com/sarchlab/ocsim/monitoring"
	"github.com/sarchlab/ocsim/workload"
)

// SummaryTableName is the table that holds run summaries.
const SummaryTableName = "summary"

// A Simulation is one cache driven by one workload.
type Simulation struct {
	id  string
	cfg *config.Config

	data   *datamap.Map
	pages  *datamap.PageMap
	sizer  sizing.Sizer
	cache  *overlay.Cache
	driver *workload.Driver

	counter      *tracing.EventCounter
	dataRecorder datarecording.DataRecorder
	execRecorder *datarecording.ExecRecorder
	tracer       *tracing.DBTracer

	monitor  *monitoring.Monitor
	bar      *monitoring.ProgressBar
	progress workload.Progress
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Cache returns the simulated cache.
func (s *Simulation) Cache() *overlay.Cache {
	return s.cache
}

// DataMap returns the map that holds line content.
func (s *Simulation) DataMap() *datamap.Map {
	return s.data
}

// Driver returns the driver of the cache.
func (s *Simulation) Driver() *workload.Driver {
	return s.driver
}

// Counter returns the counter of cache events.
func (s *Simulation) Counter() *tracing.EventCounter {
	return s.counter
}

// GetDataRecorder returns the data recorder, or nil if recording is off.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// OpenWorkload returns the configured source of accesses. A synthetic
// workload first fills the data map with the content of its objects.
func (s *Simulation) OpenWorkload() (workload.Source, io.Closer, error) {
	if s.cfg.Workload.Trace != "" {
		f, err := workload.Open(s.cfg.Workload.Trace)
		if err != nil {
			return nil, nil, err
		}

		return f, f, nil
	}

	genCfg, err := s.cfg.Generator()
	if err != nil {
		return nil, nil, err
	}

	gen, err := workload.NewGenerator(genCfg)
	if err != nil {
		return nil, nil, err
	}

	gen.Populate(s.data)

	if s.bar != nil {
		s.bar.SetTotal(uint64(genCfg.NumRecords))
	}

	return gen, nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Run drives the cache with every record of the source.
func (s *Simulation) Run(ctx context.Context, src workload.Source) error {
	return s.driver.Run(ctx, src)
}

// Summary is the outcome of a run.
type Summary struct {
	ID    string
	Cache string
	Kind  string
	Shape string
	Size  uint64
	Ways  int

	Loads      uint64
	Stores     uint64
	LoadMisses uint64
	Writebacks uint64
	Cycles     uint64

	Lookups        uint64
	Hits           uint64
	CompressedHits uint64
	Evictions      uint64
	Repacks        uint64
	HitRate        float64

	ValidLines         uint64
	SuperBlocks        uint64
	LinesPerSuperBlock float64
	CompressionRatio   float64
}

// Summarize collects the statistics of the run so far.
func (s *Simulation) Summarize() Summary {
	d := s.driver.Stats()
	c := s.cache.RefreshStats()

	sum := Summary{
		ID:    s.id,
		Cache: s.cache.Name(),
		Kind:  s.cfg.Compression.Kind,
		Size:  uint64(s.cfg.Cache.Size),
		Ways:  s.cfg.Cache.Ways,

		Loads:      d.Loads,
		Stores:     d.Stores,
		LoadMisses: d.LoadMisses,
		Writebacks: d.Writebacks,
		Cycles:     d.Cycles,

		Lookups:        c.Lookups,
		Hits:           c.Hits,
		CompressedHits: c.CompressedHits,
		Evictions:      c.Evictions,
		Repacks:        c.Repacks,
		HitRate:        c.HitRate(),

		ValidLines:         c.ValidLines,
		SuperBlocks:        c.SuperBlocks,
		LinesPerSuperBlock: c.LinesPerSuperBlock(),
		CompressionRatio:   1,
	}

	sum.Shape = "None"
	if s.pages != nil {
		sum.Shape = s.pages.DefaultShape().String()
	}

	if s.sizer != nil {
		sum.CompressionRatio = s.sizer.Stats().Ratio()
	}

	return sum
}

// Report prints the summary and the event counts.
func (s *Simulation) Report(w io.Writer) Summary {
	sum := s.Summarize()

	fmt.Fprintf(w, "cache %s: %s, %d ways, %s, shape %s\n",
		sum.Cache, config.ByteSize(sum.Size), sum.Ways, sum.Kind, sum.Shape)
	fmt.Fprintf(w, "  accesses   %d loads, %d stores, %d cycles\n",
		sum.Loads, sum.Stores, sum.Cycles)
	fmt.Fprintf(w, "  hit rate   %.4f (%d compressed hits)\n",
		sum.HitRate, sum.CompressedHits)
	fmt.Fprintf(w, "  evictions  %d (%d writebacks)\n",
		sum.Evictions, sum.Writebacks)
	fmt.Fprintf(w, "  occupancy  %d lines, %d super-blocks, %.2f lines/super-block\n",
		sum.ValidLines, sum.SuperBlocks, sum.LinesPerSuperBlock)
	fmt.Fprintf(w, "  ratio      %.3f\n", sum.CompressionRatio)

	if v, ok := s.sizer.(*sizing.BDISizer); ok {
		vs := v.VerticalStats()
		fmt.Fprintf(w, "  vertical   %d attempts, %d base found, %d same type, %d successes\n",
			vs.Attempts, vs.BaseFound, vs.SameType, vs.VerticalSuccess)
	}

	for _, name := range s.counter.Names() {
		fmt.Fprintf(w, "  %-24s %d\n", name, s.counter.Count(name))
	}

	return sum
}

// Terminate records the summary and closes the recorder and the progress
// bar.
func (s *Simulation) Terminate() error {
	if s.monitor != nil && s.bar != nil {
		s.monitor.CompleteProgressBar(s.bar)
	}

	if s.dataRecorder == nil {
		return nil
	}

	s.dataRecorder.InsertData(SummaryTableName, s.Summarize())

	if s.tracer != nil {
		s.execRecorder.Add("Events", strconv.FormatUint(s.tracer.NumEvents(), 10))
	}

	s.execRecorder.End()

	return s.dataRecorder.Close()
}
