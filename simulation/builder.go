package simulation

import (
	"fmt"

	"github.com/rs/xid"

	"github.com/sarchlab/ocsim/compression"
	"github.com/sarchlab/ocsim/config"
	"github.com/sarchlab/ocsim/datarecording"
	"github.com/sarchlab/ocsim/instrumentation/tracing"
	"github.com/sarchlab/ocsim/mem/datamap"
	"github.com/sarchlab/ocsim/mem/overlay"
	"github.com/sarchlab/ocsim/mem/sizing"
	"github.com/sarchlab/ocsim/monitoring"
	"github.com/sarchlab/ocsim/workload"
)

// Builder can be used to build a simulation.
type Builder struct {
	cfg            *config.Config
	monitorOn      bool
	recordingOn    bool
	outputFileName string
}

// MakeBuilder creates a builder of the default configuration.
func MakeBuilder() Builder {
	return Builder{cfg: config.Default()}
}

// WithConfig sets the configuration. It must have been validated.
func (b Builder) WithConfig(cfg *config.Config) Builder {
	b.cfg = cfg
	b.monitorOn = cfg.Monitor.Enabled
	b.recordingOn = cfg.Recording.Enabled
	b.outputFileName = cfg.Recording.Path

	return b
}

// WithoutMonitoring disables the monitoring server.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithoutRecording disables the SQLite recording.
func (b Builder) WithoutRecording() Builder {
	b.recordingOn = false
	return b
}

// WithOutputFileName sets the name of the database, without the .sqlite3
// extension. It enables recording.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.recordingOn = true
	b.outputFileName = filename

	return b
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("invalid configuration: %v", err))
	}

	return v
}

// Build builds the simulation. It panics if the configuration is invalid.
func (b Builder) Build() *Simulation {
	if err := b.cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid configuration: %v", err))
	}

	s := &Simulation{
		id:  xid.New().String(),
		cfg: b.cfg,
	}

	s.data = datamap.MakeBuilder().Build(b.cfg.Cache.Name + ".Data")

	kind := must(b.cfg.Kind())
	shape := must(b.cfg.Shape())

	cacheBuilder := overlay.MakeBuilder().
		WithByteSize(uint64(b.cfg.Cache.Size)).
		WithNumWays(b.cfg.Cache.Ways).
		WithLatency(b.cfg.Cache.Latency).
		WithRepack(b.cfg.Cache.Repack)

	driverBuilder := workload.MakeDriverBuilder().
		WithDataMap(s.data).
		WithMemoryLatency(b.cfg.Memory.Latency)

	if kind != compression.KindNone {
		s.sizer = must(sizing.New(kind, s.data, must(b.cfg.MBD())))
		s.pages = datamap.NewPageMap(s.data, shape)

		cacheBuilder = cacheBuilder.WithCompressor(s.sizer)
		driverBuilder = driverBuilder.WithPageMap(s.pages)
	}

	s.cache = cacheBuilder.Build(b.cfg.Cache.Name)

	s.counter = tracing.NewEventCounter(tracing.AllEvents)
	tracing.CollectTrace(s.cache, s.counter)

	if b.recordingOn {
		s.dataRecorder = datarecording.New(b.outputFileName)
		s.execRecorder = datarecording.NewExecRecorder(s.dataRecorder)
		s.execRecorder.Start()
		s.execRecorder.Add("Simulation ID", s.id)

		s.dataRecorder.CreateTable(SummaryTableName, Summary{})

		if b.cfg.Recording.Events {
			s.tracer = tracing.NewDBTracer(s.dataRecorder, tracing.AllEvents)
			tracing.CollectTrace(s.cache, s.tracer)
		}
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor().
			WithPortNumber(b.cfg.Monitor.Port).
			WithBrowser(b.cfg.Monitor.OpenBrowser)
		s.monitor.RegisterCache(s.cache)
	}

	s.progress = noProgress{}
	if s.monitor != nil {
		s.bar = s.monitor.CreateProgressBar(b.cfg.Cache.Name, 0)
		s.progress = s.bar
	}

	s.driver = driverBuilder.WithProgress(s.progress).Build(s.cache)

	if s.monitor != nil {
		s.monitor.RegisterRunner(s.driver)
		s.monitor.StartServer()
	}

	return s
}

type noProgress struct{}

func (noProgress) IncrementFinished(uint64) {}
