package tracing

import (
	"github.com/sarchlab/ocsim/instrumentation/hooking"
)

// EventTableName is the table the DBTracer writes to.
const EventTableName = "overlay_events"

// Recorder stores events. A datarecording.DataRecorder is a Recorder.
type Recorder interface {
	CreateTable(tableName string, sampleEntry any)
	InsertData(tableName string, entry any)
	Flush()
}

// DBTracer stores every selected event in a recorder.
type DBTracer struct {
	recorder             Recorder
	filter               EventFilter
	startCycle, endCycle uint64
	count                uint64
}

// NewDBTracer creates a tracer and its table.
func NewDBTracer(recorder Recorder, filter EventFilter) *DBTracer {
	recorder.CreateTable(EventTableName, Event{})

	return &DBTracer{
		recorder: recorder,
		filter:   filter,
	}
}

// SetTimeRange limits tracing to the events in [start, end]. An end of 0
// means no limit.
func (t *DBTracer) SetTimeRange(start, end uint64) {
	t.startCycle = start
	t.endCycle = end
}

// Func records the event of a hook context.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	e, ok := EventFromCtx(ctx)
	if !ok || !t.filter(e) {
		return
	}

	if e.Cycle < t.startCycle {
		return
	}

	if t.endCycle > 0 && e.Cycle > t.endCycle {
		return
	}

	t.recorder.InsertData(EventTableName, e)
	t.count++
}

// NumEvents returns the number of events recorded.
func (t *DBTracer) NumEvents() uint64 {
	return t.count
}

// Flush writes the buffered events.
func (t *DBTracer) Flush() {
	t.recorder.Flush()
}

// CollectTrace lets the hook observe a domain.
func CollectTrace(domain hooking.Hookable, hook hooking.Hook) {
	domain.AcceptHook(hook)
}
