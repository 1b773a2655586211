// Package tracing turns the hook invocations of overlay caches into flat
// events that can be counted or stored in a data recorder.
package tracing

import (
	"github.com/sarchlab/ocsim/instrumentation/hooking"
	"github.com/sarchlab/ocsim/mem/overlay"
)

// Event is one overlay cache operation.
type Event struct {
	Cycle  uint64
	Cache  string
	Kind   string
	OID    uint64
	Addr   uint64
	Shape  string
	Result string
	Set    int
	Way    int
	Index  int
	Size   int
	Dirty  bool
}

// Named is a hookable domain with a name, such as an overlay cache.
type Named interface {
	hooking.Hookable
	Name() string
}

// EventFilter selects events.
type EventFilter func(e Event) bool

// AllEvents selects every event.
func AllEvents(Event) bool {
	return true
}

var kindOfPos = map[*hooking.HookPos]string{
	overlay.HookPosLookup:     "lookup",
	overlay.HookPosInsert:     "insert",
	overlay.HookPosEvict:      "evict",
	overlay.HookPosInvalidate: "invalidate",
	overlay.HookPosDowngrade:  "downgrade",
	overlay.HookPosRepack:     "repack",
}

// EventFromCtx converts the hook context of an overlay cache operation into an
// event. It reports false for contexts that do not come from an overlay
// cache.
func EventFromCtx(ctx hooking.HookCtx) (Event, bool) {
	kind, ok := kindOfPos[ctx.Pos]
	if !ok {
		return Event{}, false
	}

	access, ok := ctx.Item.(overlay.Access)
	if !ok {
		return Event{}, false
	}

	e := Event{
		Cycle: access.Cycle,
		Kind:  kind,
		OID:   access.OID,
		Addr:  access.Addr,
		Shape: access.Shape.String(),
		Dirty: access.Dirty,
		Index: -1,
	}

	if named, ok := ctx.Domain.(Named); ok {
		e.Cache = named.Name()
	}

	switch d := ctx.Detail.(type) {
	case overlay.LookupResult:
		e.Result = d.State.String()
		if d.State != overlay.Miss {
			e.Set, e.Way, e.Index = d.Loc.Set, d.Loc.Way, d.Index
		}
	case overlay.InsertResult:
		e.Result = "fill"
		if d.Evicted {
			e.Result = "replace"
		}

		e.Set, e.Way, e.Index, e.Size = d.Loc.Set, d.Loc.Way, d.Index, d.Size
	case overlay.InvalidateResult:
		e.Result = "clean"
		if d.Dirty {
			e.Result = "dirty"
		}

		e.Set, e.Way, e.Index = d.Loc.Set, d.Loc.Way, d.Index
	case overlay.Slot:
		e.Result = "clean"
		if d.IsDirty() {
			e.Result = "dirty"
		}

		e.Size = d.Used()
	case overlay.RepackDetail:
		e.Set = d.Set
		e.Size = d.Before - d.After
	}

	return e, true
}
