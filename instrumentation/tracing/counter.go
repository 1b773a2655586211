package tracing

import (
	"sync"

	"github.com/sarchlab/ocsim/instrumentation/hooking"
)

// EventCounter counts events by kind and result.
type EventCounter struct {
	filter EventFilter
	lock   sync.Mutex

	names  []string
	counts map[string]uint64
}

// NewEventCounter creates a counter for the events the filter selects.
func NewEventCounter(filter EventFilter) *EventCounter {
	return &EventCounter{
		filter: filter,
		counts: make(map[string]uint64),
	}
}

// Func counts the event of a hook context.
func (c *EventCounter) Func(ctx hooking.HookCtx) {
	e, ok := EventFromCtx(ctx)
	if !ok || !c.filter(e) {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.count(e.Kind)

	if e.Result != "" {
		c.count(e.Kind + "/" + e.Result)
	}
}

func (c *EventCounter) count(name string) {
	if _, ok := c.counts[name]; !ok {
		c.names = append(c.names, name)
	}

	c.counts[name]++
}

// Names returns the names counted, in the order they were first seen. A name
// is either an event kind or "kind/result".
func (c *EventCounter) Names() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	return append([]string(nil), c.names...)
}

// Count returns the count of a name.
func (c *EventCounter) Count(name string) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.counts[name]
}
