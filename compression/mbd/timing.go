package mbd

// A Timer turns the codes of a line into decode cycles.
type Timer interface {
	Cycles(codes []Code) uint64
}

// NewTimer returns the timer selected by cfg.
func NewTimer(cfg Config) Timer {
	switch cfg.Timing {
	case TimingStall:
		return StallTimer{Throughput: cfg.Throughput}
	case TimingForwarding:
		return ForwardingTimer{Throughput: cfg.Throughput, RunAhead: cfg.RunAhead}
	default:
		return SerialTimer{Throughput: cfg.Throughput}
	}
}

// SerialTimer decodes Throughput codes per cycle and ignores dependencies:
// ceil(len(codes) / Throughput).
type SerialTimer struct {
	Throughput int
}

// Cycles implements Timer.
func (t SerialTimer) Cycles(codes []Code) uint64 {
	if t.Throughput <= 0 || len(codes) == 0 {
		return 0
	}

	return uint64((len(codes) + t.Throughput - 1) / t.Throughput)
}

// StallTimer issues codes in order, at most Throughput per cycle. A code that
// references a slot written earlier in the line issues no earlier than the
// cycle after its producer.
type StallTimer struct {
	Throughput int
}

// Cycles implements Timer.
func (t StallTimer) Cycles(codes []Code) uint64 {
	return schedule(codes, t.Throughput, 0)
}

// ForwardingTimer is a StallTimer in which a consumer at most RunAhead codes
// after its producer receives the value in the producer's cycle.
type ForwardingTimer struct {
	Throughput int
	RunAhead   int
}

// Cycles implements Timer.
func (t ForwardingTimer) Cycles(codes []Code) uint64 {
	return schedule(codes, t.Throughput, t.RunAhead)
}

func schedule(codes []Code, throughput, reach int) uint64 {
	if throughput <= 0 || len(codes) == 0 {
		return 0
	}

	issue := make([]int, len(codes))
	cycle := 0
	slots := 0

	for k, c := range codes {
		if slots == throughput {
			cycle++
			slots = 0
		}

		if c.Producer >= 0 {
			ready := issue[c.Producer] + 1
			if k-c.Producer <= reach {
				ready = issue[c.Producer]
			}

			if ready > cycle {
				cycle = ready
				slots = 0
			}
		}

		issue[k] = cycle
		slots++
	}

	return uint64(cycle + 1)
}
