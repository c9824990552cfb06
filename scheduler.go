// scheduler.go - Deterministic discrete-event dispatch over a monotonic cycle counter

package main

import "container/heap"

// Cycle is the scheduler's monotonic, strictly non-decreasing counter.
type Cycle = uint64

// EventHandle identifies a previously scheduled event for cancellation.
type EventHandle uint64

// EventKind distinguishes callback sources for tooling; the scheduler
// itself treats every kind identically.
type EventKind int

const (
	EventGeneric EventKind = iota
	EventCPUStep
	EventDMA
	EventTimer
	EventVideo
	EventAudio
)

// SchedulerContext is bundled into every callback invocation. It is never
// cached across a machine reset, which replaces the context wholesale
// (spec.md §4.6).
type SchedulerContext struct {
	Now       Cycle
	Scheduler *Scheduler
	Signals   *SignalBus
	Bus       *Bus
}

// EventCallback is invoked when its event's cycle is reached.
type EventCallback func(ctx *SchedulerContext)

// scheduledEvent is the heap element: immutable once queued except for the
// tombstone flag set by Cancel.
type scheduledEvent struct {
	handle    EventHandle
	cycle     Cycle
	priority  int
	sequence  uint64
	kind      EventKind
	callback  EventCallback
	tag       string
	cancelled bool
}

// eventHeap implements container/heap.Interface ordered by
// (cycle asc, priority asc, sequence asc), the tie-breaking key from
// spec.md §4.6.
type eventHeap []*scheduledEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].cycle != h[j].cycle {
		return h[i].cycle < h[j].cycle
	}
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].sequence < h[j].sequence
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(*scheduledEvent)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// compactThreshold is how many tombstoned-but-undispatched events we'll
// tolerate sitting in the heap before paying to rebuild it without them
// (spec.md §9 — avoid turning O(log n) cancellation into O(n log n)).
const compactThreshold = 256

// Scheduler maintains a min-heap of scheduled events and the single
// monotonic cycle counter that the rest of the substrate times itself
// against (spec.md §4.6).
type Scheduler struct {
	now            Cycle
	heap           eventHeap
	nextHandle     EventHandle
	nextSequence   uint64
	cancelledCount int
	handleIndex    map[EventHandle]*scheduledEvent
}

// NewScheduler builds a scheduler starting at cycle 0.
func NewScheduler() *Scheduler {
	return &Scheduler{handleIndex: make(map[EventHandle]*scheduledEvent)}
}

// Now returns the current cycle.
func (s *Scheduler) Now() Cycle { return s.now }

// ScheduleAt queues callback to run at the given absolute cycle.
func (s *Scheduler) ScheduleAt(cycle Cycle, kind EventKind, priority int, callback EventCallback, tag string) EventHandle {
	s.nextHandle++
	handle := s.nextHandle
	event := &scheduledEvent{
		handle:   handle,
		cycle:    cycle,
		priority: priority,
		sequence: s.nextSequence,
		kind:     kind,
		callback: callback,
		tag:      tag,
	}
	s.nextSequence++
	heap.Push(&s.heap, event)
	s.handleIndex[handle] = event
	return handle
}

// ScheduleAfter is a convenience for ScheduleAt(Now()+delta, ...).
func (s *Scheduler) ScheduleAfter(delta Cycle, kind EventKind, priority int, callback EventCallback, tag string) EventHandle {
	return s.ScheduleAt(s.now+delta, kind, priority, callback, tag)
}

// Cancel tombstones handle so dispatch skips it. Cancelling a non-existent
// handle returns false — not an error (spec.md §7 Scheduler errors).
func (s *Scheduler) Cancel(handle EventHandle) bool {
	event, ok := s.handleIndex[handle]
	if !ok || event.cancelled {
		return false
	}
	event.cancelled = true
	delete(s.handleIndex, handle)
	s.cancelledCount++
	if s.cancelledCount > compactThreshold {
		s.compact()
	}
	return true
}

// compact rebuilds the heap without tombstoned entries.
func (s *Scheduler) compact() {
	live := make(eventHeap, 0, len(s.heap))
	for _, e := range s.heap {
		if !e.cancelled {
			live = append(live, e)
		}
	}
	heap.Init(&live)
	s.heap = live
	s.cancelledCount = 0
}

// PeekNextDue returns the cycle of the next non-cancelled event, if any.
func (s *Scheduler) PeekNextDue() (Cycle, bool) {
	for len(s.heap) > 0 {
		top := s.heap[0]
		if top.cancelled {
			heap.Pop(&s.heap)
			continue
		}
		return top.cycle, true
	}
	return 0, false
}

// DispatchDue dispatches every event with cycle <= s.now, without
// advancing now itself.
func (s *Scheduler) DispatchDue(signals *SignalBus, bus *Bus) {
	s.drainUpTo(s.now, signals, bus)
}

// Advance sets a target cycle, dispatches every event with cycle <= target
// — jumping now forward to each event's own cycle before invoking its
// callback so the callback observes its own scheduled cycle — then sets
// now = target (spec.md §4.6).
func (s *Scheduler) Advance(target Cycle, signals *SignalBus, bus *Bus) {
	s.drainUpTo(target, signals, bus)
	if target > s.now {
		s.now = target
	}
}

func (s *Scheduler) drainUpTo(target Cycle, signals *SignalBus, bus *Bus) {
	for {
		if len(s.heap) == 0 {
			return
		}
		top := s.heap[0]
		if top.cancelled {
			heap.Pop(&s.heap)
			continue
		}
		if top.cycle > target {
			return
		}
		event := heap.Pop(&s.heap).(*scheduledEvent)
		if event.cancelled {
			continue
		}
		delete(s.handleIndex, event.handle)
		s.now = event.cycle
		ctx := &SchedulerContext{Now: s.now, Scheduler: s, Signals: signals, Bus: bus}
		event.callback(ctx)
	}
}

// JumpToNextEventAndDispatch skips any idle time by advancing straight to
// the next due event's cycle and dispatching it (and anything else that
// shares that cycle). Returns false if the queue is empty.
func (s *Scheduler) JumpToNextEventAndDispatch(signals *SignalBus, bus *Bus) bool {
	next, ok := s.PeekNextDue()
	if !ok {
		return false
	}
	s.Advance(next, signals, bus)
	return true
}

// Reset wipes the queue and counters; now resets to 0.
func (s *Scheduler) Reset() {
	s.now = 0
	s.heap = nil
	s.nextHandle = 0
	s.nextSequence = 0
	s.cancelledCount = 0
	s.handleIndex = make(map[EventHandle]*scheduledEvent)
}
