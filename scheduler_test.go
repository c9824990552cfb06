package main

import "testing"

// S5: equal-cycle ordering by (priority asc, sequence asc).
func TestSchedulerOrdersByPriorityThenSequence(t *testing.T) {
	sched := NewScheduler()
	var order []string

	sched.ScheduleAt(10, EventGeneric, 0, func(ctx *SchedulerContext) { order = append(order, "A") }, "A")
	sched.ScheduleAt(10, EventGeneric, 0, func(ctx *SchedulerContext) { order = append(order, "B") }, "B")
	sched.ScheduleAt(10, EventGeneric, -1, func(ctx *SchedulerContext) { order = append(order, "C") }, "C")

	sched.Advance(10, NewSignalBus(), nil)

	if sched.Now() != 10 {
		t.Fatalf("Now() = %d, want 10", sched.Now())
	}
	want := []string{"C", "A", "B"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestSchedulerCancelSkipsDispatch(t *testing.T) {
	sched := NewScheduler()
	fired := false
	handle := sched.ScheduleAt(5, EventGeneric, 0, func(ctx *SchedulerContext) { fired = true }, "")
	if !sched.Cancel(handle) {
		t.Fatalf("Cancel should succeed for a live handle")
	}
	if sched.Cancel(handle) {
		t.Fatalf("Cancel should fail for an already-cancelled handle")
	}
	sched.Advance(5, NewSignalBus(), nil)
	if fired {
		t.Fatalf("a cancelled event must not fire")
	}
}

func TestSchedulerCompactsAfterThreshold(t *testing.T) {
	sched := NewScheduler()
	handles := make([]EventHandle, 0, compactThreshold+1)
	for i := 0; i < compactThreshold+1; i++ {
		h := sched.ScheduleAt(Cycle(1000+i), EventGeneric, 0, func(ctx *SchedulerContext) {}, "")
		handles = append(handles, h)
	}
	for _, h := range handles {
		sched.Cancel(h)
	}
	if sched.cancelledCount != 0 {
		t.Fatalf("compaction should have reset cancelledCount, got %d", sched.cancelledCount)
	}
	if len(sched.heap) != 0 {
		t.Fatalf("compaction should have removed every tombstoned entry, got %d remaining", len(sched.heap))
	}
}

func TestSchedulerAdvanceJumpsNowToEventCycle(t *testing.T) {
	sched := NewScheduler()
	var seenNow Cycle
	sched.ScheduleAt(7, EventGeneric, 0, func(ctx *SchedulerContext) { seenNow = ctx.Now }, "")
	sched.Advance(20, NewSignalBus(), nil)
	if seenNow != 7 {
		t.Fatalf("callback should observe its own scheduled cycle (7), got %d", seenNow)
	}
	if sched.Now() != 20 {
		t.Fatalf("Now() should land on the target cycle (20), got %d", sched.Now())
	}
}

func TestSchedulerJumpToNextEventAndDispatch(t *testing.T) {
	sched := NewScheduler()
	fired := false
	sched.ScheduleAt(50, EventGeneric, 0, func(ctx *SchedulerContext) { fired = true }, "")
	if !sched.JumpToNextEventAndDispatch(NewSignalBus(), nil) {
		t.Fatalf("expected a due event")
	}
	if !fired || sched.Now() != 50 {
		t.Fatalf("expected the event to fire and now to land on 50, got fired=%v now=%d", fired, sched.Now())
	}
	if sched.JumpToNextEventAndDispatch(NewSignalBus(), nil) {
		t.Fatalf("expected no further due events")
	}
}

func TestSchedulerResetClearsQueueAndCounter(t *testing.T) {
	sched := NewScheduler()
	sched.ScheduleAt(5, EventGeneric, 0, func(ctx *SchedulerContext) {}, "")
	sched.Advance(5, NewSignalBus(), nil)
	sched.Reset()
	if sched.Now() != 0 {
		t.Fatalf("Reset should zero Now(), got %d", sched.Now())
	}
	if _, ok := sched.PeekNextDue(); ok {
		t.Fatalf("Reset should empty the queue")
	}
}
