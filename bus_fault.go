// bus_fault.go - First-class fault values and the fallible result envelope

package main

import "fmt"

// FaultKind enumerates why a bus transaction did not succeed. FaultNone is
// the zero value so a success is representable in the same shape as a
// failure, keeping the hot path branch-light (spec.md §4.1).
type FaultKind int

const (
	FaultNone FaultKind = iota
	FaultUnmapped
	FaultPermission
	FaultNx
	FaultMisaligned
	FaultDeviceFault
)

func (k FaultKind) String() string {
	switch k {
	case FaultNone:
		return "none"
	case FaultUnmapped:
		return "unmapped"
	case FaultPermission:
		return "permission"
	case FaultNx:
		return "nx"
	case FaultMisaligned:
		return "misaligned"
	case FaultDeviceFault:
		return "device-fault"
	default:
		return "unknown-fault"
	}
}

// BusFault carries enough context to render a message like
// "unmapped instruction fetch at $FE12, src=CPU0, cycle=12345, device=-1"
// for tooling, per spec.md §7.
type BusFault struct {
	Kind      FaultKind
	Address   uint32
	Width     int
	Intent    Intent
	Mode      Mode
	SourceID  int32
	DeviceID  int32
	RegionTag RegionTag
	Cycle     uint64
}

// noFault is the zero-cost representation of success.
var noFault = BusFault{DeviceID: -1}

func (f BusFault) Error() string {
	if f.Kind == FaultNone {
		return "no fault"
	}
	return fmt.Sprintf("%s %s at $%X, src=%d, cycle=%d, device=%d",
		f.Kind, f.Intent, f.Address, f.SourceID, f.Cycle, f.DeviceID)
}

// BusResult packs the outcome of a fallible bus transaction: the value (if
// any), the fault (FaultNone on success), and the cycles the transaction
// consumed. Go generics give us the BusResult<T> shape from spec.md §4.1
// directly; BusUnitResult stands in for the unit specialization used by
// try-write operations that return no value.
type BusResult[T any] struct {
	Value          T
	Fault          BusFault
	CyclesConsumed uint64
}

// OK reports whether the transaction succeeded.
func (r BusResult[T]) OK() bool { return r.Fault.Kind == FaultNone }

// BusUnitResult is the result shape for operations with no return value
// (try-write).
type BusUnitResult = BusResult[struct{}]

func okResult[T any](value T, cycles uint64) BusResult[T] {
	return BusResult[T]{Value: value, Fault: noFault, CyclesConsumed: cycles}
}

func faultResult[T any](fault BusFault, cyclesConsumed uint64) BusResult[T] {
	var zero T
	return BusResult[T]{Value: zero, Fault: fault, CyclesConsumed: cyclesConsumed}
}
