package main

import "testing"

func TestSoftSwitchUnhandledReadIsFloatingBus(t *testing.T) {
	d := NewSoftSwitchDispatcher()
	access := NewAccess(0xC010, Width8, ModeNative, IntentDataRead, 0, 0)
	if got := d.Read(0x10, &access); got != floatingBus {
		t.Fatalf("unhandled soft-switch read should return floating-bus, got $%X", got)
	}
}

func TestSoftSwitchUnhandledWriteIsNoOp(t *testing.T) {
	d := NewSoftSwitchDispatcher()
	access := NewAccess(0xC010, Width8, ModeNative, IntentDataWrite, 0, 0)
	d.Write(0x10, 0xFF, &access) // must not panic
}

func TestSoftSwitchRegisteredHandlersDispatch(t *testing.T) {
	d := NewSoftSwitchDispatcher()
	var lastWrite uint8
	d.Register(0x20,
		func(offset uint32, access *BusAccess) uint8 { return 0x42 },
		func(offset uint32, value uint8, access *BusAccess) { lastWrite = value })

	readAccess := NewAccess(0xC020, Width8, ModeNative, IntentDataRead, 0, 0)
	if got := d.Read(0x20, &readAccess); got != 0x42 {
		t.Fatalf("expected registered handler's value $42, got $%X", got)
	}

	writeAccess := NewAccess(0xC020, Width8, ModeNative, IntentDataWrite, 0, 0)
	d.Write(0x20, 0x99, &writeAccess)
	if lastWrite != 0x99 {
		t.Fatalf("expected the registered write handler to observe $99, got $%X", lastWrite)
	}
}

func TestSoftSwitchHonorsNoSideEffectsFlag(t *testing.T) {
	d := NewSoftSwitchDispatcher()
	sideEffects := 0
	d.RegisterRead(0x30, func(offset uint32, access *BusAccess) uint8 {
		if access.Flags.has(FlagNoSideEffects) {
			return 0xAA
		}
		sideEffects++
		return 0xBB
	})

	debugAccess := NewAccess(0xC030, Width8, ModeNative, IntentDebugRead, 0, 0)
	debugAccess.Flags |= FlagNoSideEffects
	if got := d.Read(0x30, &debugAccess); got != 0xAA || sideEffects != 0 {
		t.Fatalf("a NoSideEffects peek must not trigger the handler's side effect")
	}

	liveAccess := NewAccess(0xC030, Width8, ModeNative, IntentDataRead, 0, 0)
	if got := d.Read(0x30, &liveAccess); got != 0xBB || sideEffects != 1 {
		t.Fatalf("a live read should trigger the handler's side effect exactly once")
	}
}

func TestSoftSwitchInstallAndRemoveSlotHandlers(t *testing.T) {
	d := NewSoftSwitchDispatcher()
	var handlers [16]SoftSwitchSlot
	handlers[3] = SoftSwitchSlot{Read: func(offset uint32, access *BusAccess) uint8 { return 7 }}
	d.InstallSlotHandlers(2, handlers)

	access := NewAccess(0xC000, Width8, ModeNative, IntentDataRead, 0, 0)
	if got := d.Read(2*16+3, &access); got != 7 {
		t.Fatalf("expected the installed slot handler's value 7, got %d", got)
	}

	d.RemoveSlotHandlers(2)
	if got := d.Read(2*16+3, &access); got != floatingBus {
		t.Fatalf("removed slot handlers should fall back to floating-bus, got $%X", got)
	}
}

func TestSoftSwitchTargetAdaptsDispatcherToTarget(t *testing.T) {
	d := NewSoftSwitchDispatcher()
	d.RegisterRead(0x00, func(offset uint32, access *BusAccess) uint8 { return 0x11 })
	target := NewSoftSwitchTarget(d)
	if caps := target.Capabilities(); !caps.Has(CapHasSideEffects) || !caps.Has(CapTimingSensitive) || caps.Has(CapWide) {
		t.Fatalf("unexpected soft-switch target capabilities: %v", caps)
	}
	access := NewAccess(0xC000, Width8, ModeNative, IntentDataRead, 0, 0)
	if got := target.Read8(0, &access); got != 0x11 {
		t.Fatalf("SoftSwitchTarget.Read8 should delegate to the dispatcher, got $%X", got)
	}
}
