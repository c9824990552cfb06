package main

import "testing"

// property 10: a swap-group switch is atomic over its whole range — no
// partial view is ever materialised mid-switch.
func TestSwapGroupVariantSwitchIsAtomic(t *testing.T) {
	bus := NewBus(16)
	group, err := bus.SwapGroups().CreateSwapGroup("bank", 0, 2*pageSize)
	if err != nil {
		t.Fatalf("CreateSwapGroup failed: %v", err)
	}
	romTarget := NewRomTarget(make([]byte, 2*pageSize))
	ramTarget := NewRamTarget(make([]byte, 2*pageSize))
	group.AddVariant(SwapVariant{Name: "rom", Tag: TagRom, Perms: PermRead | PermExec, Caps: CapPeek, Target: romTarget})
	group.AddVariant(SwapVariant{Name: "ram", Tag: TagRam, Perms: PermRead | PermWrite, Caps: CapPeek | CapPoke, Target: ramTarget})

	if err := bus.SelectSwapVariant("bank", "rom"); err != nil {
		t.Fatalf("SelectVariant(rom) failed: %v", err)
	}
	for p := 0; p < 2; p++ {
		if bus.PageEntryAt(p).Target != romTarget {
			t.Fatalf("page %d did not switch to the rom variant", p)
		}
	}

	if err := bus.SelectSwapVariant("bank", "ram"); err != nil {
		t.Fatalf("SelectVariant(ram) failed: %v", err)
	}
	for p := 0; p < 2; p++ {
		if bus.PageEntryAt(p).Target != ramTarget {
			t.Fatalf("page %d did not switch to the ram variant", p)
		}
	}

	active, err := bus.ActiveSwapVariant("bank")
	if err != nil || active != "ram" {
		t.Fatalf("ActiveVariant = %q, %v; want \"ram\", nil", active, err)
	}
}

func TestSwapGroupUnknownNamesError(t *testing.T) {
	bus := NewBus(16)
	if _, err := bus.SwapGroups().CreateSwapGroup("g", 0, pageSize); err != nil {
		t.Fatalf("CreateSwapGroup failed: %v", err)
	}
	if err := bus.SelectSwapVariant("g", "missing"); err == nil {
		t.Fatalf("expected an error selecting an unknown variant")
	}
	if err := bus.SelectSwapVariant("missing-group", "x"); err == nil {
		t.Fatalf("expected an error selecting a variant on an unknown group")
	}
	if _, err := bus.GetSwapGroupID("missing-group"); err == nil {
		t.Fatalf("expected an error looking up an unknown group's id")
	}
}
