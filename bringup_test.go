package main

import "testing"

func bootROMWithResetVector(vector uint32) []byte {
	rom := make([]byte, 16*1024)
	rom[len(rom)-2] = uint8(vector)
	rom[len(rom)-1] = uint8(vector >> 8)
	return rom
}

func TestBringUpDefaultLayout(t *testing.T) {
	bundle := ProvisioningBundle{
		ROMImages: map[string][]byte{"boot": bootROMWithResetVector(0xC000)},
	}
	result, err := BringUp(bundle, DefaultMachineConstants)
	if err != nil {
		t.Fatalf("BringUp failed: %v", err)
	}
	if result.EntryPoint != 0xC000 {
		t.Fatalf("EntryPoint = $%X, want $C000", result.EntryPoint)
	}
	ramEntry := result.Bus.PageEntryFor(0)
	if ramEntry.RegionTag != TagRam || !ramEntry.Perms.Writable() {
		t.Fatalf("expected a writable RAM page at $0000, got %+v", ramEntry)
	}
	romEntry := result.Bus.PageEntryFor(0xC000)
	if romEntry.RegionTag != TagRom || romEntry.Perms.Writable() {
		t.Fatalf("expected a read-only ROM page at $C000, got %+v", romEntry)
	}
}

func TestBringUpRejectsMissingBootROM(t *testing.T) {
	bundle := ProvisioningBundle{}
	if _, err := BringUp(bundle, DefaultMachineConstants); err == nil {
		t.Fatalf("expected an error with no boot ROM image")
	}
}

func TestBringUpRejectsOversizedRAM(t *testing.T) {
	bundle := ProvisioningBundle{
		RequestedRAMSize: DefaultMachineConstants.MaxRAMSize + 1,
		ROMImages:        map[string][]byte{"boot": bootROMWithResetVector(0xC000)},
	}
	if _, err := BringUp(bundle, DefaultMachineConstants); err == nil {
		t.Fatalf("expected an error requesting RAM above the configured maximum")
	}
}

func TestBringUpRegistersDevices(t *testing.T) {
	bundle := ProvisioningBundle{
		ROMImages: map[string][]byte{"boot": bootROMWithResetVector(0xC000)},
		Devices: []DeviceSpec{
			{Kind: "timer", Name: "system-timer", WiringPath: "root/timer0"},
		},
	}
	result, err := BringUp(bundle, DefaultMachineConstants)
	if err != nil {
		t.Fatalf("BringUp failed: %v", err)
	}
	if len(result.Devices.All()) != 1 {
		t.Fatalf("expected exactly 1 registered device, got %d", len(result.Devices.All()))
	}
}

func TestBringUpExposesPhysicalPools(t *testing.T) {
	bundle := ProvisioningBundle{
		ROMImages: map[string][]byte{"boot": bootROMWithResetVector(0xC000)},
	}
	result, err := BringUp(bundle, DefaultMachineConstants)
	if err != nil {
		t.Fatalf("BringUp failed: %v", err)
	}
	ram, ok := result.PhysicalPools["ram"]
	if !ok || uint32(len(ram)) != DefaultMachineConstants.DefaultRAMSize {
		t.Fatalf("expected a %d-byte ram pool, got %d bytes (present=%v)", DefaultMachineConstants.DefaultRAMSize, len(ram), ok)
	}
	rom, ok := result.PhysicalPools["boot-rom"]
	if !ok || uint32(len(rom)) != DefaultMachineConstants.BootROMSize {
		t.Fatalf("expected a %d-byte boot-rom pool, got %d bytes (present=%v)", DefaultMachineConstants.BootROMSize, len(rom), ok)
	}
}

func TestBringUpEnableDebugMakesBootROMWritable(t *testing.T) {
	bundle := ProvisioningBundle{
		ROMImages:   map[string][]byte{"boot": bootROMWithResetVector(0xC000)},
		EnableDebug: true,
	}
	result, err := BringUp(bundle, DefaultMachineConstants)
	if err != nil {
		t.Fatalf("BringUp failed: %v", err)
	}
	entry := result.Bus.PageEntryFor(DefaultMachineConstants.BootROMBase)
	access := NewAccess(DefaultMachineConstants.BootROMBase, Width8, ModeNative, IntentDebugWrite, 0, 0)
	entry.Target.Write8(0, 0x42, &access)
	if got := entry.Target.Read8(0, &access); got != 0x42 {
		t.Fatalf("expected a DebugWrite poke to stick on an EnableDebug boot ROM, got $%X", got)
	}
}

func TestBringUpWithoutEnableDebugKeepsBootROMReadOnly(t *testing.T) {
	bundle := ProvisioningBundle{
		ROMImages: map[string][]byte{"boot": bootROMWithResetVector(0xC000)},
	}
	result, err := BringUp(bundle, DefaultMachineConstants)
	if err != nil {
		t.Fatalf("BringUp failed: %v", err)
	}
	entry := result.Bus.PageEntryFor(DefaultMachineConstants.BootROMBase)
	access := NewAccess(DefaultMachineConstants.BootROMBase, Width8, ModeNative, IntentDebugWrite, 0, 0)
	before := entry.Target.Read8(0, &access)
	entry.Target.Write8(0, before+1, &access)
	if got := entry.Target.Read8(0, &access); got != before {
		t.Fatalf("a plain boot ROM must reject DebugWrite pokes even at address 0")
	}
}

func TestBringUpHonorsLayoutOverrides(t *testing.T) {
	altBase := uint32(0x8000)
	bundle := ProvisioningBundle{
		RequestedRAMSize: 32 * 1024,
		ROMImages:        map[string][]byte{"boot": bootROMWithResetVector(0x8000)},
		LayoutOverrides:  &LayoutOverrides{BootROMBase: &altBase},
	}
	result, err := BringUp(bundle, DefaultMachineConstants)
	if err != nil {
		t.Fatalf("BringUp failed: %v", err)
	}
	entry := result.Bus.PageEntryFor(altBase)
	if entry.RegionTag != TagRom {
		t.Fatalf("expected the boot ROM relocated to $%X, got %+v", altBase, entry)
	}
}
