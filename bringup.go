// bringup.go - Turns a provisioning bundle into an initial page-table layout

package main

import "fmt"

// MachineConstants are the bring-up-time limits a provisioning bundle is
// validated against (spec.md §6).
type MachineConstants struct {
	MinRAMSize   uint32
	MaxRAMSize   uint32
	DefaultRAMSize uint32
	BootROMSize  uint32
	BootROMBase  uint32
	AddressBits  int
}

// DefaultMachineConstants mirrors a modest 16-bit 65xx-family machine: 64
// KiB address space, a boot ROM occupying its top 16 KiB, and RAM sized
// anywhere from 4 KiB up to the rest of the space below the boot ROM.
var DefaultMachineConstants = MachineConstants{
	MinRAMSize:     4 * 1024,
	MaxRAMSize:     48 * 1024,
	DefaultRAMSize: 48 * 1024,
	BootROMSize:    16 * 1024,
	BootROMBase:    0xC000,
	AddressBits:    16,
}

// ProvisioningBundle describes everything bring-up needs to build an
// initial layout: how much RAM, which ROM images go where, which devices
// exist, and optional overrides to the default layout (spec.md §6). It has
// no file or wire representation — it is always an in-process value built
// by whatever assembles a machine (a test, a CLI flag parser external to
// this substrate, a provisioning tool).
type ProvisioningBundle struct {
	RequestedRAMSize uint32
	ROMImages        map[string][]byte // device name -> ROM image bytes
	Devices          []DeviceSpec
	LayoutOverrides  *LayoutOverrides
	// EnableDebug makes the boot ROM region accept DebugWrite pokes by
	// constructing it with NewWritableRomTarget instead of NewRomTarget.
	EnableDebug bool
}

// DeviceSpec names one device to register during bring-up.
type DeviceSpec struct {
	Kind       string
	Name       string
	WiringPath string
}

// LayoutOverrides lets a caller relocate the boot ROM or RAM base away
// from the machine's defaults. BringUp creates each region with the
// overridden base as its preferred base, so the relocatability check in
// MapAt never rejects an override.
type LayoutOverrides struct {
	RAMBase     *uint32
	BootROMBase *uint32
}

// BringUpResult is everything the rest of the substrate needs after
// bring-up has validated and assembled a provisioning bundle (spec.md §6).
type BringUpResult struct {
	Bus     *Bus
	Regions *RegionManager
	// PhysicalPools holds the raw backing buffer bring-up allocated for
	// each region it created, keyed by region name ("ram", "boot-rom"),
	// for callers that need direct buffer access (snapshotting, patching
	// a ROM image before Region/Target indirection) rather than going
	// through a Target.
	PhysicalPools map[string][]byte
	Devices       *DeviceRegistry
	EntryPoint    uint32
	Constants     MachineConstants
}

// BringUp validates bundle against constants, allocates storage, builds
// regions, maps them into a fresh bus, and returns the assembled result.
// Any validation failure is a ControlPlaneError — bring-up is expected to
// abort the machine on any such error (spec.md §7).
func BringUp(bundle ProvisioningBundle, constants MachineConstants) (*BringUpResult, error) {
	ramSize := bundle.RequestedRAMSize
	if ramSize == 0 {
		ramSize = constants.DefaultRAMSize
	}
	if ramSize < constants.MinRAMSize || ramSize > constants.MaxRAMSize {
		return nil, &ControlPlaneError{Op: "BringUp", Detail: fmt.Sprintf("requested RAM size %d outside [%d, %d]", ramSize, constants.MinRAMSize, constants.MaxRAMSize)}
	}
	bootROM, ok := bundle.ROMImages["boot"]
	if !ok {
		return nil, &ControlPlaneError{Op: "BringUp", Detail: "provisioning bundle missing \"boot\" ROM image"}
	}
	if uint32(len(bootROM)) > constants.BootROMSize {
		return nil, &ControlPlaneError{Op: "BringUp", Detail: fmt.Sprintf("boot ROM image %d bytes exceeds %d byte budget", len(bootROM), constants.BootROMSize)}
	}

	bus := NewBus(constants.AddressBits)
	regions := NewRegionManager()
	devices := NewDeviceRegistry()

	ramBase := uint32(0)
	if bundle.LayoutOverrides != nil && bundle.LayoutOverrides.RAMBase != nil {
		ramBase = *bundle.LayoutOverrides.RAMBase
	}
	ramStorage := make([]byte, alignUpToPage(ramSize))
	ramTarget := NewRamTarget(ramStorage)
	ramRegion, err := regions.CreateRegion("ram", ramBase, uint32(len(ramStorage)), ramTarget, PermRead|PermWrite|PermExec, CapPeek|CapPoke|CapWide, TagRam, true, true, 0)
	if err != nil {
		return nil, err
	}
	if err := regions.MapAt(bus, ramRegion, ramBase, -1); err != nil {
		return nil, err
	}

	bootBase := constants.BootROMBase
	if bundle.LayoutOverrides != nil && bundle.LayoutOverrides.BootROMBase != nil {
		bootBase = *bundle.LayoutOverrides.BootROMBase
	}
	romImage := make([]byte, alignUpToPage(constants.BootROMSize))
	copy(romImage, bootROM)
	var romTarget *RomTarget
	if bundle.EnableDebug {
		romTarget = NewWritableRomTarget(romImage)
	} else {
		romTarget = NewRomTarget(romImage)
	}
	romRegion, err := regions.CreateRegion("boot-rom", bootBase, uint32(len(romImage)), romTarget, PermRead|PermExec, CapPeek|CapWide, TagRom, false, false, 100)
	if err != nil {
		return nil, err
	}
	if err := regions.MapAt(bus, romRegion, bootBase, -1); err != nil {
		return nil, err
	}

	for _, spec := range bundle.Devices {
		if _, err := devices.Register(spec.Kind, spec.Name, spec.WiringPath); err != nil {
			return nil, err
		}
	}

	entryPoint := readResetVector(romImage, constants.BootROMBase)

	return &BringUpResult{
		Bus:     bus,
		Regions: regions,
		PhysicalPools: map[string][]byte{
			"ram":      ramStorage,
			"boot-rom": romImage,
		},
		Devices:    devices,
		EntryPoint: entryPoint,
		Constants:  constants,
	}, nil
}

func alignUpToPage(size uint32) uint32 {
	if size&pageMask == 0 {
		return size
	}
	return (size + pageSize) &^ pageMask
}

// readResetVector reads the little-endian reset vector from the last two
// bytes of a boot ROM image, relative to its mapped base — the classic
// 65xx convention of a vector table at the top of ROM.
func readResetVector(romImage []byte, base uint32) uint32 {
	if len(romImage) < 2 {
		return base
	}
	lo := romImage[len(romImage)-2]
	hi := romImage[len(romImage)-1]
	return uint32(lo) | uint32(hi)<<8
}
