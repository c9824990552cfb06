// page_table.go - The page-routed bus: O(1) routing, permission & width policy

package main

// pageShift/pageSize fix the page granularity at 4 KiB per spec.md §3.
const (
	pageShift = 12
	pageSize  = 1 << pageShift
	pageMask  = pageSize - 1
)

// PageEntry is one routing decision: which target, at which physical base,
// with which permissions and capabilities, tagged for tooling. A nil Target
// means the page is unmapped; every access to it faults Unmapped.
type PageEntry struct {
	DeviceID     int32
	RegionTag    RegionTag
	Perms        Perms
	Caps         Caps
	Target       Target
	PhysicalBase uint32
}

func unmappedEntry() PageEntry {
	return PageEntry{DeviceID: -1, RegionTag: TagUnmapped}
}

// Bus is the page-table-backed memory bus: the data plane of the substrate.
// It is not thread-safe (spec.md §4.2) — control-plane mutations must not
// race the hot path.
type Bus struct {
	pages      []PageEntry
	addrBits   int
	pageCount  int
	dispatcher *SoftSwitchDispatcher
	ioPageBase uint32 // base address of the dispatcher's I/O page; meaningful only when hasIOPage is set
	hasIOPage  bool

	layers     *LayerManager
	swapGroups *SwapGroupManager
}

// NewBus allocates a page table sized for a 2^addrBits address space.
// addrBits is typically 16, 24, or 32 (spec.md §3).
func NewBus(addrBits int) *Bus {
	pageCount := 1 << (addrBits - pageShift)
	pages := make([]PageEntry, pageCount)
	for i := range pages {
		pages[i] = unmappedEntry()
	}
	bus := &Bus{pages: pages, addrBits: addrBits, pageCount: pageCount}
	bus.layers = NewLayerManager(bus)
	bus.swapGroups = NewSwapGroupManager(bus)
	return bus
}

// Layers exposes the bus's layer manager for control-plane configuration
// during bring-up (creating layers, adding mappings).
func (b *Bus) Layers() *LayerManager { return b.layers }

// SwapGroups exposes the bus's swap-group manager for control-plane
// configuration during bring-up.
func (b *Bus) SwapGroups() *SwapGroupManager { return b.swapGroups }

// ActivateLayer marks a layer active and recomputes the pages it covers.
func (b *Bus) ActivateLayer(name string) error { return b.layers.ActivateLayer(name) }

// DeactivateLayer marks a layer inactive and recomputes the pages it covers.
func (b *Bus) DeactivateLayer(name string) error { return b.layers.DeactivateLayer(name) }

// IsLayerActive reports whether the named layer is active.
func (b *Bus) IsLayerActive(name string) bool { return b.layers.IsLayerActive(name) }

// SetLayerPermissions overrides the permission bits of every mapping the
// named layer contributes.
func (b *Bus) SetLayerPermissions(name string, perms Perms) error {
	return b.layers.SetLayerPermissions(name, perms)
}

// SelectSwapVariant atomically remaps a swap group's range to the named
// variant.
func (b *Bus) SelectSwapVariant(group, variant string) error {
	return b.swapGroups.SelectVariant(group, variant)
}

// ActiveSwapVariant returns the name of the swap group's active variant.
func (b *Bus) ActiveSwapVariant(group string) (string, error) {
	return b.swapGroups.ActiveVariant(group)
}

// GetSwapGroupID returns the structural id of the named swap group.
func (b *Bus) GetSwapGroupID(group string) (int32, error) {
	return b.swapGroups.GroupID(group)
}

// AttachSoftSwitchDispatcher installs the dispatcher that owns the single
// I/O page located at ioPageBase (conventionally $C000 in a 16-bit space).
// The page itself must still be mapped via MapPage with a SoftSwitchTarget
// wrapping the dispatcher; this only records the dispatcher and its base on
// the bus, and no Bus method reads them back.
func (b *Bus) AttachSoftSwitchDispatcher(d *SoftSwitchDispatcher, ioPageBase uint32) {
	b.dispatcher = d
	b.ioPageBase = ioPageBase
	b.hasIOPage = true
}

func (b *Bus) pageIndex(addr uint32) int { return int(addr >> pageShift) }

// PageCount reports the number of page-table slots.
func (b *Bus) PageCount() int { return b.pageCount }

// PageEntryAt returns the entry for the page index, or unmappedEntry if out
// of range.
func (b *Bus) PageEntryAt(index int) PageEntry {
	if index < 0 || index >= b.pageCount {
		return unmappedEntry()
	}
	return b.pages[index]
}

// PageEntryFor returns the entry governing addr (PageEntryAt(addr>>12)).
func (b *Bus) PageEntryFor(addr uint32) PageEntry {
	return b.PageEntryAt(b.pageIndex(addr))
}

// ---------------------------------------------------------------------------
// Fast path: infallible, caller-guaranteed-valid access.
// ---------------------------------------------------------------------------

// Read8 is the unchecked fast path. The caller guarantees the page is
// mapped and permitted; a composite target with no sub-target delivers
// floating-bus.
func (b *Bus) Read8(access *BusAccess) uint8 {
	entry := &b.pages[b.pageIndex(access.Address)]
	if entry.Target == nil {
		return floatingBus
	}
	phys := entry.PhysicalBase + (access.Address & pageMask)
	return entry.Target.Read8(phys, access)
}

// Write8 is the unchecked fast path counterpart to Read8.
func (b *Bus) Write8(access *BusAccess, value uint8) {
	entry := &b.pages[b.pageIndex(access.Address)]
	if entry.Target == nil {
		return
	}
	phys := entry.PhysicalBase + (access.Address & pageMask)
	entry.Target.Write8(phys, value, access)
}

// Read16 is the unchecked fast path for 16-bit reads, applying the width
// policy in spec.md §4.2.
func (b *Bus) Read16(access *BusAccess) uint16 {
	if b.crossesPage(access.Address, 2) || access.decompose(b.wideAt(access.Address)) {
		lo := b.Read8(&BusAccess{Address: access.Address, WidthBits: 8, Mode: access.Mode, Intent: access.Intent, SourceID: access.SourceID, Cycle: access.Cycle, Flags: access.Flags, Privilege: access.Privilege})
		hi := b.Read8(&BusAccess{Address: access.Address + 1, WidthBits: 8, Mode: access.Mode, Intent: access.Intent, SourceID: access.SourceID, Cycle: access.Cycle, Flags: access.Flags, Privilege: access.Privilege})
		return uint16(lo) | uint16(hi)<<8
	}
	entry := &b.pages[b.pageIndex(access.Address)]
	phys := entry.PhysicalBase + (access.Address & pageMask)
	return entry.Target.(WideTarget).Read16(phys, access)
}

// Write16 is the unchecked fast path for 16-bit writes.
func (b *Bus) Write16(access *BusAccess, value uint16) {
	if b.crossesPage(access.Address, 2) || access.decompose(b.wideAt(access.Address)) {
		b.Write8(&BusAccess{Address: access.Address, WidthBits: 8, Mode: access.Mode, Intent: access.Intent, SourceID: access.SourceID, Cycle: access.Cycle, Flags: access.Flags, Privilege: access.Privilege}, uint8(value))
		b.Write8(&BusAccess{Address: access.Address + 1, WidthBits: 8, Mode: access.Mode, Intent: access.Intent, SourceID: access.SourceID, Cycle: access.Cycle, Flags: access.Flags, Privilege: access.Privilege}, uint8(value>>8))
		return
	}
	entry := &b.pages[b.pageIndex(access.Address)]
	phys := entry.PhysicalBase + (access.Address & pageMask)
	entry.Target.(WideTarget).Write16(phys, value, access)
}

// Read32 is the unchecked fast path for 32-bit reads.
func (b *Bus) Read32(access *BusAccess) uint32 {
	if b.crossesPage(access.Address, 4) || access.decompose(b.wideAt(access.Address)) {
		var v uint32
		for i := 0; i < 4; i++ {
			byteAccess := access.byteAccess(i)
			v |= uint32(b.Read8(&byteAccess)) << (8 * i)
		}
		return v
	}
	entry := &b.pages[b.pageIndex(access.Address)]
	phys := entry.PhysicalBase + (access.Address & pageMask)
	return entry.Target.(WideTarget).Read32(phys, access)
}

// Write32 is the unchecked fast path for 32-bit writes.
func (b *Bus) Write32(access *BusAccess, value uint32) {
	if b.crossesPage(access.Address, 4) || access.decompose(b.wideAt(access.Address)) {
		for i := 0; i < 4; i++ {
			byteAccess := access.byteAccess(i)
			b.Write8(&byteAccess, uint8(value>>(8*i)))
		}
		return
	}
	entry := &b.pages[b.pageIndex(access.Address)]
	phys := entry.PhysicalBase + (access.Address & pageMask)
	entry.Target.(WideTarget).Write32(phys, value, access)
}

func (b *Bus) crossesPage(addr uint32, width int) bool {
	return b.pageIndex(addr) != b.pageIndex(addr+uint32(width)-1)
}

func (b *Bus) wideAt(addr uint32) bool {
	entry := &b.pages[b.pageIndex(addr)]
	if entry.Target == nil {
		return false
	}
	_, ok := entry.Target.(WideTarget)
	return ok && entry.Caps.Has(CapWide)
}

// ---------------------------------------------------------------------------
// Fallible path: full permission/NX/bounds checking, returns BusResult.
// ---------------------------------------------------------------------------

func (b *Bus) checkedEntry(access *BusAccess, forWrite bool) (*PageEntry, BusFault) {
	index := b.pageIndex(access.Address)
	if index < 0 || index >= b.pageCount {
		return nil, b.fault(FaultUnmapped, access, -1, TagUnmapped)
	}
	entry := &b.pages[index]
	if entry.Target == nil {
		return nil, b.fault(FaultUnmapped, access, entry.DeviceID, entry.RegionTag)
	}
	if forWrite {
		if !entry.Perms.Writable() {
			return nil, b.fault(FaultPermission, access, entry.DeviceID, entry.RegionTag)
		}
	} else {
		if !entry.Perms.Readable() {
			return nil, b.fault(FaultPermission, access, entry.DeviceID, entry.RegionTag)
		}
	}
	if access.Intent == IntentInstructionFetch && access.Mode == ModeNative && !entry.Perms.Executable() {
		return nil, b.fault(FaultNx, access, entry.DeviceID, entry.RegionTag)
	}
	return entry, BusFault{Kind: FaultNone, DeviceID: -1}
}

func (b *Bus) fault(kind FaultKind, access *BusAccess, deviceID int32, tag RegionTag) BusFault {
	return BusFault{
		Kind:      kind,
		Address:   access.Address,
		Width:     access.WidthBits,
		Intent:    access.Intent,
		Mode:      access.Mode,
		SourceID:  access.SourceID,
		DeviceID:  deviceID,
		RegionTag: tag,
		Cycle:     access.Cycle,
	}
}

// TryRead8 is the fallible read path described in spec.md §4.2 steps 1-6.
func (b *Bus) TryRead8(access *BusAccess) BusResult[uint8] {
	entry, fault := b.checkedEntry(access, false)
	if fault.Kind != FaultNone {
		return faultResult[uint8](fault, 0)
	}
	phys := entry.PhysicalBase + (access.Address & pageMask)
	return okResult(entry.Target.Read8(phys, access), 1)
}

// TryWrite8 is the fallible write path.
func (b *Bus) TryWrite8(access *BusAccess, value uint8) BusUnitResult {
	entry, fault := b.checkedEntry(access, true)
	if fault.Kind != FaultNone {
		return faultResult[struct{}](fault, 0)
	}
	phys := entry.PhysicalBase + (access.Address & pageMask)
	entry.Target.Write8(phys, value, access)
	return okResult(struct{}{}, 1)
}

// TryRead16 decomposes across a page boundary or per width policy,
// short-circuiting on the first byte's fault; cycles accumulate across
// completed bytes before the failure (spec.md §4.2).
func (b *Bus) TryRead16(access *BusAccess) BusResult[uint16] {
	if b.crossesPage(access.Address, 2) || access.decompose(b.wideAtChecked(access.Address)) {
		return tryReadWide[uint16](b, access, 2)
	}
	entry, fault := b.checkedEntry(access, false)
	if fault.Kind != FaultNone {
		return faultResult[uint16](fault, 0)
	}
	phys := entry.PhysicalBase + (access.Address & pageMask)
	return okResult(entry.Target.(WideTarget).Read16(phys, access), 1)
}

// TryWrite16 is the fallible 16-bit write path.
func (b *Bus) TryWrite16(access *BusAccess, value uint16) BusUnitResult {
	if b.crossesPage(access.Address, 2) || access.decompose(b.wideAtChecked(access.Address)) {
		return tryWriteWide(b, access, 2, uint32(value))
	}
	entry, fault := b.checkedEntry(access, true)
	if fault.Kind != FaultNone {
		return faultResult[struct{}](fault, 0)
	}
	phys := entry.PhysicalBase + (access.Address & pageMask)
	entry.Target.(WideTarget).Write16(phys, value, access)
	return okResult(struct{}{}, 1)
}

// TryRead32 is the fallible 32-bit read path.
func (b *Bus) TryRead32(access *BusAccess) BusResult[uint32] {
	if b.crossesPage(access.Address, 4) || access.decompose(b.wideAtChecked(access.Address)) {
		return tryReadWide[uint32](b, access, 4)
	}
	entry, fault := b.checkedEntry(access, false)
	if fault.Kind != FaultNone {
		return faultResult[uint32](fault, 0)
	}
	phys := entry.PhysicalBase + (access.Address & pageMask)
	return okResult(entry.Target.(WideTarget).Read32(phys, access), 1)
}

// TryWrite32 is the fallible 32-bit write path.
func (b *Bus) TryWrite32(access *BusAccess, value uint32) BusUnitResult {
	if b.crossesPage(access.Address, 4) || access.decompose(b.wideAtChecked(access.Address)) {
		return tryWriteWide(b, access, 4, value)
	}
	entry, fault := b.checkedEntry(access, true)
	if fault.Kind != FaultNone {
		return faultResult[struct{}](fault, 0)
	}
	phys := entry.PhysicalBase + (access.Address & pageMask)
	entry.Target.(WideTarget).Write32(phys, value, access)
	return okResult(struct{}{}, 1)
}

func (b *Bus) wideAtChecked(addr uint32) bool {
	index := b.pageIndex(addr)
	if index < 0 || index >= b.pageCount {
		return false
	}
	return b.wideAt(addr)
}

// tryReadWide performs little-endian low-to-high byte decomposition for a
// checked wide read, stopping at the first faulting byte.
func tryReadWide[T uint16 | uint32](b *Bus, access *BusAccess, width int) BusResult[T] {
	var value uint32
	var cycles uint64
	for i := 0; i < width; i++ {
		byteAccess := access.byteAccess(i)
		r := b.TryRead8(&byteAccess)
		cycles += r.CyclesConsumed
		if !r.OK() {
			return faultResult[T](r.Fault, cycles)
		}
		value |= uint32(r.Value) << (8 * i)
	}
	return okResult(T(value), cycles)
}

func tryWriteWide(b *Bus, access *BusAccess, width int, value uint32) BusUnitResult {
	var cycles uint64
	for i := 0; i < width; i++ {
		byteAccess := access.byteAccess(i)
		r := b.TryWrite8(&byteAccess, uint8(value>>(8*i)))
		cycles += r.CyclesConsumed
		if !r.OK() {
			return faultResult[struct{}](r.Fault, cycles)
		}
	}
	return okResult(struct{}{}, cycles)
}

// ---------------------------------------------------------------------------
// Control plane: mutates the page table, never on the hot path.
// ---------------------------------------------------------------------------

// MapPage installs entry at the given page index, overwriting whatever was
// there.
func (b *Bus) MapPage(index int, entry PageEntry) error {
	if index < 0 || index >= b.pageCount {
		return &ControlPlaneError{Op: "MapPage", Detail: "page index out of range"}
	}
	b.pages[index] = entry
	return nil
}

// MapPageAt is MapPage addressed by a virtual address instead of a page
// index, for callers working in address space rather than page-table
// coordinates.
func (b *Bus) MapPageAt(addr uint32, entry PageEntry) error {
	return b.MapPage(b.pageIndex(addr), entry)
}

// MapPageRange installs the same device/tag/perms/caps/target across count
// pages starting at index, with physBase advancing one page's worth of
// physical address per page.
func (b *Bus) MapPageRange(index, count int, deviceID int32, tag RegionTag, perms Perms, caps Caps, target Target, physBase uint32) error {
	if index < 0 || count < 0 || index+count > b.pageCount {
		return &ControlPlaneError{Op: "MapPageRange", Detail: "range out of bounds"}
	}
	for i := 0; i < count; i++ {
		b.pages[index+i] = PageEntry{
			DeviceID:     deviceID,
			RegionTag:    tag,
			Perms:        perms,
			Caps:         caps,
			Target:       target,
			PhysicalBase: physBase + uint32(i)*pageSize,
		}
	}
	return nil
}

// MapRegion maps a virtual range [virt, virt+size) to target starting at
// physBase, rejecting unaligned virt/size.
func (b *Bus) MapRegion(virt, size uint32, deviceID int32, tag RegionTag, perms Perms, caps Caps, target Target, physBase uint32) error {
	if virt&pageMask != 0 || size&pageMask != 0 {
		return &ControlPlaneError{Op: "MapRegion", Detail: "virt/size not page-aligned"}
	}
	return b.MapPageRange(int(virt>>pageShift), int(size>>pageShift), deviceID, tag, perms, caps, target, physBase)
}

// RemapPage changes only the target/phys-base of an existing page entry,
// preserving device/tag/perms/caps.
func (b *Bus) RemapPage(index int, target Target, physBase uint32) error {
	if index < 0 || index >= b.pageCount {
		return &ControlPlaneError{Op: "RemapPage", Detail: "page index out of range"}
	}
	b.pages[index].Target = target
	b.pages[index].PhysicalBase = physBase
	return nil
}

// RemapPageRange is RemapPage applied across count pages, with physBase
// advancing per page.
func (b *Bus) RemapPageRange(index, count int, target Target, physBase uint32) error {
	if index < 0 || count < 0 || index+count > b.pageCount {
		return &ControlPlaneError{Op: "RemapPageRange", Detail: "range out of bounds"}
	}
	for i := 0; i < count; i++ {
		b.pages[index+i].Target = target
		b.pages[index+i].PhysicalBase = physBase + uint32(i)*pageSize
	}
	return nil
}

// Clear invokes Clear on each unique target exactly once (identity-keyed),
// then resets every page entry to unmapped.
func (b *Bus) Clear() {
	seen := make(map[Target]struct{})
	for _, entry := range b.pages {
		if entry.Target == nil {
			continue
		}
		if _, ok := seen[entry.Target]; ok {
			continue
		}
		seen[entry.Target] = struct{}{}
		entry.Target.Clear()
	}
	for i := range b.pages {
		b.pages[i] = unmappedEntry()
	}
}
