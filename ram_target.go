// ram_target.go - RAM leaf target: a view into an owning storage buffer

package main

import "encoding/binary"

// RamTarget is a full-RWX, no-side-effects view into a shared storage
// buffer. Several RamTargets (e.g. a region and one of its swap-group
// variants) may alias the same backing buffer; they must never alias
// overlapping mutable views concurrently (spec.md §5).
type RamTarget struct {
	storage []byte
}

// NewRamTarget wraps an existing buffer. The buffer is not copied; the
// caller (typically a Region or bring-up) owns its lifetime.
func NewRamTarget(storage []byte) *RamTarget {
	return &RamTarget{storage: storage}
}

func (t *RamTarget) Capabilities() Caps {
	return CapPeek | CapPoke | CapWide
}

func (t *RamTarget) Read8(phys uint32, _ *BusAccess) uint8 {
	if int(phys) >= len(t.storage) {
		return floatingBus
	}
	return t.storage[phys]
}

func (t *RamTarget) Write8(phys uint32, value uint8, _ *BusAccess) {
	if int(phys) >= len(t.storage) {
		return
	}
	t.storage[phys] = value
}

func (t *RamTarget) Read16(phys uint32, _ *BusAccess) uint16 {
	if int(phys)+2 > len(t.storage) {
		return uint16(t.Read8(phys, nil))
	}
	return binary.LittleEndian.Uint16(t.storage[phys:])
}

func (t *RamTarget) Write16(phys uint32, value uint16, _ *BusAccess) {
	if int(phys)+2 > len(t.storage) {
		return
	}
	binary.LittleEndian.PutUint16(t.storage[phys:], value)
}

func (t *RamTarget) Read32(phys uint32, _ *BusAccess) uint32 {
	if int(phys)+4 > len(t.storage) {
		return uint32(t.Read8(phys, nil))
	}
	return binary.LittleEndian.Uint32(t.storage[phys:])
}

func (t *RamTarget) Write32(phys uint32, value uint32, _ *BusAccess) {
	if int(phys)+4 > len(t.storage) {
		return
	}
	binary.LittleEndian.PutUint32(t.storage[phys:], value)
}

func (t *RamTarget) Clear() {
	for i := range t.storage {
		t.storage[i] = 0
	}
}

// Len reports the size of the backing buffer, for bounds-aware callers
// (region construction, swap-group variant sizing).
func (t *RamTarget) Len() int { return len(t.storage) }
