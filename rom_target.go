// rom_target.go - ROM leaf target: a read-only (usually) view

package main

import "encoding/binary"

// RomTarget is a read-only view unless constructed with writable backing.
// Writes are silently ignored for normal DataWrite intent; a DebugWrite
// modifies storage iff the ROM was constructed writable (spec.md §8
// boundary scenario).
type RomTarget struct {
	storage  []byte
	writable bool
}

// NewRomTarget wraps an image buffer as read-only.
func NewRomTarget(image []byte) *RomTarget {
	return &RomTarget{storage: image}
}

// NewWritableRomTarget wraps an image buffer that still reports as ROM
// (no PermWrite granted through the page table) but accepts DebugWrite
// pokes, for tooling that needs to patch ROM images during development.
func NewWritableRomTarget(image []byte) *RomTarget {
	return &RomTarget{storage: image, writable: true}
}

func (t *RomTarget) Capabilities() Caps {
	c := CapPeek | CapWide
	if t.writable {
		c |= CapPoke
	}
	return c
}

func (t *RomTarget) Read8(phys uint32, _ *BusAccess) uint8 {
	if int(phys) >= len(t.storage) {
		return floatingBus
	}
	return t.storage[phys]
}

func (t *RomTarget) Write8(phys uint32, value uint8, access *BusAccess) {
	if !t.canWrite(access) || int(phys) >= len(t.storage) {
		return
	}
	t.storage[phys] = value
}

func (t *RomTarget) Read16(phys uint32, _ *BusAccess) uint16 {
	if int(phys)+2 > len(t.storage) {
		return uint16(t.Read8(phys, nil))
	}
	return binary.LittleEndian.Uint16(t.storage[phys:])
}

func (t *RomTarget) Write16(phys uint32, value uint16, access *BusAccess) {
	if !t.canWrite(access) || int(phys)+2 > len(t.storage) {
		return
	}
	binary.LittleEndian.PutUint16(t.storage[phys:], value)
}

func (t *RomTarget) Read32(phys uint32, _ *BusAccess) uint32 {
	if int(phys)+4 > len(t.storage) {
		return uint32(t.Read8(phys, nil))
	}
	return binary.LittleEndian.Uint32(t.storage[phys:])
}

func (t *RomTarget) Write32(phys uint32, value uint32, access *BusAccess) {
	if !t.canWrite(access) || int(phys)+4 > len(t.storage) {
		return
	}
	binary.LittleEndian.PutUint32(t.storage[phys:], value)
}

func (t *RomTarget) Clear() {
	if !t.writable {
		return
	}
	for i := range t.storage {
		t.storage[i] = 0
	}
}

func (t *RomTarget) canWrite(access *BusAccess) bool {
	if !t.writable {
		return false
	}
	return access != nil && access.Intent == IntentDebugWrite
}
