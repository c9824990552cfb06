// layer.go - Named, prioritised overlays that contribute mappings when active

package main

import (
	"fmt"
	"sort"
)

// LayeredMapping is one contribution a MappingLayer makes to the page
// table: a virtual range routed to a target at a physical base, with its
// own tag/perms/caps, carried while the owning layer is active.
type LayeredMapping struct {
	VirtBase uint32
	Size     uint32
	DeviceID int32
	Tag      RegionTag
	Perms    Perms
	Caps     Caps
	Target   Target
	PhysBase uint32
}

func (m LayeredMapping) overlaps(addr uint32) bool {
	return addr >= m.VirtBase && addr < m.VirtBase+m.Size
}

// MappingLayer is a named, prioritised, activatable overlay. Higher-
// priority active layers shadow lower ones for overlapping pages
// (spec.md §3, §4.4).
type MappingLayer struct {
	Name     string
	Priority int
	IsActive bool
	mappings []LayeredMapping
}

// AddMapping appends a contribution to this layer. Layers are normally
// built once during bring-up, before any activation.
func (l *MappingLayer) AddMapping(m LayeredMapping) {
	l.mappings = append(l.mappings, m)
}

// LayerManager owns the set of layers over one bus and recomputes affected
// pages on activation/deactivation, walking layer contributions in
// descending priority until an active one covers the page (spec.md §4.4).
type LayerManager struct {
	bus    *Bus
	layers map[string]*MappingLayer
	// baseline holds the page entry that should apply when no active layer
	// covers an address — normally the entry the control plane established
	// before any layer touched that page.
	baseline map[uint32]PageEntry
}

// NewLayerManager builds a layer manager bound to bus.
func NewLayerManager(bus *Bus) *LayerManager {
	return &LayerManager{
		bus:      bus,
		layers:   make(map[string]*MappingLayer),
		baseline: make(map[uint32]PageEntry),
	}
}

// CreateLayer registers a new, initially inactive layer.
func (lm *LayerManager) CreateLayer(name string, priority int) (*MappingLayer, error) {
	if _, exists := lm.layers[name]; exists {
		return nil, &ControlPlaneError{Op: "CreateLayer", Detail: fmt.Sprintf("duplicate layer name %q", name)}
	}
	layer := &MappingLayer{Name: name, Priority: priority}
	lm.layers[name] = layer
	return layer, nil
}

// ActivateLayer marks a layer active and recomputes every page it
// contributes to.
func (lm *LayerManager) ActivateLayer(name string) error {
	layer, ok := lm.layers[name]
	if !ok {
		return &ControlPlaneError{Op: "ActivateLayer", Detail: fmt.Sprintf("unknown layer %q", name)}
	}
	layer.IsActive = true
	return lm.recompute(layer)
}

// DeactivateLayer marks a layer inactive and recomputes every page it
// contributed to, falling through to the next-highest-priority active
// layer or the baseline.
func (lm *LayerManager) DeactivateLayer(name string) error {
	layer, ok := lm.layers[name]
	if !ok {
		return &ControlPlaneError{Op: "DeactivateLayer", Detail: fmt.Sprintf("unknown layer %q", name)}
	}
	layer.IsActive = false
	return lm.recompute(layer)
}

// IsLayerActive reports whether the named layer is currently active.
func (lm *LayerManager) IsLayerActive(name string) bool {
	layer, ok := lm.layers[name]
	return ok && layer.IsActive
}

// SetLayerPermissions overrides the permission bits on every mapping the
// named layer contributes, recomputing affected pages if the layer is
// currently the one in effect.
func (lm *LayerManager) SetLayerPermissions(name string, perms Perms) error {
	layer, ok := lm.layers[name]
	if !ok {
		return &ControlPlaneError{Op: "SetLayerPermissions", Detail: fmt.Sprintf("unknown layer %q", name)}
	}
	for i := range layer.mappings {
		layer.mappings[i].Perms = perms
	}
	return lm.recompute(layer)
}

// recompute walks every page covered by layer's mappings, remembers the
// pre-layer baseline the first time a page is touched, and reapplies the
// highest-priority active layer covering each page.
func (lm *LayerManager) recompute(layer *MappingLayer) error {
	for _, m := range layer.mappings {
		first := m.VirtBase >> pageShift
		count := m.Size >> pageShift
		for p := first; p < first+count; p++ {
			addr := p << pageShift
			if _, saved := lm.baseline[addr]; !saved {
				lm.baseline[addr] = lm.bus.PageEntryAt(int(p))
			}
			if err := lm.recomputePage(addr); err != nil {
				return err
			}
		}
	}
	return nil
}

// recomputePage finds the highest-priority active layer covering addr and
// materialises its contribution, falling back to the recorded baseline if
// none covers it — this is the coherence invariant of spec.md §4.4: after
// activation, deactivation, push, pop, or variant switch, every affected
// page equals what a fresh recomputation would produce.
func (lm *LayerManager) recomputePage(addr uint32) error {
	ordered := lm.activeLayersByPriorityDesc()
	for _, layer := range ordered {
		for _, m := range layer.mappings {
			if m.overlaps(addr) {
				phys := m.PhysBase + (addr - m.VirtBase)
				return lm.bus.MapPage(int(addr>>pageShift), PageEntry{
					DeviceID:     m.DeviceID,
					RegionTag:    m.Tag,
					Perms:        m.Perms,
					Caps:         m.Caps,
					Target:       m.Target,
					PhysicalBase: phys,
				})
			}
		}
	}
	if base, ok := lm.baseline[addr]; ok {
		return lm.bus.MapPage(int(addr>>pageShift), base)
	}
	return nil
}

func (lm *LayerManager) activeLayersByPriorityDesc() []*MappingLayer {
	out := make([]*MappingLayer, 0, len(lm.layers))
	for _, l := range lm.layers {
		if l.IsActive {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}
