// region.go - Named, sized blocks of semantic memory and their manager

package main

import "fmt"

// Region is a named, sized block of semantic memory: created once, its
// target may outlive it (spec.md §3).
type Region struct {
	ID              int32
	Name            string
	PreferredBase   uint32
	Size            uint32
	Target          Target
	DefaultPerms    Perms
	Caps            Caps
	Tag             RegionTag
	IsRelocatable   bool
	SupportsOverlay bool
	Priority        int
}

// RegionManager owns the set of regions created during bring-up. It is
// write-once-then-read-many (spec.md §5).
type RegionManager struct {
	regions  map[int32]*Region
	byName   map[string]int32
	nextID   int32
}

// NewRegionManager builds an empty region manager.
func NewRegionManager() *RegionManager {
	return &RegionManager{
		regions: make(map[int32]*Region),
		byName:  make(map[string]int32),
	}
}

// CreateRegion registers a new region, returning a ControlPlaneError on a
// duplicate name.
func (m *RegionManager) CreateRegion(name string, preferredBase, size uint32, target Target, perms Perms, caps Caps, tag RegionTag, relocatable, supportsOverlay bool, priority int) (*Region, error) {
	if _, exists := m.byName[name]; exists {
		return nil, &ControlPlaneError{Op: "CreateRegion", Detail: fmt.Sprintf("duplicate region name %q", name)}
	}
	id := m.nextID
	m.nextID++
	region := &Region{
		ID:              id,
		Name:            name,
		PreferredBase:   preferredBase,
		Size:            size,
		Target:          target,
		DefaultPerms:    perms,
		Caps:            caps,
		Tag:             tag,
		IsRelocatable:   relocatable,
		SupportsOverlay: supportsOverlay,
		Priority:        priority,
	}
	m.regions[id] = region
	m.byName[name] = id
	return region, nil
}

// Region looks up a region by id.
func (m *RegionManager) Region(id int32) (*Region, bool) {
	r, ok := m.regions[id]
	return r, ok
}

// RegionByName looks up a region by name.
func (m *RegionManager) RegionByName(name string) (*Region, bool) {
	id, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	r, ok := m.regions[id]
	return r, ok
}

// MapAt maps a region into the bus at base, rejecting an attempt to map an
// unrelocatable region off its preferred base (spec.md §7).
func (m *RegionManager) MapAt(bus *Bus, region *Region, base uint32, deviceID int32) error {
	if !region.IsRelocatable && base != region.PreferredBase {
		return &ControlPlaneError{Op: "MapAt", Detail: fmt.Sprintf("region %q is not relocatable off $%X", region.Name, region.PreferredBase)}
	}
	return bus.MapRegion(base, region.Size, deviceID, region.Tag, region.DefaultPerms, region.Caps, region.Target, 0)
}

// All returns every region, for tooling enumeration.
func (m *RegionManager) All() []*Region {
	out := make([]*Region, 0, len(m.regions))
	for _, r := range m.regions {
		out = append(out, r)
	}
	return out
}
