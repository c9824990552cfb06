// swapgroup.go - Named sets of alternative page-range variants

package main

import "fmt"

// SwapVariant is one named alternative for a SwapGroup's page range.
type SwapVariant struct {
	Name     string
	DeviceID int32
	Tag      RegionTag
	Perms    Perms
	Caps     Caps
	Target   Target
	PhysBase uint32
}

// SwapGroup is a named set of alternative variants for one page range
// (e.g. ROM / BankA / BankB for the same address window); exactly one
// variant is active at a time, selected atomically over the group
// (spec.md §3, §4.4).
type SwapGroup struct {
	ID       int32
	Name     string
	VirtBase uint32
	Size     uint32
	variants map[string]SwapVariant
	active   string
}

// SwapGroupManager owns the set of swap groups over one bus.
type SwapGroupManager struct {
	bus    *Bus
	groups map[string]*SwapGroup
	nextID int32
}

// NewSwapGroupManager builds a swap-group manager bound to bus.
func NewSwapGroupManager(bus *Bus) *SwapGroupManager {
	return &SwapGroupManager{bus: bus, groups: make(map[string]*SwapGroup)}
}

// CreateSwapGroup registers a new, variant-less swap group over
// [virtBase, virtBase+size).
func (m *SwapGroupManager) CreateSwapGroup(name string, virtBase, size uint32) (*SwapGroup, error) {
	if _, exists := m.groups[name]; exists {
		return nil, &ControlPlaneError{Op: "CreateSwapGroup", Detail: fmt.Sprintf("duplicate swap group name %q", name)}
	}
	id := m.nextID
	m.nextID++
	group := &SwapGroup{ID: id, Name: name, VirtBase: virtBase, Size: size, variants: make(map[string]SwapVariant)}
	m.groups[name] = group
	return group, nil
}

// AddVariant registers a named variant on group.
func (g *SwapGroup) AddVariant(variant SwapVariant) {
	g.variants[variant.Name] = variant
}

// SelectVariant atomically remaps the group's whole range to the named
// variant's target/phys-base: no partial view is observable mid-switch
// (spec.md §8 property 10) because MapPageRange overwrites each page entry
// in one assignment and nothing yields control between pages in this
// single-threaded design.
func (m *SwapGroupManager) SelectVariant(groupName, variantName string) error {
	group, ok := m.groups[groupName]
	if !ok {
		return &ControlPlaneError{Op: "SelectVariant", Detail: fmt.Sprintf("unknown swap group %q", groupName)}
	}
	variant, ok := group.variants[variantName]
	if !ok {
		return &ControlPlaneError{Op: "SelectVariant", Detail: fmt.Sprintf("unknown variant %q in group %q", variantName, groupName)}
	}
	if err := m.bus.MapRegion(group.VirtBase, group.Size, variant.DeviceID, variant.Tag, variant.Perms, variant.Caps, variant.Target, variant.PhysBase); err != nil {
		return err
	}
	group.active = variantName
	return nil
}

// ActiveVariant returns the name of groupName's currently selected variant.
func (m *SwapGroupManager) ActiveVariant(groupName string) (string, error) {
	group, ok := m.groups[groupName]
	if !ok {
		return "", &ControlPlaneError{Op: "ActiveVariant", Detail: fmt.Sprintf("unknown swap group %q", groupName)}
	}
	return group.active, nil
}

// GroupID returns the structural id of the named swap group.
func (m *SwapGroupManager) GroupID(groupName string) (int32, error) {
	group, ok := m.groups[groupName]
	if !ok {
		return 0, &ControlPlaneError{Op: "GroupID", Detail: fmt.Sprintf("unknown swap group %q", groupName)}
	}
	return group.ID, nil
}
