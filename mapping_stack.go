// mapping_stack.go - LIFO overlay stack for a contiguous virtual range

package main

// MappingEntry is one LIFO entry in a MappingStack: a region reference plus
// the overrides that apply while it is active.
type MappingEntry struct {
	Region         *Region
	IsActive       bool
	PermOverride   *Perms
	PhysicalOffset uint32
	Priority       int
	TagOverride    *RegionTag
}

// MappingStack is a LIFO of MappingEntry values for one contiguous virtual
// range. The active entry is the topmost whose IsActive is true; the page
// table materialises only the active entry (spec.md §3).
type MappingStack struct {
	VirtBase uint32
	Size     uint32
	entries  []MappingEntry
}

// NewMappingStack creates an empty stack governing [virtBase, virtBase+size).
func NewMappingStack(virtBase, size uint32) *MappingStack {
	return &MappingStack{VirtBase: virtBase, Size: size}
}

// Push adds entry to the top of the stack.
func (s *MappingStack) Push(entry MappingEntry) {
	s.entries = append(s.entries, entry)
}

// Pop removes and returns the topmost entry, if any.
func (s *MappingStack) Pop() (MappingEntry, bool) {
	if len(s.entries) == 0 {
		return MappingEntry{}, false
	}
	top := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return top, true
}

// Active returns the topmost entry with IsActive == true, searching from
// the top of the stack down.
func (s *MappingStack) Active() (MappingEntry, bool) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].IsActive {
			return s.entries[i], true
		}
	}
	return MappingEntry{}, false
}

// SetActive toggles IsActive on the topmost entry and recomputes the page
// table for this stack's range.
func (s *MappingStack) SetActive(bus *Bus, active bool) error {
	if len(s.entries) == 0 {
		return &ControlPlaneError{Op: "SetActive", Detail: "mapping stack is empty"}
	}
	s.entries[len(s.entries)-1].IsActive = active
	return s.Materialize(bus)
}

// Materialize recomputes the page table over this stack's range from its
// current active entry (or leaves pages unmapped if none is active).
func (s *MappingStack) Materialize(bus *Bus) error {
	active, ok := s.Active()
	if !ok {
		return bus.MapRegion(s.VirtBase, s.Size, -1, TagUnmapped, 0, 0, nil, 0)
	}
	perms := active.Region.DefaultPerms
	if active.PermOverride != nil {
		perms = *active.PermOverride
	}
	tag := active.Region.Tag
	if active.TagOverride != nil {
		tag = *active.TagOverride
	}
	return bus.MapRegion(s.VirtBase, s.Size, active.Region.ID, tag, perms, active.Region.Caps, active.Region.Target, active.PhysicalOffset)
}
