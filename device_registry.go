// device_registry.go - Write-once structural id <-> human name registry

package main

import "fmt"

// DeviceInfo decorates a structural device id with tooling-facing metadata.
// The hot path only ever stores the int32 id; DeviceInfo exists so trace
// viewers and debuggers can render something a human recognises
// (spec.md §4.8).
type DeviceInfo struct {
	ID         int32
	Kind       string
	Name       string
	WiringPath string
}

// DeviceRegistry is a write-once-then-read-many mapping id -> DeviceInfo,
// plus a monotonic id generator.
type DeviceRegistry struct {
	devices map[int32]DeviceInfo
	nextID  int32
}

// NewDeviceRegistry builds an empty registry. IDs start at 0; -1 is
// reserved as the "unmapped/no device" sentinel used throughout the bus.
func NewDeviceRegistry() *DeviceRegistry {
	return &DeviceRegistry{devices: make(map[int32]DeviceInfo)}
}

// Register assigns the next id to a device and records its metadata.
// Duplicate registration by name is an error (spec.md §4.8).
func (r *DeviceRegistry) Register(kind, name, wiringPath string) (int32, error) {
	for _, d := range r.devices {
		if d.Name == name {
			return 0, &ControlPlaneError{Op: "Register", Detail: fmt.Sprintf("duplicate device name %q", name)}
		}
	}
	id := r.nextID
	r.nextID++
	r.devices[id] = DeviceInfo{ID: id, Kind: kind, Name: name, WiringPath: wiringPath}
	return id, nil
}

// Lookup is infallible and cheap: an unknown id reports the zero DeviceInfo
// and ok=false.
func (r *DeviceRegistry) Lookup(id int32) (DeviceInfo, bool) {
	info, ok := r.devices[id]
	return info, ok
}

// All returns every registered device, for tooling enumeration.
func (r *DeviceRegistry) All() []DeviceInfo {
	out := make([]DeviceInfo, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	return out
}
