package main

import "testing"

func TestDeviceRegistryRegisterAndLookup(t *testing.T) {
	r := NewDeviceRegistry()
	id, err := r.Register("timer", "system-timer", "root/timer0")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	info, ok := r.Lookup(id)
	if !ok || info.Name != "system-timer" || info.Kind != "timer" {
		t.Fatalf("Lookup returned unexpected info: %+v, ok=%v", info, ok)
	}
}

func TestDeviceRegistryRejectsDuplicateName(t *testing.T) {
	r := NewDeviceRegistry()
	if _, err := r.Register("timer", "t0", ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := r.Register("timer", "t0", ""); err == nil {
		t.Fatalf("expected an error registering a duplicate device name")
	}
}

func TestDeviceRegistryLookupUnknownID(t *testing.T) {
	r := NewDeviceRegistry()
	if _, ok := r.Lookup(99); ok {
		t.Fatalf("Lookup should report false for an unregistered id")
	}
}

func TestDeviceRegistryAll(t *testing.T) {
	r := NewDeviceRegistry()
	r.Register("timer", "t0", "")
	r.Register("dma", "d0", "")
	if len(r.All()) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(r.All()))
	}
}
