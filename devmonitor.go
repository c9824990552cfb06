// devmonitor.go - Interactive raw-terminal inspector over the substrate

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// DevMonitor is a narrow debugging console over the bus, scheduler, signal
// fabric and device registry — the substrate-only sibling of the engine's
// own MachineMonitor, with no disassembler or CPU register view (those
// belong to the external CPU client, out of scope here per spec.md §1).
type DevMonitor struct {
	bus      *Bus
	sched    *Scheduler
	signals  *SignalBus
	devices  *DeviceRegistry
	faultLog []BusFault
}

// NewDevMonitor wires a monitor to a running machine's substrate.
func NewDevMonitor(bus *Bus, sched *Scheduler, signals *SignalBus, devices *DeviceRegistry) *DevMonitor {
	return &DevMonitor{bus: bus, sched: sched, signals: signals, devices: devices}
}

// RecordFault appends a fault to the monitor's scrollback, typically wired
// from a CPU client's fault handler.
func (m *DevMonitor) RecordFault(f BusFault) {
	m.faultLog = append(m.faultLog, f)
}

// Run reads commands from in and writes responses to out until in is
// exhausted or a "quit" command is read. It does not itself put the
// terminal in raw mode — RunInteractive does that when attached to a real
// stdin.
func (m *DevMonitor) Run(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !m.dispatch(line, out) {
			return
		}
	}
}

// RunInteractive puts fd into raw mode for the duration of the session and
// restores it on return, mirroring terminal_host.go's use of
// golang.org/x/term for the engine's own interactive consoles.
func (m *DevMonitor) RunInteractive(fd int, in io.Reader, out io.Writer) error {
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("devmonitor: failed to set raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)
	m.Run(in, out)
	return nil
}

func (m *DevMonitor) dispatch(line string, out io.Writer) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "quit", "exit":
		return false
	case "page":
		if len(fields) < 2 {
			fmt.Fprintln(out, "usage: page <addr>")
			return true
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "$"), 16, 32)
		if err != nil {
			fmt.Fprintf(out, "bad address %q: %v\n", fields[1], err)
			return true
		}
		entry := m.bus.PageEntryFor(uint32(addr))
		fmt.Fprintf(out, "page %d: device=%d tag=%s perms=%v caps=%v physBase=$%X\n",
			uint32(addr)>>pageShift, entry.DeviceID, entry.RegionTag, entry.Perms, entry.Caps, entry.PhysicalBase)
	case "fault-log":
		for i, f := range m.faultLog {
			fmt.Fprintf(out, "[%d] %s\n", i, f.Error())
		}
	case "queue":
		next, ok := m.sched.PeekNextDue()
		if !ok {
			fmt.Fprintln(out, "queue empty")
			return true
		}
		fmt.Fprintf(out, "now=%d next-due=%d\n", m.sched.Now(), next)
	case "signals":
		for _, l := range []SignalLine{LineIrq, LineNmi, LineReset, LineRdy, LineDmaReq, LineBusEnable} {
			fmt.Fprintf(out, "%s=%v ", l, m.signals.Sample(l))
		}
		fmt.Fprintln(out)
	case "devices":
		for _, d := range m.devices.All() {
			fmt.Fprintf(out, "[%d] %s (%s) %s\n", d.ID, d.Name, d.Kind, d.WiringPath)
		}
	default:
		fmt.Fprintf(out, "unknown command %q\n", fields[0])
	}
	return true
}
