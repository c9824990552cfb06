// main.go - Minimal bring-up demo for the memory/timing substrate

package main

import (
	"fmt"
	"os"
)

// main assembles a small machine from a provisioning bundle and steps its
// scheduler far enough to dispatch a couple of timer events, printing the
// resulting page-table and signal state. It stands in for a CPU client:
// the substrate has no opcode decoder of its own (spec.md §1 Non-goals),
// so there is nothing here resembling the engine's own -ie32/-m68k
// dispatch or its GUI front end.
func main() {
	bootROM := make([]byte, 16*1024)
	bootROM[len(bootROM)-2] = 0x00
	bootROM[len(bootROM)-1] = 0xC0 // reset vector -> $C000, the ROM's own base

	bundle := ProvisioningBundle{
		RequestedRAMSize: 48 * 1024,
		ROMImages:        map[string][]byte{"boot": bootROM},
		Devices: []DeviceSpec{
			{Kind: "timer", Name: "system-timer", WiringPath: "root/timer0"},
		},
	}

	result, err := BringUp(bundle, DefaultMachineConstants)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bring-up failed: %v\n", err)
		os.Exit(1)
	}

	sched := NewScheduler()
	signals := NewSignalBus()

	timerID := int32(0)
	if info, ok := result.Devices.Lookup(0); ok {
		timerID = info.ID
	}

	ticks := 0
	var tick EventCallback
	tick = func(ctx *SchedulerContext) {
		ticks++
		fmt.Printf("timer fired at cycle %d\n", ctx.Now)
		if ticks < 3 {
			ctx.Scheduler.ScheduleAfter(100, EventTimer, 0, tick, "system-timer")
		} else {
			ctx.Signals.Assert(LineIrq, timerID, ctx.Now)
		}
	}
	sched.ScheduleAfter(100, EventTimer, 0, tick, "system-timer")

	for {
		if !sched.JumpToNextEventAndDispatch(signals, result.Bus) {
			break
		}
		if signals.Sample(LineIrq) {
			break
		}
	}

	fmt.Printf("entry point: $%04X\n", result.EntryPoint)
	fmt.Printf("ram page 0:  %+v\n", result.Bus.PageEntryFor(0))
	fmt.Printf("rom page:    %+v\n", result.Bus.PageEntryFor(result.Constants.BootROMBase))
	fmt.Printf("irq line asserted: %v\n", signals.Sample(LineIrq))

	monitor := NewDevMonitor(result.Bus, sched, signals, result.Devices)
	monitor.Run(os.Stdin, os.Stdout)
}
