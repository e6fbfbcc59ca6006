//go:build tinygo && baremetal

package main

import (
	"machine"
	"strings"

	"ember/arch"
	"ember/console"
	"ember/hal"
	"ember/kconfig"
	"ember/kernel"
	"ember/softtimer"
	"ember/vmport"
)

func main() {
	line := hal.NewSerialLogger()
	core := hal.NewCortexMCore()

	tbl := kconfig.Default()
	cfg, err := kernel.ConfigFromTable(tbl)
	if err != nil {
		line.WriteLineString("kernel configuration: " + err.Error())
		return
	}
	maxDays, _ := tbl.Value(kconfig.SysClockMaxTimeoutDays)

	k := kernel.New(core, cfg)
	cpu := arch.New(core, k)
	if err := cpu.Init(machine.CPUFrequency()); err != nil {
		line.WriteLineString("timer bring-up: " + err.Error())
		return
	}
	timers := softtimer.NewList(core, cpu.Ticks, cfg.TicksPerSec, maxDays)
	cpu.SetTickHook(timers.Dispatch)

	fb, err := hal.NewBoardFramebuffer()
	if err != nil {
		line.WriteLineString("display bring-up: " + err.Error())
		return
	}
	cons := console.New(fb)

	k.SetFatalHandler(func(info kernel.PanicInfo) bool {
		name := "?"
		if info.Thread != nil {
			name = info.Thread.Name()
		}
		line.WriteLineString("thread panic in " + name)
		for _, l := range strings.Split(string(info.Stack), "\n") {
			if l != "" {
				line.WriteLineString(l)
			}
		}
		cons.Fault(name, info.Value, info.Stack)
		// Confine the fault; the panel keeps the fault screen up.
		return true
	})

	port := vmport.New(k, line)
	d := newDemo(k, cpu, port, timers, cons, line, 2)

	k.Start(d.main)

	// The machine runs on its own threads from here.
	select {}
}
