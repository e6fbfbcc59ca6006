package main

import (
	"fmt"

	"ember/arch"
	"ember/console"
	"ember/hal"
	"ember/kernel"
	"ember/service"
	"ember/softtimer"
	"ember/vmport"
)

// reportEvery is the number of increment bursts a worker runs between
// progress reports.
const reportEvery = 100

// progress is one worker's report, carried through the service task's
// queue to the console.
type progress struct {
	worker int
	total  uint64
}

// demo is the simulated interpreter workload: a few threads sharing
// one counter under the interpreter lock, reporting through the
// service task while the main thread keeps the status line fresh.
type demo struct {
	k    *kernel.Kernel
	cpu  *arch.CPU
	port *vmport.Port
	svc  *service.Task
	cons *console.Console
	log  hal.Logger

	workers int
	rounds  int

	// counter is shared interpreter state, guarded by the lock the
	// port hands out. No atomics on purpose.
	counter uint64
}

func newDemo(k *kernel.Kernel, cpu *arch.CPU, port *vmport.Port, timers *softtimer.List, cons *console.Console, line hal.Logger, workers int) *demo {
	if workers < 1 {
		workers = 1
	}
	if workers > vmport.MaxUserThreads {
		workers = vmport.MaxUserThreads
	}
	d := &demo{
		k:       k,
		cpu:     cpu,
		port:    port,
		cons:    cons,
		log:     line,
		workers: workers,
		rounds:  500,
	}
	d.svc = service.NewTask(k, timers, line, service.TaskConfig{
		Name:    "report",
		PollMs:  250,
		Handler: d.report,
	})
	return d
}

// main runs as the kernel's main thread.
func (d *demo) main() {
	d.cpu.EnableTickInterrupt()

	d.port.InitEarly(nil)
	d.port.Init(make([]uintptr, 2048))
	if err := d.svc.Start(); err != nil {
		d.log.WriteLineString("report task: " + err.Error())
	}

	for i := 0; i < d.workers; i++ {
		id, usable, err := d.port.Create(d.worker, i, 0)
		if err != nil {
			d.log.WriteLineString(fmt.Sprintf("vm thread %d: %v", i, err))
			continue
		}
		d.log.WriteLineString(fmt.Sprintf("vm thread %d up, id %d, %d stack bytes", i, id, usable))
	}
	d.cons.WriteLineString(fmt.Sprintf("machine up, %d vm threads", d.workers))

	tps := d.k.Config().TicksPerSec
	for {
		d.k.Sleep(tps / 2)
		snap := d.k.Snapshot()
		vst := d.port.Stats()
		d.cons.SetStatus(fmt.Sprintf("up %ds  vm %d  sw %d  gil %d",
			d.k.Uptime()/tps, vst.Active, snap.ContextSwitches, vst.GilAcquires))
		_ = d.cons.Flush()
	}
}

// worker is one interpreter thread: bursts of lock-guarded increments
// with a short sleep between bursts so lower-priority threads get the
// processor too.
func (d *demo) worker(arg any) {
	d.port.Start()
	idx := arg.(int)
	for burst := 1; ; burst++ {
		for r := 0; r < d.rounds; r++ {
			d.port.GilEnter()
			d.counter++
			d.port.GilExit()
		}
		if burst%reportEvery == 0 {
			d.port.GilEnter()
			total := d.counter
			d.port.GilExit()
			d.svc.Offer(progress{worker: idx, total: total})
		}
		d.k.Sleep(int64(3 + idx))
	}
}

// report runs on the service task and owns the slow console I/O the
// workers offloaded.
func (d *demo) report(item any) {
	p, ok := item.(progress)
	if !ok {
		return
	}
	d.cons.WriteLineString(fmt.Sprintf("vm-%d counted %d", p.worker, p.total))
}
