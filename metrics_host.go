//go:build !tinygo

package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"ember/kernel"
	"ember/service"
	"ember/softtimer"
	"ember/vmport"
)

// machineCollector exposes the simulated machine's counters to
// Prometheus. Every source is an atomic snapshot, so Collect never
// touches the kernel lock.
type machineCollector struct {
	k      *kernel.Kernel
	port   *vmport.Port
	timers *softtimer.List
	svc    *service.Task

	contextSwitches *prometheus.Desc
	threadsCreated  *prometheus.Desc
	threadsExited   *prometheus.Desc
	tickAnnounces   *prometheus.Desc
	timeoutsExpired *prometheus.Desc
	sliceRotations  *prometheus.Desc
	uptimeTicks     *prometheus.Desc
	threadsLive     *prometheus.Desc

	vmCreated   *prometheus.Desc
	vmFinished  *prometheus.Desc
	vmReclaimed *prometheus.Desc
	vmGil       *prometheus.Desc
	vmActive    *prometheus.Desc

	timersFired *prometheus.Desc

	svcPolls     *prometheus.Desc
	svcProcessed *prometheus.Desc
	svcDropped   *prometheus.Desc
}

func newMachineCollector(k *kernel.Kernel, port *vmport.Port, timers *softtimer.List, svc *service.Task) *machineCollector {
	return &machineCollector{
		k:      k,
		port:   port,
		timers: timers,
		svc:    svc,

		contextSwitches: prometheus.NewDesc(
			"ember_sched_context_switches_total",
			"Thread context switches performed by the scheduler",
			nil, nil),
		threadsCreated: prometheus.NewDesc(
			"ember_sched_threads_created_total",
			"Kernel threads created since boot",
			nil, nil),
		threadsExited: prometheus.NewDesc(
			"ember_sched_threads_exited_total",
			"Kernel threads that ran to completion or were aborted",
			nil, nil),
		tickAnnounces: prometheus.NewDesc(
			"ember_sched_tick_announces_total",
			"Tick batches announced to the scheduler",
			nil, nil),
		timeoutsExpired: prometheus.NewDesc(
			"ember_sched_timeouts_expired_total",
			"Sleeps and waits that ended by timeout",
			nil, nil),
		sliceRotations: prometheus.NewDesc(
			"ember_sched_slice_rotations_total",
			"Round-robin rotations among equal-priority threads",
			nil, nil),
		uptimeTicks: prometheus.NewDesc(
			"ember_sched_uptime_ticks",
			"Virtual ticks elapsed since boot",
			nil, nil),
		threadsLive: prometheus.NewDesc(
			"ember_sched_threads",
			"Kernel threads currently alive",
			nil, nil),

		vmCreated: prometheus.NewDesc(
			"ember_vm_threads_created_total",
			"Interpreter threads created through the port",
			nil, nil),
		vmFinished: prometheus.NewDesc(
			"ember_vm_threads_finished_total",
			"Interpreter threads whose entry returned",
			nil, nil),
		vmReclaimed: prometheus.NewDesc(
			"ember_vm_threads_reclaimed_total",
			"Finished interpreter threads swept from the registry",
			nil, nil),
		vmGil: prometheus.NewDesc(
			"ember_vm_gil_acquires_total",
			"Times the interpreter lock was taken",
			nil, nil),
		vmActive: prometheus.NewDesc(
			"ember_vm_threads_active",
			"Interpreter threads currently registered",
			nil, nil),

		timersFired: prometheus.NewDesc(
			"ember_timers_fired_total",
			"Soft timer callbacks dispatched",
			nil, nil),

		svcPolls: prometheus.NewDesc(
			"ember_svc_polls_total",
			"Service task wakeups",
			nil, nil),
		svcProcessed: prometheus.NewDesc(
			"ember_svc_processed_total",
			"Work items handled by the service task",
			nil, nil),
		svcDropped: prometheus.NewDesc(
			"ember_svc_dropped_total",
			"Work items refused by the service task",
			nil, nil),
	}
}

func (c *machineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.contextSwitches
	ch <- c.threadsCreated
	ch <- c.threadsExited
	ch <- c.tickAnnounces
	ch <- c.timeoutsExpired
	ch <- c.sliceRotations
	ch <- c.uptimeTicks
	ch <- c.threadsLive
	ch <- c.vmCreated
	ch <- c.vmFinished
	ch <- c.vmReclaimed
	ch <- c.vmGil
	ch <- c.vmActive
	ch <- c.timersFired
	ch <- c.svcPolls
	ch <- c.svcProcessed
	ch <- c.svcDropped
}

func (c *machineCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.k.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.contextSwitches, prometheus.CounterValue, float64(snap.ContextSwitches))
	ch <- prometheus.MustNewConstMetric(c.threadsCreated, prometheus.CounterValue, float64(snap.ThreadsCreated))
	ch <- prometheus.MustNewConstMetric(c.threadsExited, prometheus.CounterValue, float64(snap.ThreadsExited))
	ch <- prometheus.MustNewConstMetric(c.tickAnnounces, prometheus.CounterValue, float64(snap.TickAnnounces))
	ch <- prometheus.MustNewConstMetric(c.timeoutsExpired, prometheus.CounterValue, float64(snap.TimeoutsExpired))
	ch <- prometheus.MustNewConstMetric(c.sliceRotations, prometheus.CounterValue, float64(snap.SliceRotations))
	ch <- prometheus.MustNewConstMetric(c.uptimeTicks, prometheus.CounterValue, float64(c.k.Uptime()))
	ch <- prometheus.MustNewConstMetric(c.threadsLive, prometheus.GaugeValue, float64(c.k.NumThreads()))

	vst := c.port.Stats()
	ch <- prometheus.MustNewConstMetric(c.vmCreated, prometheus.CounterValue, float64(vst.Created))
	ch <- prometheus.MustNewConstMetric(c.vmFinished, prometheus.CounterValue, float64(vst.Finished))
	ch <- prometheus.MustNewConstMetric(c.vmReclaimed, prometheus.CounterValue, float64(vst.Reclaimed))
	ch <- prometheus.MustNewConstMetric(c.vmGil, prometheus.CounterValue, float64(vst.GilAcquires))
	ch <- prometheus.MustNewConstMetric(c.vmActive, prometheus.GaugeValue, float64(vst.Active))

	ch <- prometheus.MustNewConstMetric(c.timersFired, prometheus.CounterValue, float64(c.timers.Fired()))

	sst := c.svc.Stats()
	ch <- prometheus.MustNewConstMetric(c.svcPolls, prometheus.CounterValue, float64(sst.Polls))
	ch <- prometheus.MustNewConstMetric(c.svcProcessed, prometheus.CounterValue, float64(sst.Processed))
	ch <- prometheus.MustNewConstMetric(c.svcDropped, prometheus.CounterValue, float64(sst.Dropped))
}
