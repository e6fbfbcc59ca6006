//go:build !tinygo

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ember/arch"
	"ember/console"
	"ember/hal"
	"ember/internal/buildinfo"
	"ember/kconfig"
	"ember/kernel"
	"ember/softtimer"
	"ember/vmport"
)

func main() {
	var hcfg hal.HeadlessConfig
	var metricsAddr string
	var logLevel string
	var workers int
	flag.BoolVar(&hcfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&hcfg.Hz, "hz", 60, "Wakeup rate in headless mode.")
	flag.Uint64Var(&hcfg.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.StringVar(&metricsAddr, "metrics", "", "Serve Prometheus metrics on this address (empty = off).")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error.")
	flag.IntVar(&workers, "workers", 2, "Interpreter threads in the demo workload.")
	flag.Parse()

	logger := newLogger(logLevel)
	logger.Info().Str("version", buildinfo.String()).Msg("ember starting")

	tbl := kconfig.Default()
	cfg, err := kernel.ConfigFromTable(tbl)
	if err != nil {
		logger.Fatal().Err(err).Msg("kernel configuration")
	}
	hwHz, _ := tbl.Value(kconfig.SysClockHWCyclesPerSec)
	maxDays, _ := tbl.Value(kconfig.SysClockMaxTimeoutDays)

	core := hal.NewVirtualCore(uint32(hwHz))
	k := kernel.New(core, cfg)
	cpu := arch.New(core, k)
	if err := cpu.Init(uint32(hwHz)); err != nil {
		logger.Fatal().Err(err).Msg("timer bring-up")
	}
	timers := softtimer.NewList(core, cpu.Ticks, cfg.TicksPerSec, maxDays)
	cpu.SetTickHook(timers.Dispatch)

	fb := hal.NewHostFramebuffer(320, 240)
	kbd := hal.NewHostKeyboard()
	cons := console.New(fb)

	k.SetFatalHandler(func(info kernel.PanicInfo) bool {
		name := "?"
		if info.Thread != nil {
			name = info.Thread.Name()
		}
		logger.Error().Str("thread", name).Str("value", fmt.Sprint(info.Value)).Msg("thread panic")
		cons.Fault(name, info.Value, info.Stack)
		// Let the panic surface with its original stack.
		return false
	})

	line := lineLogger{logger}
	port := vmport.New(k, line)
	d := newDemo(k, cpu, port, timers, cons, line, workers)

	if metricsAddr != "" {
		prometheus.MustRegister(newMachineCollector(k, port, timers, d.svc))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			logger.Info().Str("addr", metricsAddr).Msg("metrics listening")
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	k.Start(d.main)

	if hcfg.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, core, hcfg); err != nil {
			if err == context.Canceled {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := hal.RunWindow(core, fb, kbd, "Ember ("+buildinfo.Short()+")"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
