//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	// Hz is the wakeup rate of the headless loop.
	Hz int
	// Step is the number of virtual ticks advanced per wakeup.
	Step int
	// Ticks stops the run after this many virtual ticks; 0 runs forever.
	Ticks uint64
}

// RunHeadless drives the virtual timer without opening a window. The
// machine itself runs concurrently; this loop only feeds time.
func RunHeadless(ctx context.Context, core *VirtualCore, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	if cfg.Step <= 0 {
		cfg.Step = 1
	}

	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}
	t := time.NewTicker(d)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			core.AdvanceTicks(int64(cfg.Step))
			tick += uint64(cfg.Step)
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
		}
	}
}
