// Package looprt is the periodic loop runtime shared by every active
// component (simulator, PLC, HMI, attackers), generalizing the fixed-
// interval ticker loop of the station poller this module is modeled on from
// a single hardcoded cadence into a reusable primitive with an injected
// tick closure and elapsed-time bookkeeping.
package looprt

import (
	"context"
	"log"
	"time"
)

// Tick is invoked once per period with monotonically non-decreasing
// currentLoopTime and lastLoopTime (both time.Duration since Run started,
// not wall-clock, so tests can drive it without sleeping).
type Tick func(ctx context.Context, currentLoopTime, lastLoopTime time.Duration)

// Runtime invokes a single registered Tick closure at a fixed nominal
// period until its context is cancelled. It never catches up on slow
// ticks (no burst scheduling) and never suspends except between ticks.
type Runtime struct {
	period time.Duration
	tick   Tick

	// overrunFactor is how many multiples of period a gap must exceed
	// before it is logged as an overrun rather than ordinary jitter.
	overrunFactor float64
}

// New constructs a Runtime with nominal period and the given tick closure.
func New(period time.Duration, tick Tick) *Runtime {
	return &Runtime{period: period, tick: tick, overrunFactor: 2.0}
}

// Run blocks invoking tick every period until ctx is cancelled. Shutdown is
// cooperative: Run returns promptly after ctx.Done fires, without aborting
// a tick already in progress.
func (r *Runtime) Run(ctx context.Context) {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	start := time.Now()
	last := time.Duration(0)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			current := now.Sub(start)
			dt := current - last
			if dt <= 0 {
				dt = time.Millisecond
			}
			if dt > time.Duration(r.overrunFactor*float64(r.period)) {
				log.Printf("looprt: tick overrun: dt=%s nominal=%s", dt, r.period)
			}
			r.tick(ctx, current, last)
			last = current
		}
	}
}

// DtMillis converts a (current, last) pair from Tick into the dt_ms value
// the component's physics/control law operates on, applying the 1ms floor
// specified for the runtime contract.
func DtMillis(current, last time.Duration) float64 {
	dt := current - last
	ms := float64(dt.Milliseconds())
	if ms <= 0 {
		return 1
	}
	return ms
}
