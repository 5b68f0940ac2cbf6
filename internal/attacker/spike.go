package attacker

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/cti-systems/reactorctl/internal/noise"
	"github.com/cti-systems/reactorctl/internal/tagstore"
)

// SpikePeriod is the Spike engine's scan cadence (~50 Hz).
const SpikePeriod = 20 * time.Millisecond

// SpikeMode selects how spike_val is computed from the tag's current value.
type SpikeMode string

const (
	SpikeAbsolute SpikeMode = "absolute"
	SpikeMultiply SpikeMode = "multiply"
	SpikeOffset   SpikeMode = "offset"
)

// SpikeParams are the operator-provided parameters for one Spike campaign.
type SpikeParams struct {
	Mode           SpikeMode
	Abs            float64 // SpikeAbsolute
	Factor         float64 // SpikeMultiply
	Delta          float64 // SpikeOffset
	PPerSec        float64 // per-second probability of starting a spike
	SpikeLenMs     float64
	WriteIntervalMs float64
}

type spikeTargetState struct {
	spiking    bool
	until      time.Time
	lastWrite  time.Time
}

// Spike starts bursty outlier writes on a target with probability
// p_per_sec · dt_s per tick (capped at 0.9), holding spike_val for
// spike_len_ms at cadence write_interval_ms.
type Spike struct {
	store    tagstore.Store
	targets  []string
	params   SpikeParams
	rng      noise.Source
	state    map[string]*spikeTargetState
	campaign *Campaign
	lastTick time.Time
}

// NewSpike constructs a Spike engine.
func NewSpike(store tagstore.Store, targets []string, params SpikeParams, rng noise.Source) *Spike {
	st := make(map[string]*spikeTargetState, len(targets))
	for _, t := range targets {
		st[t] = &spikeTargetState{}
	}
	return &Spike{store: store, targets: targets, params: params, rng: rng, state: st}
}

func (s *Spike) bind(c *Campaign) { s.campaign = c }

func spikeValue(mode SpikeMode, current float64, p SpikeParams) float64 {
	switch mode {
	case SpikeAbsolute:
		return p.Abs
	case SpikeMultiply:
		return current * p.Factor
	case SpikeOffset:
		return current + p.Delta
	default:
		return current
	}
}

func clampSpike(tag string, v float64) float64 {
	if strings.Contains(tag, "flow") || strings.Contains(tag, "valve") {
		if v < 0 {
			return 0
		}
		if v > 1.5 {
			return 1.5
		}
	}
	return v
}

func (s *Spike) tick(_ context.Context, now time.Time) {
	dtS := SpikePeriod.Seconds()
	if !s.lastTick.IsZero() {
		dtS = now.Sub(s.lastTick).Seconds()
	}
	s.lastTick = now

	prob := s.params.PPerSec * dtS
	if prob > 0.9 {
		prob = 0.9
	}

	for _, tag := range s.targets {
		st := s.state[tag]
		if !st.spiking {
			if s.rng.Uniform(0, 1) < prob {
				st.spiking = true
				st.until = now.Add(time.Duration(s.params.SpikeLenMs) * time.Millisecond)
				st.lastWrite = time.Time{}
			}
			continue
		}

		if now.After(st.until) {
			st.spiking = false
			continue
		}

		interval := time.Duration(s.params.WriteIntervalMs) * time.Millisecond
		if !st.lastWrite.IsZero() && now.Sub(st.lastWrite) < interval {
			continue
		}
		st.lastWrite = now

		current := s.store.Get(tag).UnwrapOr(0)
		v := clampSpike(tag, spikeValue(s.params.Mode, current, s.params))

		s.campaign.recordAttempt()
		if err := s.store.Set(tag, v); err != nil {
			s.campaign.recordFailure()
			log.Printf("attacker/spike: write to %s failed: %v", tag, err)
		}
	}
}

func (s *Spike) pendingAtEnd() int { return 0 }

// NewSpikeCampaign resolves targets against the store's declared tags and
// returns a Campaign ready to Run at SpikePeriod.
func NewSpikeCampaign(runID string, store tagstore.Store, targets []string, params SpikeParams, rng noise.Source) (*Campaign, []string) {
	resolved, skipped := tagstore.ResolveTargets(store.Names(), targets)
	sp := NewSpike(store, resolved, params, rng)
	c := New(runID, "spike", resolved, sp)
	sp.bind(c)
	return c, skipped
}
