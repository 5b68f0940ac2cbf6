package attacker

import (
	"context"
	"log"
	"time"

	"github.com/cti-systems/reactorctl/internal/noise"
	"github.com/cti-systems/reactorctl/internal/tagstore"
)

// LatencyProxyPeriod is the engine's own drain/scan cadence. Per-target
// sampling runs at the slower, operator-provided SampleMs cadence.
const LatencyProxyPeriod = 20 * time.Millisecond

// LatencyProxyParams are the operator-provided parameters for one Latency
// Proxy campaign.
type LatencyProxyParams struct {
	SampleMs  float64
	BaseLatMs float64
	JitterMs  float64
	DropProb  float64
}

type scheduledWrite struct {
	execInstant time.Time
	tag         string
	value       float64
}

// LatencyProxy samples a tag, delays the write by base_lat_ms ± jitter_ms,
// and executes it later in FIFO order, optionally dropping it with
// probability drop_prob. Writes still queued when the campaign ends are
// discarded, not flushed; PendingAtEnd reports how many.
type LatencyProxy struct {
	store      tagstore.Store
	targets    []string
	params     LatencyProxyParams
	rng        noise.Source
	queue      []scheduledWrite
	lastSample map[string]time.Time
	campaign   *Campaign
}

// NewLatencyProxy constructs a Latency Proxy engine.
func NewLatencyProxy(store tagstore.Store, targets []string, params LatencyProxyParams, rng noise.Source) *LatencyProxy {
	return &LatencyProxy{
		store:      store,
		targets:    targets,
		params:     params,
		rng:        rng,
		lastSample: make(map[string]time.Time, len(targets)),
	}
}

func (l *LatencyProxy) bind(c *Campaign) { l.campaign = c }

// tick samples any target whose sample interval has elapsed, then drains
// every queued write whose exec instant has passed, in enqueue order.
func (l *LatencyProxy) tick(_ context.Context, now time.Time) {
	sampleInterval := time.Duration(l.params.SampleMs) * time.Millisecond
	for _, tag := range l.targets {
		last, ok := l.lastSample[tag]
		if ok && now.Sub(last) < sampleInterval {
			continue
		}
		l.lastSample[tag] = now

		v := l.store.Get(tag).UnwrapOr(0)
		lat := l.params.BaseLatMs + l.rng.Uniform(-l.params.JitterMs, l.params.JitterMs)
		if lat < 0 {
			lat = 0
		}
		exec := now.Add(time.Duration(lat * float64(time.Millisecond)))
		l.queue = append(l.queue, scheduledWrite{execInstant: exec, tag: tag, value: v})
	}

	i := 0
	for i < len(l.queue) && !l.queue[i].execInstant.After(now) {
		sw := l.queue[i]
		i++

		if l.rng.Uniform(0, 1) < l.params.DropProb {
			l.campaign.recordDrop()
			continue
		}

		l.campaign.recordAttempt()
		if err := l.store.Set(sw.tag, sw.value); err != nil {
			l.campaign.recordFailure()
			log.Printf("attacker/latencyproxy: write to %s failed: %v", sw.tag, err)
		}
	}
	l.queue = l.queue[i:]
}

func (l *LatencyProxy) pendingAtEnd() int { return len(l.queue) }

// NewLatencyProxyCampaign resolves targets against the store's declared
// tags and returns a Campaign ready to Run at LatencyProxyPeriod.
func NewLatencyProxyCampaign(runID string, store tagstore.Store, targets []string, params LatencyProxyParams, rng noise.Source) (*Campaign, []string) {
	resolved, skipped := tagstore.ResolveTargets(store.Names(), targets)
	l := NewLatencyProxy(store, resolved, params, rng)
	c := New(runID, "latency_proxy", resolved, l)
	l.bind(c)
	return c, skipped
}
