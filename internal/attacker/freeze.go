package attacker

import (
	"context"
	"log"
	"time"

	"github.com/cti-systems/reactorctl/internal/tagstore"
)

// FreezePeriod is the Freeze engine's write cadence.
const FreezePeriod = 100 * time.Millisecond

// Freeze holds a set of tags at a fixed value each, overwriting whatever the
// PLC or simulator would otherwise drive them to. Each target can be held at
// its own value — either an operator-provided constant or the target's own
// reading captured at campaign start.
type Freeze struct {
	store    tagstore.Store
	targets  []string
	values   map[string]float64
	campaign *Campaign
}

// NewFreeze constructs a Freeze engine holding each target at values[target].
// Every target must have an entry in values.
func NewFreeze(store tagstore.Store, targets []string, values map[string]float64) *Freeze {
	return &Freeze{store: store, targets: targets, values: values}
}

// CaptureValues reads the current value of every target, for a Freeze that
// holds each tag at its own reading rather than an operator-supplied
// constant. Targets that fail to read are omitted and logged, matching the
// original attacker's tolerant _receive_safe behavior.
func CaptureValues(store tagstore.Store, targets []string) map[string]float64 {
	values := make(map[string]float64, len(targets))
	for _, tag := range targets {
		v, err := store.Get(tag).Unwrap()
		if err != nil {
			log.Printf("attacker/freeze: could not capture current value of %s: %v", tag, err)
			continue
		}
		values[tag] = v
	}
	return values
}

// bind attaches the Campaign driving this engine, so tick can record
// attempted/failed writes into the shared summary counters.
func (f *Freeze) bind(c *Campaign) { f.campaign = c }

func (f *Freeze) tick(_ context.Context, _ time.Time) {
	for _, tag := range f.targets {
		v, ok := f.values[tag]
		if !ok {
			continue
		}
		f.campaign.recordAttempt()
		if err := f.store.Set(tag, v); err != nil {
			f.campaign.recordFailure()
			log.Printf("attacker/freeze: write to %s failed: %v", tag, err)
		}
	}
}

func (f *Freeze) pendingAtEnd() int { return 0 }

// NewFreezeCampaign resolves targets against the store's declared tags and
// returns a Campaign ready to Run at FreezePeriod. If value is nil, each
// target is frozen at its own current reading (captured once, here); if
// value is non-nil, every target is frozen at that single operator-provided
// constant.
func NewFreezeCampaign(runID string, store tagstore.Store, targets []string, value *float64) (*Campaign, []string) {
	resolved, skipped := tagstore.ResolveTargets(store.Names(), targets)

	var values map[string]float64
	if value == nil {
		values = CaptureValues(store, resolved)
	} else {
		values = make(map[string]float64, len(resolved))
		for _, tag := range resolved {
			values[tag] = *value
		}
	}

	f := NewFreeze(store, resolved, values)
	c := New(runID, "freeze", resolved, f)
	f.bind(c)
	return c, skipped
}
