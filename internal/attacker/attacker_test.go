package attacker

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cti-systems/reactorctl/internal/noise"
	"github.com/cti-systems/reactorctl/internal/tags"
	"github.com/cti-systems/reactorctl/internal/tagstore"
)

func newTestStore(t *testing.T) *tagstore.Memory {
	t.Helper()
	m := tagstore.NewMemory()
	if err := m.Initialize(tags.Defaults()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return m
}

func TestFreezeHoldsValueAgainstDrift(t *testing.T) {
	store := newTestStore(t)
	if err := store.Set(tags.CoreTempOutValue, 300.0); err != nil {
		t.Fatal(err)
	}

	f := NewFreeze(store, []string{tags.CoreTempOutValue}, map[string]float64{tags.CoreTempOutValue: 270.0})
	c := New("run-1", "freeze", f.targets, f)
	f.bind(c)

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		f.tick(ctx, time.Now())
		if err := store.Set(tags.CoreTempOutValue, store.Get(tags.CoreTempOutValue).UnwrapOr(0)+1); err != nil {
			t.Fatal(err)
		}
	}

	got := store.Get(tags.CoreTempOutValue).UnwrapOr(0)
	if math.Abs(got-271.0) > 0.5 {
		t.Fatalf("freeze did not hold near 270: got %v", got)
	}
}

func TestFreezeHoldsEachTargetAtItsOwnValue(t *testing.T) {
	store := newTestStore(t)
	store.Set(tags.CoreTempOutValue, 300.0)
	store.Set(tags.CoreFlowValue, 0.8)

	values := map[string]float64{
		tags.CoreTempOutValue: 310.0,
		tags.CoreFlowValue:    0.2,
	}
	f := NewFreeze(store, []string{tags.CoreTempOutValue, tags.CoreFlowValue}, values)
	c := New("run-1", "freeze", f.targets, f)
	f.bind(c)

	f.tick(context.Background(), time.Now())

	if got := store.Get(tags.CoreTempOutValue).UnwrapOr(0); got != 310.0 {
		t.Errorf("core_temp_out_value = %v, want 310.0", got)
	}
	if got := store.Get(tags.CoreFlowValue).UnwrapOr(0); got != 0.2 {
		t.Errorf("core_flow_value = %v, want 0.2", got)
	}
}

func TestNewFreezeCampaignCapturesCurrentValuePerTargetByDefault(t *testing.T) {
	store := newTestStore(t)
	store.Set(tags.CoreTempOutValue, 305.0)
	store.Set(tags.CoreFlowValue, 0.7)

	c, skipped := NewFreezeCampaign("run-1", store, []string{tags.CoreTempOutValue, tags.CoreFlowValue}, nil)
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped targets: %v", skipped)
	}

	f, ok := c.engine.(*Freeze)
	if !ok {
		t.Fatalf("campaign engine is %T, want *Freeze", c.engine)
	}
	if f.values[tags.CoreTempOutValue] != 305.0 {
		t.Errorf("captured core_temp_out_value = %v, want 305.0", f.values[tags.CoreTempOutValue])
	}
	if f.values[tags.CoreFlowValue] != 0.7 {
		t.Errorf("captured core_flow_value = %v, want 0.7", f.values[tags.CoreFlowValue])
	}

	// Drift the underlying tags after capture: frozen values must not track them.
	store.Set(tags.CoreTempOutValue, 500.0)
	f.tick(context.Background(), time.Now())
	if got := store.Get(tags.CoreTempOutValue).UnwrapOr(0); got != 305.0 {
		t.Errorf("core_temp_out_value = %v, want frozen at captured 305.0", got)
	}
}

func TestNewFreezeCampaignAppliesSingleOperatorValueToAllTargets(t *testing.T) {
	store := newTestStore(t)
	store.Set(tags.CoreTempOutValue, 305.0)
	store.Set(tags.CoreFlowValue, 0.7)

	value := 0.0
	c, _ := NewFreezeCampaign("run-1", store, []string{tags.CoreTempOutValue, tags.CoreFlowValue}, &value)

	f, ok := c.engine.(*Freeze)
	if !ok {
		t.Fatalf("campaign engine is %T, want *Freeze", c.engine)
	}
	if f.values[tags.CoreTempOutValue] != 0.0 || f.values[tags.CoreFlowValue] != 0.0 {
		t.Errorf("expected both targets frozen at the operator value 0.0, got %v", f.values)
	}
}

func TestSpikeMultiplyModeClampsAndScales(t *testing.T) {
	store := newTestStore(t)
	if err := store.Set(tags.SGFeedwaterFlowValue, 0.6); err != nil {
		t.Fatal(err)
	}

	params := SpikeParams{
		Mode:            SpikeMultiply,
		Factor:          1.3,
		SpikeLenMs:      1000,
		WriteIntervalMs: 0,
	}
	rng := noise.New(42)
	s := NewSpike(store, []string{tags.SGFeedwaterFlowValue}, params, rng)
	c := New("run-1", "spike", s.targets, s)
	s.bind(c)

	ctx := context.Background()
	now := time.Now()
	// Force the target into an already-spiking state so this test pins the
	// write-value computation instead of the start-probability draw.
	st := s.state[tags.SGFeedwaterFlowValue]
	st.spiking = true
	st.until = now.Add(time.Second)

	s.tick(ctx, now) // writes spike_val

	got := store.Get(tags.SGFeedwaterFlowValue).UnwrapOr(0)
	want := 0.6 * 1.3
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("spike value = %v, want %v", got, want)
	}
	if got < 0 || got > 1.5 {
		t.Fatalf("spike value %v escaped [0,1.5] clamp", got)
	}
}

func TestSpikeClampsValveFlowTagsToEnvelope(t *testing.T) {
	got := clampSpike(tags.CoreCoolantValveCmd, 10.0)
	if got != 1.5 {
		t.Fatalf("expected clamp to 1.5, got %v", got)
	}
	got = clampSpike(tags.CoreCoolantValveCmd, -3.0)
	if got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
	if v := clampSpike(tags.CoreNeutronFluxValue, 10.0); v != 10.0 {
		t.Fatalf("non flow/valve tag should not be clamped, got %v", v)
	}
}

func TestLatencyProxyExecutesWithinJitterWindow(t *testing.T) {
	store := newTestStore(t)
	params := LatencyProxyParams{SampleMs: 1, BaseLatMs: 50, JitterMs: 10, DropProb: 0}
	rng := noise.New(7)
	l := NewLatencyProxy(store, []string{tags.CoreNeutronFluxValue}, params, rng)
	c := New("run-1", "latency_proxy", l.targets, l)
	l.bind(c)

	ctx := context.Background()
	enqueueAt := time.Now()
	l.tick(ctx, enqueueAt)

	if len(l.queue) != 1 {
		t.Fatalf("expected one scheduled write, got %d", len(l.queue))
	}
	sw := l.queue[0]
	delta := sw.execInstant.Sub(enqueueAt)
	if delta < 40*time.Millisecond || delta > 60*time.Millisecond {
		t.Fatalf("scheduled exec instant outside base_lat±jitter window: %v", delta)
	}

	l.tick(ctx, sw.execInstant.Add(time.Millisecond))
	// The second tick also takes a fresh sample, so exactly one write remains
	// queued: the new one, scheduled after the first has executed.
	if c.attempted != 1 || len(l.queue) != 1 || !l.queue[0].execInstant.After(sw.execInstant) {
		t.Fatalf("expected the first scheduled write executed and only the fresh sample pending, got %d executed, %d pending", c.attempted, len(l.queue))
	}
}

func TestLatencyProxyDropStatistics(t *testing.T) {
	store := newTestStore(t)
	params := LatencyProxyParams{SampleMs: 0, BaseLatMs: 0, JitterMs: 0, DropProb: 0.25}
	rng := noise.New(99)
	l := NewLatencyProxy(store, []string{tags.CoreNeutronFluxValue}, params, rng)
	c := New("run-1", "latency_proxy", l.targets, l)
	l.bind(c)

	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 1000; i++ {
		l.tick(ctx, now.Add(time.Duration(i)*time.Millisecond))
	}

	executed := c.attempted
	if executed < 650 || executed > 850 {
		t.Fatalf("executed count %d outside expected range for drop_prob=0.25 over 1000 writes", executed)
	}
}

func TestLatencyProxyDiscardsPendingAtEnd(t *testing.T) {
	store := newTestStore(t)
	params := LatencyProxyParams{SampleMs: 1, BaseLatMs: 10000, JitterMs: 0, DropProb: 0}
	rng := noise.New(1)
	l := NewLatencyProxy(store, []string{tags.CoreNeutronFluxValue}, params, rng)
	c := New("run-1", "latency_proxy", l.targets, l)
	l.bind(c)

	l.tick(context.Background(), time.Now())
	if l.pendingAtEnd() != 1 {
		t.Fatalf("expected one pending write, got %d", l.pendingAtEnd())
	}

	summary := c.publish(StateTerminated)
	if summary.PendingAtEnd != 1 {
		t.Fatalf("summary.PendingAtEnd = %d, want 1", summary.PendingAtEnd)
	}
}

func TestCampaignPauseResumeTerminateTransitions(t *testing.T) {
	store := newTestStore(t)
	f := NewFreeze(store, []string{tags.CoreTempOutValue}, map[string]float64{tags.CoreTempOutValue: 270.0})
	c := New("run-1", "freeze", f.targets, f)
	f.bind(c)

	go c.Run(context.Background(), time.Millisecond)
	// give Run a moment to install its cancel func before Terminate races it.
	time.Sleep(5 * time.Millisecond)

	if err := c.Pause(); err != nil {
		t.Fatal(err)
	}
	if c.State() != StatePaused {
		t.Fatalf("expected paused state")
	}
	if err := c.Resume(); err != nil {
		t.Fatal(err)
	}
	if c.State() != StateRunning {
		t.Fatalf("expected running state after resume")
	}

	summary := c.Terminate()
	if summary.State != StateTerminated {
		t.Fatalf("expected terminated summary state, got %s", summary.State)
	}
}
