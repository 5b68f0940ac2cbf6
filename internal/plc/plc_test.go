package plc

import (
	"context"
	"testing"

	"github.com/cti-systems/reactorctl/internal/tags"
	"github.com/cti-systems/reactorctl/internal/tagstore"
)

func newTestStore(t *testing.T) tagstore.Store {
	t.Helper()
	store := tagstore.NewMemory()
	if err := store.Initialize(tags.Defaults()); err != nil {
		t.Fatalf("initialize store: %v", err)
	}
	return store
}

type recordingSink struct {
	records []AuditRecord
}

func (r *recordingSink) Publish(rec AuditRecord) { r.records = append(r.records, rec) }

func TestTickRaisesCoreAlarmOnOverTemp(t *testing.T) {
	store := newTestStore(t)
	store.Set(tags.CoreTempOutValue, 325.0) // above CoreTempOutMax default of 320.0

	sink := &recordingSink{}
	p := New().WithSink(sink)
	p.Tick(context.Background(), store, 100)

	if !p.AlarmActive() {
		t.Fatal("expected alarm active after over-temperature trip")
	}
	v, _ := store.Get(tags.CoreAlarmStatus).Unwrap()
	if v != 1.0 {
		t.Errorf("core_alarm_status = %v, want 1.0", v)
	}
}

func TestTickClearsAlarmOnlyAfterHysteresisMargin(t *testing.T) {
	store := newTestStore(t)
	store.Set(tags.CoreTempOutValue, 325.0)

	p := New()
	p.Tick(context.Background(), store, 100)
	if !p.AlarmActive() {
		t.Fatal("expected alarm to trip")
	}

	// Just under the limit, but still within the hysteresis band: must stay latched.
	store.Set(tags.CoreTempOutValue, 319.8)
	p.Tick(context.Background(), store, 100)
	if !p.AlarmActive() {
		t.Fatal("alarm should remain latched within the hysteresis band")
	}

	// Clear past the hysteresis margin.
	store.Set(tags.CoreTempOutValue, 300.0)
	p.Tick(context.Background(), store, 100)
	if p.AlarmActive() {
		t.Fatal("alarm should clear once comfortably below the hysteresis margin")
	}
}

func TestTickOpensCoreReliefAboveHiHi(t *testing.T) {
	store := newTestStore(t)
	store.Set(tags.CorePressureValue, 16.0) // above CorePressureHIHI default 15.9

	onRelief := map[string]bool{}
	p := New().WithReliefCallback(func(kind string, open bool) { onRelief[kind] = open })
	p.Tick(context.Background(), store, 100)

	if !p.CoreReliefOpen() {
		t.Fatal("expected core relief valve to open")
	}
	if open, ok := onRelief["core"]; !ok || !open {
		t.Errorf("relief callback not invoked with core=true, got %v", onRelief)
	}
}

func TestTickHonorsManualOverrideOnControlRod(t *testing.T) {
	store := newTestStore(t)
	store.Set(tags.CoreControlRodMode, float64(tags.ModeManualOn))
	store.Set(tags.CoreControlRodPosValue, 42.0)
	store.Set(tags.CoreNeutronFluxValue, 0.99) // far from setpoint; would move the rod in auto

	p := New()
	p.Tick(context.Background(), store, 100)

	v, _ := store.Get(tags.CoreControlRodPosValue).Unwrap()
	if v != 42.0 {
		t.Errorf("control rod position changed under manual override: got %v, want 42.0", v)
	}
}

func TestTickReassertsAlarmStatusOverExternalWrite(t *testing.T) {
	store := newTestStore(t)
	store.Set(tags.CoreTempOutValue, 325.0) // above CoreTempOutMax default of 320.0

	p := New()
	p.Tick(context.Background(), store, 100)
	if !p.AlarmActive() {
		t.Fatal("expected alarm active after over-temperature trip")
	}

	// Something outside the control loop (an attacker freezing the tag, a
	// stale HMI write) forces the status tag back to 0 between scans.
	store.Set(tags.CoreAlarmStatus, 0.0)

	p.Tick(context.Background(), store, 100)
	v, _ := store.Get(tags.CoreAlarmStatus).Unwrap()
	if v != 1.0 {
		t.Errorf("core_alarm_status = %v, want 1.0 reasserted on the next scan", v)
	}
}

func TestWriteEmitsAuditRecordOnFirstScan(t *testing.T) {
	store := newTestStore(t)
	sink := &recordingSink{}
	p := New().WithSink(sink)

	p.Tick(context.Background(), store, 100)
	if len(sink.records) == 0 {
		t.Fatal("expected at least one audit record from the initial scan")
	}
	for _, rec := range sink.records {
		if rec.Old == rec.New {
			t.Errorf("audit record for %s has Old == New (%v); write() should skip no-op writes", rec.Tag, rec.Old)
		}
	}
}
