// Package plc implements the PLC: the control-law and latched-alarm half of
// the control triad. The alarm/relief latches follow the same
// mutex-guarded State+callback shape as the emergency-stop coordinator this
// module is modeled on, generalized from a single manually-triggered latch
// into the multiple automatically-triggered latches a real control scan
// needs.
package plc

import (
	"context"
	"time"

	"github.com/cti-systems/reactorctl/internal/tags"
	"github.com/cti-systems/reactorctl/internal/tagstore"
)

// AuditRecord is emitted on every tag write the PLC makes, the same shape
// used by attacker campaigns so a Historian can record both in one table.
type AuditRecord struct {
	Tag    string
	Old    float64
	New    float64
	Reason string
	At     time.Time
}

// AuditSink receives audit records as the PLC produces them. A Historian
// write is always best-effort: Publish must not block the caller for long,
// and any error it encounters is logged and ignored, never propagated back
// into the control scan.
type AuditSink interface {
	Publish(AuditRecord)
}

// discardSink is the default AuditSink when none is wired in.
type discardSink struct{}

func (discardSink) Publish(AuditRecord) {}

// PLC holds the controller state that must survive across ticks: the
// feedwater integrator and the latched alarm and relief states, whose edges
// drive the status tag writes and the registered callbacks.
type PLC struct {
	sink AuditSink

	fwInt float64

	coreRelief bool
	sgRelief   bool
	alarm      bool

	onAlarmEdge  func(active bool)
	onReliefEdge func(kind string, open bool)
}

// New constructs a PLC with its integrator and latches at rest.
func New() *PLC {
	return &PLC{sink: discardSink{}}
}

// WithSink attaches an AuditSink every write is forwarded to.
func (p *PLC) WithSink(sink AuditSink) *PLC {
	p.sink = sink
	return p
}

// WithAlarmCallback registers a callback invoked whenever the latched alarm
// changes state, mirroring the estop coordinator's onEstop hook.
func (p *PLC) WithAlarmCallback(fn func(active bool)) *PLC {
	p.onAlarmEdge = fn
	return p
}

// WithReliefCallback registers a callback invoked whenever core or SG relief
// opens or closes. kind is "core" or "sg".
func (p *PLC) WithReliefCallback(fn func(kind string, open bool)) *PLC {
	p.onReliefEdge = fn
	return p
}

// AlarmActive reports the current latched alarm state.
func (p *PLC) AlarmActive() bool { return p.alarm }

// CoreReliefOpen reports the current latched core relief valve state.
func (p *PLC) CoreReliefOpen() bool { return p.coreRelief }

// SGReliefOpen reports the current latched steam generator relief valve state.
func (p *PLC) SGReliefOpen() bool { return p.sgRelief }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// write overwrites a tag, emitting an audit record with old/new/reason.
func (p *PLC) write(store tagstore.Store, name string, newValue float64, reason string) {
	old := store.Get(name).UnwrapOr(newValue)
	if old == newValue {
		return
	}
	if err := store.Set(name, newValue); err != nil {
		return
	}
	p.sink.Publish(AuditRecord{Tag: name, Old: old, New: newValue, Reason: reason, At: time.Now()})
}

// manual reports whether the actuator named by modeTag is in manual
// override (mode 1 or 2). In manual, the PLC does not overwrite the
// corresponding command tag; the feedwater integrator decays by a factor
// of 0.98 per tick while its valve is in manual.
func manual(store tagstore.Store, modeTag string) bool {
	mode := store.Get(modeTag).UnwrapOr(float64(tags.ModeAuto))
	return tags.Mode(mode) != tags.ModeAuto
}

// readings is every sensor/limit value the control scan needs, read once at
// the top of a tick so every law in the scan sees a consistent snapshot.
type readings struct {
	flux, tIn, tOut, pCore, pSGIn, flow, rad float64
	sgTIn, sgTOut, sgP, sgLevel, sgFwFlow    float64

	fluxSP, tMax, pMax, pHiHi, fMin, radMax float64
	sgLvlMin, sgLvlMax, sgPMax, sgPHiHi     float64
}

func readAll(store tagstore.Store) readings {
	get := func(name string) float64 { return store.Get(name).UnwrapOr(0) }
	return readings{
		flux:  get(tags.CoreNeutronFluxValue),
		tIn:   get(tags.CoreTempInValue),
		tOut:  get(tags.CoreTempOutValue),
		pCore: get(tags.CorePressureValue),
		pSGIn: get(tags.SGInPressureValue),
		flow:  get(tags.CoreFlowValue),
		rad:   get(tags.PrimaryRadMonValue),

		sgTIn:   get(tags.SGSecTempInValue),
		sgTOut:  get(tags.SGSecTempOutValue),
		sgP:     get(tags.SGSteamPressureValue),
		sgLevel: get(tags.SGLevelValue),
		sgFwFlow: get(tags.SGFeedwaterFlowValue),

		fluxSP: get(tags.CoreNeutronFluxSP),
		tMax:   get(tags.CoreTempOutMax),
		pMax:   get(tags.CorePressureMax),
		pHiHi:  get(tags.CorePressureHIHI),
		fMin:   get(tags.CoreFlowMin),
		radMax: get(tags.PrimaryRadAlarmMax),

		sgLvlMin: get(tags.SGLevelMin),
		sgLvlMax: get(tags.SGLevelMax),
		sgPMax:   get(tags.SGSteamPMax),
		sgPHiHi:  get(tags.SGSteamPHIHI),
	}
}

// Tick runs one control scan: every control law, then the relief and alarm
// state machines. dtMs is unused by the control laws themselves (they are
// per-tick increments, not rate laws) but is accepted for symmetry with the
// other components' Tick signature and to support future rate-based laws.
func (p *PLC) Tick(_ context.Context, store tagstore.Store, _ float64) {
	r := readAll(store)

	// 1) Control rods (reactivity).
	if !manual(store, tags.CoreControlRodMode) {
		rod := store.Get(tags.CoreControlRodPosValue).UnwrapOr(50)
		newRod := clamp(rod+(r.flux-r.fluxSP)*4.0, 0, 100)
		p.write(store, tags.CoreControlRodPosValue, newRod, "reactivity control")
	}

	// 2) Primary pump speed (flow).
	if !manual(store, tags.CoreRCPMode) {
		cmd := store.Get(tags.CoreRCPSpeedCmd).UnwrapOr(0.6)
		switch {
		case r.tOut > r.tMax-3.0 || r.flow < r.fMin+0.05:
			cmd += 0.02
		case r.tOut < r.tMax-8.0 && r.flow > r.fMin+0.2:
			cmd -= 0.01
		}
		p.write(store, tags.CoreRCPSpeedCmd, clamp(cmd, 0, 1), "pump speed control")
	}

	// 3) Heat-removal valve.
	if !manual(store, tags.CoreCoolantValveMode) {
		v := store.Get(tags.CoreCoolantValveCmd).UnwrapOr(0.5)
		switch {
		case r.tOut > r.tMax-2.0:
			v += 0.02
		case r.tOut < r.tMax-10.0:
			v -= 0.01
		}
		p.write(store, tags.CoreCoolantValveCmd, clamp(v, 0, 1), "heat removal valve control")
	}

	// 4) Primary loop flow-control valve.
	if !manual(store, tags.PrimaryLoopValveMode) {
		lv := store.Get(tags.PrimaryLoopValveCmd).UnwrapOr(0.5)
		switch {
		case r.flow < r.fMin+0.05 || r.tOut > r.tMax-5.0:
			lv += 0.02
		case r.flow > r.fMin+0.2 && r.tOut < r.tMax-12.0:
			lv -= 0.01
		}
		p.write(store, tags.PrimaryLoopValveCmd, clamp(lv, 0, 1), "loop valve control")
	}

	// 5) Pressurizer heater and spray.
	if !manual(store, tags.CorePressurizerHeaterMode) {
		h := store.Get(tags.CorePressurizerHeaterCmd).UnwrapOr(0.2)
		switch {
		case r.pCore < r.pMax-tags.PHyst:
			h += 0.03
		case r.pCore > r.pMax+0.02:
			h -= 0.02
		}
		p.write(store, tags.CorePressurizerHeaterCmd, clamp(h, 0, 1), "pressurizer heater control")
	}
	if !manual(store, tags.CorePressurizerSprayMode) {
		s := store.Get(tags.CorePressurizerSprayCmd).UnwrapOr(0)
		switch {
		case r.pCore > r.pMax+0.03:
			s += 0.03
		case r.pCore < r.pMax-tags.PHyst:
			s -= 0.02
		}
		p.write(store, tags.CorePressurizerSprayCmd, clamp(s, 0, 1), "pressurizer spray control")
	}

	// Core relief latch (binary, hysteresis).
	newCoreRelief := p.coreRelief
	switch {
	case r.pCore > r.pHiHi:
		newCoreRelief = true
	case r.pCore < r.pMax-0.05:
		newCoreRelief = false
	}
	if newCoreRelief != p.coreRelief {
		p.coreRelief = newCoreRelief
		if p.onReliefEdge != nil {
			p.onReliefEdge("core", newCoreRelief)
		}
	}
	// Re-assert every scan, not only on the edge, so a write from outside the
	// control loop (an attacker holding the tag, a restarted HMI) is corrected
	// on the next tick rather than left standing until the latch next flips.
	coreReliefStatus := 0.0
	if p.coreRelief {
		coreReliefStatus = 1.0
	}
	p.write(store, tags.CoreReliefValveStatus, coreReliefStatus, "core relief latch")
	if !manual(store, tags.CorePressurizerValveMode) {
		mirror := 0.0
		if p.coreRelief {
			mirror = 1.0
		}
		p.write(store, tags.CorePressurizerValveCmd, mirror, "mirror core relief to analog command")
	}

	// 6) Feedwater PI.
	if !manual(store, tags.SGFeedwaterValveMode) {
		fwCmd := store.Get(tags.SGFeedwaterValveCmd).UnwrapOr(0.6)
		spMid := (r.sgLvlMax + r.sgLvlMin) / 2.0
		err := spMid - r.sgLevel
		p.fwInt = clamp(p.fwInt+err*0.001, -0.5, 0.5)
		fwCmd = clamp(fwCmd+tags.FWKp*err+tags.FWKi*p.fwInt, 0, 1)
		p.write(store, tags.SGFeedwaterValveCmd, fwCmd, "feedwater PI control")
	} else {
		p.fwInt *= 0.98
	}

	// 7) SG relief latch.
	newSGRelief := p.sgRelief
	switch {
	case r.sgP > r.sgPHiHi:
		newSGRelief = true
	case r.sgP < r.sgPMax-tags.SGPHyst:
		newSGRelief = false
	}
	if newSGRelief != p.sgRelief {
		p.sgRelief = newSGRelief
		if p.onReliefEdge != nil {
			p.onReliefEdge("sg", newSGRelief)
		}
	}
	sgReliefStatus := 0.0
	if p.sgRelief {
		sgReliefStatus = 1.0
	}
	p.write(store, tags.SGReliefValveStatus, sgReliefStatus, "SG relief latch")

	// 8) Alarm latch.
	coreTrip := r.tOut > r.tMax || r.pCore > r.pMax || r.flow < r.fMin || r.rad > r.radMax
	sgTrip := r.sgP > r.sgPMax || r.sgLevel < r.sgLvlMin || r.sgLevel > r.sgLvlMax
	trip := coreTrip || sgTrip

	newAlarm := p.alarm
	if p.alarm {
		clearCore := r.tOut < r.tMax-tags.Hyst &&
			r.pCore < r.pMax-tags.PHyst &&
			r.flow > r.fMin+0.02 &&
			r.rad < r.radMax-tags.RadHyst
		clearSG := r.sgP < r.sgPMax-tags.SGPHyst &&
			r.sgLevel > r.sgLvlMin+2.0 && r.sgLevel < r.sgLvlMax-2.0
		if clearCore && clearSG {
			newAlarm = false
		}
	} else if trip {
		newAlarm = true
	}
	if newAlarm != p.alarm {
		p.alarm = newAlarm
		if p.onAlarmEdge != nil {
			p.onAlarmEdge(newAlarm)
		}
	}
	alarmStatus := 0.0
	if p.alarm {
		alarmStatus = 1.0
	}
	p.write(store, tags.CoreAlarmStatus, alarmStatus, "alarm trip/clear")
}
