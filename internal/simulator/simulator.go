// Package simulator implements the Physical Simulator (HIL): a fixed-step
// integrator of the primary and secondary (steam generator) thermodynamics,
// grounded on the same first-order-lag/exponential-decay style used by the
// cryopump temperature model this module is modeled on, generalized from a
// single temperature curve into the full multi-variable plant.
package simulator

import (
	"context"
	"math"

	"github.com/cti-systems/reactorctl/internal/noise"
	"github.com/cti-systems/reactorctl/internal/tags"
	"github.com/cti-systems/reactorctl/internal/tagstore"
)

// spikeTransient is the shared shape of the radiation and SG-leak
// stochastic transients: an inactive/active toggle with a level that holds
// for a random duration once triggered.
type spikeTransient struct {
	active bool
	until  float64 // plant-clock seconds
	level  float64
}

// State holds the plant state that is internal to the Simulator and never
// stored in the Tag Store directly: actuator lags and the two stochastic
// transient blocks.
type State struct {
	clock float64 // seconds since simulator start

	flow         float64
	coolValveEff float64
	loopValveEff float64
	flux         float64
	tempIn       float64
	tempOut      float64
	pressure     float64

	sgFwMeas    float64
	sgSecTIn    float64
	sgSecTOut   float64
	sgLevel     float64
	sgPressure  float64

	radSpike    spikeTransient
	sgLeakSpike spikeTransient
}

// NewState returns a State initialized to the catalog defaults, so the
// first tick starts from the same values the Tag Store was initialized
// with.
func NewState() *State {
	return &State{
		flow:         0.6,
		coolValveEff: 0.5,
		loopValveEff: 0.5,
		flux:         0.8,
		tempIn:       290.0,
		tempOut:      300.0,
		pressure:     15.0,
		sgFwMeas:     0.6,
		sgSecTIn:     tags.SGSecFeedwaterTemp,
		sgSecTOut:    260.0,
		sgLevel:      60.0,
		sgPressure:   6.5,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

// commands read from the Tag Store at the top of a tick.
type commands struct {
	rcpCmd       float64
	coolValveCmd float64
	loopValveCmd float64
	heaterCmd    float64
	sprayCmd     float64
	rodPos       float64
	fluxSP       float64
	sgFwCmd      float64
	coreRelief   float64
	sgRelief     float64
}

func readCommands(store tagstore.Store) commands {
	get := func(name string) float64 {
		return store.Get(name).UnwrapOr(0)
	}
	return commands{
		rcpCmd:       get(tags.CoreRCPSpeedCmd),
		coolValveCmd: get(tags.CoreCoolantValveCmd),
		loopValveCmd: get(tags.PrimaryLoopValveCmd),
		heaterCmd:    get(tags.CorePressurizerHeaterCmd),
		sprayCmd:     get(tags.CorePressurizerSprayCmd),
		rodPos:       get(tags.CoreControlRodPosValue),
		fluxSP:       get(tags.CoreNeutronFluxSP),
		sgFwCmd:      get(tags.SGFeedwaterValveCmd),
		coreRelief:   get(tags.CoreReliefValveStatus),
		sgRelief:     get(tags.SGReliefValveStatus),
	}
}

// Tick advances the plant one step of dtMs milliseconds and writes every
// updated sensor tag back to store. rng supplies every Gaussian/uniform
// draw so tests can pin the sequence.
func (s *State) Tick(ctx context.Context, store tagstore.Store, rng noise.Source, dtMs float64) error {
	dt := dtMs
	dtS := dt / 1000.0
	s.clock += dtS

	cmd := readCommands(store)

	// Flow lag.
	s.flow += (cmd.rcpCmd - s.flow) * tags.FlowInertia * dt
	s.flow = clamp(s.flow, 0, 1.2)

	// Valve lags.
	s.coolValveEff = clamp01(s.coolValveEff + (cmd.coolValveCmd-s.coolValveEff)*tags.ValveInertia*dt)
	s.loopValveEff = clamp01(s.loopValveEff + (cmd.loopValveCmd-s.loopValveEff)*tags.ValveInertia*dt)

	// Reactivity / flux.
	reactivity := math.Max(0.05, 1-cmd.rodPos/120)
	fluxTarget := math.Max(0, cmd.fluxSP*reactivity)
	s.flux += (fluxTarget - s.flux) * tags.FluxInertia * dt
	s.flux += rng.Normal(0, 0.002)
	s.flux = math.Max(0, s.flux)

	// Heat balance.
	eff := s.coolValveEff * s.loopValveEff
	heatGain := tags.HeatGainK * s.flux * dt
	coolLoss := tags.CoolingK * s.flow * eff * math.Max(0, s.tempOut-tags.Ambient) * dt
	s.tempIn += (tags.Ambient - s.tempIn) * 0.001 * dt
	s.tempOut = s.tempOut + heatGain - coolLoss + rng.Normal(0, 0.02)

	// Pressure.
	pBase := 14.7 + tags.PressureKTemp*math.Max(0, s.tempOut-tags.Ambient)
	s.pressure += tags.PressureKHeater*cmd.heaterCmd*dtS - tags.PressureKSpray*cmd.sprayCmd*dtS - tags.PressureKRelief*cmd.coreRelief*dtS
	s.pressure = 0.98*s.pressure + 0.02*pBase
	s.pressure += rng.Normal(0, 0.002)

	sgInP := math.Max(0, s.pressure-0.05+rng.Normal(0, 0.001))

	// Radiation transient.
	rad := s.tickSpike(&s.radSpike, tags.RadSpikeProb, tags.RadSpikeSecMin, tags.RadSpikeSecMax,
		2*tags.RadBaseline, tags.RadSpikeMax, tags.RadBaseline, rng)
	rad += rng.Normal(0, 0.005)
	rad = math.Max(0, rad)

	// Secondary: feedwater lag.
	targetFwFlow := 0.02 + 0.98*clamp01(cmd.sgFwCmd)
	s.sgFwMeas = clamp01(s.sgFwMeas + (targetFwFlow-s.sgFwMeas)*tags.ValveInertia*dt)

	// Secondary inlet temp decay.
	s.sgSecTIn += (tags.SGSecFeedwaterTemp - s.sgSecTIn) * 0.002 * dt

	// Heat exchange.
	hxGain := tags.SGHXK * math.Max(0, s.tempOut-s.sgSecTIn) * s.flow * eff * dt
	s.sgSecTOut += hxGain + rng.Normal(0, 0.02)
	s.sgSecTOut = clamp(s.sgSecTOut, s.sgSecTIn, s.tempOut)

	steamProd := math.Max(0, s.sgSecTOut-s.sgSecTIn) * s.sgFwMeas

	// Level.
	s.sgLevel += (50*s.sgFwMeas - 100*tags.SGBoilOffK*steamProd) * tags.SGLevelInertia * dt
	s.sgLevel += rng.Normal(0, 0.02)
	s.sgLevel = clamp(s.sgLevel, 0, 100)

	// SG pressure.
	s.sgPressure += tags.SGPressureK*steamProd*dtS - tags.SGPressureReliefK*cmd.sgRelief*dtS
	s.sgPressure += rng.Normal(0, 0.005)
	s.sgPressure = math.Max(0, s.sgPressure)

	// SG leak transient: identical structure to the radiation transient above.
	leak := s.tickSpike(&s.sgLeakSpike, tags.SGLeakSpikeProb, tags.SGLeakSpikeSecMin, tags.SGLeakSpikeSecMax,
		tags.SGLeakLevelMin, tags.SGLeakLevelMax, 0, rng)
	leak += rng.Normal(0, 0.003)
	leak = math.Max(0, leak)

	writes := map[string]float64{
		tags.CoreNeutronFluxValue:     s.flux,
		tags.CoreTempInValue:          s.tempIn,
		tags.CoreTempOutValue:         s.tempOut,
		tags.CorePressureValue:        s.pressure,
		tags.CoreFlowValue:            s.flow,
		tags.SGInPressureValue:        sgInP,
		tags.PrimaryRadMonValue:       rad,
		tags.PrimaryLoopValvePosValue: s.loopValveEff,
		tags.SGSecTempInValue:         s.sgSecTIn,
		tags.SGSecTempOutValue:        s.sgSecTOut,
		tags.SGSteamPressureValue:     s.sgPressure,
		tags.SGLevelValue:             s.sgLevel,
		tags.SGFeedwaterFlowValue:     s.sgFwMeas,
		tags.SGLeakMonValue:           leak,
	}
	for name, v := range writes {
		if err := store.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

// tickSpike advances one stochastic transient block and returns the value
// to publish this tick (level while active, baseline otherwise), shared by
// the radiation and SG-leak transients which differ only in their
// constants.
func (s *State) tickSpike(st *spikeTransient, prob, durMin, durMax, levelMin, levelMax, baseline float64, rng noise.Source) float64 {
	if !st.active {
		if rng.Uniform(0, 1) < prob {
			st.active = true
			dur := rng.Uniform(durMin, durMax)
			st.until = s.clock + dur
			st.level = rng.Uniform(levelMin, levelMax)
		}
	} else if s.clock >= st.until {
		st.active = false
	}
	if st.active {
		return st.level
	}
	return baseline
}
