// Package tags declares the static descriptor table for every tag the plant
// exposes through the Tag Store, replacing the reflective attribute lookup of
// the system this package is modeled on with a table built once at startup.
package tags

// Direction describes which way a tag's value flows relative to the PLC.
type Direction int

const (
	// Input tags are the sensor measurements the simulator supplies.
	Input Direction = iota
	// Output tags are every other tag: actuator commands, modes, setpoints,
	// limits, alarm and relief status.
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Mode encodes the small-integer manual/auto control convention used by
// every actuator's mode tag.
type Mode int

const (
	ModeManualOff Mode = 1
	ModeManualOn  Mode = 2
	ModeAuto      Mode = 3
)

func (m Mode) String() string {
	switch m {
	case ModeManualOff:
		return "Off"
	case ModeManualOn:
		return "On"
	case ModeAuto:
		return "Auto"
	default:
		return "Unknown"
	}
}

// Descriptor is the immutable metadata for one declared tag.
type Descriptor struct {
	Name      string
	ID        int
	OwnerPLC  string
	Direction Direction
	FaultBias float64
	Default   float64
}

// Tag name constants, grounded one-to-one on the TAG_LIST of the reference
// simulation this plant is modeled on.
const (
	CoreNeutronFluxValue      = "core_neutron_flux_value"
	CoreTempInValue           = "core_temp_in_value"
	CoreTempOutValue          = "core_temp_out_value"
	CorePressureValue         = "core_pressure_value"
	CoreFlowValue             = "core_flow_value"
	SGInPressureValue         = "sg_in_pressure_value"
	PrimaryRadMonValue        = "primary_rad_mon_value"
	PrimaryLoopValvePosValue  = "primary_loop_valve_pos_value"

	CoreControlRodPosValue  = "core_control_rod_pos_value"
	CoreControlRodMode      = "core_control_rod_mode"
	CoreNeutronFluxSP       = "core_neutron_flux_sp"
	CoreRCPSpeedCmd         = "core_rcp_speed_cmd"
	CoreRCPMode             = "core_rcp_mode"
	CoreCoolantValveCmd     = "core_coolant_valve_cmd"
	CoreCoolantValveMode    = "core_coolant_valve_mode"
	PrimaryLoopValveCmd     = "primary_loop_valve_cmd"
	PrimaryLoopValveMode    = "primary_loop_valve_mode"
	CorePressurizerHeaterCmd  = "core_pressurizer_heater_cmd"
	CorePressurizerHeaterMode = "core_pressurizer_heater_mode"
	CorePressurizerSprayCmd   = "core_pressurizer_spray_cmd"
	CorePressurizerSprayMode  = "core_pressurizer_spray_mode"
	CorePressurizerValveCmd   = "core_pressurizer_valve_cmd"
	CorePressurizerValveMode  = "core_pressurizer_valve_mode"
	CoreReliefValveStatus     = "core_relief_valve_status"

	CoreTempOutMax      = "core_temp_out_max"
	CorePressureMax     = "core_pressure_max"
	CorePressureHIHI    = "core_pressure_hihi"
	CoreFlowMin         = "core_flow_min"
	PrimaryRadAlarmMax  = "primary_rad_alarm_max"
	CoreAlarmStatus     = "core_alarm_status"

	SGSecTempInValue    = "sg_sec_temp_in_value"
	SGSecTempOutValue   = "sg_sec_temp_out_value"
	SGSteamPressureValue = "sg_steam_pressure_value"
	SGLevelValue        = "sg_level_value"
	SGFeedwaterFlowValue = "sg_feedwater_flow_value"
	SGLeakMonValue      = "sg_leak_mon_value"

	SGFeedwaterValveCmd  = "sg_feedwater_valve_cmd"
	SGFeedwaterValveMode = "sg_feedwater_valve_mode"
	SGReliefValveStatus  = "sg_relief_valve_status"

	SGLevelMin    = "sg_level_min"
	SGLevelMax    = "sg_level_max"
	SGSteamPMax   = "sg_steam_p_max"
	SGSteamPHIHI  = "sg_steam_p_hihi"
)

// Catalog lists all 43 declared tags, IDs 0-42, in owning-PLC "PLC1" — this
// plant has a single controller, so OwnerPLC is constant today but kept on
// the descriptor for a multi-controller deployment.
var Catalog = []Descriptor{
	{Name: CoreNeutronFluxValue, ID: 0, OwnerPLC: "PLC1", Direction: Input, Default: 0.8},
	{Name: CoreTempInValue, ID: 1, OwnerPLC: "PLC1", Direction: Input, Default: 290.0},
	{Name: CoreTempOutValue, ID: 2, OwnerPLC: "PLC1", Direction: Input, Default: 300.0},
	{Name: CorePressureValue, ID: 3, OwnerPLC: "PLC1", Direction: Input, Default: 15.0},
	{Name: CoreFlowValue, ID: 4, OwnerPLC: "PLC1", Direction: Input, Default: 0.6},
	{Name: SGInPressureValue, ID: 5, OwnerPLC: "PLC1", Direction: Input, Default: 14.9},
	{Name: PrimaryRadMonValue, ID: 6, OwnerPLC: "PLC1", Direction: Input, Default: 0.02},
	{Name: PrimaryLoopValvePosValue, ID: 7, OwnerPLC: "PLC1", Direction: Input, Default: 0.5},

	{Name: CoreControlRodPosValue, ID: 8, OwnerPLC: "PLC1", Direction: Output, Default: 50.0},
	{Name: CoreControlRodMode, ID: 9, OwnerPLC: "PLC1", Direction: Output, Default: float64(ModeAuto)},
	{Name: CoreNeutronFluxSP, ID: 10, OwnerPLC: "PLC1", Direction: Output, Default: 0.9},
	{Name: CoreRCPSpeedCmd, ID: 11, OwnerPLC: "PLC1", Direction: Output, Default: 0.6},
	{Name: CoreRCPMode, ID: 12, OwnerPLC: "PLC1", Direction: Output, Default: float64(ModeAuto)},
	{Name: CoreCoolantValveCmd, ID: 13, OwnerPLC: "PLC1", Direction: Output, Default: 0.5},
	{Name: CoreCoolantValveMode, ID: 14, OwnerPLC: "PLC1", Direction: Output, Default: float64(ModeAuto)},
	{Name: PrimaryLoopValveCmd, ID: 15, OwnerPLC: "PLC1", Direction: Output, Default: 0.5},
	{Name: PrimaryLoopValveMode, ID: 16, OwnerPLC: "PLC1", Direction: Output, Default: float64(ModeAuto)},
	{Name: CorePressurizerHeaterCmd, ID: 17, OwnerPLC: "PLC1", Direction: Output, Default: 0.2},
	{Name: CorePressurizerHeaterMode, ID: 18, OwnerPLC: "PLC1", Direction: Output, Default: float64(ModeAuto)},
	{Name: CorePressurizerSprayCmd, ID: 19, OwnerPLC: "PLC1", Direction: Output, Default: 0.0},
	{Name: CorePressurizerSprayMode, ID: 20, OwnerPLC: "PLC1", Direction: Output, Default: float64(ModeAuto)},
	{Name: CorePressurizerValveCmd, ID: 21, OwnerPLC: "PLC1", Direction: Output, Default: 0.0},
	{Name: CorePressurizerValveMode, ID: 22, OwnerPLC: "PLC1", Direction: Output, Default: float64(ModeAuto)},
	{Name: CoreReliefValveStatus, ID: 23, OwnerPLC: "PLC1", Direction: Output, Default: 0},

	{Name: CoreTempOutMax, ID: 24, OwnerPLC: "PLC1", Direction: Output, Default: 320.0},
	{Name: CorePressureMax, ID: 25, OwnerPLC: "PLC1", Direction: Output, Default: 15.5},
	{Name: CorePressureHIHI, ID: 26, OwnerPLC: "PLC1", Direction: Output, Default: 15.9},
	{Name: CoreFlowMin, ID: 27, OwnerPLC: "PLC1", Direction: Output, Default: 0.5},
	{Name: PrimaryRadAlarmMax, ID: 28, OwnerPLC: "PLC1", Direction: Output, Default: 0.20},
	{Name: CoreAlarmStatus, ID: 29, OwnerPLC: "PLC1", Direction: Output, Default: 0},

	{Name: SGSecTempInValue, ID: 30, OwnerPLC: "PLC1", Direction: Input, Default: 220.0},
	{Name: SGSecTempOutValue, ID: 31, OwnerPLC: "PLC1", Direction: Input, Default: 260.0},
	{Name: SGSteamPressureValue, ID: 32, OwnerPLC: "PLC1", Direction: Input, Default: 6.5},
	{Name: SGLevelValue, ID: 33, OwnerPLC: "PLC1", Direction: Input, Default: 60.0},
	{Name: SGFeedwaterFlowValue, ID: 34, OwnerPLC: "PLC1", Direction: Input, Default: 0.6},
	{Name: SGLeakMonValue, ID: 35, OwnerPLC: "PLC1", Direction: Input, Default: 0.0},

	{Name: SGFeedwaterValveCmd, ID: 36, OwnerPLC: "PLC1", Direction: Output, Default: 0.6},
	{Name: SGFeedwaterValveMode, ID: 37, OwnerPLC: "PLC1", Direction: Output, Default: float64(ModeAuto)},
	{Name: SGReliefValveStatus, ID: 38, OwnerPLC: "PLC1", Direction: Output, Default: 0},

	{Name: SGLevelMin, ID: 39, OwnerPLC: "PLC1", Direction: Output, Default: 30.0},
	{Name: SGLevelMax, ID: 40, OwnerPLC: "PLC1", Direction: Output, Default: 80.0},
	{Name: SGSteamPMax, ID: 41, OwnerPLC: "PLC1", Direction: Output, Default: 7.0},
	{Name: SGSteamPHIHI, ID: 42, OwnerPLC: "PLC1", Direction: Output, Default: 7.5},
}

// Defaults returns the full {name: default} mapping used to initialize a
// freshly constructed Tag Store.
func Defaults() map[string]float64 {
	out := make(map[string]float64, len(Catalog))
	for _, d := range Catalog {
		out[d.Name] = d.Default
	}
	return out
}

// Names returns every declared tag name, in catalog (ID) order.
func Names() []string {
	out := make([]string, len(Catalog))
	for i, d := range Catalog {
		out[i] = d.Name
	}
	return out
}

// Physical constants for the HIL plant model, per the reference simulation's
// PHYSICS class.
const (
	Ambient           = 290.0
	HeatGainK         = 8e-3
	CoolingK          = 4e-3
	PressureKTemp     = 0.035
	PressureKHeater   = 0.020
	PressureKSpray    = 0.030
	PressureKRelief   = 0.080
	FlowInertia       = 0.003
	ValveInertia      = 0.003
	FluxInertia       = 0.002
	RadBaseline       = 0.02
	RadSpikeMax       = 0.50
	RadSpikeProb      = 0.0005
	RadSpikeSecMin    = 3.0
	RadSpikeSecMax    = 12.0
	SGSecFeedwaterTemp = 220.0
	SGHXK             = 5e-3
	SGLevelInertia    = 0.002
	SGBoilOffK        = 0.004
	SGPressureK       = 0.020
	SGPressureReliefK = 0.080

	SGLeakSpikeProb   = 0.0002
	SGLeakSpikeSecMin = 2.0
	SGLeakSpikeSecMax = 8.0
	SGLeakLevelMin    = 0.02
	SGLeakLevelMax    = 0.20
)

// PLC control constants, per the reference controller's tuning.
const (
	Hyst   = 0.5
	PHyst  = 0.05
	RadHyst = 0.02
	SGPHyst = 0.10
	FWKp   = 0.006
	FWKi   = 4e-6
)
