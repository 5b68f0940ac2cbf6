package attacker

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset is a checked-in, declarative description of one campaign, loaded
// in place of typing every parameter on the command line each run.
type Preset struct {
	Kind     string             `yaml:"kind"` // freeze, spike, latency_proxy
	Targets  []string           `yaml:"targets"`
	Duration string             `yaml:"duration"` // parsed with time.ParseDuration
	Freeze   *FreezePreset      `yaml:"freeze,omitempty"`
	Spike    *SpikePreset       `yaml:"spike,omitempty"`
	Latency  *LatencyProxyPreset `yaml:"latency_proxy,omitempty"`
}

type FreezePreset struct {
	Value float64 `yaml:"value"`
}

type SpikePreset struct {
	Mode            string  `yaml:"mode"`
	Abs             float64 `yaml:"abs"`
	Factor          float64 `yaml:"factor"`
	Delta           float64 `yaml:"delta"`
	PPerSec         float64 `yaml:"p_per_sec"`
	SpikeLenMs      float64 `yaml:"spike_len_ms"`
	WriteIntervalMs float64 `yaml:"write_interval_ms"`
}

type LatencyProxyPreset struct {
	SampleMs  float64 `yaml:"sample_ms"`
	BaseLatMs float64 `yaml:"base_lat_ms"`
	JitterMs  float64 `yaml:"jitter_ms"`
	DropProb  float64 `yaml:"drop_prob"`
}

// LoadPreset reads and parses a campaign preset file.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset %s: %w", path, err)
	}
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse preset %s: %w", path, err)
	}
	return &p, nil
}
