package config

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownPreset = errors.New("unknown preset")

// Presets are applied over DefaultConfig; each entry only touches the fields
// it is about.
var Presets = map[string]func(*Config){
	"nominal": func(*Config) {},
	"gentle": func(c *Config) {
		c.Controller.K = 5.0
		c.Controller.Reference = 8.0
	},
	"aggressive": func(c *Config) {
		c.Controller.K = 120.0
		c.Controller.Ke = 20.0
		c.Controller.Reference = 15.0
	},
	"noisy": func(c *Config) {
		c.Sensor.NoiseCm = 0.5
		c.Sensor.Dropout = 0.05
	},
	"mismatch": func(c *Config) {
		c.Plant.InflowScale = 0.8
		c.Plant.InitialLevel = 4.0
	},
	"fresh-estimate": func(c *Config) {
		c.Controller.ResetEstimateOnStart = true
	},
}

func GetPreset(name string) (*Config, error) {
	apply, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg, nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
