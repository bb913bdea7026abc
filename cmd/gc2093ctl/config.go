package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"sensorcode-go/drivers/gc2093"
	"sensorcode-go/platform/periphio"
	"sensorcode-go/x/ctrl"
)

// Config is the on-disk YAML configuration.
type Config struct {
	Board  periphio.Config `yaml:"board"`
	Sensor SensorConfig    `yaml:"sensor"`
}

type SensorConfig struct {
	Address         uint16           `yaml:"address"`
	Rotation        uint32           `yaml:"rotation"`
	LinkFrequencies []string         `yaml:"link_frequencies"`
	AlwaysOn        bool             `yaml:"always_on"`
	SettleMs        int              `yaml:"settle_ms"`
	Controls        map[string]int64 `yaml:"controls"`
}

func DefaultConfig() Config {
	return Config{
		Board: periphio.DefaultConfig(),
		Sensor: SensorConfig{
			Address:         gc2093.AddressDefault,
			LinkFrequencies: []string{gc2093.LinkFreq390MHz.String()},
		},
	}
}

// Load reads path over DefaultConfig and validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, Validate(&cfg)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := Validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration without mutating it.
func Validate(cfg *Config) error {
	if err := cfg.Board.Validate(); err != nil {
		return err
	}
	if cfg.Sensor.SettleMs < 0 {
		return fmt.Errorf("sensor.settle_ms must not be negative")
	}
	for _, s := range cfg.Sensor.LinkFrequencies {
		var f physic.Frequency
		if err := f.Set(s); err != nil {
			return fmt.Errorf("sensor.link_frequencies: %q: %w", s, err)
		}
	}
	for name := range cfg.Sensor.Controls {
		if _, ok := ctrl.ParseID(name); !ok {
			return fmt.Errorf("sensor.controls: unknown control %q", name)
		}
	}
	_, err := cfg.driverConfig()
	return err
}

// driverConfig maps the sensor section onto gc2093.Config.
func (cfg *Config) driverConfig() (gc2093.Config, error) {
	dc := gc2093.Config{
		Address:  cfg.Sensor.Address,
		Rotation: cfg.Sensor.Rotation,
		AlwaysOn: cfg.Sensor.AlwaysOn,
	}
	for _, s := range cfg.Sensor.LinkFrequencies {
		var f physic.Frequency
		if err := f.Set(s); err != nil {
			return gc2093.Config{}, err
		}
		dc.LinkFrequencies = append(dc.LinkFrequencies, f)
	}
	if cfg.Sensor.SettleMs > 0 {
		d := time.Duration(cfg.Sensor.SettleMs) * time.Millisecond
		dc.RailSettle, dc.ResetSettle, dc.BootSettle = d, d, d
	}
	return dc, dc.Validate()
}

// initialControls returns the configured controls as one batch, ordered by
// name for stable error messages.
func (cfg *Config) initialControls() []ctrl.Value {
	names := make([]string, 0, len(cfg.Sensor.Controls))
	for n := range cfg.Sensor.Controls {
		names = append(names, n)
	}
	sort.Strings(names)
	vals := make([]ctrl.Value, 0, len(names))
	for _, n := range names {
		id, _ := ctrl.ParseID(n)
		vals = append(vals, ctrl.Value{ID: id, Val: cfg.Sensor.Controls[n]})
	}
	return vals
}
