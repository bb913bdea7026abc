// Package periphio supplies GC2093 power providers and the register bus on
// Linux hosts through periph.io.
package periphio

import (
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"

	"sensorcode-go/drivers/gc2093"
	"sensorcode-go/errcode"
)

// Pin names a GPIO and its active level.
type Pin struct {
	Name      string `yaml:"name"`
	ActiveLow bool   `yaml:"active_low,omitempty"`
}

func (p Pin) level(active bool) gpio.Level { return gpio.Level(active != p.ActiveLow) }

// Config describes how the sensor is wired to the host.
type Config struct {
	// Bus is an i2creg name ("" opens the first bus).
	Bus string `yaml:"bus"`

	// Reset is optional.
	Reset *Pin `yaml:"reset,omitempty"`

	// Rails are enabled in order. A rail without a pin is always on.
	Rails []Rail `yaml:"rails"`

	// ClockRate is the eclk frequency, e.g. "24MHz".
	ClockRate string `yaml:"clock_rate"`
	// ClockEnable gates an external oscillator; optional.
	ClockEnable *Pin `yaml:"clock_enable,omitempty"`
}

// Rail is one supply in Config.
type Rail struct {
	Name string `yaml:"name"`
	Pin  *Pin   `yaml:"pin,omitempty"`
}

// DefaultConfig wires three always-on rails and a 24 MHz clock.
func DefaultConfig() Config {
	cfg := Config{ClockRate: gc2093.EclkFreq.String()}
	for _, n := range gc2093.SupplyNames {
		cfg.Rails = append(cfg.Rails, Rail{Name: n})
	}
	return cfg
}

func (c Config) Validate() error {
	if len(c.Rails) == 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "periphio.config", Msg: "no rails"}
	}
	for _, r := range c.Rails {
		if r.Name == "" {
			return &errcode.E{C: errcode.InvalidParams, Op: "periphio.config", Msg: "unnamed rail"}
		}
	}
	var f physic.Frequency
	if err := f.Set(c.ClockRate); err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "periphio.config", Msg: "clock_rate", Err: err}
	}
	return nil
}

// Board is an opened bus plus the providers for gc2093.New.
type Board struct {
	Bus       i2c.BusCloser
	Providers gc2093.Providers
}

func (b *Board) Close() error { return b.Bus.Close() }

// Open resolves every pin and opens the bus. host.Init must have run.
func Open(cfg Config, log *slog.Logger) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	var p gc2093.Providers
	for _, r := range cfg.Rails {
		if r.Pin == nil {
			p.Rails = append(p.Rails, FixedRail(r.Name))
			continue
		}
		out, err := lookup(*r.Pin)
		if err != nil {
			return nil, err
		}
		p.Rails = append(p.Rails, &SwitchedRail{name: r.Name, pin: out, cfg: *r.Pin})
	}

	var rate physic.Frequency
	_ = rate.Set(cfg.ClockRate)
	clk := &Clock{rate: rate}
	if cfg.ClockEnable != nil {
		out, err := lookup(*cfg.ClockEnable)
		if err != nil {
			return nil, err
		}
		clk.enable, clk.cfg = out, *cfg.ClockEnable
	}
	p.Clock = clk

	if cfg.Reset != nil {
		out, err := lookup(*cfg.Reset)
		if err != nil {
			return nil, err
		}
		p.Reset = &ResetPin{pin: out, cfg: *cfg.Reset, log: log}
	}

	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, &errcode.E{C: errcode.TransportFailure, Op: "periphio.open", Msg: "i2c " + cfg.Bus, Err: err}
	}
	log.Debug("board opened", "bus", bus.String())
	return &Board{Bus: bus, Providers: p}, nil
}

func lookup(p Pin) (gpio.PinOut, error) {
	pin := gpioreg.ByName(p.Name)
	if pin == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "periphio.open", Msg: "unknown gpio " + p.Name}
	}
	return pin, nil
}

// FixedRail is a supply that is always on.
type FixedRail string

func (r FixedRail) Name() string   { return string(r) }
func (r FixedRail) Enable() error  { return nil }
func (r FixedRail) Disable() error { return nil }

// SwitchedRail is a supply behind a GPIO-controlled load switch.
type SwitchedRail struct {
	name string
	pin  gpio.PinOut
	cfg  Pin
}

func NewSwitchedRail(name string, pin gpio.PinOut, cfg Pin) *SwitchedRail {
	return &SwitchedRail{name: name, pin: pin, cfg: cfg}
}

func (r *SwitchedRail) Name() string   { return r.name }
func (r *SwitchedRail) Enable() error  { return r.pin.Out(r.cfg.level(true)) }
func (r *SwitchedRail) Disable() error { return r.pin.Out(r.cfg.level(false)) }

// Clock is a fixed-rate oscillator, optionally gated by a GPIO.
type Clock struct {
	rate   physic.Frequency
	enable gpio.PinOut
	cfg    Pin
}

func NewClock(rate physic.Frequency, enable gpio.PinOut, cfg Pin) *Clock {
	return &Clock{rate: rate, enable: enable, cfg: cfg}
}

func (c *Clock) Rate() physic.Frequency { return c.rate }

func (c *Clock) Enable() error {
	if c.enable == nil {
		return nil
	}
	return c.enable.Out(c.cfg.level(true))
}

func (c *Clock) Disable() {
	if c.enable == nil {
		return
	}
	_ = c.enable.Out(c.cfg.level(false))
}

// ResetPin drives the reset input. Pin errors are logged; the sequencer
// treats reset as infallible.
type ResetPin struct {
	pin gpio.PinOut
	cfg Pin
	log *slog.Logger
}

func NewResetPin(pin gpio.PinOut, cfg Pin, log *slog.Logger) *ResetPin {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ResetPin{pin: pin, cfg: cfg, log: log}
}

func (r *ResetPin) Set(active bool) {
	if err := r.pin.Out(r.cfg.level(active)); err != nil {
		r.log.Warn("reset pin", "pin", r.cfg.Name, "active", active, "err", err)
	}
}

var (
	_ gc2093.Regulator = FixedRail("")
	_ gc2093.Regulator = (*SwitchedRail)(nil)
	_ gc2093.Clock     = (*Clock)(nil)
	_ gc2093.ResetLine = (*ResetPin)(nil)
)
