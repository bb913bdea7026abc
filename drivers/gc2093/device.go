package gc2093

import (
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"

	"sensorcode-go/errcode"
	"sensorcode-go/x/conv"
	"sensorcode-go/x/ctrl"
)

// Config holds board-level settings. Zero fields take DefaultConfig values.
type Config struct {
	// Address defaults to AddressDefault if zero.
	Address uint16

	// Rotation is the mounting rotation in degrees: 0 or 180. A sensor
	// mounted upside down reports the RGGB bus code.
	Rotation uint32

	// LinkFrequencies lists the frequencies the receiver endpoint accepts.
	// It must contain every entry of the package LinkFrequencies.
	LinkFrequencies []physic.Frequency

	// AlwaysOn keeps the sensor powered from New until Close, for boards
	// without runtime power management.
	AlwaysOn bool

	// Sequencing delays. Default 5 ms each.
	RailSettle  time.Duration
	ResetSettle time.Duration
	BootSettle  time.Duration

	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// OnRangeChange observes control range mutations (vblank moving the
	// exposure ceiling). Called with the device lock held.
	OnRangeChange func(ctrl.RangeChange)
}

func DefaultConfig() Config {
	return Config{
		Address:         AddressDefault,
		LinkFrequencies: LinkFrequencies,
		RailSettle:      5 * time.Millisecond,
		ResetSettle:     5 * time.Millisecond,
		BootSettle:      5 * time.Millisecond,
	}
}

// Validate checks the fields New cannot default.
func (c Config) Validate() error {
	if c.Rotation != 0 && c.Rotation != 180 {
		return &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "rotation " + conv.Itoa(int64(c.Rotation))}
	}
	for _, want := range LinkFrequencies {
		found := false
		for _, f := range c.LinkFrequencies {
			if f == want {
				found = true
				break
			}
		}
		if !found {
			return &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "link frequency " + want.String() + " not supported by endpoint"}
		}
	}
	if c.RailSettle < 0 || c.ResetSettle < 0 || c.BootSettle < 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "negative settle delay"}
	}
	return nil
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Address == 0 {
		c.Address = def.Address
	}
	if c.LinkFrequencies == nil {
		c.LinkFrequencies = def.LinkFrequencies
	}
	if c.RailSettle == 0 {
		c.RailSettle = def.RailSettle
	}
	if c.ResetSettle == 0 {
		c.ResetSettle = def.ResetSettle
	}
	if c.BootSettle == 0 {
		c.BootSettle = def.BootSettle
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Providers are the power collaborators. Rails are enabled in order and
// disabled in reverse. Reset is optional.
type Providers struct {
	Rails []Regulator
	Clock Clock
	Reset ResetLine
}

// Device is one GC2093. Every exported method takes the device lock for
// its whole duration; unexported helpers assume it is held.
type Device struct {
	mu sync.Mutex

	i2c  drivers.I2C
	addr uint16
	cfg  Config
	log  *slog.Logger

	rails []Regulator
	clk   Clock
	reset ResetLine

	mode       *Mode
	code       MbusCode
	upsideDown bool
	ctrls      *ctrl.Handler

	power  PowerState
	stream StreamState
	users  int  // keep-alive references
	held   bool // reference taken by PowerOn
	pinned bool // reference taken for AlwaysOn
	closed bool

	lastRange ctrl.RangeChange
	stats     Stats

	sleep func(time.Duration)

	// Fixed buffers to avoid per-call heap allocations.
	w [2 + maxRegLen]byte
	r [maxRegLen]byte
}

// New checks the configuration and the clock, selects the first supported
// mode and registers the controls. The sensor is not touched unless
// cfg.AlwaysOn is set, in which case it is powered and identified.
func New(i2c drivers.I2C, p Providers, cfg Config) (*Device, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if i2c == nil || p.Clock == nil || len(p.Rails) == 0 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "new", Msg: "missing transport or power providers"}
	}
	if rate := p.Clock.Rate(); rate != EclkFreq {
		return nil, &errcode.E{C: errcode.ClockError, Op: "new", Msg: "eclk " + rate.String() + ", want " + EclkFreq.String()}
	}
	reset := p.Reset
	if reset == nil {
		reset = noReset{}
	}

	d := &Device{
		i2c:        i2c,
		addr:       cfg.Address,
		cfg:        cfg,
		log:        cfg.Logger,
		rails:      p.Rails,
		clk:        p.Clock,
		reset:      reset,
		mode:       &SupportedModes[0],
		upsideDown: cfg.Rotation == 180,
		sleep:      time.Sleep,
	}
	d.code = MbusSBGGR10
	if d.upsideDown {
		d.code = MbusSRGGB10
	}
	if err := d.initControls(); err != nil {
		return nil, err
	}

	if cfg.AlwaysOn {
		if err := d.acquire(); err != nil {
			return nil, err
		}
		d.pinned = true
	}
	d.log.Debug("gc2093 ready", "addr", conv.Reg(d.addr), "mode", d.mode.String(), "code", d.code.String())
	return d, nil
}

// Close stops streaming and drops every keep-alive reference the device
// holds itself. It never fails.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.stop()
	if d.held {
		d.held = false
		d.release()
	}
	if d.pinned {
		d.pinned = false
		d.release()
	}
	if d.power != PowerStateOff {
		d.powerOff()
	}
	d.users = 0
	d.closed = true
}

// Stats counts sequencing work since New.
type Stats struct {
	PowerOns       uint32 `yaml:"power_ons"`
	PowerOffs      uint32 `yaml:"power_offs"`
	ModeWrites     uint32 `yaml:"mode_writes"`
	Replays        uint32 `yaml:"replays"` // control re-applications on Start
	ControlWrites  uint32 `yaml:"control_writes"`
	TeardownErrors uint32 `yaml:"teardown_errors"`
}

// ControlStatus is one control in a Status snapshot.
type ControlStatus struct {
	Name     string `yaml:"name"`
	Value    int64  `yaml:"value"`
	Min      int64  `yaml:"min"`
	Max      int64  `yaml:"max"`
	ReadOnly bool   `yaml:"read_only,omitempty"`
	Item     string `yaml:"item,omitempty"`
}

// Status is a point-in-time copy of the device state.
type Status struct {
	Power    string          `yaml:"power"`
	Stream   string          `yaml:"stream"`
	Mode     string          `yaml:"mode"`
	Code     string          `yaml:"code"`
	Users    int             `yaml:"users"`
	Controls []ControlStatus `yaml:"controls"`
	Stats    Stats           `yaml:"stats"`
}

func (d *Device) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := Status{
		Power:  d.power.String(),
		Stream: d.stream.String(),
		Mode:   d.mode.String(),
		Code:   d.code.String(),
		Users:  d.users,
		Stats:  d.stats,
	}
	for _, c := range d.ctrls.Controls() {
		cs := ControlStatus{Name: c.Name, Value: c.IntValue(), Min: c.Min, Max: c.Max, ReadOnly: c.ReadOnly()}
		if c.Kind == ctrl.KindMenu {
			cs.Item = c.Menu[c.Val]
		}
		st.Controls = append(st.Controls, cs)
	}
	return st
}

type noReset struct{}

func (noReset) Set(bool) {}
