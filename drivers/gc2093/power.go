package gc2093

import (
	"periph.io/x/conn/v3/physic"

	"sensorcode-go/errcode"
)

// Regulator is one switchable supply rail.
type Regulator interface {
	Name() string
	Enable() error
	Disable() error
}

// Clock is the sensor's external clock (eclk).
type Clock interface {
	Enable() error
	Disable()
	Rate() physic.Frequency
}

// ResetLine drives the sensor reset input. Set(true) holds the sensor in
// reset; the provider maps that to the board's pin polarity.
type ResetLine interface {
	Set(active bool)
}

// SupplyNames are the rails in the order the sensor expects them.
var SupplyNames = []string{"dovdd", "avdd", "dvdd"}

type PowerState uint8

const (
	PowerStateOff PowerState = iota
	PowerStateRailsAndClock
	PowerStateResetAsserted
	PowerStateResetReleased
	PowerStatePowered
)

func (s PowerState) String() string {
	switch s {
	case PowerStateOff:
		return "off"
	case PowerStateRailsAndClock:
		return "rails_and_clock"
	case PowerStateResetAsserted:
		return "reset_asserted"
	case PowerStateResetReleased:
		return "reset_released"
	case PowerStatePowered:
		return "powered"
	default:
		return "unknown"
	}
}

// powerOn runs the full power-up sequence and checks the chip identity.
// On any failure everything enabled so far is disabled again and the state
// is PowerStateOff.
func (d *Device) powerOn() error {
	d.reset.Set(false)

	if err := d.clk.Enable(); err != nil {
		return &errcode.E{C: errcode.ClockError, Op: "power_on", Msg: "eclk enable", Err: err}
	}
	if err := d.enableRails(); err != nil {
		d.clk.Disable()
		return err
	}
	d.power = PowerStateRailsAndClock
	d.sleep(d.cfg.RailSettle)

	d.reset.Set(true)
	d.power = PowerStateResetAsserted
	d.sleep(d.cfg.ResetSettle)

	d.reset.Set(false)
	d.power = PowerStateResetReleased
	d.sleep(d.cfg.BootSettle)

	if err := d.verifyIdentity(); err != nil {
		d.disableRails()
		d.clk.Disable()
		d.power = PowerStateOff
		return &errcode.E{C: errcode.Of(err), Op: "power_on", Err: err}
	}
	d.power = PowerStatePowered
	d.stats.PowerOns++
	d.log.Debug("gc2093 powered on")
	return nil
}

// powerOff asserts reset, stops the clock and drops the rails. It never
// fails; rail errors are logged and counted.
func (d *Device) powerOff() {
	d.reset.Set(true)
	d.clk.Disable()
	d.disableRails()
	d.power = PowerStateOff
	d.stats.PowerOffs++
	d.log.Debug("gc2093 powered off")
}

// enableRails enables the rails in order. If one fails, the rails already
// enabled are disabled in reverse.
func (d *Device) enableRails() error {
	for i, r := range d.rails {
		if err := r.Enable(); err != nil {
			for j := i - 1; j >= 0; j-- {
				d.disableRail(d.rails[j])
			}
			return &errcode.E{C: errcode.RailFailure, Op: "power_on", Msg: r.Name(), Err: err}
		}
	}
	return nil
}

func (d *Device) disableRails() {
	for i := len(d.rails) - 1; i >= 0; i-- {
		d.disableRail(d.rails[i])
	}
}

func (d *Device) disableRail(r Regulator) {
	if err := r.Disable(); err != nil {
		d.stats.TeardownErrors++
		d.log.Warn("rail disable failed", "rail", r.Name(), "err", err)
	}
}
