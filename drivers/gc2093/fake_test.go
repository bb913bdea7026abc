package gc2093

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"sensorcode-go/x/conv"
)

var (
	errNoAck = errors.New("i2c: no ack")
	errRail  = errors.New("regulator: over-current")
	errClk   = errors.New("clk: not prepared")
)

// rig wires a Device to fakes that record every side effect in one ordered
// event log.
type rig struct {
	events []string
	bus    *fakeBus
	rails  []*fakeRail
	clk    *fakeClock
	reset  *fakeReset
}

func (r *rig) note(s string) { r.events = append(r.events, s) }

func newRig() *rig {
	r := &rig{}
	r.bus = &fakeBus{rig: r, regs: map[uint16]byte{regChipID: 0x20, regChipID + 1: 0x93}, fail: map[uint16]error{}}
	for _, n := range SupplyNames {
		r.rails = append(r.rails, &fakeRail{rig: r, name: n})
	}
	r.clk = &fakeClock{rig: r, rate: EclkFreq}
	r.reset = &fakeReset{rig: r}
	return r
}

func (r *rig) providers() Providers {
	rails := make([]Regulator, len(r.rails))
	for i, f := range r.rails {
		rails[i] = f
	}
	return Providers{Rails: rails, Clock: r.clk, Reset: r.reset}
}

// clear forgets everything recorded so far.
func (r *rig) clear() {
	r.events = nil
	r.bus.writes = nil
	r.bus.reads = 0
}

func newDevice(t *testing.T, cfg Config) (*Device, *rig) {
	t.Helper()
	r := newRig()
	d, err := New(r.bus, r.providers(), cfg)
	require.NoError(t, err)
	d.sleep = func(time.Duration) { r.note("sleep") }
	return d, r
}

type regWrite struct {
	Reg uint16
	Val byte
}

// fakeBus is a register file behind the 16-bit address protocol.
type fakeBus struct {
	rig    *rig
	regs   map[uint16]byte
	writes []regWrite
	reads  int
	fail   map[uint16]error
}

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	if addr != AddressDefault {
		return errNoAck
	}
	reg := uint16(w[0])<<8 | uint16(w[1])
	if err := b.fail[reg]; err != nil {
		return err
	}
	if len(r) > 0 {
		b.reads++
		b.rig.note("read " + conv.Reg(reg))
		for i := range r {
			r[i] = b.regs[reg+uint16(i)]
		}
		return nil
	}
	for i, v := range w[2:] {
		b.regs[reg+uint16(i)] = v
		b.writes = append(b.writes, regWrite{reg + uint16(i), v})
	}
	return nil
}

func (b *fakeBus) io() int { return len(b.writes) + b.reads }

// last returns the most recent value written to reg.
func (b *fakeBus) last(reg uint16) (byte, bool) {
	for i := len(b.writes) - 1; i >= 0; i-- {
		if b.writes[i].Reg == reg {
			return b.writes[i].Val, true
		}
	}
	return 0, false
}

// index returns the position of the last write to reg, or -1.
func (b *fakeBus) index(reg uint16) int {
	for i := len(b.writes) - 1; i >= 0; i-- {
		if b.writes[i].Reg == reg {
			return i
		}
	}
	return -1
}

type fakeRail struct {
	rig        *rig
	name       string
	enables    int
	disables   int
	enableErr  error
	disableErr error
}

func (f *fakeRail) Name() string { return f.name }

func (f *fakeRail) Enable() error {
	f.rig.note(f.name + " on")
	if f.enableErr != nil {
		return f.enableErr
	}
	f.enables++
	return nil
}

func (f *fakeRail) Disable() error {
	f.rig.note(f.name + " off")
	f.disables++
	return f.disableErr
}

type fakeClock struct {
	rig       *rig
	rate      physic.Frequency
	enables   int
	disables  int
	enableErr error
}

func (c *fakeClock) Enable() error {
	c.rig.note("clk on")
	if c.enableErr != nil {
		return c.enableErr
	}
	c.enables++
	return nil
}

func (c *fakeClock) Disable() {
	c.rig.note("clk off")
	c.disables++
}

func (c *fakeClock) Rate() physic.Frequency { return c.rate }

type fakeReset struct {
	rig    *rig
	active bool
}

func (r *fakeReset) Set(active bool) {
	r.active = active
	if active {
		r.rig.note("reset 1")
	} else {
		r.rig.note("reset 0")
	}
}
