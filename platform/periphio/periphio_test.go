package periphio

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"sensorcode-go/drivers/gc2093"
	"sensorcode-go/errcode"
)

const testBus = "gc2093-test"

var (
	registerOnce sync.Once
	resetPin     = &gpiotest.Pin{N: "TEST_RESET", Num: 901}
	avddPin      = &gpiotest.Pin{N: "TEST_AVDD", Num: 902}
	clkPin       = &gpiotest.Pin{N: "TEST_CLK_EN", Num: 903}
	playback     = &i2ctest.Playback{}
)

func register(t *testing.T) {
	t.Helper()
	registerOnce.Do(func() {
		for _, p := range []*gpiotest.Pin{resetPin, avddPin, clkPin} {
			require.NoError(t, gpioreg.Register(p))
		}
		require.NoError(t, i2creg.Register(testBus, nil, -1, func() (i2c.BusCloser, error) { return playback, nil }))
	})
}

func TestPinPolarity(t *testing.T) {
	p := &gpiotest.Pin{N: "P"}

	r := NewResetPin(p, Pin{Name: "P", ActiveLow: true}, nil)
	r.Set(true)
	assert.Equal(t, gpio.Low, p.Read())
	r.Set(false)
	assert.Equal(t, gpio.High, p.Read())

	rail := NewSwitchedRail("avdd", p, Pin{Name: "P"})
	require.NoError(t, rail.Enable())
	assert.Equal(t, gpio.High, p.Read())
	require.NoError(t, rail.Disable())
	assert.Equal(t, gpio.Low, p.Read())
	assert.Equal(t, "avdd", rail.Name())
}

func TestClock(t *testing.T) {
	c := NewClock(24*physic.MegaHertz, nil, Pin{})
	assert.NoError(t, c.Enable())
	c.Disable()
	assert.Equal(t, gc2093.EclkFreq, c.Rate())

	p := &gpiotest.Pin{N: "CLK"}
	c = NewClock(24*physic.MegaHertz, p, Pin{Name: "CLK"})
	require.NoError(t, c.Enable())
	assert.Equal(t, gpio.High, p.Read())
	c.Disable()
	assert.Equal(t, gpio.Low, p.Read())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.ClockRate = "fast"
	assert.True(t, errors.Is(cfg.Validate(), errcode.InvalidParams))

	cfg = DefaultConfig()
	cfg.Rails = nil
	assert.True(t, errors.Is(cfg.Validate(), errcode.InvalidParams))
}

func TestOpenUnknownPin(t *testing.T) {
	register(t)
	cfg := DefaultConfig()
	cfg.Bus = testBus
	cfg.Reset = &Pin{Name: "NO_SUCH_PIN"}
	_, err := Open(cfg, nil)
	assert.True(t, errors.Is(err, errcode.InvalidParams))
}

func TestOpenAndPowerOn(t *testing.T) {
	register(t)
	playback.Ops = []i2ctest.IO{
		{Addr: gc2093.AddressDefault, W: []byte{0x03, 0xF0}, R: []byte{0x20, 0x93}},
	}
	playback.Count = 0

	cfg := DefaultConfig()
	cfg.Bus = testBus
	cfg.Reset = &Pin{Name: resetPin.N, ActiveLow: true}
	cfg.Rails[1].Pin = &Pin{Name: avddPin.N}
	cfg.ClockEnable = &Pin{Name: clkPin.N}

	b, err := Open(cfg, nil)
	require.NoError(t, err)
	d, err := gc2093.New(b.Bus, b.Providers, gc2093.Config{})
	require.NoError(t, err)

	require.NoError(t, d.PowerOn())
	assert.Equal(t, gpio.High, avddPin.Read())
	assert.Equal(t, gpio.High, clkPin.Read())
	assert.Equal(t, gpio.High, resetPin.Read(), "active-low reset released")

	d.Close()
	assert.Equal(t, gpio.Low, avddPin.Read())
	assert.Equal(t, gpio.Low, clkPin.Read())
	assert.Equal(t, gpio.Low, resetPin.Read(), "active-low reset held")
	assert.NoError(t, b.Close())
}
