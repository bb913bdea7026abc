package gc2093

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"sensorcode-go/errcode"
	"sensorcode-go/x/ctrl"
)

func TestDefaultControlRanges(t *testing.T) {
	d, _ := newDevice(t, Config{})

	exp := d.ExposureRange()
	assert.Equal(t, int64(ExposureMin), exp.Min)
	assert.Equal(t, int64(1121), exp.Max, "height + vblank_min - margin")

	v, err := d.Control(ctrl.Exposure)
	require.NoError(t, err)
	assert.Equal(t, int64(1121), v)

	vb, err := d.ControlRange(ctrl.VBlank)
	require.NoError(t, err)
	assert.Equal(t, int64(45), vb.Min)
	assert.Equal(t, int64(7271), vb.Max)

	assert.Equal(t, uint32(924), d.HorizontalBlank())
	assert.Equal(t, 156*physic.MegaHertz, d.PixelRate())

	g, err := d.Control(ctrl.AnalogueGain)
	require.NoError(t, err)
	assert.Equal(t, int64(GainDefault), g)
}

func TestExposureCeilingFollowsVBlank(t *testing.T) {
	d, _ := newDevice(t, Config{})

	for _, delta := range []uint32{0, 1, 55, 1000} {
		rc, err := d.SetVerticalBlank(45 + delta)
		require.NoError(t, err)
		want := int64(1121 + delta)
		assert.Equal(t, want, rc.NewMax)
		assert.Equal(t, want, d.ExposureRange().Max)
	}
}

func TestExposureAtAndBeyondCeiling(t *testing.T) {
	d, r := newDevice(t, Config{})
	require.NoError(t, d.PowerOn())
	_, err := d.SetVerticalBlank(100)
	require.NoError(t, err)
	r.clear()

	require.NoError(t, d.SetExposure(1176))
	hi, _ := r.bus.last(regExposureH)
	lo, _ := r.bus.last(regExposureL)
	assert.Equal(t, uint32(1176), uint32(hi)<<8|uint32(lo))

	r.clear()
	err = d.SetExposure(1177)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcode.RangeViolation))
	assert.Empty(t, r.bus.writes)
	v, _ := d.Control(ctrl.Exposure)
	assert.Equal(t, int64(1176), v)

	assert.True(t, errors.Is(d.SetExposure(ExposureMin-1), errcode.RangeViolation))
}

func TestVBlankShrinkClampsExposure(t *testing.T) {
	var buf bytes.Buffer
	var seen []ctrl.RangeChange
	d, r := newDevice(t, Config{
		Logger:        slog.New(slog.NewTextHandler(&buf, nil)),
		OnRangeChange: func(rc ctrl.RangeChange) { seen = append(seen, rc) },
	})
	require.NoError(t, d.PowerOn())
	_, err := d.SetVerticalBlank(200)
	require.NoError(t, err)
	require.NoError(t, d.SetExposure(1276))
	r.clear()

	rc, err := d.SetVerticalBlank(45)
	require.NoError(t, err)
	assert.Equal(t, ctrl.Exposure, rc.ID)
	assert.True(t, rc.Clamped())
	assert.True(t, rc.Shrunk())
	assert.Equal(t, int64(1276), rc.OldValue)
	assert.Equal(t, int64(1121), rc.NewValue)

	v, _ := d.Control(ctrl.Exposure)
	assert.Equal(t, int64(1121), v)

	// The clamped exposure reaches the sensor before the shorter frame.
	lo, _ := r.bus.last(regExposureL)
	assert.Equal(t, byte(0x61), lo)
	assert.Less(t, r.bus.index(regExposureL), r.bus.index(regVTSL))
	vts, _ := r.bus.last(regVTSL)
	assert.Equal(t, byte(0x65), vts)

	require.Len(t, seen, 2)
	assert.Equal(t, rc, seen[1])
	assert.Contains(t, buf.String(), "control clamped")
}

func TestVBlankGrowDoesNotClamp(t *testing.T) {
	d, _ := newDevice(t, Config{})
	rc, err := d.SetVerticalBlank(300)
	require.NoError(t, err)
	assert.False(t, rc.Clamped())
	assert.False(t, rc.Shrunk())
	assert.Equal(t, int64(1121), rc.OldValue)
}

func TestVBlankOutOfRange(t *testing.T) {
	d, _ := newDevice(t, Config{})
	rc, err := d.SetVerticalBlank(44)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcode.RangeViolation))
	assert.Equal(t, ctrl.RangeChange{}, rc)
	assert.Equal(t, int64(1121), d.ExposureRange().Max)

	_, err = d.SetVerticalBlank(7272)
	assert.True(t, errors.Is(err, errcode.RangeViolation))
}

func TestBatchAppliesVBlankBeforeExposure(t *testing.T) {
	d, _ := newDevice(t, Config{})

	// Exposure first in the slice; still validated against the new ceiling.
	require.NoError(t, d.SetControls([]ctrl.Value{
		{ID: ctrl.Exposure, Val: 1500},
		{ID: ctrl.VBlank, Val: 500},
	}))
	v, _ := d.Control(ctrl.Exposure)
	assert.Equal(t, int64(1500), v)
	assert.Equal(t, int64(1576), d.ExposureRange().Max)
}

func TestBatchIsAllOrNothing(t *testing.T) {
	d, r := newDevice(t, Config{})
	require.NoError(t, d.PowerOn())
	r.clear()

	err := d.SetControls([]ctrl.Value{
		{ID: ctrl.VBlank, Val: 500},
		{ID: ctrl.AnalogueGain, Val: 128},
		{ID: ctrl.Exposure, Val: 5000},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcode.RangeViolation))
	assert.Empty(t, r.bus.writes)

	vb, _ := d.Control(ctrl.VBlank)
	assert.Equal(t, int64(45), vb)
	g, _ := d.Control(ctrl.AnalogueGain)
	assert.Equal(t, int64(GainDefault), g)
	assert.Equal(t, int64(1121), d.ExposureRange().Max)

	err = d.SetControls([]ctrl.Value{{ID: ctrl.Exposure, Val: 10}, {ID: 99, Val: 1}})
	assert.True(t, errors.Is(err, errcode.UnsupportedControl))
	v, _ := d.Control(ctrl.Exposure)
	assert.Equal(t, int64(1121), v)
}

func TestUnpoweredSetsOnlyStore(t *testing.T) {
	d, r := newDevice(t, Config{})
	require.NoError(t, d.SetGain(1000))
	require.NoError(t, d.SetExposure(10))
	_, err := d.SetVerticalBlank(60)
	require.NoError(t, err)
	require.NoError(t, d.SetTestPattern(1))
	assert.Zero(t, r.bus.io())
	assert.Zero(t, d.Status().Stats.ControlWrites)
}

func TestGainWritesAllRegisters(t *testing.T) {
	d, r := newDevice(t, Config{})
	require.NoError(t, d.PowerOn())
	r.clear()

	require.NoError(t, d.SetGain(700))
	assert.Equal(t, []regWrite{
		{regAnalogGainH, 0x00}, {regAnalogGainL, 0x84},
		{regColGainH, 0x10}, {regColGainL, 0x00},
		{regAnalogSWH, 0x7c}, {regAnalogSWL, 0x1b},
		{regRAMWidthH, 0x08}, {regRAMWidthL, 0x0c},
		{regFineGainH, 0x01}, {regFineGainL, 0x00},
	}, r.bus.writes)

	assert.True(t, errors.Is(d.SetGain(GainMax+1), errcode.RangeViolation))
	assert.True(t, errors.Is(d.SetGain(GainMin-1), errcode.RangeViolation))
}

func TestGainAttemptsEveryWrite(t *testing.T) {
	d, r := newDevice(t, Config{})
	require.NoError(t, d.PowerOn())
	r.clear()
	r.bus.fail[regColGainH] = errNoAck
	r.bus.fail[regRAMWidthL] = errNoAck

	err := d.SetGain(128)
	require.Error(t, err)
	assert.Equal(t, errcode.TransportFailure, errcode.Of(err))
	assert.Len(t, r.bus.writes, 8)

	// A failed write keeps the stored value.
	g, _ := d.Control(ctrl.AnalogueGain)
	assert.Equal(t, int64(128), g)
}

func TestReadOnlyControls(t *testing.T) {
	d, r := newDevice(t, Config{})
	require.NoError(t, d.PowerOn())
	r.clear()

	assert.NoError(t, d.SetHorizontalBlank(1))
	assert.Equal(t, uint32(924), d.HorizontalBlank())
	assert.NoError(t, d.SetControl(ctrl.HBlank, 924))
	assert.True(t, errors.Is(d.SetControl(ctrl.HBlank, 925), errcode.RangeViolation))

	assert.NoError(t, d.SetControl(ctrl.PixelRate, 156_000_000))
	assert.True(t, errors.Is(d.SetControl(ctrl.PixelRate, 1), errcode.RangeViolation))

	assert.NoError(t, d.SetControl(ctrl.LinkFreq, 0))
	assert.True(t, errors.Is(d.SetControl(ctrl.LinkFreq, 1), errcode.RangeViolation))
	assert.Empty(t, r.bus.writes)
}

func TestTestPatternMenu(t *testing.T) {
	d, _ := newDevice(t, Config{})
	require.NoError(t, d.PowerOn())
	require.NoError(t, d.SetTestPattern(1))
	v, _ := d.Control(ctrl.TestPattern)
	assert.Equal(t, int64(1), v)
	assert.True(t, errors.Is(d.SetTestPattern(len(TestPatterns)), errcode.RangeViolation))
	assert.True(t, errors.Is(d.SetTestPattern(-1), errcode.RangeViolation))
}

func TestUnknownControl(t *testing.T) {
	d, _ := newDevice(t, Config{})
	assert.True(t, errors.Is(d.SetControl(ctrl.ID(99), 1), errcode.UnsupportedControl))
	_, err := d.Control(ctrl.ID(99))
	assert.True(t, errors.Is(err, errcode.UnsupportedControl))
	_, err = d.ControlRange(ctrl.ID(99))
	assert.True(t, errors.Is(err, errcode.UnsupportedControl))
}
