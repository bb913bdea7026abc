package gc2093

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensorcode-go/errcode"
)

// Writes made by Start after the mode table: vblank (2), exposure (2),
// gain (10), then the stream enable.
const replayWrites = 2 + 2 + 10

func TestStartProgramsModeThenReplaysControls(t *testing.T) {
	d, r := newDevice(t, Config{})
	regs := SupportedModes[0].Regs

	require.NoError(t, d.Start())
	assert.Equal(t, StreamStreaming, d.StreamState())
	assert.Equal(t, PowerStatePowered, d.PowerState())

	w := r.bus.writes
	require.Len(t, w, len(regs)+replayWrites+1)
	for i, reg := range regs {
		require.Equal(t, regWrite{reg.Addr, reg.Val}, w[i], "table entry %d", i)
	}
	replay := w[len(regs) : len(regs)+replayWrites]
	assert.Equal(t, regWrite{regVTSH, 0x04}, replay[0])
	assert.Equal(t, regWrite{regVTSL, 0x65}, replay[1])
	assert.Equal(t, regWrite{regExposureH, 0x04}, replay[2])
	assert.Equal(t, regWrite{regExposureL, 0x61}, replay[3])
	assert.Equal(t, uint16(regAnalogGainH), replay[4].Reg)
	assert.Equal(t, regWrite{regCtrlMode, ctrlModeStreaming}, w[len(w)-1])

	st := d.Status().Stats
	assert.Equal(t, uint32(1), st.ModeWrites)
	assert.Equal(t, uint32(1), st.Replays)
}

func TestStartWhileStreamingIsNoop(t *testing.T) {
	d, r := newDevice(t, Config{})
	require.NoError(t, d.Start())
	r.clear()

	require.NoError(t, d.Start())
	require.NoError(t, d.SetStream(true))
	assert.Zero(t, r.bus.io())
	assert.Empty(t, r.events)
	assert.Equal(t, uint32(1), d.Status().Stats.Replays)
}

func TestStopIsIdempotent(t *testing.T) {
	d, r := newDevice(t, Config{})

	d.Stop()
	assert.Zero(t, r.bus.io(), "stop while stopped")
	assert.Empty(t, r.events)

	require.NoError(t, d.Start())
	r.clear()
	d.Stop()
	require.NotEmpty(t, r.bus.writes)
	assert.Equal(t, regWrite{regCtrlMode, ctrlModeStandby}, r.bus.writes[0])
	assert.Equal(t, StreamStopped, d.StreamState())
	assert.Equal(t, PowerStateOff, d.PowerState())

	r.clear()
	require.NoError(t, d.SetStream(false))
	assert.Zero(t, r.bus.io())
	assert.Empty(t, r.events)
}

func TestEveryStartReplaysControls(t *testing.T) {
	d, r := newDevice(t, Config{})

	require.NoError(t, d.SetExposure(500))
	require.NoError(t, d.SetGain(700))
	assert.Zero(t, r.bus.io(), "unpowered sets only store")

	for i := 1; i <= 3; i++ {
		r.clear()
		require.NoError(t, d.Start())
		hi, _ := r.bus.last(regExposureH)
		lo, _ := r.bus.last(regExposureL)
		assert.Equal(t, uint32(500), uint32(hi)<<8|uint32(lo))
		ag, _ := r.bus.last(regAnalogGainL)
		assert.Equal(t, byte(0x84), ag)
		d.Stop()
		assert.Equal(t, uint32(i), d.Status().Stats.Replays)
	}
}

func TestStartModeTableFailure(t *testing.T) {
	d, r := newDevice(t, Config{})
	r.bus.fail[0x03F4] = errNoAck

	err := d.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcode.TransportFailure))
	assert.True(t, errors.Is(err, errNoAck))

	assert.Equal(t, StreamStopped, d.StreamState())
	assert.Equal(t, PowerStateOff, d.PowerState())
	assert.Equal(t, regWrite{regCtrlMode, ctrlModeStandby}, r.bus.writes[len(r.bus.writes)-1])
	st := d.Status()
	assert.Zero(t, st.Stats.Replays)
	assert.Zero(t, st.Users)
}

func TestStartReplayFailure(t *testing.T) {
	d, r := newDevice(t, Config{})
	require.NoError(t, d.PowerOn())
	r.bus.fail[regAnalogGainH] = errNoAck

	err := d.Start()
	require.Error(t, err)
	assert.Equal(t, errcode.TransportFailure, errcode.Of(err))
	assert.Equal(t, StreamStopped, d.StreamState())
	assert.Equal(t, PowerStatePowered, d.PowerState(), "PowerOn reference survives")
	assert.Equal(t, 1, d.Status().Users)
	v, _ := r.bus.last(regCtrlMode)
	assert.Equal(t, byte(ctrlModeStandby), v)
}

func TestStartPowerFailureLeavesStopped(t *testing.T) {
	d, r := newDevice(t, Config{})
	r.bus.regs[regChipID] = 0x11

	err := d.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcode.IdentityMismatch))
	assert.Empty(t, r.bus.writes)
	assert.Equal(t, StreamStopped, d.StreamState())
	assert.Equal(t, PowerStateOff, d.PowerState())
}
