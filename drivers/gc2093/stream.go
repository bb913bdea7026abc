package gc2093

type StreamState uint8

const (
	StreamStopped StreamState = iota
	StreamStarting
	StreamStreaming
)

func (s StreamState) String() string {
	switch s {
	case StreamStopped:
		return "stopped"
	case StreamStarting:
		return "starting"
	case StreamStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// SetStream starts or stops streaming. Both directions are idempotent.
func (d *Device) SetStream(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if on {
		return d.start()
	}
	d.stop()
	return nil
}

func (d *Device) Start() error { return d.SetStream(true) }

func (d *Device) Stop() { _ = d.SetStream(false) }

// StreamState reports the current streaming state.
func (d *Device) StreamState() StreamState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stream
}

// start powers the sensor if needed, programs the mode table, re-applies
// every control on top of it and enables the output. On failure the
// sensor is put back in standby and the power reference is dropped.
func (d *Device) start() error {
	if d.stream == StreamStreaming {
		return nil
	}
	if err := d.acquire(); err != nil {
		return err
	}
	d.stream = StreamStarting

	if err := d.program(); err != nil {
		if serr := d.writeReg(regCtrlMode, 1, ctrlModeStandby); serr != nil {
			d.stats.TeardownErrors++
			d.log.Warn("standby after failed start", "err", serr)
		}
		d.stream = StreamStopped
		d.release()
		return err
	}
	d.stream = StreamStreaming
	d.log.Info("stream on", "mode", d.mode.String())
	return nil
}

func (d *Device) program() error {
	if err := d.writeArray(d.mode.Regs); err != nil {
		return err
	}
	d.stats.ModeWrites++

	// The mode table resets exposure, gain and blanking registers.
	if err := d.ctrls.Setup(); err != nil {
		return err
	}
	d.stats.Replays++

	return d.writeReg(regCtrlMode, 1, ctrlModeStreaming)
}

func (d *Device) stop() {
	if d.stream == StreamStopped {
		return
	}
	if err := d.writeReg(regCtrlMode, 1, ctrlModeStandby); err != nil {
		d.stats.TeardownErrors++
		d.log.Warn("stream off", "err", err)
	}
	d.stream = StreamStopped
	d.release()
	d.log.Info("stream off")
}
