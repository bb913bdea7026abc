package gc2093

import (
	"sensorcode-go/errcode"
	"sensorcode-go/x/ctrl"
)

// Which selects the format being negotiated.
type Which uint8

const (
	FormatTry Which = iota
	FormatActive
)

// Format is the media-bus format on the sensor's output pad.
type Format struct {
	Width  uint32
	Height uint32
	Code   MbusCode
}

// FormatState holds a caller's Try format between negotiation calls.
type FormatState struct {
	Try Format
}

// FrameSize is one discrete frame size.
type FrameSize struct {
	Width  uint32
	Height uint32
}

func (d *Device) formatOf(m *Mode) Format {
	return Format{Width: m.Width, Height: m.Height, Code: d.code}
}

// SupportedModes returns the modes the device can program.
func (d *Device) SupportedModes() []Mode { return SupportedModes }

// InitState resets a caller's Try format to the first supported mode.
func (d *Device) InitState(st *FormatState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st.Try = d.formatOf(&SupportedModes[0])
}

// EnumMbusCode returns the index-th supported bus code. Only one is
// offered, fixed by the mounting rotation.
func (d *Device) EnumMbusCode(index int) (MbusCode, error) {
	if index != 0 {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "enum_mbus_code", Msg: "index out of range"}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.code, nil
}

// EnumFrameSize returns the index-th supported frame size.
func (d *Device) EnumFrameSize(index int) (FrameSize, error) {
	if index < 0 || index >= len(SupportedModes) {
		return FrameSize{}, &errcode.E{C: errcode.InvalidParams, Op: "enum_frame_size", Msg: "index out of range"}
	}
	m := &SupportedModes[index]
	return FrameSize{Width: m.Width, Height: m.Height}, nil
}

// GetFormat returns the Try format from st or the active format.
func (d *Device) GetFormat(st *FormatState, which Which) (Format, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch which {
	case FormatTry:
		if st == nil {
			return Format{}, &errcode.E{C: errcode.InvalidParams, Op: "get_format", Msg: "nil state"}
		}
		return st.Try, nil
	case FormatActive:
		return d.formatOf(d.mode), nil
	default:
		return Format{}, &errcode.E{C: errcode.InvalidParams, Op: "get_format", Msg: "bad which"}
	}
}

// SetFormat snaps f to the nearest supported mode and the device's bus
// code. A Try format is stored in st only. An Active format switches the
// device mode and is refused with Busy while streaming.
func (d *Device) SetFormat(st *FormatState, which Which, f Format) (Format, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := nearestMode(f.Width, f.Height)
	out := d.formatOf(m)
	switch which {
	case FormatTry:
		if st == nil {
			return Format{}, &errcode.E{C: errcode.InvalidParams, Op: "set_format", Msg: "nil state"}
		}
		st.Try = out
	case FormatActive:
		if d.stream != StreamStopped {
			return Format{}, &errcode.E{C: errcode.Busy, Op: "set_format", Msg: "streaming"}
		}
		if err := d.selectMode(m); err != nil {
			return Format{}, err
		}
	default:
		return Format{}, &errcode.E{C: errcode.InvalidParams, Op: "set_format", Msg: "bad which"}
	}
	return out, nil
}

func nearestMode(w, h uint32) *Mode {
	best := &SupportedModes[0]
	bestDist := ^uint32(0)
	for i := range SupportedModes {
		m := &SupportedModes[i]
		dist := absDiff(m.Width, w) + absDiff(m.Height, h)
		if dist < bestDist {
			best, bestDist = m, dist
		}
	}
	return best
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// selectMode makes m current and moves the blanking and exposure ranges
// to its timings.
func (d *Device) selectMode(m *Mode) error {
	if m == d.mode {
		return nil
	}
	d.mode = m
	h := d.ctrls
	hb := int64(m.HBlank())
	if _, err := h.ModifyRange(ctrl.HBlank, hb, hb, 1, hb); err != nil {
		return err
	}
	vb := int64(m.VBlankDef())
	if _, err := h.ModifyRange(ctrl.VBlank, vb, int64(m.VBlankMax()), 1, vb); err != nil {
		return err
	}
	if err := h.Set(ctrl.VBlank, vb); err != nil {
		return err
	}
	exp := int64(m.ExposureMax(m.VBlankDef()))
	_, err := h.ModifyRange(ctrl.Exposure, ExposureMin, exp, ExposureStep, min(exp, int64(m.ExposureDef)))
	return err
}
