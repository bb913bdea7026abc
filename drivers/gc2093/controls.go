package gc2093

import (
	"periph.io/x/conn/v3/physic"

	"sensorcode-go/errcode"
	"sensorcode-go/x/conv"
	"sensorcode-go/x/ctrl"
	"sensorcode-go/x/mathx"
)

// TestPattern is one entry of the test-pattern menu and the register
// writes that select it.
type TestPattern struct {
	Name string
	Regs []Reg
}

// TestPatterns is indexed by the test_pattern control value.
// TODO: add the colour-bar register sequence once it is confirmed on
// hardware; until then both entries leave the sensor output unchanged.
var TestPatterns = []TestPattern{
	{Name: "Disabled"},
	{Name: "Eight Vertical Colour Bars"},
}

func (d *Device) initControls() error {
	m := d.mode
	h := ctrl.NewHandler(7)
	ops := ctrl.OpsFunc(d.applyControl)

	links := make([]int64, len(LinkFrequencies))
	for i, f := range LinkFrequencies {
		links[i] = int64(f / physic.Hertz)
	}
	h.NewIntMenu(ctrl.LinkFreq, links, 0)

	pr := int64(PixelRate(LinkFrequencies[0]) / physic.Hertz)
	if c := h.NewStd(nil, ctrl.PixelRate, pr, pr, 1, pr); c != nil {
		c.Flags |= ctrl.FlagReadOnly
	}

	hb := int64(m.HBlank())
	if c := h.NewStd(nil, ctrl.HBlank, hb, hb, 1, hb); c != nil {
		c.Flags |= ctrl.FlagReadOnly
	}

	vb := h.NewStd(ops, ctrl.VBlank, int64(m.VBlankDef()), int64(m.VBlankMax()), 1, int64(m.VBlankDef()))

	expMax := int64(m.ExposureMax(m.VBlankDef()))
	h.NewStd(ops, ctrl.Exposure, ExposureMin, expMax, ExposureStep, min(expMax, int64(m.ExposureDef)))
	h.NewStd(ops, ctrl.AnalogueGain, GainMin, GainMax, GainStep, GainDefault)

	names := make([]string, len(TestPatterns))
	for i, p := range TestPatterns {
		names[i] = p.Name
	}
	h.NewMenu(ops, ctrl.TestPattern, names, 0)

	if err := h.Err(); err != nil {
		return err
	}
	vb.OnSet(d.vblankChanged)
	h.OnRangeChange = d.rangeChanged
	d.ctrls = h
	return nil
}

// vblankChanged moves the exposure ceiling to height + vblank - margin.
// A stored exposure above the new ceiling is clamped and rewritten.
func (d *Device) vblankChanged(h *ctrl.Handler, c *ctrl.Control) error {
	exp := h.Find(ctrl.Exposure)
	ceiling := int64(d.mode.Height) + c.Val - ExposureMargin
	_, err := h.ModifyRange(ctrl.Exposure, exp.Min, ceiling, exp.Step, exp.Def)
	return err
}

func (d *Device) rangeChanged(rc ctrl.RangeChange) {
	d.lastRange = rc
	if rc.Clamped() {
		d.log.Warn("control clamped to new range",
			"ctrl", rc.ID.String(), "from", rc.OldValue, "to", rc.NewValue,
			"range", conv.Interval(rc.NewMin, rc.NewMax))
	}
	if d.cfg.OnRangeChange != nil {
		d.cfg.OnRangeChange(rc)
	}
}

// applyControl is the register side of every control. Values are only
// stored while the sensor is unpowered; Start replays them.
func (d *Device) applyControl(c *ctrl.Control) error {
	if !d.powered() {
		return nil
	}
	var err error
	switch c.ID {
	case ctrl.Exposure:
		err = d.writeSplit(regExposureH, regExposureL, uint32(c.Val))
	case ctrl.AnalogueGain:
		err = d.setGain(uint32(c.Val))
	case ctrl.VBlank:
		err = d.writeSplit(regVTSH, regVTSL, d.mode.Height+uint32(c.Val))
	case ctrl.TestPattern:
		err = d.writeArray(TestPatterns[c.Val].Regs)
	default:
		return &errcode.E{C: errcode.UnsupportedControl, Op: "ctrl.apply", Msg: c.Name}
	}
	d.stats.ControlWrites++
	return err
}

// SetControl sets one control by ID.
func (d *Device) SetControl(id ctrl.ID, v int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctrls.Set(id, v)
}

// SetControls applies a batch atomically with respect to validation: if any
// value is out of range nothing is stored. Entries are applied in
// registration order, so a vblank in the batch widens the exposure range
// before an exposure in the same batch is checked.
func (d *Device) SetControls(vals []ctrl.Value) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctrls.SetBatch(vals)
}

// Control returns the stored value of a control.
func (d *Device) Control(id ctrl.ID) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctrls.Get(id)
}

// ControlRange returns the current legal range of a control.
func (d *Device) ControlRange(id ctrl.ID) (mathx.Range[int64], error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.ctrls.Find(id)
	if c == nil {
		return mathx.Range[int64]{}, &errcode.E{C: errcode.UnsupportedControl, Op: "ctrl", Msg: id.String()}
	}
	return c.Range(), nil
}

// SetExposure sets the integration time in lines.
func (d *Device) SetExposure(lines uint32) error {
	return d.SetControl(ctrl.Exposure, int64(lines))
}

// SetGain sets the analog gain in 1/64 units.
func (d *Device) SetGain(g uint32) error {
	return d.SetControl(ctrl.AnalogueGain, int64(g))
}

// SetVerticalBlank sets the vertical blanking in lines and returns the
// resulting change to the exposure range.
func (d *Device) SetVerticalBlank(lines uint32) (ctrl.RangeChange, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastRange = ctrl.RangeChange{}
	err := d.ctrls.Set(ctrl.VBlank, int64(lines))
	return d.lastRange, err
}

// SetHorizontalBlank is accepted and ignored: horizontal blanking is fixed
// by the mode.
func (d *Device) SetHorizontalBlank(uint32) error { return nil }

// SetTestPattern selects an entry of TestPatterns.
func (d *Device) SetTestPattern(index int) error {
	return d.SetControl(ctrl.TestPattern, int64(index))
}

// ExposureRange returns the current legal exposure range in lines.
func (d *Device) ExposureRange() mathx.Range[int64] {
	r, _ := d.ControlRange(ctrl.Exposure)
	return r
}

// HorizontalBlank returns the fixed horizontal blanking in pixels.
func (d *Device) HorizontalBlank() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode.HBlank()
}

// PixelRate returns the pixel rate at the configured link frequency.
func (d *Device) PixelRate() physic.Frequency {
	return PixelRate(LinkFrequencies[0])
}
