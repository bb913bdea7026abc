// Package ctrl is a small control registry for sensor drivers.
//
// A Handler owns an ordered set of Controls. Each control carries a legal
// range and a current value; setters validate against the range, run an
// optional change hook (used for range propagation between controls) and
// then hand the control to the driver's Ops for register I/O.
//
// Handlers do no locking. The owning driver serialises every call behind
// its own device lock.
package ctrl

import (
	"errors"
	"sort"

	"sensorcode-go/errcode"
	"sensorcode-go/x/conv"
	"sensorcode-go/x/mathx"
)

// ID identifies a control.
type ID uint32

const (
	Exposure ID = iota + 1
	AnalogueGain
	VBlank
	HBlank
	PixelRate
	LinkFreq
	TestPattern
)

func (id ID) String() string {
	switch id {
	case Exposure:
		return "exposure"
	case AnalogueGain:
		return "analogue_gain"
	case VBlank:
		return "vblank"
	case HBlank:
		return "hblank"
	case PixelRate:
		return "pixel_rate"
	case LinkFreq:
		return "link_freq"
	case TestPattern:
		return "test_pattern"
	default:
		return "ctrl_" + conv.Itoa(int64(id))
	}
}

// ParseID maps a control name back to its ID.
func ParseID(name string) (ID, bool) {
	for id := Exposure; id <= TestPattern; id++ {
		if id.String() == name {
			return id, true
		}
	}
	return 0, false
}

// Kind selects how Val is interpreted.
type Kind uint8

const (
	KindInteger Kind = iota
	KindMenu         // Val indexes Menu
	KindIntMenu      // Val indexes IntMenu
)

// Flags modify control behaviour.
type Flags uint8

const (
	FlagReadOnly Flags = 1 << iota
)

// Ops receives validated control changes. Apply is called with the new
// value already stored in c.Val.
type Ops interface {
	Apply(c *Control) error
}

// OpsFunc adapts a function to Ops.
type OpsFunc func(c *Control) error

func (f OpsFunc) Apply(c *Control) error { return f(c) }

// ChangeHook runs after a control's value is stored and before Ops.Apply.
// It receives the handler the change is applied to, which is a scratch
// copy during batch validation. A hook error does not stop Ops.Apply; both
// are reported together.
type ChangeHook func(h *Handler, c *Control) error

// Control is one registered control.
type Control struct {
	ID      ID
	Name    string
	Kind    Kind
	Flags   Flags
	Min     int64
	Max     int64
	Step    int64
	Def     int64
	Val     int64
	Menu    []string
	IntMenu []int64

	ops   Ops
	onSet ChangeHook
}

// Range returns the current legal interval.
func (c *Control) Range() mathx.Range[int64] {
	return mathx.Range[int64]{Min: c.Min, Max: c.Max, Step: c.Step}
}

// ReadOnly reports whether writes are rejected unless they match Val.
func (c *Control) ReadOnly() bool { return c.Flags&FlagReadOnly != 0 }

// IntValue resolves int-menu controls to their item; other kinds return Val.
func (c *Control) IntValue() int64 {
	if c.Kind == KindIntMenu && c.Val >= 0 && int(c.Val) < len(c.IntMenu) {
		return c.IntMenu[c.Val]
	}
	return c.Val
}

// check validates v against the current range.
func (c *Control) check(v int64) error {
	if c.ReadOnly() && v != c.Val {
		return &errcode.E{C: errcode.RangeViolation, Op: "ctrl.set", Msg: c.Name + " is read-only"}
	}
	if !c.Range().Contains(v) {
		return &errcode.E{
			C:   errcode.RangeViolation,
			Op:  "ctrl.set",
			Msg: c.Name + " " + conv.Itoa(v) + " outside " + conv.Interval(c.Min, c.Max),
		}
	}
	return nil
}

// OnSet installs a change hook on the control.
func (c *Control) OnSet(hook ChangeHook) { c.onSet = hook }

// Value is one entry of a batch.
type Value struct {
	ID  ID
	Val int64
}

// RangeChange describes a range mutation and any clamp it forced.
type RangeChange struct {
	ID       ID
	OldMin   int64
	OldMax   int64
	NewMin   int64
	NewMax   int64
	OldValue int64
	NewValue int64
}

// Clamped reports whether the stored value had to move.
func (rc RangeChange) Clamped() bool { return rc.OldValue != rc.NewValue }

// Shrunk reports whether the legal window got narrower on either side.
func (rc RangeChange) Shrunk() bool { return rc.NewMin > rc.OldMin || rc.NewMax < rc.OldMax }

// Handler is an ordered control registry.
type Handler struct {
	ctrls []*Control
	byID  map[ID]*Control
	err   error

	// OnRangeChange, when set, observes every ModifyRange on this handler.
	OnRangeChange func(RangeChange)
}

// NewHandler returns an empty handler sized for hint controls.
func NewHandler(hint int) *Handler {
	return &Handler{
		ctrls: make([]*Control, 0, hint),
		byID:  make(map[ID]*Control, hint),
	}
}

// Err returns the first registration error, if any.
func (h *Handler) Err() error { return h.err }

func (h *Handler) add(c *Control) *Control {
	if h.err != nil {
		return nil
	}
	if _, dup := h.byID[c.ID]; dup {
		h.err = &errcode.E{C: errcode.InvalidParams, Op: "ctrl.add", Msg: "duplicate " + c.ID.String()}
		return nil
	}
	if c.Step <= 0 {
		c.Step = 1
	}
	if c.Max < c.Min || !c.Range().Contains(c.Def) {
		h.err = &errcode.E{C: errcode.InvalidParams, Op: "ctrl.add", Msg: c.Name + " default outside range"}
		return nil
	}
	c.Val = c.Def
	h.ctrls = append(h.ctrls, c)
	h.byID[c.ID] = c
	return c
}

// NewStd registers an integer control.
func (h *Handler) NewStd(ops Ops, id ID, min, max, step, def int64) *Control {
	return h.add(&Control{ID: id, Name: id.String(), Kind: KindInteger, Min: min, Max: max, Step: step, Def: def, ops: ops})
}

// NewMenu registers a menu control whose legal values are indices into items.
func (h *Handler) NewMenu(ops Ops, id ID, items []string, def int64) *Control {
	return h.add(&Control{ID: id, Name: id.String(), Kind: KindMenu, Max: int64(len(items) - 1), Step: 1, Def: def, Menu: items, ops: ops})
}

// NewIntMenu registers a read-only integer menu.
func (h *Handler) NewIntMenu(id ID, items []int64, def int64) *Control {
	return h.add(&Control{ID: id, Name: id.String(), Kind: KindIntMenu, Flags: FlagReadOnly, Max: int64(len(items) - 1), Step: 1, Def: def, IntMenu: items})
}

// Find returns the control or nil.
func (h *Handler) Find(id ID) *Control { return h.byID[id] }

// Controls returns the controls in registration order.
func (h *Handler) Controls() []*Control { return h.ctrls }

// Get returns the stored value of a control.
func (h *Handler) Get(id ID) (int64, error) {
	c := h.byID[id]
	if c == nil {
		return 0, unsupported(id)
	}
	return c.Val, nil
}

// Set validates v, stores it, runs the change hook and applies it.
// A failed Apply keeps the stored value: register writes are not rolled back.
func (h *Handler) Set(id ID, v int64) error {
	c := h.byID[id]
	if c == nil {
		return unsupported(id)
	}
	if err := c.check(v); err != nil {
		return err
	}
	return h.store(c, v)
}

func (h *Handler) store(c *Control, v int64) error {
	c.Val = v
	var hookErr error
	if c.onSet != nil {
		hookErr = c.onSet(h, c)
	}
	if c.ops == nil {
		return hookErr
	}
	return errors.Join(hookErr, c.ops.Apply(c))
}

// SetBatch applies several values as one transaction. Entries are applied
// in registration order, so range-mutating controls registered earlier take
// effect before later ones are validated. The whole batch is first
// validated against a scratch copy; nothing is stored if any entry fails.
func (h *Handler) SetBatch(vals []Value) error {
	ordered := make([]Value, len(vals))
	copy(ordered, vals)
	index := make(map[ID]int, len(h.ctrls))
	for i, c := range h.ctrls {
		index[c.ID] = i
	}
	for _, v := range ordered {
		if _, ok := index[v.ID]; !ok {
			return unsupported(v.ID)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return index[ordered[i].ID] < index[ordered[j].ID] })

	scratch := h.scratch()
	for _, v := range ordered {
		if err := scratch.Set(v.ID, v.Val); err != nil {
			return err
		}
	}

	var first error
	for _, v := range ordered {
		c := h.byID[v.ID]
		if err := h.store(c, v.Val); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// scratch copies values and ranges without Ops so hooks run side-effect free.
func (h *Handler) scratch() *Handler {
	s := NewHandler(len(h.ctrls))
	for _, c := range h.ctrls {
		cc := *c
		cc.ops = nil
		s.ctrls = append(s.ctrls, &cc)
		s.byID[cc.ID] = &cc
	}
	return s
}

// ModifyRange replaces a control's bounds. The default is pulled inside the
// new range, and a stored value outside it is clamped and re-applied through
// Ops. The returned RangeChange reports both.
func (h *Handler) ModifyRange(id ID, min, max, step, def int64) (RangeChange, error) {
	c := h.byID[id]
	if c == nil {
		return RangeChange{}, unsupported(id)
	}
	if max < min {
		return RangeChange{}, &errcode.E{C: errcode.InvalidParams, Op: "ctrl.modify_range", Msg: c.Name + " max below min"}
	}
	if step <= 0 {
		step = 1
	}
	rc := RangeChange{ID: id, OldMin: c.Min, OldMax: c.Max, NewMin: min, NewMax: max, OldValue: c.Val}
	c.Min, c.Max, c.Step = min, max, step
	c.Def = c.Range().Clamp(def)
	rc.NewValue = c.Range().Clamp(c.Val)

	var err error
	if rc.Clamped() {
		c.Val = rc.NewValue
		if c.ops != nil {
			err = c.ops.Apply(c)
		}
	}
	if h.OnRangeChange != nil {
		h.OnRangeChange(rc)
	}
	return rc, err
}

// Setup re-applies every stored value through Ops in registration order,
// stopping at the first failure. Values are not re-validated.
func (h *Handler) Setup() error {
	for _, c := range h.ctrls {
		if c.ops == nil {
			continue
		}
		if err := c.ops.Apply(c); err != nil {
			return err
		}
	}
	return nil
}

func unsupported(id ID) error {
	return &errcode.E{C: errcode.UnsupportedControl, Op: "ctrl", Msg: id.String()}
}
