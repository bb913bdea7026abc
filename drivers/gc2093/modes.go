package gc2093

import "sensorcode-go/x/conv"

// Reg is one (address, value) pair of a register table.
type Reg struct {
	Addr uint16
	Val  uint8
}

// Mode is one supported sensor configuration. Regs fully configures the
// sensor for the mode and is written in order at every stream start.
type Mode struct {
	Width       uint32
	Height      uint32
	ExposureDef uint32 // lines
	HTSDef      uint32 // line length, pixels
	VTSDef      uint32 // frame length, lines
	Regs        []Reg
}

// VBlankDef is the vertical blanking implied by the default frame length.
func (m *Mode) VBlankDef() uint32 { return m.VTSDef - m.Height }

// VBlankMax is the largest vertical blanking the frame-length register allows.
func (m *Mode) VBlankMax() uint32 { return VTSMax - m.Height }

// HBlank is the fixed horizontal blanking of the mode.
func (m *Mode) HBlank() uint32 { return m.HTSDef - m.Width }

// ExposureMax returns the exposure ceiling for a given vertical blanking.
func (m *Mode) ExposureMax(vblank uint32) uint32 { return m.Height + vblank - ExposureMargin }

func (m *Mode) String() string {
	return conv.Itoa(int64(m.Width)) + "x" + conv.Itoa(int64(m.Height))
}

// SupportedModes lists every mode the driver can program. The first entry
// is selected at construction.
var SupportedModes = []Mode{
	{
		Width:       1920,
		Height:      1080,
		ExposureDef: 0x0465,
		HTSDef:      0x0B1C,
		VTSDef:      0x0465,
		Regs:        regs1920x1080Linear30,
	},
}

// 1920x1080 @30fps, MIPI 2 lane, linear.
// pixel_line_total=2200 line_frame_total=1125 row_time=29.62us
var regs1920x1080Linear30 = []Reg{
	// system
	{0x03FE, 0x80},
	{0x03FE, 0x80},
	{0x03FE, 0x80},
	{0x03FE, 0x00},
	{0x03F2, 0x00},
	{0x03F3, 0x00},
	{0x03F4, 0x36},
	{0x03F5, 0xC0},
	{0x03F6, 0x0A},
	{0x03F7, 0x01},
	{0x03F8, 0x2C},
	{0x03F9, 0x10},
	{0x03FC, 0x8E},
	// cisctl & analog
	{0x0087, 0x18},
	{0x00EE, 0x30},
	{0x00D0, 0xB7},
	{0x01A0, 0x00},
	{0x01A4, 0x40},
	{0x01A5, 0x40},
	{0x01A6, 0x40},
	{0x01AF, 0x09},
	{0x0001, 0x00},
	{0x0002, 0x02},
	{0x0003, 0x00},
	{0x0004, 0x02},
	{0x0005, 0x04},
	{0x0006, 0x4C},
	{0x0007, 0x00},
	{0x0008, 0x11},
	{0x0009, 0x00},
	{0x000A, 0x02},
	{0x000B, 0x00},
	{0x000C, 0x04},
	{0x000D, 0x04},
	{0x000E, 0x40},
	{0x000F, 0x07},
	{0x0010, 0x8C},
	{0x0013, 0x15},
	{0x0019, 0x0C},
	{0x0041, 0x04},
	{0x0042, 0x65},
	{0x0053, 0x60},
	{0x008D, 0x92},
	{0x0090, 0x00},
	{0x00C7, 0xE1},
	{0x001B, 0x73},
	{0x0028, 0x0D},
	{0x0029, 0x24},
	{0x002B, 0x04},
	{0x002E, 0x23},
	{0x0037, 0x03},
	{0x0043, 0x04},
	{0x0044, 0x38},
	{0x004A, 0x01},
	{0x004B, 0x28},
	{0x0055, 0x38},
	{0x006B, 0x44},
	{0x0077, 0x00},
	{0x0078, 0x20},
	{0x007C, 0xA1},
	{0x00D3, 0xD4},
	{0x00E6, 0x50},
	// gain
	{0x00B6, 0xC0},
	{0x00B0, 0x60},
	// isp
	{0x0102, 0x89},
	{0x0104, 0x01},
	{0x010F, 0x00},
	{0x0158, 0x00},
	{0x0123, 0x08},
	{0x0123, 0x00},
	{0x0120, 0x01},
	{0x0121, 0x00},
	{0x0122, 0x10},
	{0x0124, 0x03},
	{0x0125, 0xFF},
	{0x0126, 0x3C},
	{0x001A, 0x8C},
	{0x00C6, 0xE0},
	// blk
	{0x0026, 0x30},
	{0x0142, 0x00},
	{0x0149, 0x1E},
	{0x014A, 0x07},
	{0x014B, 0x80},
	{0x0155, 0x00},
	{0x0414, 0x78},
	{0x0415, 0x78},
	{0x0416, 0x78},
	{0x0417, 0x78},
	// window
	{0x0192, 0x02},
	{0x0194, 0x03},
	{0x0195, 0x04},
	{0x0196, 0x38},
	{0x0197, 0x07},
	{0x0198, 0x80},
	// mipi
	{0x019A, 0x06},
	{0x007B, 0x2A},
	{0x0023, 0x2D},
	{0x0201, 0x27},
	{0x0202, 0x56},
	{0x0203, 0xCE},
	{0x0212, 0x80},
	{0x0213, 0x07},
	{0x003E, 0x91},
}
