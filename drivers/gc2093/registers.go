// Package gc2093 provides constants for register addresses and bitfields used
// in the operation of the GC2093 1080p CMOS image sensor.
package gc2093

import "periph.io/x/conn/v3/physic"

const (
	// 7-bit I2C address (0x37 with the ID pin low).
	AddressDefault = 0x37

	// Chip identity (16-bit, big-endian on read).
	ChipID     = 0x2093
	chipIDMask = 0xFFFF

	// --- Register addresses (16-bit, one data byte each) ---

	regChipID = 0x03F0 // R, 2 bytes

	regCtrlMode       = 0x003E // R/W
	ctrlModeStandby   = 0x11
	ctrlModeStreaming = 0x91

	// Exposure, in lines. High byte carries 6 valid bits.
	regExposureH = 0x0003
	regExposureL = 0x0004

	// Frame length (VTS), in lines. High byte carries 6 valid bits.
	regVTSH = 0x0041
	regVTSL = 0x0042

	hiByteMask = 0x3F

	// Analog gain block.
	regAnalogGainH = 0x00B4
	regAnalogGainL = 0x00B3
	regColGainH    = 0x00B8
	regColGainL    = 0x00B9
	regAnalogSWH   = 0x00CE
	regAnalogSWL   = 0x00C2
	regRAMWidthH   = 0x00CF
	regRAMWidthL   = 0x00D9
	regFineGainH   = 0x00B1 // fine >> 6
	regFineGainL   = 0x00B2 // (fine & 0x3f) << 2
)

// Control limits.
const (
	ExposureMin    = 4
	ExposureMargin = 4
	ExposureStep   = 1

	VTSMax = 0x209F

	GainMin     = 0x40
	GainMax     = 0x2000
	GainStep    = 0x01
	GainDefault = 0x40
)

// Link and clock parameters.
const (
	LinkFreq390MHz = 390 * physic.MegaHertz
	EclkFreq       = 24 * physic.MegaHertz

	DataLanes     = 2
	BitsPerSample = 10
)

// Media bus codes for the raw Bayer output. Values match the Linux
// MEDIA_BUS_FMT_* numbering so they can be passed through unchanged.
type MbusCode uint32

const (
	MbusSBGGR10 MbusCode = 0x3007
	MbusSRGGB10 MbusCode = 0x300F
)

func (c MbusCode) String() string {
	switch c {
	case MbusSBGGR10:
		return "SBGGR10_1X10"
	case MbusSRGGB10:
		return "SRGGB10_1X10"
	default:
		return "unknown"
	}
}

// LinkFrequencies lists the CSI-2 link frequencies the register tables target.
var LinkFrequencies = []physic.Frequency{LinkFreq390MHz}

// PixelRate returns the pixel rate produced at the given link frequency:
// two bits per lane per clock (DDR), DataLanes lanes, BitsPerSample bits.
func PixelRate(link physic.Frequency) physic.Frequency {
	return link * 2 * DataLanes / BitsPerSample
}
