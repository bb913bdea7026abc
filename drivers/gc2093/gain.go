package gc2093

import "errors"

// GainBreakpoint is the lower bound of one analog-gain sub-range and the
// register codes that select it. Gain values are in 1/64 units (64 = 1x).
type GainBreakpoint struct {
	Threshold  uint32
	AnalogGain uint16
	ColGain    uint16
	AnalogSW   uint16
	RAMWidth   uint16
}

// GainTable is ordered ascending by Threshold.
var GainTable = []GainBreakpoint{
	{64, 0x0000, 0x0100, 0x6807, 0x00f8},
	{75, 0x0010, 0x010c, 0x6807, 0x00f8},
	{90, 0x0020, 0x011b, 0x6c08, 0x00f9},
	{105, 0x0030, 0x012c, 0x6c0a, 0x00fa},
	{122, 0x0040, 0x013f, 0x7c0b, 0x00fb},
	{142, 0x0050, 0x0216, 0x7c0d, 0x00fe},
	{167, 0x0060, 0x0235, 0x7c0e, 0x00ff},
	{193, 0x0070, 0x0316, 0x7c10, 0x0801},
	{223, 0x0080, 0x0402, 0x7c12, 0x0802},
	{257, 0x0090, 0x0431, 0x7c13, 0x0803},
	{299, 0x00a0, 0x0532, 0x7c15, 0x0805},
	{346, 0x00b0, 0x0635, 0x7c17, 0x0807},
	{397, 0x00c0, 0x0804, 0x7c18, 0x0808},
	{444, 0x005a, 0x0919, 0x7c17, 0x0807},
	{523, 0x0083, 0x0b0f, 0x7c17, 0x0807},
	{607, 0x0093, 0x0d12, 0x7c19, 0x0809},
	{700, 0x0084, 0x1000, 0x7c1b, 0x080c},
	{817, 0x0094, 0x123a, 0x7c1e, 0x080f},
	{1131, 0x005d, 0x1a02, 0x7c23, 0x0814},
	{1142, 0x009b, 0x1b20, 0x7c25, 0x0816},
	{1334, 0x008c, 0x200f, 0x7c27, 0x0818},
	{1568, 0x009c, 0x2607, 0x7c2a, 0x081b},
	{2195, 0x00b6, 0x3621, 0x7c32, 0x0823},
	{2637, 0x00ad, 0x373a, 0x7c36, 0x0827},
	{3121, 0x00bd, 0x3d02, 0x7c3a, 0x082b},
}

// ResolveBreakpoint returns the index i with table[i].Threshold <= g and,
// unless i is the last entry, g < table[i+1].Threshold. Values below the
// first threshold resolve to 0.
func ResolveBreakpoint(table []GainBreakpoint, g uint32) int {
	i := 0
	for ; i < len(table)-1; i++ {
		if table[i].Threshold <= g && g < table[i+1].Threshold {
			break
		}
	}
	return i
}

// FineGain is the linear correction within breakpoint i: 64*g/threshold.
func FineGain(table []GainBreakpoint, g uint32, i int) uint32 {
	return 64 * g / table[i].Threshold
}

// setGain writes the breakpoint registers then the fine-gain pair. Every
// write is attempted; failures are joined.
func (d *Device) setGain(g uint32) error {
	i := ResolveBreakpoint(GainTable, g)
	bp := GainTable[i]
	fine := FineGain(GainTable, g, i)

	var errs []error
	wr := func(reg uint16, v uint32) {
		if err := d.writeReg(reg, 1, v); err != nil {
			errs = append(errs, err)
		}
	}
	wr(regAnalogGainH, uint32(bp.AnalogGain>>8))
	wr(regAnalogGainL, uint32(bp.AnalogGain&0xff))
	wr(regColGainH, uint32(bp.ColGain>>8))
	wr(regColGainL, uint32(bp.ColGain&0xff))
	wr(regAnalogSWH, uint32(bp.AnalogSW>>8))
	wr(regAnalogSWL, uint32(bp.AnalogSW&0xff))
	wr(regRAMWidthH, uint32(bp.RAMWidth>>8))
	wr(regRAMWidthL, uint32(bp.RAMWidth&0xff))
	wr(regFineGainH, fine>>6)
	wr(regFineGainL, (fine&0x3f)<<2)
	return errors.Join(errs...)
}
