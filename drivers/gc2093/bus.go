package gc2093

import (
	"errors"

	"sensorcode-go/errcode"
	"sensorcode-go/x/conv"
)

// Register access over I2C: a 16-bit big-endian register address followed by
// up to four data bytes. Writes send the value little-endian, low byte first;
// reads return the bytes interpreted big-endian (the chip-ID pair reads back
// as 0x2093).

const maxRegLen = 4

func (d *Device) readReg(reg uint16, n int) (uint32, error) {
	if n < 1 || n > maxRegLen {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "read", Msg: "length " + conv.Itoa(int64(n))}
	}
	d.w[0] = byte(reg >> 8)
	d.w[1] = byte(reg)
	if err := d.i2c.Tx(d.addr, d.w[:2], d.r[:n]); err != nil {
		return 0, &errcode.E{C: errcode.TransportFailure, Op: "read", Msg: conv.Reg(reg), Err: err}
	}
	var v uint32
	for _, b := range d.r[:n] {
		v = v<<8 | uint32(b)
	}
	return v, nil
}

func (d *Device) writeReg(reg uint16, n int, val uint32) error {
	if n < 1 || n > maxRegLen {
		return &errcode.E{C: errcode.InvalidParams, Op: "write", Msg: "length " + conv.Itoa(int64(n))}
	}
	d.w[0] = byte(reg >> 8)
	d.w[1] = byte(reg)
	for i := 0; i < n; i++ {
		d.w[2+i] = byte(val >> (8 * i))
	}
	if err := d.i2c.Tx(d.addr, d.w[:2+n], nil); err != nil {
		return &errcode.E{C: errcode.TransportFailure, Op: "write", Msg: conv.Reg(reg), Err: err}
	}
	return nil
}

// writeArray writes a register table in order, stopping at the first failure.
func (d *Device) writeArray(regs []Reg) error {
	for _, r := range regs {
		if err := d.writeReg(r.Addr, 1, uint32(r.Val)); err != nil {
			return err
		}
	}
	return nil
}

// writeSplit writes a 14-bit line count as a masked high byte and a low byte.
func (d *Device) writeSplit(regH, regL uint16, v uint32) error {
	return errors.Join(
		d.writeReg(regH, 1, (v>>8)&hiByteMask),
		d.writeReg(regL, 1, v&0xff),
	)
}
