package gc2093

import (
	"sensorcode-go/errcode"
	"sensorcode-go/x/conv"
)

// IdentityError reports a chip-ID register that does not read ChipID.
type IdentityError struct {
	Found uint16
}

func (e *IdentityError) Error() string {
	return "identity_mismatch: found " + conv.Reg(e.Found) + ", want " + conv.Reg(ChipID)
}

func (e *IdentityError) Code() errcode.Code { return errcode.IdentityMismatch }

func (e *IdentityError) Is(target error) bool { return target == errcode.IdentityMismatch }

// VerifyIdentity reads the chip-ID register once and compares it with
// ChipID. The sensor must be powered.
func (d *Device) VerifyIdentity() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.verifyIdentity()
}

func (d *Device) verifyIdentity() error {
	v, err := d.readReg(regChipID, 2)
	if err != nil {
		return err
	}
	id := uint16(v & chipIDMask)
	if id != ChipID {
		d.log.Warn("unexpected sensor id", "found", conv.Reg(id))
		return &IdentityError{Found: id}
	}
	d.log.Debug("sensor id", "id", conv.Reg(id))
	return nil
}
