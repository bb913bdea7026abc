package conv

const hexDigits = "0123456789ABCDEF"

// AppendHex appends "0x" and the low `digits` nibbles of n, zero-padded,
// uppercase. digits is clamped to [1, 8].
func AppendHex(dst []byte, n uint32, digits int) []byte {
	if digits < 1 {
		digits = 1
	}
	if digits > 8 {
		digits = 8
	}
	dst = append(dst, '0', 'x')
	for i := digits - 1; i >= 0; i-- {
		dst = append(dst, hexDigits[(n>>(uint(i)*4))&0xF])
	}
	return dst
}

// Reg formats a 16-bit register address as "0x03F0".
func Reg(addr uint16) string {
	var b [6]byte
	return string(AppendHex(b[:0], uint32(addr), 4))
}
