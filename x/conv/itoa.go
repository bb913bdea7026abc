package conv

// AppendInt appends the base-10 representation of n to dst.
// No fmt/strconv dependency.
func AppendInt(dst []byte, n int64) []byte {
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	var u uint64
	if neg {
		u = uint64(-n)
	} else {
		u = uint64(n)
	}
	if u == 0 {
		i--
		buf[i] = '0'
	}
	for u > 0 {
		i--
		buf[i] = byte('0' + (u % 10))
		u /= 10
	}
	if neg {
		dst = append(dst, '-')
	}
	return append(dst, buf[i:]...)
}

// Itoa is AppendInt into a fresh string.
func Itoa(n int64) string { return string(AppendInt(nil, n)) }

// Interval formats "[lo, hi]".
func Interval(lo, hi int64) string {
	b := make([]byte, 0, 24)
	b = append(b, '[')
	b = AppendInt(b, lo)
	b = append(b, ',', ' ')
	b = AppendInt(b, hi)
	return string(append(b, ']'))
}
