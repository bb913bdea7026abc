// Package regtrace records register transactions on an I2C bus as a CBOR
// event stream and reads them back.
package regtrace

import (
	"time"

	"sensorcode-go/x/conv"
)

// Op is the transaction kind.
type Op uint8

const (
	OpWrite Op = 0
	OpRead  Op = 1
)

func (o Op) String() string {
	switch o {
	case OpWrite:
		return "W"
	case OpRead:
		return "R"
	default:
		return "?"
	}
}

// Event is one bus transaction. CBOR encoding uses integer keys.
type Event struct {
	Time    time.Time `cbor:"1,keyasint"`
	Session string    `cbor:"2,keyasint"`
	Seq     uint64    `cbor:"3,keyasint"`
	Op      Op        `cbor:"4,keyasint"`
	Addr    uint16    `cbor:"5,keyasint"`
	Reg     uint16    `cbor:"6,keyasint"`

	// Data is the payload written, or the bytes returned by a read.
	Data []byte `cbor:"7,keyasint,omitempty"`

	Err string `cbor:"8,keyasint,omitempty"`
}

// String formats the event as one trace line: "000012 W 0x37 0x003E 91".
func (e Event) String() string {
	b := make([]byte, 0, 48)
	b = appendPadded(b, e.Seq, 6)
	b = append(b, ' ')
	b = append(b, e.Op.String()...)
	b = append(b, ' ')
	b = conv.AppendHex(b, uint32(e.Addr), 2)
	b = append(b, ' ')
	b = conv.AppendHex(b, uint32(e.Reg), 4)
	for _, v := range e.Data {
		b = append(b, ' ', hexDigits[v>>4], hexDigits[v&0xF])
	}
	if e.Err != "" {
		b = append(b, " err="...)
		b = append(b, e.Err...)
	}
	return string(b)
}

const hexDigits = "0123456789ABCDEF"

func appendPadded(dst []byte, n uint64, width int) []byte {
	s := conv.AppendInt(nil, int64(n))
	for i := len(s); i < width; i++ {
		dst = append(dst, '0')
	}
	return append(dst, s...)
}
