package regtrace

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"tinygo.org/x/drivers"
)

// Recorder is a drivers.I2C that forwards every transaction to the wrapped
// bus and reports it to a Sink. Transactions are decoded as a 16-bit
// big-endian register address followed by the payload.
type Recorder struct {
	bus  drivers.I2C
	sink Sink
	now  func() time.Time

	mu      sync.Mutex
	session string
	seq     uint64
}

// NewRecorder wraps bus. A nil sink discards events.
func NewRecorder(bus drivers.I2C, sink Sink) *Recorder {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Recorder{bus: bus, sink: sink, now: time.Now, session: uuid.NewString()}
}

// Session identifies this recorder's events in a shared trace file.
func (r *Recorder) Session() string { return r.session }

func (r *Recorder) Tx(addr uint16, w, rd []byte) error {
	err := r.bus.Tx(addr, w, rd)

	e := Event{Addr: addr}
	if len(w) >= 2 {
		e.Reg = uint16(w[0])<<8 | uint16(w[1])
	}
	if len(rd) > 0 {
		e.Op = OpRead
		if err == nil {
			e.Data = append([]byte(nil), rd...)
		}
	} else if len(w) > 2 {
		e.Data = append([]byte(nil), w[2:]...)
	}
	if err != nil {
		e.Err = err.Error()
	}

	r.mu.Lock()
	r.seq++
	e.Seq = r.seq
	e.Session = r.session
	e.Time = r.now()
	r.mu.Unlock()

	r.sink.Record(e)
	return err
}

var _ drivers.I2C = (*Recorder)(nil)
