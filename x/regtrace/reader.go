package regtrace

import (
	"errors"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	Session string
	Op      *Op
	Reg     *uint16
	Errors  bool // only failed transactions
}

func (f *Filter) matches(e Event) bool {
	if f.Session != "" && e.Session != f.Session {
		return false
	}
	if f.Op != nil && e.Op != *f.Op {
		return false
	}
	if f.Reg != nil && e.Reg != *f.Reg {
		return false
	}
	if f.Errors && e.Err == "" {
		return false
	}
	return true
}

// Reader streams events from a trace.
type Reader struct {
	c       io.Closer
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens a trace file.
func NewReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewStreamReader(f, filter)
	r.c = f
	return r, nil
}

// NewStreamReader reads events from r.
func NewStreamReader(r io.Reader, filter Filter) *Reader {
	return &Reader{decoder: NewDecoder(r), filter: filter}
}

// Next returns the next matching event, or io.EOF.
func (r *Reader) Next() (Event, error) {
	for {
		var e Event
		if err := r.decoder.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.matches(e) {
			return e, nil
		}
	}
}

func (r *Reader) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}
