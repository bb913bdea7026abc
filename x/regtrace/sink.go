package regtrace

import (
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Sink receives trace events. Implementations must be safe for concurrent
// use and should not block.
type Sink interface {
	Record(e Event)
}

// NoopSink discards events.
type NoopSink struct{}

func (NoopSink) Record(Event) {}

// FileSink appends CBOR-encoded events to a file.
type FileSink struct {
	mu      sync.Mutex
	c       io.Closer
	encoder *cbor.Encoder
	closed  bool
	err     error
}

// NewFileSink opens path for appending, creating it with mode 0644.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return NewWriterSink(f), nil
}

// NewWriterSink encodes events to w. Close closes w if it is an io.Closer.
func NewWriterSink(w io.Writer) *FileSink {
	s := &FileSink{encoder: NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	return s
}

// Record encodes e. Encoding errors do not reach the bus caller; the first
// one is kept for Err.
func (s *FileSink) Record(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := s.encoder.Encode(e); err != nil && s.err == nil {
		s.err = err
	}
}

// Err returns the first encoding error.
func (s *FileSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops recording. Safe to call more than once.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

var (
	_ Sink = NoopSink{}
	_ Sink = (*FileSink)(nil)
)
