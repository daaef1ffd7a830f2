package app

import (
	"errors"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/parleyhq/parley/internal/core"
)

// fakeConn records delivered frames in place of a real websocket.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
	closed bool
}

func (f *fakeConn) TrySend(frame core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backpressure")
	}
	if f.closed {
		return errors.New("connection closed")
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// events decodes everything the connection received so far.
func (f *fakeConn) events() []core.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.Envelope, 0, len(f.frames))
	for _, frame := range f.frames {
		var env core.Envelope
		if err := jsoniter.Unmarshal(frame, &env); err == nil {
			out = append(out, env)
		}
	}
	return out
}
