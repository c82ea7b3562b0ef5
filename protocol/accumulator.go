package protocol

import (
	"time"

	"github.com/sireader/core/frame"
)

// maxMessageSize bounds the accumulator buffer; bytes arriving once it is
// full are dropped rather than grown without limit.
const maxMessageSize = 139

const staleGap = 500 * time.Millisecond

// Accumulator reassembles a byte stream from the serial port into discrete
// frames. Single-byte control replies (ACK/NAK) complete as soon as they
// arrive; STX-framed messages complete once the length byte's promised
// total has arrived. A gap of more than staleGap between chunks discards
// whatever partial frame was in progress, since the station will have
// already given up and possibly retransmitted.
type Accumulator struct {
	buf   []byte
	last  time.Time
	clock func() time.Time
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{clock: time.Now}
}

// Feed appends chunk and returns every frame that became complete as a
// result, in arrival order. A chunk may complete zero, one, or several
// frames (e.g. two short replies delivered back-to-back by the OS).
func (a *Accumulator) Feed(chunk []byte) []frame.Frame {
	now := a.clock()
	if !a.last.IsZero() && now.Sub(a.last) > staleGap {
		a.buf = a.buf[:0]
	}
	a.last = now

	var out []frame.Frame
	for _, b := range chunk {
		if len(a.buf) < maxMessageSize {
			a.buf = append(a.buf, b)
		}
		if f, ok := a.tryDispatch(); ok {
			out = append(out, f)
		}
	}
	return out
}

func (a *Accumulator) tryDispatch() (frame.Frame, bool) {
	n := len(a.buf)

	if n == 1 && a.buf[0] != frame.STX {
		f := frame.FromBytes(a.buf)
		a.buf = nil
		return f, true
	}

	if n >= 3 {
		expectedTotal := int(a.buf[2]) + 6
		if n >= expectedTotal {
			f := frame.FromBytes(a.buf[:expectedTotal])
			a.buf = nil
			return f, true
		}
	}

	return frame.Frame{}, false
}
