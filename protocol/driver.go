// Package protocol implements the SPORTident master-station driver: byte
// accumulation into frames, a startup handshake that negotiates extended
// protocol + handshake mode (falling back from 38400 to 4800 baud), and a
// main loop that dispatches card-detected events to the per-card-type
// readout routines in readroutines.go.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sireader/core/frame"
)

const requestTimeout = 2000 * time.Millisecond
const removalTimeout = 5000 * time.Millisecond

// Driver owns one master station's session: the byte accumulator, the
// message queue fed by HandleSerialData, and the state machine that walks
// it from STARTING through ON/READY/PROCESSING to OFF.
type Driver struct {
	port Port
	sink Sink

	acc   *Accumulator
	queue *Queue

	zeroHour int64

	running   atomic.Bool
	card6_192 bool
}

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithZeroHour sets the reference midnight (in the same millisecond
// timebase as decoded punch timestamps) used to disambiguate card-5's
// 12-hour rollover and the multi-block cards' day rollover. Defaults to 0.
func WithZeroHour(ms int64) Option {
	return func(d *Driver) { d.zeroHour = ms }
}

// NewDriver builds a Driver around port, delivering every event to sink.
func NewDriver(port Port, sink Sink, opts ...Option) *Driver {
	d := &Driver{
		port:  port,
		sink:  sink,
		acc:   NewAccumulator(),
		queue: NewQueue(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleSerialData feeds newly-arrived bytes from the port into the
// accumulator, pushing every frame that completes onto the message queue.
// Callers (portio's read loop) call this from their own goroutine.
func (d *Driver) HandleSerialData(chunk []byte) {
	for _, f := range d.acc.Feed(chunk) {
		d.sink.OnLog(LogRead, f.Hex())
		d.queue.Push(f)
	}
}

// Start runs the startup handshake and, on success, the main dispatch loop.
// It blocks until ctx is cancelled, Stop is called, or startup fails fatally.
func (d *Driver) Start(ctx context.Context) error {
	d.running.Store(true)
	d.sink.OnStatus(Status{Kind: StatusStarting})

	if err := d.startupBootstrap(ctx); err != nil {
		d.sink.OnStatus(Status{Kind: StatusFatalError, Message: err.Error()})
		d.sink.OnStatus(Status{Kind: StatusOff})
		return err
	}

	d.mainLoop(ctx)
	d.sink.OnStatus(Status{Kind: StatusOff})
	return nil
}

// Stop requests that the main loop exit and releases the port.
func (d *Driver) Stop() {
	d.running.Store(false)
	d.queue.Clear()
	_ = d.port.Close()
}

func (d *Driver) startupBootstrap(ctx context.Context) error {
	if err := d.port.SetBaudRate(ctx, 38400); err != nil {
		return &PortFailureError{Err: err}
	}

	err := d.startup(ctx)
	if errors.Is(err, ErrTimeout) {
		if err2 := d.port.SetBaudRate(ctx, 4800); err2 != nil {
			return &PortFailureError{Err: err2}
		}
		err = d.startup(ctx)
		if errors.Is(err, ErrTimeout) {
			return errors.New("protocol: master station did not answer to startup sequence (high/low baud)")
		}
	}
	return err
}

func (d *Driver) startup(ctx context.Context) error {
	if err := d.sendAndExpect(ctx, frame.Startup, frame.CmdSetMasterMode, requestTimeout); err != nil {
		return err
	}

	protoResp, err := d.sendAndExpectFrame(ctx, frame.GetProtocolConfig, frame.CmdGetSystemValue, requestTimeout)
	if err != nil {
		return err
	}
	flags := protoResp.ByteAt(6)
	if flags&0x01 == 0 {
		return &ConfigurationMismatchError{Msg: "Master station should be configured with extended protocol"}
	}
	if flags&0x04 == 0 {
		return &ConfigurationMismatchError{Msg: "Master station should be configured in handshake mode (no autosend)"}
	}

	cbResp, err := d.sendAndExpectFrame(ctx, frame.GetCardBlocksConfig, frame.CmdGetSystemValue, requestTimeout)
	if err != nil {
		return err
	}
	d.card6_192 = cbResp.ByteAt(6) == 0xFF

	if err := d.send(ctx, frame.BeepTwice); err != nil {
		return err
	}

	d.sink.OnStatus(Status{Kind: StatusOn})
	return nil
}

func (d *Driver) mainLoop(ctx context.Context) {
	for d.running.Load() {
		d.sink.OnStatus(Status{Kind: StatusReady})

		f, err := d.queue.TakeForever(ctx)
		if err != nil {
			return
		}

		if derr := d.dispatch(ctx, f); derr != nil {
			var portErr *PortFailureError
			if errors.As(derr, &portErr) {
				d.sink.OnStatus(Status{Kind: StatusFatalError, Message: derr.Error()})
				return
			}
		}
	}
}

func (d *Driver) dispatch(ctx context.Context, f frame.Frame) error {
	switch f.Command() {
	case frame.CmdCard5Detected:
		d.sink.OnStatus(Status{Kind: StatusProcessing})
		return d.retrieveCard5(ctx)
	case frame.CmdCard6Detected:
		d.sink.OnStatus(Status{Kind: StatusProcessing})
		return d.retrieveCard6(ctx)
	case frame.CmdCard8Detected:
		d.sink.OnStatus(Status{Kind: StatusProcessing})
		if f.ByteAt(5) == 0x0F {
			return d.retrieveCard10Plus(ctx)
		}
		return d.retrieveCard89(ctx)
	case frame.CmdBeep:
		return nil
	case frame.CmdCardRemoved:
		d.sink.OnLog(LogInfo, "late card removal notification")
		return nil
	default:
		d.sink.OnLog(LogInfo, fmt.Sprintf("unexpected message: %s", f.Hex()))
		return nil
	}
}
