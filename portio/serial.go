// Package portio adapts a physical serial connection to the protocol.Port
// interface, using github.com/pkg/term the same way the reference driver's
// serial_port.c / serial_port.go layer does: raw mode, an explicit speed
// set, and a blocking single-buffer read loop.
package portio

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/term"
)

// readChunkSize is the buffer size for each blocking read; SPORTident
// frames top out at 139 bytes so this comfortably covers one frame.
const readChunkSize = 256

// SerialPort is a protocol.Port backed by a real serial device.
type SerialPort struct {
	mu     sync.Mutex
	t      *term.Term
	device string
}

// Open opens device in raw mode at baud (use 0 to leave the current speed
// alone, matching the reference implementation's serial_port_open).
func Open(device string, baud int) (*SerialPort, error) {
	t, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("portio: open %s: %w", device, err)
	}

	p := &SerialPort{t: t, device: device}
	if baud != 0 {
		if err := p.setSpeed(baud); err != nil {
			_ = t.Close()
			return nil, err
		}
	}
	return p, nil
}

func (p *SerialPort) setSpeed(baud int) error {
	switch baud {
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
	default:
		return fmt.Errorf("portio: unsupported baud rate %d", baud)
	}
	if err := p.t.SetSpeed(baud); err != nil {
		return fmt.Errorf("portio: set speed %d on %s: %w", baud, p.device, err)
	}
	return nil
}

// Write implements protocol.Port.
func (p *SerialPort) Write(_ context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, err := p.t.Write(data)
	if err != nil {
		return fmt.Errorf("portio: write %s: %w", p.device, err)
	}
	if n != len(data) {
		return fmt.Errorf("portio: short write to %s: wrote %d of %d bytes", p.device, n, len(data))
	}
	return nil
}

// SetBaudRate implements protocol.Port.
func (p *SerialPort) SetBaudRate(_ context.Context, baud uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setSpeed(int(baud))
}

// Close implements protocol.Port.
func (p *SerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.t == nil {
		return nil
	}
	return p.t.Close()
}

// ReadLoop blocks reading from the port, calling handle with each non-empty
// chunk, until ctx is cancelled or a read fails. The caller typically wires
// handle to a protocol.Driver's HandleSerialData and runs ReadLoop in its
// own goroutine.
func (p *SerialPort) ReadLoop(ctx context.Context, handle func([]byte)) error {
	buf := make([]byte, readChunkSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := p.t.Read(buf)
		if err != nil {
			return fmt.Errorf("portio: read %s: %w", p.device, err)
		}
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			handle(chunk)
		}
	}
}
