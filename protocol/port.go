package protocol

import "context"

// Port is the driver's view of the underlying serial connection. portio
// provides the concrete implementation over github.com/pkg/term; tests use
// an in-memory fake.
type Port interface {
	Write(ctx context.Context, data []byte) error
	SetBaudRate(ctx context.Context, baud uint32) error
	Close() error
}
