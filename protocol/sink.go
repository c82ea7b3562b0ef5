package protocol

import (
	"github.com/sireader/core/card"
)

// StatusKind enumerates the driver's lifecycle states.
type StatusKind int

const (
	StatusStarting StatusKind = iota
	StatusOn
	StatusReady
	StatusProcessing
	StatusProcessingError
	StatusFatalError
	StatusOff
)

func (k StatusKind) String() string {
	switch k {
	case StatusStarting:
		return "STARTING"
	case StatusOn:
		return "ON"
	case StatusReady:
		return "READY"
	case StatusProcessing:
		return "PROCESSING"
	case StatusProcessingError:
		return "PROCESSING_ERROR"
	case StatusFatalError:
		return "FATAL_ERROR"
	case StatusOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// Status is delivered to a Sink's OnStatus whenever the driver's lifecycle
// state changes.
type Status struct {
	Kind    StatusKind
	Message string
}

// LogDirection classifies an OnLog call for a Sink that wants to render
// sent/received traffic differently from plain informational lines.
type LogDirection int

const (
	LogSend LogDirection = iota
	LogRead
	LogInfo
	LogError
)

// Sink receives every externally-visible event the driver produces: status
// transitions, decoded card reads, and diagnostic log lines. Implementations
// must not block for long, since they are called from the driver's own
// goroutine; OnLog for received frames is also called from whichever
// goroutine calls HandleSerialData, so calls may be concurrent.
type Sink interface {
	OnStatus(Status)
	OnCardRead(card.Record)
	OnLog(LogDirection, string)
}

// NopSink discards every event. Useful in tests and as an embeddable base
// for sinks that only care about one callback.
type NopSink struct{}

func (NopSink) OnStatus(Status)          {}
func (NopSink) OnCardRead(card.Record)    {}
func (NopSink) OnLog(LogDirection, string) {}
