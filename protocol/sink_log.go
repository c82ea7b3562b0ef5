package protocol

import (
	"github.com/charmbracelet/log"

	"github.com/sireader/core/card"
)

// LogSink is the default Sink: status transitions and card reads go to an
// Info-level structured logger, send/receive traffic goes to Debug so it
// only shows up with -v.
type LogSink struct {
	Logger *log.Logger
}

// NewLogSink wraps logger (or the package default if nil) as a Sink.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{Logger: logger}
}

func (s *LogSink) OnStatus(st Status) {
	if st.Message != "" {
		s.Logger.Info("status", "state", st.Kind.String(), "message", st.Message)
		return
	}
	s.Logger.Info("status", "state", st.Kind.String())
}

func (s *LogSink) OnCardRead(rec card.Record) {
	s.Logger.Info("card read", "number", rec.CardNumber, "series", rec.CardSeries.String(), "punches", rec.PunchCount)
}

func (s *LogSink) OnLog(dir LogDirection, msg string) {
	switch dir {
	case LogSend:
		s.Logger.Debug("send", "frame", msg)
	case LogRead:
		s.Logger.Debug("recv", "frame", msg)
	case LogError:
		s.Logger.Error(msg)
	default:
		s.Logger.Info(msg)
	}
}
