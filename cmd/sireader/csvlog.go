package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sireader/core/card"
	"github.com/sireader/core/protocol"
)

// csvLogSink appends one CSV row per decoded card read to an always-open
// file, in the spirit of the reference driver's log_write: a single
// encoding/csv.Writer reused across calls, flushed after every row rather
// than buffered and closed at exit, so a crash loses nothing already
// written. This is opt-in (via --csv-log) and independent of course
// validation or the default structured-log Sink.
type csvLogSink struct {
	protocol.NopSink
	f *os.File
	w *csv.Writer
}

var csvHeader = []string{
	"timestamp", "card_number", "card_series",
	"start_ms", "finish_ms", "check_ms",
	"punch_count", "punch_codes", "punch_times_ms",
}

// newCSVLogSink opens path for append (creating it and writing a header
// row if it doesn't already exist) and returns a Sink that logs every card
// read to it.
func newCSVLogSink(path string) (*csvLogSink, error) {
	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csvlog: open %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write(csvHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csvlog: write header: %w", err)
		}
		w.Flush()
	}

	return &csvLogSink{f: f, w: w}, nil
}

// OnCardRead appends one row summarizing rec. Punch codes/times are packed
// into two space-separated fields rather than one column per punch, since
// punch counts vary per card.
func (s *csvLogSink) OnCardRead(rec card.Record) {
	codes := ""
	times := ""
	for i, p := range rec.Punches {
		if i > 0 {
			codes += " "
			times += " "
		}
		codes += strconv.FormatUint(uint64(p.Code), 10)
		times += strconv.FormatInt(p.TimestampMs, 10)
	}

	row := []string{
		time.Now().Format(time.RFC3339),
		rec.CardNumber,
		rec.CardSeries.String(),
		strconv.FormatInt(rec.Start, 10),
		strconv.FormatInt(rec.Finish, 10),
		strconv.FormatInt(rec.Check, 10),
		strconv.Itoa(int(rec.PunchCount)),
		codes,
		times,
	}

	if err := s.w.Write(row); err != nil {
		return
	}
	s.w.Flush()
}

func (s *csvLogSink) Close() error {
	s.w.Flush()
	return s.f.Close()
}

// teeSink forwards every callback to each of its targets in order, used to
// run the CSV log alongside the default structured-log Sink without either
// one knowing about the other.
type teeSink struct {
	targets []protocol.Sink
}

func (t teeSink) OnStatus(st protocol.Status) {
	for _, s := range t.targets {
		s.OnStatus(st)
	}
}

func (t teeSink) OnCardRead(rec card.Record) {
	for _, s := range t.targets {
		s.OnCardRead(rec)
	}
}

func (t teeSink) OnLog(dir protocol.LogDirection, msg string) {
	for _, s := range t.targets {
		s.OnLog(dir, msg)
	}
}
