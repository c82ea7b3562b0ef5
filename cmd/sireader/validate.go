package main

import (
	"github.com/sireader/core/card"
	"github.com/sireader/core/course"
)

// OnCardRead forwards the read to the wrapped Sink unchanged, then runs the
// decoded card's punches through auto-detect against the configured course
// set (when any courses are configured) and logs the outcome.
func (s *validatingSink) OnCardRead(rec card.Record) {
	s.Sink.OnCardRead(rec)

	if len(s.courses) == 0 {
		return
	}

	res, err := course.AutoDetect(s.courses, rec.Punches)
	if err != nil {
		s.logger.Error("course validation failed", "card", rec.CardNumber, "err", err)
		return
	}

	s.logger.Info("course result",
		"card", rec.CardNumber,
		"course", res.Course.Name,
		"correct", res.AllCorrect,
		"missing", res.MissingCount,
		"extras", res.ExtraControls,
	)
}
