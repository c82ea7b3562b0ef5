package main

import (
	"io"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sireader/core/card"
	"github.com/sireader/core/course"
	"github.com/sireader/core/protocol"
)

func testLogger() *charmlog.Logger {
	return charmlog.New(io.Discard)
}

type capturingSink struct {
	protocol.NopSink
	reads []card.Record
}

func (s *capturingSink) OnCardRead(r card.Record) {
	s.reads = append(s.reads, r)
}

func TestValidatingSink_ForwardsRead(t *testing.T) {
	base := &capturingSink{}
	sink := newValidatingSink(base, testLogger(), nil)

	rec := card.Record{CardNumber: "123"}
	sink.OnCardRead(rec)

	require.Len(t, base.reads, 1)
	assert.Equal(t, "123", base.reads[0].CardNumber)
}

func TestValidatingSink_NoCoursesSkipsValidation(t *testing.T) {
	base := &capturingSink{}
	sink := newValidatingSink(base, testLogger(), nil)

	sink.OnCardRead(card.Record{CardNumber: "1", Punches: []card.Punch{{Code: 31}}})

	require.Len(t, base.reads, 1)
}

func TestValidatingSink_ValidatesAgainstConfiguredCourses(t *testing.T) {
	base := &capturingSink{}
	courses := []course.Course{{Name: "A", Controls: []uint16{31, 32}, Inline: true}}
	sink := newValidatingSink(base, testLogger(), courses)

	rec := card.Record{
		CardNumber: "1",
		Punches:    []card.Punch{{Code: 31, TimestampMs: 1}, {Code: 32, TimestampMs: 2}},
	}
	sink.OnCardRead(rec)

	require.Len(t, base.reads, 1)
}
