package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sireader/core/card"
	"github.com/sireader/core/protocol"
)

func TestCSVLogSink_WritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.csv")

	s1, err := newCSVLogSink(path)
	require.NoError(t, err)
	s1.OnCardRead(card.Record{CardNumber: "1", CardSeries: card.Series5})
	require.NoError(t, s1.Close())

	s2, err := newCSVLogSink(path)
	require.NoError(t, err)
	s2.OnCardRead(card.Record{CardNumber: "2", CardSeries: card.Series6})
	require.NoError(t, s2.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3) // header + 2 card rows
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "1", rows[1][1])
	assert.Equal(t, "2", rows[2][1])
}

func TestCSVLogSink_PacksPunchCodesAndTimes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.csv")
	s, err := newCSVLogSink(path)
	require.NoError(t, err)

	s.OnCardRead(card.Record{
		CardNumber: "42",
		CardSeries: card.Series8,
		PunchCount: 2,
		Punches: []card.Punch{
			{Code: 31, TimestampMs: 1000},
			{Code: 32, TimestampMs: 2000},
		},
	})
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[1]
	assert.Equal(t, "31 32", row[7])
	assert.Equal(t, "1000 2000", row[8])
}

func TestTeeSink_ForwardsToAllTargets(t *testing.T) {
	a := &capturingSink{}
	b := &capturingSink{}
	tee := teeSink{targets: []protocol.Sink{a, b}}

	tee.OnCardRead(card.Record{CardNumber: "7"})

	require.Len(t, a.reads, 1)
	require.Len(t, b.reads, 1)
	assert.Equal(t, "7", a.reads[0].CardNumber)
	assert.Equal(t, "7", b.reads[0].CardNumber)
}
