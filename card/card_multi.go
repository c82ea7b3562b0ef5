package card

import "fmt"

// DecodeCard6 decodes a buffer formed by concatenating bytes 6..134 of each
// Card-6 readout response frame, in block order 0,6,7,2,3,4,5.
func DecodeCard6(buf []byte, zeroHour int64) (Record, error) {
	return decodeMultiBlock(buf, zeroHour, Series6, layoutCard6)
}

// DecodeCard8Plus decodes a buffer formed by concatenating bytes 6..134 of
// each Card-8/9/10/11/SIAC readout response frame. The concrete series
// (Card-8, Card-9, pCard, or Card-10/11/SIAC) is determined from the
// discriminator nibble embedded in the data itself, independent of which
// read routine fetched the blocks.
func DecodeCard8Plus(buf []byte, zeroHour int64) (Record, error) {
	series, l, err := card8PlusLayout(buf)
	if err != nil {
		return Record{}, err
	}
	return decodeMultiBlock(buf, zeroHour, series, l)
}

func decodeMultiBlock(buf []byte, zeroHour int64, series Series, l layout) (Record, error) {
	minLen := l.punchesStart * multiBlockPageSize
	if minLen < l.cardNumberOffset+l.cardNumberWidth {
		minLen = l.cardNumberOffset + l.cardNumberWidth
	}
	if len(buf) < minLen {
		return Record{}, fmt.Errorf("card: %s buffer too short: %d bytes", series, len(buf))
	}

	cardNumber := readCardNumber(buf, l.cardNumberOffset, l.cardNumberWidth)
	punchCount := uint16(buf[l.punchCountOffset])

	rawStart := extractPunchTime(buf, l.startOffset)
	rawFinish := extractPunchTime(buf, l.finishOffset)
	rawCheck := extractPunchTime(buf, l.checkOffset)

	start := AdvancePastReference(rawStart, zeroHour, OneDay)
	check := AdvancePastReference(rawCheck, zeroHour, OneDay)

	ref := maxInt64(zeroHour, start)

	punches := make([]Punch, 0, punchCount)
	for i := 0; i < int(punchCount); i++ {
		p := (l.punchesStart + i) * multiBlockPageSize
		if p+multiBlockPageSize > len(buf) {
			return Record{}, fmt.Errorf("card: %s punch %d out of range", series, i)
		}

		code := extractPunchCode(buf, p)
		raw := extractPunchTime(buf, p)

		ts := AdvancePastReference(raw, ref, OneDay)
		if ts != NoTime {
			ref = ts
		}

		punches = append(punches, Punch{Code: code, TimestampMs: ts})
	}

	finish := AdvancePastReference(rawFinish, ref, OneDay)

	return Record{
		CardNumber: fmt.Sprintf("%d", cardNumber),
		CardSeries: series,
		Start:      start,
		Finish:     finish,
		Check:      check,
		PunchCount: punchCount,
		Punches:    punches,
	}, nil
}
