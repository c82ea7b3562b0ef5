package card

import "fmt"

// Card-5 memory offsets, within the 128-byte block at response-frame offset
// 5..133 (the caller strips the frame envelope before calling DecodeCard5).
const (
	card5CardNumberOffset = 0x04
	card5CNSOffset        = 0x06
	card5StartOffset      = 0x13
	card5FinishOffset     = 0x15
	card5PunchCountOffset = 0x17
	card5CheckOffset      = 0x19
	card5TimedPunchBase   = 0x21
	card5PageSize         = 0x10
	card5PunchesPerPage   = 5
	card5PunchStride      = 3
	card5MaxTimedPunches  = 30
)

func word(block []byte, off int) uint16 {
	return uint16(block[off])<<8 | uint16(block[off+1])
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// DecodeCard5 decodes a single 128-byte Card-5 memory block.
func DecodeCard5(block []byte, zeroHour int64) (Record, error) {
	if len(block) < 128 {
		return Record{}, fmt.Errorf("card: Card-5 block too short: %d bytes", len(block))
	}

	cardNumber := uint32(word(block, card5CardNumberOffset))
	if cns := block[card5CNSOffset]; cns > 1 {
		cardNumber += uint32(cns) * 100000
	}

	punchCount := int(block[card5PunchCountOffset]) - 1
	if punchCount < 0 {
		punchCount = 0
	}

	rawStart := int64(word(block, card5StartOffset)) * 1000
	rawFinish := int64(word(block, card5FinishOffset)) * 1000
	rawCheck := int64(word(block, card5CheckOffset)) * 1000

	start := AdvancePastReference(rawStart, zeroHour, TwelveHours)
	check := AdvancePastReference(rawCheck, zeroHour, TwelveHours)

	ref := maxInt64(zeroHour, start)

	punches := make([]Punch, 0, punchCount)
	timedCount := punchCount
	if timedCount > card5MaxTimedPunches {
		timedCount = card5MaxTimedPunches
	}

	for i := 0; i < timedCount; i++ {
		page := i / card5PunchesPerPage
		slot := i % card5PunchesPerPage
		off := card5TimedPunchBase + page*card5PageSize + slot*card5PunchStride

		code := uint16(block[off])
		rawTime := int64(word(block, off+1)) * 1000

		ts := AdvancePastReference(rawTime, ref, TwelveHours)
		if ts != NoTime {
			ref = ts
		}

		punches = append(punches, Punch{Code: code, TimestampMs: ts})
	}

	for i := card5MaxTimedPunches; i < punchCount; i++ {
		j := i - card5MaxTimedPunches
		off := 0x20 + j*card5PageSize
		if off >= len(block) {
			break
		}
		punches = append(punches, Punch{Code: uint16(block[off]), TimestampMs: NoTime})
	}

	finish := AdvancePastReference(rawFinish, ref, TwelveHours)

	return Record{
		CardNumber: fmt.Sprintf("%d", cardNumber),
		CardSeries: Series5,
		Start:      start,
		Finish:     finish,
		Check:      check,
		PunchCount: uint16(punchCount),
		Punches:    punches,
	}, nil
}
