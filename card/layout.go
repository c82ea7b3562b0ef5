package card

import "fmt"

// layout describes the fixed-offset fields shared by the Card-6/8/9/10+
// memory format, parameterising the one decoder that reads all of them,
// per §4.3's layout table.
type layout struct {
	cardNumberOffset int
	cardNumberWidth  int // bytes: 2 for Card-6, 3 for Card-8/9/10+/pCard
	startOffset      int
	finishOffset     int
	checkOffset      int
	punchCountOffset int
	punchesStart     int // page index; page size is always 4
}

const multiBlockPageSize = 4

var layoutCard6 = layout{
	cardNumberOffset: 11,
	cardNumberWidth:  2,
	startOffset:      24,
	finishOffset:     20,
	checkOffset:      28,
	punchCountOffset: 18,
	punchesStart:     32,
}

// si8SINumberPageOffset is the byte whose low nibble discriminates which
// Card-8-family layout a block belongs to.
const si8SINumberPageOffset = 24

func card8PlusLayout(buf []byte) (Series, layout, error) {
	if len(buf) <= si8SINumberPageOffset {
		return SeriesUnknown, layout{}, fmt.Errorf("card: buffer too short to discriminate series")
	}

	base := layout{
		cardNumberOffset: 25,
		cardNumberWidth:  3,
		startOffset:      12,
		finishOffset:     16,
		checkOffset:      8,
		punchCountOffset: 22,
	}

	switch buf[si8SINumberPageOffset] & 0x0F {
	case 2:
		base.punchesStart = 34
		return Series8, base, nil
	case 1:
		base.punchesStart = 14
		return Series9, base, nil
	case 4:
		base.punchesStart = 44
		return SeriesPCard, base, nil
	case 15:
		base.punchesStart = 32
		return Series10Plus, base, nil
	default:
		return SeriesUnknown, layout{}, fmt.Errorf("card: unrecognized Card-8+ series discriminator 0x%X", buf[si8SINumberPageOffset]&0x0F)
	}
}

// readCardNumber reads a big-endian card number of the given width.
func readCardNumber(buf []byte, off, width int) uint32 {
	var v uint32
	for i := 0; i < width; i++ {
		v = v<<8 | uint32(buf[off+i])
	}
	return v
}

// extractPunchTime decodes the time field of a 4-byte page at offset p:
// bit 0 of the first byte selects AM/PM half of the day, the low 16 bits of
// the remaining two bytes are seconds-since-half-day scaled to ms.
func extractPunchTime(buf []byte, p int) int64 {
	pm := int64(buf[p] & 1)
	raw12 := (int64(buf[p+2])<<8 | int64(buf[p+3])) * 1000
	if raw12 == NoSITime {
		return NoSITime
	}
	return pm*TwelveHours + raw12
}

// extractPunchCode decodes the 10-bit control code packed into a 4-byte page.
func extractPunchCode(buf []byte, p int) uint16 {
	return uint16(buf[p]&0xC0)<<2 | uint16(buf[p+1])
}
