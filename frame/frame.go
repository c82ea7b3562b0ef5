// Package frame implements the SPORTident wire framing: control bytes,
// start/length/payload/CRC/end framing, validity checks, and the small set
// of prebuilt request frames the protocol driver sends to a station.
package frame

import (
	"encoding/hex"
	"fmt"

	"github.com/sireader/core/crc"
)

// Control bytes and frame delimiters.
const (
	STX byte = 0x02
	ETX byte = 0x03
	ACK byte = 0x06
	NAK byte = 0x15
)

// Command bytes used throughout the driver and decoders.
const (
	CmdSetMasterMode  byte = 0xF0
	CmdGetSystemValue byte = 0x83
	CmdBeep           byte = 0xF9
	CmdGetCard5       byte = 0xB1
	CmdGetCard6Block  byte = 0xE1
	CmdGetCard8Block  byte = 0xEF

	CmdCard5Detected  byte = 0xE5
	CmdCard6Detected  byte = 0xE6
	CmdCard8Detected  byte = 0xE8
	CmdCardRemoved    byte = 0xE7
)

// Frame is an immutable SPORTident protocol frame: either a full STX..ETX
// frame with an embedded CRC, or a single control byte (ACK/NAK/a bare
// detection byte) which bypasses CRC entirely.
type Frame struct {
	raw []byte
}

// FromBytes wraps an already-assembled byte sequence (as produced by the
// driver's accumulator) as a Frame. It does not validate; call Valid to check.
func FromBytes(raw []byte) Frame {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return Frame{raw: cp}
}

// New builds a full STX..ETX frame for cmd with the given payload,
// computing and appending the CRC.
func New(cmd byte, payload []byte) Frame {
	body := make([]byte, 0, 2+len(payload))
	body = append(body, cmd, byte(len(payload)))
	body = append(body, payload...)

	sum := crc.Compute(body)

	raw := make([]byte, 0, 1+len(body)+2+1)
	raw = append(raw, STX)
	raw = append(raw, body...)
	raw = append(raw, byte(sum>>8), byte(sum))
	raw = append(raw, ETX)

	return Frame{raw: raw}
}

// NewControl builds a single-byte control frame (ACK, NAK, or any other
// bare control byte the station may emit).
func NewControl(b byte) Frame {
	return Frame{raw: []byte{b}}
}

// Bytes returns the raw wire representation.
func (f Frame) Bytes() []byte {
	return f.raw
}

// Len returns the number of raw bytes in the frame.
func (f Frame) Len() int {
	return len(f.raw)
}

// IsControl reports whether this is a single-byte control frame.
func (f Frame) IsControl() bool {
	return len(f.raw) == 1
}

// Command returns the frame's command byte. For a control frame this is the
// single byte itself; for a full frame it is raw[1].
func (f Frame) Command() byte {
	if len(f.raw) == 0 {
		return 0
	}
	if f.IsControl() {
		return f.raw[0]
	}
	if len(f.raw) < 2 {
		return 0
	}
	return f.raw[1]
}

// ByteAt returns the byte at index i of the raw frame, or 0 if out of range.
func (f Frame) ByteAt(i int) byte {
	if i < 0 || i >= len(f.raw) {
		return 0
	}
	return f.raw[i]
}

// Payload returns the frame's payload bytes (empty for control frames or
// frames too short to have one).
func (f Frame) Payload() []byte {
	if f.IsControl() || len(f.raw) < 6 {
		return nil
	}
	n := int(f.raw[2])
	start, end := 3, 3+n
	if end > len(f.raw)-3 {
		end = len(f.raw) - 3
	}
	if start > end {
		return nil
	}
	return f.raw[start:end]
}

// EmbeddedCRC returns the two-byte CRC embedded in a full frame.
func (f Frame) EmbeddedCRC() uint16 {
	if f.IsControl() || len(f.raw) < 3 {
		return 0
	}
	hi := f.raw[len(f.raw)-3]
	lo := f.raw[len(f.raw)-2]
	return uint16(hi)<<8 | uint16(lo)
}

// ComputedCRC recomputes the CRC over raw[1 .. len-3], the region the
// embedded CRC is supposed to cover.
func (f Frame) ComputedCRC() uint16 {
	if f.IsControl() || len(f.raw) < 3 {
		return 0
	}
	return crc.Compute(f.raw[1 : len(f.raw)-3])
}

// Valid reports whether this is either a bare control byte, or a full frame
// with matching start/end bytes and a correct CRC.
func (f Frame) Valid() bool {
	if f.IsControl() {
		return true
	}
	if len(f.raw) < 6 {
		return false
	}
	if f.raw[0] != STX || f.raw[len(f.raw)-1] != ETX {
		return false
	}
	return f.ComputedCRC() == f.EmbeddedCRC()
}

// Hex renders the frame as a space-separated hex dump, for logging.
func (f Frame) Hex() string {
	s := hex.EncodeToString(f.raw)
	out := make([]byte, 0, len(s)+len(s)/2)
	for i := 0; i < len(s); i += 2 {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, s[i], s[i+1])
	}
	return string(out)
}

func (f Frame) String() string {
	return fmt.Sprintf("Frame{cmd=0x%02X len=%d valid=%v %s}", f.Command(), f.Len(), f.Valid(), f.Hex())
}

// Prebuilt request frames the driver issues verbatim.
var (
	// Startup wakes the station and sets master mode. It is the one frame
	// with a non-standard leading byte (0xFF) ahead of STX, reproduced
	// exactly as the reference implementation sends it.
	Startup = FromBytes([]byte{0xFF, 0x02, 0x02, 0xF0, 0x01, 0x4D, 0x6D, 0x0A, 0x03})

	GetProtocolConfig     = FromBytes([]byte{0x02, 0x83, 0x02, 0x74, 0x01, 0x04, 0x14, 0x03})
	GetCardBlocksConfig   = FromBytes([]byte{0x02, 0x83, 0x02, 0x33, 0x01, 0x16, 0x11, 0x03})
	BeepTwice             = FromBytes([]byte{0x02, 0xF9, 0x01, 0x02, 0x14, 0x0A, 0x03})
	Ack                   = NewControl(ACK)
	ReadCard5             = FromBytes([]byte{0x02, 0xB1, 0x00, 0xB1, 0x00, 0x03})
)

// ReadCard6Block builds the "read Card-6 block N" request.
func ReadCard6Block(n byte) Frame {
	return New(CmdGetCard6Block, []byte{n})
}

// ReadCard8PlusBlock builds the "read Card-8+ block N" request.
func ReadCard8PlusBlock(n byte) Frame {
	return New(CmdGetCard8Block, []byte{n})
}

// Card6BlockOrder is the fixed order blocks are requested in for Card-6
// readout: block 0 first (header), then 6 and 7 (carried over from an
// earlier firmware revision), then 2..5 in order.
var Card6BlockOrder = []byte{0, 6, 7, 2, 3, 4, 5}
