package card

import "fmt"

// BlockPayloadLen is the length of the slice of a response frame carrying
// one 128-byte card memory block. The protocol driver supplies these from frame.Frame.Bytes,
// bytes 6..134 of each readout response.
const BlockPayloadLen = 128

// AssembleBlocks concatenates a sequence of 128-byte blocks, extracted from
// response frames (bytes 6..134 of each), into the single contiguous buffer
// the multi-block decoders expect.
func AssembleBlocks(blocks [][]byte) ([]byte, error) {
	buf := make([]byte, 0, len(blocks)*BlockPayloadLen)
	for i, b := range blocks {
		if len(b) < BlockPayloadLen {
			return nil, fmt.Errorf("card: block %d too short: %d bytes", i, len(b))
		}
		buf = append(buf, b[:BlockPayloadLen]...)
	}
	return buf, nil
}
