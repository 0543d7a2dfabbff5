package encode

import (
	"fmt"

	"stereocap/internal/geometry"
)

// Deinterleave copies the four quadrant bands of a raw sensor buffer into a
// freshly allocated output buffer, bands packed consecutively.
//
// The raw buffer is FileWidth x FileHeight 16-bit samples with the bands
// embedded at fixed sample offsets: band 1 at (0,0), band 2 at (bandWidth,0),
// band 3 at (0,bandHeight), band 4 at (bandWidth,bandHeight), where bandWidth
// and bandHeight are half the corrected image dimensions and FileWidth is the
// raw row stride. The output is ImageWidth x ImageHeight samples.
//
// The function is a pure transform of its inputs and holds no shared state,
// so it is safe to run from any number of workers concurrently. The raw
// buffer is only read for the duration of the call.
func Deinterleave(raw []byte, entry geometry.Entry) ([]byte, error) {
	rawBytes := entry.RawSamples() * 2
	if len(raw) < rawBytes {
		return nil, fmt.Errorf("raw buffer too short: %d bytes, need %d for %s", len(raw), rawBytes, entry)
	}

	bandWidth := entry.BandWidth()
	bandHeight := entry.BandHeight()
	rowBytes := bandWidth * 2
	strideBytes := entry.FileWidth * 2
	bandBytes := bandWidth * bandHeight * 2

	// Byte offsets of each band origin inside the raw buffer.
	srcOff := [4]int{
		0,
		rowBytes,
		bandHeight * strideBytes,
		bandHeight*strideBytes + rowBytes,
	}

	out := make([]byte, entry.ImageBytes())
	for band := 0; band < 4; band++ {
		src := srcOff[band]
		dst := band * bandBytes
		for row := 0; row < bandHeight; row++ {
			copy(out[dst:dst+rowBytes], raw[src:src+rowBytes])
			src += strideBytes
			dst += rowBytes
		}
	}
	return out, nil
}
