// Package geometry maps resolution labels to raw-buffer and corrected-image
// dimensions for the stereo sensor.
//
// The raw buffers delivered by the camera contain padding rows and dead-pixel
// columns, so the buffer dimensions differ from the usable image dimensions.
// The pairs below are empirical: they were measured against the sensor modes
// the rig actually exposes. An Entry is resolved once at pipeline construction
// and never mutated afterwards.
package geometry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownResolution indicates a resolution label with no known geometry.
var ErrUnknownResolution = errors.New("unknown resolution")

// Entry pairs the raw buffer geometry with the corrected image geometry for
// one sensor mode. All dimensions are in 16-bit samples.
type Entry struct {
	// FileWidth and FileHeight describe the raw buffer as delivered by the
	// camera, padding included.
	FileWidth  int
	FileHeight int
	// ImageWidth and ImageHeight describe the dead-pixel-free output image.
	ImageWidth  int
	ImageHeight int
}

// BandWidth returns the width of one quadrant band in samples.
func (e Entry) BandWidth() int { return e.ImageWidth / 2 }

// BandHeight returns the height of one quadrant band in samples.
func (e Entry) BandHeight() int { return e.ImageHeight / 2 }

// RawSamples returns the number of 16-bit samples in a raw buffer.
func (e Entry) RawSamples() int { return e.FileWidth * e.FileHeight }

// ImageBytes returns the byte length of the corrected output image.
func (e Entry) ImageBytes() int { return e.ImageWidth * e.ImageHeight * 2 }

func (e Entry) String() string {
	return fmt.Sprintf("%dx%d raw -> %dx%d image", e.FileWidth, e.FileHeight, e.ImageWidth, e.ImageHeight)
}

var resolutions = map[string]Entry{
	"LOW":    {FileWidth: 1344, FileHeight: 990, ImageWidth: 1328, ImageHeight: 990},
	"MEDIUM": {FileWidth: 2032, FileHeight: 1080, ImageWidth: 2024, ImageHeight: 1080},
}

// Lookup resolves a resolution label to its geometry. Labels are matched
// case-insensitively. Unknown labels return ErrUnknownResolution; callers
// must treat this as a configuration error raised before capture starts.
func Lookup(label string) (Entry, error) {
	key := strings.ToUpper(strings.TrimSpace(label))
	entry, ok := resolutions[key]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownResolution, label, strings.Join(Labels(), ", "))
	}
	return entry, nil
}

// Labels returns the known resolution labels in sorted order.
func Labels() []string {
	labels := make([]string, 0, len(resolutions))
	for label := range resolutions {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
