package ports

import (
	"image"
)

// DebugSink receives intermediate render results for inspection.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveRenderJSON saves the frame plan of a render job.
	SaveRenderJSON(data []byte) error

	// SaveComposedFrame saves a composited frame.
	SaveComposedFrame(index int, img image.Image) error
}
