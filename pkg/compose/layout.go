// Package compose turns one instant of a recording into an output frame.
// The render engine and editor playback both compose through this package
// so a rendered file and the live preview never disagree.
package compose

import (
	"image"
	"math"

	"github.com/user/clipdeck/pkg/project"
)

// Layout is the geometry of an output frame. It depends only on the
// source sizes and the project, so it is computed once per project.
type Layout struct {
	Width  int
	Height int

	// Crop is the part of the display track that is shown.
	Crop image.Rectangle
	// Frame is where the cropped display sits in the output.
	Frame image.Rectangle
	// Content is Frame shrunk by the inset; the display is scaled into it.
	Content image.Rectangle
	Radius  float64
	// ContentRadius is the corner radius of Content.
	ContentRadius float64
	// Padding is the gap between Frame and the closest output edge.
	Padding int

	// Camera is empty when there is no camera overlay.
	Camera       image.Rectangle
	CameraRadius float64
}

// ComputeLayout computes the frame geometry. cameraW and cameraH are zero
// when the recording has no camera track.
//
// The output is the cropped display plus padding on every side, grown in one
// direction to the aspect ratio when one is set, rounded up to even
// dimensions for the encoder.
func ComputeLayout(displayW, displayH, cameraW, cameraH int, cfg *project.Configuration) Layout {
	crop := image.Rect(0, 0, displayW, displayH)
	if c := cfg.Background.Crop; c != nil {
		crop = image.Rect(c.X, c.Y, c.X+c.Width, c.Y+c.Height).Intersect(crop)
		if crop.Empty() {
			crop = image.Rect(0, 0, displayW, displayH)
		}
	}
	srcW, srcH := crop.Dx(), crop.Dy()

	pad := int(math.Round(float64(minInt(srcW, srcH)) * cfg.Background.Padding / 100))
	w, h := srcW+2*pad, srcH+2*pad

	if cfg.AspectRatio != nil {
		if rw, rh, err := cfg.AspectRatio.Ratio(); err == nil {
			if w*rh > h*rw {
				h = ceilDiv(w*rh, rw)
			} else {
				w = ceilDiv(h*rw, rh)
			}
		}
	}
	w, h = even(w), even(h)

	l := Layout{Width: w, Height: h, Crop: crop, Padding: pad}
	fx, fy := (w-srcW)/2, (h-srcH)/2
	l.Frame = image.Rect(fx, fy, fx+srcW, fy+srcH)
	l.Radius = cfg.Background.Rounding / 100 * float64(minInt(srcW, srcH)) / 2

	inset := cfg.Background.Inset
	if limit := minInt(srcW, srcH)/2 - 1; inset > limit {
		inset = limit
	}
	if inset < 0 {
		inset = 0
	}
	l.Content = l.Frame.Inset(inset)
	l.ContentRadius = math.Max(0, l.Radius-float64(inset))

	if cameraW > 0 && cameraH > 0 && !cfg.Camera.Hide {
		l.Camera, l.CameraRadius = cameraRect(w, h, cameraW, cameraH, cfg.Camera)
	}
	return l
}

// OutputSize returns the output dimensions for a display of the given size.
func OutputSize(displayW, displayH int, cfg *project.Configuration) (int, int) {
	l := ComputeLayout(displayW, displayH, 0, 0, cfg)
	return l.Width, l.Height
}

func cameraRect(w, h, camW, camH int, cam project.CameraConfiguration) (image.Rectangle, float64) {
	short := float64(minInt(w, h)) / 2 * cam.Size / 100
	cw, ch := short, short
	if camW >= camH {
		cw = short * float64(camW) / float64(camH)
	} else {
		ch = short * float64(camH) / float64(camW)
	}
	rw, rh := int(math.Round(cw)), int(math.Round(ch))
	if rw > w {
		rw = w
	}
	if rh > h {
		rh = h
	}
	margin := int(math.Max(4, math.Round(float64(minInt(w, h))*0.03)))

	var x, y int
	switch cam.Position.X {
	case project.Left:
		x = margin
	case project.Center:
		x = (w - rw) / 2
	case project.Right:
		x = w - rw - margin
	}
	switch cam.Position.Y {
	case project.Top:
		y = margin
	case project.Bottom:
		y = h - rh - margin
	}
	radius := cam.Rounding / 100 * float64(minInt(rw, rh)) / 2
	return image.Rect(x, y, x+rw, y+rh), radius
}

func even(n int) int {
	if n < 2 {
		return 2
	}
	return (n + 1) / 2 * 2
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
