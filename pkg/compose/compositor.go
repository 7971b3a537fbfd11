package compose

import (
	"errors"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/user/clipdeck/pkg/ports"
	"github.com/user/clipdeck/pkg/project"
)

// IdleCursorTimeout is how long the cursor must rest before HideWhenIdle
// hides it.
const IdleCursorTimeout = 2 * time.Second

// Cursor is the pointer state at the composed instant. X and Y are relative
// to the full display (0..1).
type Cursor struct {
	X     float64
	Y     float64
	Shape ports.CursorShape
	Idle  time.Duration
}

// Input is one instant of a recording, decoded.
type Input struct {
	Display image.Image
	// Camera is nil when the recording has no camera track.
	Camera image.Image
	// Cursor is nil when no cursor position is known.
	Cursor *Cursor
}

// Compositor composes frames for one project snapshot. It is safe for
// concurrent use.
type Compositor struct {
	renderer   ports.Renderer
	cfg        *project.Configuration
	layout     Layout
	background image.Image
	displayW   int
	displayH   int
}

// New creates a compositor. background is the prepared image for image and
// wallpaper sources (see BackgroundLoader) and nil for colour and gradient
// sources. cfg is cloned.
func New(renderer ports.Renderer, cfg *project.Configuration, displayW, displayH, cameraW, cameraH int, background image.Image) *Compositor {
	cfg = cfg.Clone()
	return &Compositor{
		renderer:   renderer,
		cfg:        cfg,
		layout:     ComputeLayout(displayW, displayH, cameraW, cameraH, cfg),
		background: background,
		displayW:   displayW,
		displayH:   displayH,
	}
}

// Layout returns the frame geometry.
func (c *Compositor) Layout() Layout {
	return c.layout
}

// Project returns the project snapshot this compositor draws.
func (c *Compositor) Project() *project.Configuration {
	return c.cfg
}

// ErrNoDisplay is returned when Input has no display image.
var ErrNoDisplay = errors.New("no display frame")

// Compose draws one output frame: background, content shadow, display,
// camera overlay, cursor.
func (c *Compositor) Compose(in Input) (image.Image, error) {
	if in.Display == nil {
		return nil, ErrNoDisplay
	}
	l := c.layout
	canvas := c.renderer.CreateCanvas(l.Width, l.Height, color.White)

	c.drawBackground(canvas)

	if l.Padding > 0 {
		spread := math.Max(4, float64(l.Padding)/3)
		canvas.DrawShadow(l.Frame.Min.X, l.Frame.Min.Y, l.Frame.Dx(), l.Frame.Dy(), l.Radius, spread, 0.35)
	}
	if l.Content != l.Frame {
		canvas.DrawRoundedRect(l.Frame.Min.X, l.Frame.Min.Y, l.Frame.Dx(), l.Frame.Dy(), l.Radius, color.Black)
	}

	display := in.Display
	if b := display.Bounds(); b.Dx() != c.displayW || b.Dy() != c.displayH {
		display = c.renderer.ResizeImage(display, c.displayW, c.displayH)
	}
	if l.Crop != image.Rect(0, 0, c.displayW, c.displayH) {
		display = c.renderer.CropImage(display, l.Crop)
	}
	canvas.DrawImageRounded(display, l.Content.Min.X, l.Content.Min.Y, l.Content.Dx(), l.Content.Dy(), l.ContentRadius)

	if in.Camera != nil && !l.Camera.Empty() {
		c.drawCamera(canvas, in.Camera)
	}
	if in.Cursor != nil {
		c.drawCursor(canvas, *in.Cursor)
	}
	return canvas.ToImage(), nil
}

func rgb(v [3]uint8) color.Color {
	return color.RGBA{R: v[0], G: v[1], B: v[2], A: 255}
}

func (c *Compositor) drawBackground(canvas ports.Canvas) {
	l := c.layout
	switch src := c.cfg.Background.Source.(type) {
	case project.ColorSource:
		canvas.DrawRect(0, 0, l.Width, l.Height, rgb(src.Value))
	case project.GradientSource:
		canvas.FillLinearGradient(0, 0, l.Width, l.Height, rgb(src.From), rgb(src.To), src.Angle)
	case project.ImageSource, project.WallpaperSource:
		if c.background != nil {
			canvas.DrawImageScaled(c.background, 0, 0, l.Width, l.Height)
		}
	case nil:
	}
}

func (c *Compositor) drawCamera(canvas ports.Canvas, cam image.Image) {
	l := c.layout
	r := l.Camera
	if c.cfg.Camera.Mirror {
		cam = c.renderer.FlipHorizontal(cam)
	}
	if s := c.cfg.Camera.Shadow; s > 0 {
		spread := math.Max(2, float64(minInt(r.Dx(), r.Dy()))*0.08)
		canvas.DrawShadow(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), l.CameraRadius, spread, s/100*0.6)
	}
	canvas.DrawImageRounded(cam, r.Min.X, r.Min.Y, r.Dx(), r.Dy(), l.CameraRadius)
}

// arrow is the pointer outline in a 12x19 box with its tip at the origin.
var arrow = []ports.Point{
	{X: 0, Y: 0}, {X: 0, Y: 16}, {X: 4, Y: 12.5}, {X: 7, Y: 19},
	{X: 9.5, Y: 18}, {X: 6.5, Y: 11.5}, {X: 12, Y: 11.5},
}

func (c *Compositor) drawCursor(canvas ports.Canvas, cur Cursor) {
	if cur.Shape == ports.CursorHidden {
		return
	}
	if c.cfg.Cursor.HideWhenIdle && cur.Idle >= IdleCursorTimeout {
		return
	}
	l := c.layout

	px := cur.X*float64(c.displayW) - float64(l.Crop.Min.X)
	py := cur.Y*float64(c.displayH) - float64(l.Crop.Min.Y)
	if px < 0 || py < 0 || px > float64(l.Crop.Dx()) || py > float64(l.Crop.Dy()) {
		return
	}
	sx := float64(l.Content.Dx()) / float64(l.Crop.Dx())
	sy := float64(l.Content.Dy()) / float64(l.Crop.Dy())
	x := float64(l.Content.Min.X) + px*sx
	y := float64(l.Content.Min.Y) + py*sy

	// 1.0 is a 12x19 pointer on a 360px tall output.
	size := float64(minInt(l.Width, l.Height)) / 360 * c.cfg.Cursor.Size / 100
	if size <= 0 {
		return
	}

	switch c.cfg.Cursor.Type {
	case project.CursorCircle:
		canvas.DrawCircle(x, y, 14*size, color.NRGBA{R: 255, G: 214, B: 10, A: 110})
		canvas.DrawCircle(x, y, 3*size, color.NRGBA{R: 20, G: 20, B: 20, A: 230})
	case project.CursorPointer:
		pts := make([]ports.Point, len(arrow))
		for i, p := range arrow {
			pts[i] = ports.Point{X: x + p.X*size, Y: y + p.Y*size}
		}
		canvas.DrawPolygon(pts, color.Black, color.White, math.Max(1, 1.2*size))
	}
}
