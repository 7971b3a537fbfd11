package mocks

import (
	"image"
	"image/color"
	"sync"

	"github.com/user/clipdeck/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer. Canvases it creates
// record their drawing operations.
type Renderer struct {
	CreateCanvasFunc func(width, height int, bg color.Color) ports.Canvas
	DecodeImageFunc  func(data []byte, format ports.ImageFormat) (image.Image, error)
	EncodeImageFunc  func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)
	ResizeImageFunc  func(img image.Image, width, height int) image.Image

	mu       sync.Mutex
	Canvases []*Canvas
}

func (m *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	if m.CreateCanvasFunc != nil {
		return m.CreateCanvasFunc(width, height, bg)
	}
	c := &Canvas{width: width, height: height}
	m.mu.Lock()
	m.Canvases = append(m.Canvases, c)
	m.mu.Unlock()
	return c
}

func (m *Renderer) DecodeImage(data []byte, format ports.ImageFormat) (image.Image, error) {
	if m.DecodeImageFunc != nil {
		return m.DecodeImageFunc(data, format)
	}
	return image.NewRGBA(image.Rect(0, 0, 100, 100)), nil
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte{}, nil
}

func (m *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	if m.ResizeImageFunc != nil {
		return m.ResizeImageFunc(img, width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

func (m *Renderer) CropImage(img image.Image, r image.Rectangle) image.Image {
	return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
}

func (m *Renderer) FlipHorizontal(img image.Image) image.Image {
	return img
}

func (m *Renderer) BlurImage(img image.Image, radius int) image.Image {
	return img
}

// LastCanvas returns the most recently created canvas.
func (m *Renderer) LastCanvas() *Canvas {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Canvases) == 0 {
		return nil
	}
	return m.Canvases[len(m.Canvases)-1]
}

var _ ports.Renderer = (*Renderer)(nil)

// DrawOp is one recorded drawing call.
type DrawOp struct {
	Name   string
	Rect   image.Rectangle
	Radius float64
	Color  color.Color
}

// Canvas is a mock implementation of ports.Canvas.
type Canvas struct {
	width  int
	height int
	img    *image.RGBA

	Ops []DrawOp
}

func (m *Canvas) record(name string, x, y, w, h int, radius float64, c color.Color) {
	m.Ops = append(m.Ops, DrawOp{Name: name, Rect: image.Rect(x, y, x+w, y+h), Radius: radius, Color: c})
}

// OpsNamed returns the recorded calls of one kind.
func (m *Canvas) OpsNamed(name string) []DrawOp {
	var out []DrawOp
	for _, op := range m.Ops {
		if op.Name == name {
			out = append(out, op)
		}
	}
	return out
}

func (m *Canvas) DrawImage(img image.Image, x, y int) {
	b := img.Bounds()
	m.record("DrawImage", x, y, b.Dx(), b.Dy(), 0, nil)
}

func (m *Canvas) DrawImageScaled(img image.Image, x, y, width, height int) {
	m.record("DrawImageScaled", x, y, width, height, 0, nil)
}

func (m *Canvas) DrawImageRounded(img image.Image, x, y, width, height int, radius float64) {
	m.record("DrawImageRounded", x, y, width, height, radius, nil)
}

func (m *Canvas) DrawRect(x, y, w, h int, c color.Color) {
	m.record("DrawRect", x, y, w, h, 0, c)
}

func (m *Canvas) DrawRoundedRect(x, y, w, h int, radius float64, c color.Color) {
	m.record("DrawRoundedRect", x, y, w, h, radius, c)
}

func (m *Canvas) FillLinearGradient(x, y, w, h int, from, to color.Color, angle float64) {
	m.record("FillLinearGradient", x, y, w, h, 0, from)
}

func (m *Canvas) DrawShadow(x, y, w, h int, radius, spread, opacity float64) {
	m.record("DrawShadow", x, y, w, h, radius, nil)
}

func (m *Canvas) DrawCircle(cx, cy, r float64, fill color.Color) {
	m.record("DrawCircle", int(cx-r), int(cy-r), int(2*r), int(2*r), r, fill)
}

func (m *Canvas) DrawPolygon(points []ports.Point, fill, stroke color.Color, strokeWidth float64) {
	if len(points) == 0 {
		return
	}
	m.record("DrawPolygon", int(points[0].X), int(points[0].Y), 0, 0, 0, fill)
}

func (m *Canvas) ToImage() image.Image {
	if m.img != nil {
		return m.img
	}
	return image.NewRGBA(image.Rect(0, 0, m.width, m.height))
}

var _ ports.Canvas = (*Canvas)(nil)
