// Package ggrenderer provides a renderer implementation using the gg library.
package ggrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/clipdeck/pkg/ports"
)

// shadowSteps is the number of layers a soft shadow is built from.
const shadowSteps = 12

// Renderer implements ports.Renderer using the gg library.
type Renderer struct{}

// New creates a new Renderer.
func New() *Renderer {
	return &Renderer{}
}

// CreateCanvas creates a new drawing canvas.
func (r *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	return &Canvas{dc: dc}
}

// DecodeImage decodes image data into an image.Image.
func (r *Renderer) DecodeImage(data []byte, format ports.ImageFormat) (image.Image, error) {
	reader := bytes.NewReader(data)

	switch format {
	case ports.FormatJPEG:
		return jpeg.Decode(reader)
	case ports.FormatPNG:
		return png.Decode(reader)
	default:
		img, _, err := image.Decode(reader)
		return img, err
	}
}

// EncodeImage encodes an image to the specified format.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatJPEG:
		opts := &jpeg.Options{Quality: quality}
		if err := jpeg.Encode(&buf, img, opts); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}

// ResizeImage resizes an image to the specified dimensions.
func (r *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	return scale(img, width, height)
}

// CropImage copies the part of img inside rect into a new image at (0,0).
// rect is clamped to the image bounds.
func (r *Renderer) CropImage(img image.Image, rect image.Rectangle) image.Image {
	b := img.Bounds()
	rect = rect.Add(b.Min).Intersect(b)
	if rect.Empty() {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}

// FlipHorizontal mirrors an image left to right.
func (r *Renderer) FlipHorizontal(img image.Image) image.Image {
	src := toRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srow := src.Pix[y*src.Stride : y*src.Stride+w*4]
		drow := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < w; x++ {
			copy(drow[(w-1-x)*4:(w-x)*4], srow[x*4:x*4+4])
		}
	}
	return dst
}

// BlurImage approximates a gaussian blur with three box blur passes.
func (r *Renderer) BlurImage(img image.Image, radius int) image.Image {
	src := toRGBA(img)
	if radius <= 0 {
		return src
	}
	out := image.NewRGBA(image.Rect(0, 0, src.Rect.Dx(), src.Rect.Dy()))
	copy(out.Pix, src.Pix)
	tmp := image.NewRGBA(out.Rect)
	for pass := 0; pass < 3; pass++ {
		boxBlurH(out, tmp, radius)
		boxBlurV(tmp, out, radius)
	}
	return out
}

// Ensure Renderer implements ports.Renderer
var _ ports.Renderer = (*Renderer)(nil)

// Canvas implements ports.Canvas using gg.Context.
type Canvas struct {
	dc *gg.Context
}

// DrawImage draws an image at the specified position.
func (c *Canvas) DrawImage(img image.Image, x, y int) {
	c.dc.DrawImage(img, x, y)
}

// DrawImageScaled draws an image scaled to the specified dimensions.
func (c *Canvas) DrawImageScaled(img image.Image, x, y, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.dc.DrawImage(scale(img, width, height), x, y)
}

// DrawImageRounded draws an image scaled into the rectangle and clipped to
// rounded corners.
func (c *Canvas) DrawImageRounded(img image.Image, x, y, width, height int, radius float64) {
	if width <= 0 || height <= 0 {
		return
	}
	if radius <= 0 {
		c.DrawImageScaled(img, x, y, width, height)
		return
	}
	c.dc.Push()
	defer c.dc.Pop()

	c.dc.DrawRoundedRectangle(float64(x), float64(y), float64(width), float64(height), radius)
	c.dc.Clip()
	c.dc.DrawImage(scale(img, width, height), x, y)
}

// DrawRect draws a filled rectangle.
func (c *Canvas) DrawRect(x, y, w, h int, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	c.dc.Fill()
}

// DrawRoundedRect draws a filled rounded rectangle.
func (c *Canvas) DrawRoundedRect(x, y, w, h int, radius float64, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawRoundedRectangle(float64(x), float64(y), float64(w), float64(h), radius)
	c.dc.Fill()
}

// FillLinearGradient fills a rectangle with a two-stop gradient running
// through its center at the given angle.
func (c *Canvas) FillLinearGradient(x, y, w, h int, from, to color.Color, angle float64) {
	rad := angle * math.Pi / 180
	dx, dy := math.Cos(rad), math.Sin(rad)
	cx := float64(x) + float64(w)/2
	cy := float64(y) + float64(h)/2
	half := math.Abs(float64(w)/2*dx) + math.Abs(float64(h)/2*dy)

	grad := gg.NewLinearGradient(cx-dx*half, cy-dy*half, cx+dx*half, cy+dy*half)
	grad.AddColorStop(0, from)
	grad.AddColorStop(1, to)

	c.dc.Push()
	defer c.dc.Pop()
	c.dc.SetFillStyle(grad)
	c.dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	c.dc.Fill()
}

// DrawShadow draws a soft black shadow around a rounded rectangle by
// layering translucent rounded rectangles that grow by spread.
func (c *Canvas) DrawShadow(x, y, w, h int, radius, spread, opacity float64) {
	if spread <= 0 || opacity <= 0 {
		return
	}
	alpha := uint8(math.Min(255, 255*opacity/shadowSteps))
	c.dc.SetColor(color.NRGBA{A: alpha})
	for i := shadowSteps; i >= 1; i-- {
		grow := spread * float64(i) / shadowSteps
		c.dc.DrawRoundedRectangle(
			float64(x)-grow, float64(y)-grow+grow/2,
			float64(w)+2*grow, float64(h)+2*grow,
			radius+grow,
		)
		c.dc.Fill()
	}
}

// DrawCircle draws a filled circle.
func (c *Canvas) DrawCircle(cx, cy, r float64, fill color.Color) {
	c.dc.SetColor(fill)
	c.dc.DrawCircle(cx, cy, r)
	c.dc.Fill()
}

// DrawPolygon fills a closed polygon and strokes its outline. A nil stroke
// skips the outline.
func (c *Canvas) DrawPolygon(points []ports.Point, fill, stroke color.Color, strokeWidth float64) {
	if len(points) < 3 {
		return
	}
	c.dc.MoveTo(points[0].X, points[0].Y)
	for _, p := range points[1:] {
		c.dc.LineTo(p.X, p.Y)
	}
	c.dc.ClosePath()
	c.dc.SetColor(fill)
	if stroke == nil || strokeWidth <= 0 {
		c.dc.Fill()
		return
	}
	c.dc.FillPreserve()
	c.dc.SetColor(stroke)
	c.dc.SetLineWidth(strokeWidth)
	c.dc.Stroke()
}

// ToImage returns the canvas as an image.Image.
func (c *Canvas) ToImage() image.Image {
	return c.dc.Image()
}

// Ensure Canvas implements ports.Canvas
var _ ports.Canvas = (*Canvas)(nil)

func scale(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height && b.Min == (image.Point{}) {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// boxBlurH blurs each row of src into dst with a sliding window of
// 2*radius+1 pixels, clamping at the edges.
func boxBlurH(src, dst *image.RGBA, radius int) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	div := 2*radius + 1
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		out := dst.Pix[y*dst.Stride:]
		var sum [4]int
		for k := -radius; k <= radius; k++ {
			i := clamp(k, 0, w-1) * 4
			for ch := 0; ch < 4; ch++ {
				sum[ch] += int(row[i+ch])
			}
		}
		for x := 0; x < w; x++ {
			for ch := 0; ch < 4; ch++ {
				out[x*4+ch] = uint8(sum[ch] / div)
			}
			add := clamp(x+radius+1, 0, w-1) * 4
			sub := clamp(x-radius, 0, w-1) * 4
			for ch := 0; ch < 4; ch++ {
				sum[ch] += int(row[add+ch]) - int(row[sub+ch])
			}
		}
	}
}

func boxBlurV(src, dst *image.RGBA, radius int) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	div := 2*radius + 1
	for x := 0; x < w; x++ {
		var sum [4]int
		for k := -radius; k <= radius; k++ {
			i := clamp(k, 0, h-1)*src.Stride + x*4
			for ch := 0; ch < 4; ch++ {
				sum[ch] += int(src.Pix[i+ch])
			}
		}
		for y := 0; y < h; y++ {
			o := y*dst.Stride + x*4
			for ch := 0; ch < 4; ch++ {
				dst.Pix[o+ch] = uint8(sum[ch] / div)
			}
			add := clamp(y+radius+1, 0, h-1)*src.Stride + x*4
			sub := clamp(y-radius, 0, h-1)*src.Stride + x*4
			for ch := 0; ch < 4; ch++ {
				sum[ch] += int(src.Pix[add+ch]) - int(src.Pix[sub+ch])
			}
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
