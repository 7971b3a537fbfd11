package ports

import (
	"image"
	"image/color"
)

// Renderer abstracts image processing operations used by the compositor.
type Renderer interface {
	// CreateCanvas creates a new drawing canvas filled with bg.
	CreateCanvas(width, height int, bg color.Color) Canvas

	// DecodeImage decodes image data into an image.Image.
	DecodeImage(data []byte, format ImageFormat) (image.Image, error)

	// EncodeImage encodes an image to the specified format.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// ResizeImage resizes an image to the specified dimensions.
	ResizeImage(img image.Image, width, height int) image.Image

	// CropImage returns the part of img inside r, re-based at (0,0).
	CropImage(img image.Image, r image.Rectangle) image.Image

	// FlipHorizontal mirrors an image left to right.
	FlipHorizontal(img image.Image) image.Image

	// BlurImage applies a blur of the given radius in pixels.
	BlurImage(img image.Image, radius int) image.Image
}

// Canvas provides drawing operations for compositing images.
type Canvas interface {
	// DrawImage draws an image at the specified position.
	DrawImage(img image.Image, x, y int)

	// DrawImageScaled draws an image scaled to the specified dimensions.
	DrawImageScaled(img image.Image, x, y, width, height int)

	// DrawImageRounded draws an image scaled into the rectangle and clipped
	// to a rounded rectangle of the given corner radius.
	DrawImageRounded(img image.Image, x, y, width, height int, radius float64)

	// DrawRect draws a filled rectangle.
	DrawRect(x, y, w, h int, c color.Color)

	// DrawRoundedRect draws a filled rounded rectangle.
	DrawRoundedRect(x, y, w, h int, radius float64, c color.Color)

	// FillLinearGradient fills a rectangle with a two-stop linear gradient.
	// angle is in degrees, 0 runs left to right, 90 top to bottom.
	FillLinearGradient(x, y, w, h int, from, to color.Color, angle float64)

	// DrawShadow draws a soft drop shadow behind a rounded rectangle.
	DrawShadow(x, y, w, h int, radius, spread float64, opacity float64)

	// DrawCircle draws a filled circle.
	DrawCircle(cx, cy, r float64, fill color.Color)

	// DrawPolygon fills a closed polygon and strokes its outline.
	DrawPolygon(points []Point, fill, stroke color.Color, strokeWidth float64)

	// ToImage returns the canvas as an image.Image.
	ToImage() image.Image
}

// Point is a position in canvas coordinates.
type Point struct {
	X float64
	Y float64
}

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
	FormatAuto
)
