package ggrenderer

import (
	"image"
	"image/color"
	"testing"

	"github.com/user/clipdeck/pkg/ports"
)

func TestRenderer_CreateCanvas(t *testing.T) {
	r := New()

	canvas := r.CreateCanvas(100, 100, color.White)
	if canvas == nil {
		t.Fatal("expected canvas to be created")
	}

	img := canvas.ToImage()
	bounds := img.Bounds()

	if bounds.Dx() != 100 || bounds.Dy() != 100 {
		t.Errorf("expected 100x100, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestRenderer_EncodeDecodeJPEG(t *testing.T) {
	r := New()

	// Create test image
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	// Encode
	data, err := r.EncodeImage(img, ports.FormatJPEG, 80)
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty data")
	}

	// Decode
	decoded, err := r.DecodeImage(data, ports.FormatJPEG)
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dx() != 50 || bounds.Dy() != 50 {
		t.Errorf("expected 50x50, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestRenderer_EncodeDecodePNG(t *testing.T) {
	r := New()

	img := image.NewRGBA(image.Rect(0, 0, 30, 30))

	// Encode
	data, err := r.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}

	// Decode
	decoded, err := r.DecodeImage(data, ports.FormatPNG)
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dx() != 30 || bounds.Dy() != 30 {
		t.Errorf("expected 30x30, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestRenderer_ResizeImage(t *testing.T) {
	r := New()

	// Create 100x100 image
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))

	// Resize to 50x50
	resized := r.ResizeImage(img, 50, 50)

	bounds := resized.Bounds()
	if bounds.Dx() != 50 || bounds.Dy() != 50 {
		t.Errorf("expected 50x50, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestCanvas_DrawRect(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(100, 100, color.White)

	// Draw red rectangle
	canvas.DrawRect(10, 10, 30, 30, color.RGBA{R: 255, A: 255})

	img := canvas.ToImage()

	// Check that pixel inside rectangle is red
	c := img.At(20, 20)
	red, _, _, _ := c.RGBA()
	if red == 0 {
		t.Error("expected red pixel inside rectangle")
	}
}

func TestCanvas_DrawImage(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(100, 100, color.White)

	// Create small red image
	small := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			small.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	// Draw at position (10, 10)
	canvas.DrawImage(small, 10, 10)

	img := canvas.ToImage()

	// Check pixel at (15, 15) should be red
	c := img.At(15, 15)
	red, _, _, _ := c.RGBA()
	if red == 0 {
		t.Error("expected red pixel from drawn image")
	}
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestRenderer_CropImage(t *testing.T) {
	r := New()

	img := solid(100, 50, color.RGBA{A: 255})
	img.SetRGBA(60, 20, color.RGBA{R: 255, A: 255})

	cropped := r.CropImage(img, image.Rect(50, 10, 90, 40))
	b := cropped.Bounds()
	if b.Min != (image.Point{}) || b.Dx() != 40 || b.Dy() != 30 {
		t.Fatalf("expected 40x30 at origin, got %v", b)
	}
	red, _, _, _ := cropped.At(10, 10).RGBA()
	if red == 0 {
		t.Error("expected marker pixel to move with the crop origin")
	}

	// Out-of-bounds crops are clamped.
	clamped := r.CropImage(img, image.Rect(80, 0, 200, 80))
	if clamped.Bounds().Dx() != 20 || clamped.Bounds().Dy() != 50 {
		t.Errorf("expected 20x50 after clamping, got %v", clamped.Bounds())
	}
}

func TestRenderer_FlipHorizontal(t *testing.T) {
	r := New()

	img := solid(10, 2, color.RGBA{A: 255})
	img.SetRGBA(0, 0, color.RGBA{G: 255, A: 255})

	flipped := r.FlipHorizontal(img)
	_, g, _, _ := flipped.At(9, 0).RGBA()
	if g == 0 {
		t.Error("expected left pixel to appear on the right")
	}
	_, g, _, _ = flipped.At(0, 0).RGBA()
	if g != 0 {
		t.Error("expected left edge to be black after flip")
	}
}

func TestRenderer_BlurImage(t *testing.T) {
	r := New()

	img := solid(21, 21, color.RGBA{A: 255})
	img.SetRGBA(10, 10, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	blurred := r.BlurImage(img, 2).(*image.RGBA)
	center := blurred.RGBAAt(10, 10).R
	near := blurred.RGBAAt(12, 10).R
	if center == 255 || center == 0 {
		t.Errorf("expected the bright pixel to spread, center=%d", center)
	}
	if near == 0 {
		t.Error("expected neighbours to pick up brightness")
	}
	if blurred.RGBAAt(0, 0).R != 0 {
		t.Error("expected far corner to stay dark")
	}

	if r.BlurImage(img, 0).Bounds() != img.Bounds() {
		t.Error("zero radius should keep bounds")
	}
}

func TestCanvas_DrawImageRounded(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(100, 100, color.White)

	canvas.DrawImageRounded(solid(10, 10, color.RGBA{B: 255, A: 255}), 0, 0, 100, 100, 30)
	img := canvas.ToImage()

	// Corner is clipped away, center is covered.
	cr, cg, cb, _ := img.At(1, 1).RGBA()
	if cr != 65535 || cg != 65535 || cb != 65535 {
		t.Error("expected corner outside the rounded clip to stay white")
	}
	red, _, blue, _ := img.At(50, 50).RGBA()
	if red != 0 || blue == 0 {
		t.Error("expected image pixel in the center")
	}
}

func TestCanvas_FillLinearGradient(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(100, 10, color.White)

	canvas.FillLinearGradient(0, 0, 100, 10, color.Black, color.White, 0)
	img := canvas.ToImage()

	left, _, _, _ := img.At(2, 5).RGBA()
	right, _, _, _ := img.At(97, 5).RGBA()
	if left >= right {
		t.Errorf("expected gradient to brighten left to right, got %d >= %d", left, right)
	}
}

func TestCanvas_DrawShadowAndShapes(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(100, 100, color.White)

	canvas.DrawShadow(30, 30, 40, 40, 5, 10, 0.6)
	canvas.DrawCircle(50, 50, 5, color.RGBA{R: 255, A: 255})
	canvas.DrawPolygon([]ports.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}},
		color.Black, color.White, 1)

	img := canvas.ToImage()

	sr, _, _, _ := img.At(25, 50).RGBA()
	if sr == 65535 {
		t.Error("expected shadow to darken pixels next to the rectangle")
	}
	red, g, _, _ := img.At(50, 50).RGBA()
	if red == 0 || g != 0 {
		t.Error("expected red circle in the center")
	}
	pr, _, _, _ := img.At(3, 3).RGBA()
	if pr == 65535 {
		t.Error("expected polygon fill near the origin")
	}
}
