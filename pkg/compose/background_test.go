package compose

import (
	"image"
	"testing"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/mocks"
	"github.com/user/clipdeck/pkg/ports"
	"github.com/user/clipdeck/pkg/project"
)

func TestBackgroundLoader_DirectSources(t *testing.T) {
	l := NewBackgroundLoader(&mocks.Renderer{}, mocks.NewFileSystem(), "")
	for _, src := range []project.BackgroundSource{
		project.ColorSource{Value: [3]uint8{1, 2, 3}},
		project.GradientSource{},
	} {
		img, err := l.Load(project.BackgroundConfiguration{Source: src}, 100, 100)
		if err != nil || img != nil {
			t.Errorf("expected nil image for %T, got %v, %v", src, img, err)
		}
	}
}

func TestBackgroundLoader_BuiltinWallpaperIsCached(t *testing.T) {
	r := &mocks.Renderer{}
	l := NewBackgroundLoader(r, mocks.NewFileSystem(), "")
	bg := project.BackgroundConfiguration{Source: project.WallpaperSource{ID: "sonoma"}}

	first, err := l.Load(bg, 64, 36)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := l.Load(bg, 64, 36)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if first != second {
		t.Error("expected the cached image on the second load")
	}
	if len(r.Canvases) != 1 {
		t.Errorf("expected one gradient canvas, got %d", len(r.Canvases))
	}
	if n := len(r.Canvases[0].OpsNamed("FillLinearGradient")); n != 1 {
		t.Errorf("expected the wallpaper gradient, got %d fills", n)
	}
}

func TestBackgroundLoader_UnknownWallpaper(t *testing.T) {
	l := NewBackgroundLoader(&mocks.Renderer{}, mocks.NewFileSystem(), "")
	_, err := l.Load(project.BackgroundConfiguration{Source: project.WallpaperSource{ID: "nope"}}, 10, 10)
	if apperr.KindOf(err) != apperr.KindRenderFailed {
		t.Errorf("expected RenderFailed, got %v", err)
	}
}

func TestBackgroundLoader_WallpaperFile(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFile("/wallpapers/sonoma.png", []byte("png"))
	decoded := 0
	r := &mocks.Renderer{
		DecodeImageFunc: func(data []byte, format ports.ImageFormat) (image.Image, error) {
			decoded++
			return image.NewRGBA(image.Rect(0, 0, 200, 100)), nil
		},
	}
	l := NewBackgroundLoader(r, fs, "/wallpapers")
	img, err := l.Load(project.BackgroundConfiguration{Source: project.WallpaperSource{ID: "sonoma"}}, 100, 100)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if decoded != 1 {
		t.Errorf("expected the wallpaper file to be decoded, got %d decodes", decoded)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
		t.Errorf("expected a 100x100 cover crop, got %v", b)
	}
}

func TestBackgroundLoader_ImageSource(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFile("/img/bg.jpg", []byte("jpg"))
	l := NewBackgroundLoader(&mocks.Renderer{}, fs, "")

	img, err := l.Load(project.BackgroundConfiguration{Source: project.ImageSource{Path: "/img/bg.jpg"}, Blur: 50}, 80, 40)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 80 || b.Dy() != 40 {
		t.Errorf("expected an 80x40 background, got %v", b)
	}

	_, err = l.Load(project.BackgroundConfiguration{Source: project.ImageSource{Path: "/img/missing.jpg"}}, 80, 40)
	if apperr.KindOf(err) != apperr.KindRenderFailed {
		t.Errorf("expected RenderFailed for a missing image, got %v", err)
	}
}

func TestBackgroundLoader_Eviction(t *testing.T) {
	r := &mocks.Renderer{}
	l := NewBackgroundLoader(r, mocks.NewFileSystem(), "")
	bg := project.BackgroundConfiguration{Source: project.WallpaperSource{ID: "midnight"}}
	for i := 0; i <= maxCachedBackgrounds; i++ {
		if _, err := l.Load(bg, 10+i, 10); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
	}
	if _, err := l.Load(bg, 10, 10); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if want := maxCachedBackgrounds + 2; len(r.Canvases) != want {
		t.Errorf("expected the oldest entry to be evicted and rebuilt (%d canvases), got %d", want, len(r.Canvases))
	}
}
