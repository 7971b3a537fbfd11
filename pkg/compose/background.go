package compose

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"sync"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/ports"
	"github.com/user/clipdeck/pkg/project"
)

// builtinWallpapers are drawn as gradients when no wallpaper file exists.
var builtinWallpapers = map[string]project.GradientSource{
	"sequoia":  {From: [3]uint8{22, 41, 84}, To: [3]uint8{214, 110, 70}, Angle: 120},
	"sonoma":   {From: [3]uint8{38, 99, 72}, To: [3]uint8{236, 196, 120}, Angle: 60},
	"ventura":  {From: [3]uint8{250, 140, 40}, To: [3]uint8{120, 40, 160}, Angle: 90},
	"monterey": {From: [3]uint8{70, 40, 170}, To: [3]uint8{240, 90, 120}, Angle: 135},
	"midnight": {From: [3]uint8{10, 12, 30}, To: [3]uint8{40, 50, 90}, Angle: 90},
}

// WallpaperIDs returns the ids of the built-in wallpapers.
func WallpaperIDs() []string {
	ids := make([]string, 0, len(builtinWallpapers))
	for id := range builtinWallpapers {
		ids = append(ids, id)
	}
	return ids
}

const maxCachedBackgrounds = 8

// BackgroundLoader prepares image and wallpaper backgrounds at output size,
// cover-scaled and blurred. Results are cached so a running job or a
// playing editor never reloads per frame.
type BackgroundLoader struct {
	renderer      ports.Renderer
	fs            ports.FileSystem
	wallpapersDir string

	mu    sync.Mutex
	cache map[string]image.Image
	order []string
}

// NewBackgroundLoader creates a loader. wallpapersDir may be empty.
func NewBackgroundLoader(renderer ports.Renderer, fs ports.FileSystem, wallpapersDir string) *BackgroundLoader {
	return &BackgroundLoader{
		renderer:      renderer,
		fs:            fs,
		wallpapersDir: wallpapersDir,
		cache:         make(map[string]image.Image),
	}
}

// Load returns the background image for bg at w x h, or nil for colour and
// gradient sources, which the compositor draws directly.
func (l *BackgroundLoader) Load(bg project.BackgroundConfiguration, w, h int) (image.Image, error) {
	var key string
	switch src := bg.Source.(type) {
	case project.ImageSource:
		key = "image:" + src.Path
	case project.WallpaperSource:
		key = "wallpaper:" + src.ID
	case project.ColorSource, project.GradientSource, nil:
		return nil, nil
	}
	key = fmt.Sprintf("%s@%dx%d/blur%.1f", key, w, h, bg.Blur)

	l.mu.Lock()
	if img, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return img, nil
	}
	l.mu.Unlock()

	img, err := l.load(bg.Source, w, h)
	if err != nil {
		return nil, err
	}
	if r := blurRadius(bg.Blur, w, h); r > 0 {
		img = l.renderer.BlurImage(img, r)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cache[key]; !ok {
		l.order = append(l.order, key)
		if len(l.order) > maxCachedBackgrounds {
			delete(l.cache, l.order[0])
			l.order = l.order[1:]
		}
	}
	l.cache[key] = img
	return img, nil
}

func (l *BackgroundLoader) load(src project.BackgroundSource, w, h int) (image.Image, error) {
	switch s := src.(type) {
	case project.ImageSource:
		return l.loadFile(s.Path, w, h)
	case project.WallpaperSource:
		if l.wallpapersDir != "" {
			for _, ext := range []string{".jpg", ".jpeg", ".png"} {
				path := filepath.Join(l.wallpapersDir, s.ID+ext)
				if ok, _ := l.fs.Exists(path); ok {
					return l.loadFile(path, w, h)
				}
			}
		}
		grad, ok := builtinWallpapers[s.ID]
		if !ok {
			return nil, apperr.Newf(apperr.KindRenderFailed, "load wallpaper", "unknown wallpaper %q", s.ID)
		}
		canvas := l.renderer.CreateCanvas(w, h, color.Black)
		canvas.FillLinearGradient(0, 0, w, h, rgb(grad.From), rgb(grad.To), grad.Angle)
		return canvas.ToImage(), nil
	}
	return nil, fmt.Errorf("unsupported background source %T", src)
}

func (l *BackgroundLoader) loadFile(path string, w, h int) (image.Image, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, apperr.New(apperr.KindRenderFailed, "load background", err)
	}
	img, err := l.renderer.DecodeImage(data, ports.FormatAuto)
	if err != nil {
		return nil, apperr.New(apperr.KindRenderFailed, "decode background", fmt.Errorf("%s: %w", path, err))
	}
	return l.cover(img, w, h), nil
}

// cover scales img to fill w x h and crops the overflow around the center.
func (l *BackgroundLoader) cover(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return img
	}
	s := math.Max(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	sw := int(math.Ceil(float64(b.Dx()) * s))
	sh := int(math.Ceil(float64(b.Dy()) * s))
	scaled := l.renderer.ResizeImage(img, sw, sh)
	x, y := (sw-w)/2, (sh-h)/2
	return l.renderer.CropImage(scaled, image.Rect(x, y, x+w, y+h))
}

// blurRadius maps Blur (0-100) to pixels: 100 is a sixteenth of the
// shorter side.
func blurRadius(blur float64, w, h int) int {
	return int(math.Round(blur / 100 * float64(minInt(w, h)) / 16))
}
