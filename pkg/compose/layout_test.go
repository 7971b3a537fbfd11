package compose

import (
	"image"
	"testing"

	"github.com/user/clipdeck/pkg/project"
)

func aspect(a project.AspectRatio) *project.AspectRatio { return &a }

func TestComputeLayout_Sizes(t *testing.T) {
	tests := []struct {
		name          string
		displayW      int
		displayH      int
		mutate        func(*project.Configuration)
		wantW, wantH  int
		wantFrame     image.Rectangle
		wantPaddingPx int
	}{
		{
			name:      "plain source",
			displayW:  320,
			displayH:  180,
			wantW:     320,
			wantH:     180,
			wantFrame: image.Rect(0, 0, 320, 180),
		},
		{
			name:      "odd source rounds up to even",
			displayW:  321,
			displayH:  181,
			wantW:     322,
			wantH:     182,
			wantFrame: image.Rect(0, 0, 321, 181),
		},
		{
			name:          "padding on every side",
			displayW:      320,
			displayH:      180,
			mutate:        func(c *project.Configuration) { c.Background.Padding = 10 },
			wantW:         356,
			wantH:         216,
			wantFrame:     image.Rect(18, 18, 338, 198),
			wantPaddingPx: 18,
		},
		{
			name:      "square grows height",
			displayW:  320,
			displayH:  180,
			mutate:    func(c *project.Configuration) { c.AspectRatio = aspect(project.AspectSquare) },
			wantW:     320,
			wantH:     320,
			wantFrame: image.Rect(0, 70, 320, 250),
		},
		{
			name:      "vertical grows height and stays even",
			displayW:  320,
			displayH:  180,
			mutate:    func(c *project.Configuration) { c.AspectRatio = aspect(project.AspectVertical) },
			wantW:     320,
			wantH:     570,
			wantFrame: image.Rect(0, 195, 320, 375),
		},
		{
			name:      "wide grows width of a tall source",
			displayW:  90,
			displayH:  160,
			mutate:    func(c *project.Configuration) { c.AspectRatio = aspect(project.AspectWide) },
			wantW:     286,
			wantH:     160,
			wantFrame: image.Rect(98, 0, 188, 160),
		},
		{
			name:     "crop selects the shown area",
			displayW: 320,
			displayH: 180,
			mutate: func(c *project.Configuration) {
				c.Background.Crop = &project.Crop{X: 10, Y: 20, Width: 100, Height: 50}
			},
			wantW:     100,
			wantH:     50,
			wantFrame: image.Rect(0, 0, 100, 50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := project.Default()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			l := ComputeLayout(tt.displayW, tt.displayH, 0, 0, cfg)
			if l.Width != tt.wantW || l.Height != tt.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, l.Width, l.Height)
			}
			if l.Width%2 != 0 || l.Height%2 != 0 {
				t.Errorf("expected even dimensions, got %dx%d", l.Width, l.Height)
			}
			if l.Frame != tt.wantFrame {
				t.Errorf("expected frame %v, got %v", tt.wantFrame, l.Frame)
			}
			if l.Padding != tt.wantPaddingPx {
				t.Errorf("expected padding %d, got %d", tt.wantPaddingPx, l.Padding)
			}
			if !l.Camera.Empty() {
				t.Errorf("expected no camera rect without a camera track, got %v", l.Camera)
			}
		})
	}
}

func TestComputeLayout_CropClampedToSource(t *testing.T) {
	cfg := project.Default()
	cfg.Background.Crop = &project.Crop{X: 300, Y: 100, Width: 100, Height: 100}
	l := ComputeLayout(320, 180, 0, 0, cfg)
	if want := image.Rect(300, 100, 320, 180); l.Crop != want {
		t.Errorf("expected crop %v, got %v", want, l.Crop)
	}
}

func TestComputeLayout_Camera(t *testing.T) {
	tests := []struct {
		x    project.HorizontalPosition
		y    project.VerticalPosition
		want image.Rectangle
	}{
		{project.Right, project.Bottom, image.Rect(279, 148, 315, 175)},
		{project.Left, project.Top, image.Rect(5, 5, 41, 32)},
		{project.Center, project.Bottom, image.Rect(142, 148, 178, 175)},
	}
	for _, tt := range tests {
		t.Run(string(tt.x)+"-"+string(tt.y), func(t *testing.T) {
			cfg := project.Default()
			cfg.Camera.Position = project.CameraPosition{X: tt.x, Y: tt.y}
			l := ComputeLayout(320, 180, 160, 120, cfg)
			if l.Camera != tt.want {
				t.Errorf("expected camera at %v, got %v", tt.want, l.Camera)
			}
			// Rounding 100 is a circle on the shorter side.
			if l.CameraRadius != 13.5 {
				t.Errorf("expected camera radius 13.5, got %v", l.CameraRadius)
			}
		})
	}
}

func TestComputeLayout_HiddenCamera(t *testing.T) {
	cfg := project.Default()
	cfg.Camera.Hide = true
	if l := ComputeLayout(320, 180, 160, 120, cfg); !l.Camera.Empty() {
		t.Errorf("expected no camera rect, got %v", l.Camera)
	}
}

func TestComputeLayout_Inset(t *testing.T) {
	cfg := project.Default()
	cfg.Background.Rounding = 50
	cfg.Background.Inset = 4
	l := ComputeLayout(320, 180, 0, 0, cfg)

	if want := l.Frame.Inset(4); l.Content != want {
		t.Errorf("expected content %v, got %v", want, l.Content)
	}
	if l.Radius != 45 {
		t.Errorf("expected radius 45, got %v", l.Radius)
	}
	if l.ContentRadius != 41 {
		t.Errorf("expected content radius 41, got %v", l.ContentRadius)
	}

	cfg.Background.Inset = 1000
	l = ComputeLayout(320, 180, 0, 0, cfg)
	if l.Content.Empty() {
		t.Error("expected an oversized inset to leave some content")
	}
}

func TestOutputSize(t *testing.T) {
	cfg := project.Default()
	cfg.AspectRatio = aspect(project.AspectClassic)
	w, h := OutputSize(320, 180, cfg)
	if w != 320 || h != 240 {
		t.Errorf("expected 320x240, got %dx%d", w, h)
	}
}
