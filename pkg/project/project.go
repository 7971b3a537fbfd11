// Package project defines the composition parameters applied to a
// recording when it is rendered or played back in the editor.
//
// A Configuration is a plain value. Renders work on a Clone so edits made
// while a render runs never reach it.
package project

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/user/clipdeck/pkg/apperr"
)

// AspectRatio fixes the output frame shape. A nil *AspectRatio keeps the
// shape of the (cropped) source.
type AspectRatio string

const (
	AspectWide     AspectRatio = "wide"     // 16:9
	AspectVertical AspectRatio = "vertical" // 9:16
	AspectSquare   AspectRatio = "square"   // 1:1
	AspectClassic  AspectRatio = "classic"  // 4:3
	AspectTall     AspectRatio = "tall"     // 3:4
)

// Ratio returns the width and height terms of the ratio.
func (a AspectRatio) Ratio() (int, int, error) {
	switch a {
	case AspectWide:
		return 16, 9, nil
	case AspectVertical:
		return 9, 16, nil
	case AspectSquare:
		return 1, 1, nil
	case AspectClassic:
		return 4, 3, nil
	case AspectTall:
		return 3, 4, nil
	}
	return 0, 0, fmt.Errorf("unknown aspect ratio %q", a)
}

// Crop selects a rectangle of the display track in source pixels.
type Crop struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BackgroundConfiguration controls what surrounds the display content.
//
// Padding is the gap around the content as a percentage (0-50) of the
// content's shorter side. Rounding is the corner radius as a percentage
// (0-100) of half the shorter side. Inset shrinks the content inside its
// frame by that many source pixels. Blur (0-100) softens image and
// wallpaper backgrounds.
type BackgroundConfiguration struct {
	Source   BackgroundSource `json:"source"`
	Blur     float64          `json:"blur"`
	Padding  float64          `json:"padding"`
	Rounding float64          `json:"rounding"`
	Inset    int              `json:"inset"`
	Crop     *Crop            `json:"crop"`
}

// HorizontalPosition places the camera overlay horizontally.
type HorizontalPosition string

const (
	Left   HorizontalPosition = "left"
	Center HorizontalPosition = "center"
	Right  HorizontalPosition = "right"
)

// VerticalPosition places the camera overlay vertically.
type VerticalPosition string

const (
	Top    VerticalPosition = "top"
	Bottom VerticalPosition = "bottom"
)

// CameraPosition anchors the camera overlay to an edge of the output.
type CameraPosition struct {
	X HorizontalPosition `json:"x"`
	Y VerticalPosition   `json:"y"`
}

// CameraConfiguration controls the camera overlay. Size is the overlay's
// shorter side as a percentage (5-100) of the output's shorter side divided
// by two; Rounding (0-100) runs from square to circle; Shadow (0-100) is the
// shadow strength.
type CameraConfiguration struct {
	Hide     bool           `json:"hide"`
	Mirror   bool           `json:"mirror"`
	Position CameraPosition `json:"position"`
	Rounding float64        `json:"rounding"`
	Shadow   float64        `json:"shadow"`
	Size     float64        `json:"size"`
}

// AudioConfiguration controls the audio treatment.
type AudioConfiguration struct {
	Mute    bool `json:"mute"`
	Improve bool `json:"improve"`
}

// CursorType selects how the cursor is drawn.
type CursorType string

const (
	CursorPointer CursorType = "pointer"
	CursorCircle  CursorType = "circle"
)

// CursorConfiguration controls the cursor overlay. Size is a percentage
// (10-500) of the default cursor size.
type CursorConfiguration struct {
	HideWhenIdle bool       `json:"hideWhenIdle"`
	Size         float64    `json:"size"`
	Type         CursorType `json:"type"`
}

// Configuration is the full set of composition parameters.
type Configuration struct {
	AspectRatio *AspectRatio            `json:"aspectRatio"`
	Background  BackgroundConfiguration `json:"background"`
	Camera      CameraConfiguration     `json:"camera"`
	Audio       AudioConfiguration      `json:"audio"`
	Cursor      CursorConfiguration     `json:"cursor"`
}

// Default returns the configuration used for a recording that was never
// edited.
func Default() *Configuration {
	return &Configuration{
		Background: BackgroundConfiguration{
			Source: ColorSource{Value: [3]uint8{255, 255, 255}},
		},
		Camera: CameraConfiguration{
			Position: CameraPosition{X: Right, Y: Bottom},
			Rounding: 100,
			Shadow:   60,
			Size:     30,
		},
		Cursor: CursorConfiguration{
			Size: 100,
			Type: CursorPointer,
		},
	}
}

// Clone returns a deep copy.
func (c *Configuration) Clone() *Configuration {
	out := *c
	if c.AspectRatio != nil {
		a := *c.AspectRatio
		out.AspectRatio = &a
	}
	if c.Background.Crop != nil {
		crop := *c.Background.Crop
		out.Background.Crop = &crop
	}
	// Background sources are immutable values.
	return &out
}

// Validate checks every field range. Errors are InvalidOptions.
func (c *Configuration) Validate() error {
	if c.AspectRatio != nil {
		if _, _, err := c.AspectRatio.Ratio(); err != nil {
			return invalid(err)
		}
	}

	bg := c.Background
	if err := validateSource(bg.Source); err != nil {
		return invalid(err)
	}
	if err := inRange("background.blur", bg.Blur, 0, 100); err != nil {
		return err
	}
	if err := inRange("background.padding", bg.Padding, 0, 50); err != nil {
		return err
	}
	if err := inRange("background.rounding", bg.Rounding, 0, 100); err != nil {
		return err
	}
	if bg.Inset < 0 {
		return invalid(fmt.Errorf("background.inset must not be negative"))
	}
	if crop := bg.Crop; crop != nil {
		if crop.X < 0 || crop.Y < 0 || crop.Width <= 0 || crop.Height <= 0 {
			return invalid(fmt.Errorf("background.crop %+v is empty or negative", *crop))
		}
	}

	cam := c.Camera
	switch cam.Position.X {
	case Left, Center, Right:
	default:
		return invalid(fmt.Errorf("camera.position.x %q", cam.Position.X))
	}
	switch cam.Position.Y {
	case Top, Bottom:
	default:
		return invalid(fmt.Errorf("camera.position.y %q", cam.Position.Y))
	}
	if err := inRange("camera.size", cam.Size, 5, 100); err != nil {
		return err
	}
	if err := inRange("camera.rounding", cam.Rounding, 0, 100); err != nil {
		return err
	}
	if err := inRange("camera.shadow", cam.Shadow, 0, 100); err != nil {
		return err
	}

	switch c.Cursor.Type {
	case CursorPointer, CursorCircle:
	default:
		return invalid(fmt.Errorf("cursor.type %q", c.Cursor.Type))
	}
	return inRange("cursor.size", c.Cursor.Size, 10, 500)
}

// ValidateCrop checks that the crop fits a source of the given size.
func (c *Configuration) ValidateCrop(width, height int) error {
	crop := c.Background.Crop
	if crop == nil {
		return nil
	}
	if crop.X+crop.Width > width || crop.Y+crop.Height > height {
		return invalid(fmt.Errorf("background.crop %+v exceeds the %dx%d source", *crop, width, height))
	}
	return nil
}

// Key returns a stable digest of the configuration, used with the
// recording id to address cached renders.
func (c *Configuration) Key() string {
	data, err := json.Marshal(c)
	if err != nil {
		// Only an unknown BackgroundSource implementation can fail, and
		// Validate rejects those.
		data = []byte(fmt.Sprintf("%#v", c))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func inRange(field string, v, lo, hi float64) error {
	if v < lo || v > hi {
		return invalid(fmt.Errorf("%s %v outside [%v, %v]", field, v, lo, hi))
	}
	return nil
}

func invalid(err error) error {
	return apperr.New(apperr.KindInvalidOptions, "validate project", err)
}

// UnmarshalJSON decodes over Default, so a partial document names only the
// fields it changes.
func (c *Configuration) UnmarshalJSON(data []byte) error {
	type plain Configuration
	p := plain(*Default())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Configuration(p)
	return nil
}

// Parse decodes a configuration. Fields missing from data keep their
// Default values; the result is validated.
func Parse(data []byte) (*Configuration, error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, invalid(fmt.Errorf("decode project: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes the configuration as indented JSON.
func (c *Configuration) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
