package project

import (
	"encoding/json"
	"fmt"
)

// BackgroundSource is what fills the area around the content. It is one of
// WallpaperSource, ImageSource, ColorSource or GradientSource.
type BackgroundSource interface {
	sourceType() string
}

// WallpaperSource is a bundled wallpaper, by id.
type WallpaperSource struct {
	ID string `json:"id"`
}

// ImageSource is an image file on disk.
type ImageSource struct {
	Path string `json:"path"`
}

// ColorSource is a solid RGB colour.
type ColorSource struct {
	Value [3]uint8 `json:"value"`
}

// GradientSource is a two-stop linear gradient. Angle is in degrees, 0
// runs left to right and 90 top to bottom.
type GradientSource struct {
	From  [3]uint8 `json:"from"`
	To    [3]uint8 `json:"to"`
	Angle float64  `json:"angle"`
}

func (WallpaperSource) sourceType() string { return "wallpaper" }
func (ImageSource) sourceType() string     { return "image" }
func (ColorSource) sourceType() string     { return "color" }
func (GradientSource) sourceType() string  { return "gradient" }

func validateSource(src BackgroundSource) error {
	switch s := src.(type) {
	case WallpaperSource:
		if s.ID == "" {
			return fmt.Errorf("wallpaper id is empty")
		}
	case ImageSource:
		if s.Path == "" {
			return fmt.Errorf("image path is empty")
		}
	case ColorSource, GradientSource:
	case nil:
		return fmt.Errorf("background source is missing")
	default:
		return fmt.Errorf("unknown background source %T", src)
	}
	return nil
}

// MarshalJSON tags the source with its type:
// {"source": {"type": "color", "value": [r, g, b]}, ...}.
func (b BackgroundConfiguration) MarshalJSON() ([]byte, error) {
	type plain BackgroundConfiguration
	src, err := marshalSource(b.Source)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Source json.RawMessage `json:"source"`
		plain
	}{Source: src, plain: plain(b)})
}

// UnmarshalJSON decodes the tagged source. Fields absent from data keep
// their current values.
func (b *BackgroundConfiguration) UnmarshalJSON(data []byte) error {
	type plain BackgroundConfiguration
	var raw struct {
		Source json.RawMessage `json:"source"`
		plain
	}
	raw.plain = plain(*b)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	prev := b.Source
	*b = BackgroundConfiguration(raw.plain)
	b.Source = prev
	switch {
	case len(raw.Source) == 0:
		return nil
	case string(raw.Source) == "null":
		b.Source = nil
		return nil
	}
	src, err := unmarshalSource(raw.Source)
	if err != nil {
		return err
	}
	b.Source = src
	return nil
}

func marshalSource(src BackgroundSource) (json.RawMessage, error) {
	var body interface{}
	switch s := src.(type) {
	case WallpaperSource:
		body = struct {
			Type string `json:"type"`
			WallpaperSource
		}{"wallpaper", s}
	case ImageSource:
		body = struct {
			Type string `json:"type"`
			ImageSource
		}{"image", s}
	case ColorSource:
		body = struct {
			Type string `json:"type"`
			ColorSource
		}{"color", s}
	case GradientSource:
		body = struct {
			Type string `json:"type"`
			GradientSource
		}{"gradient", s}
	case nil:
		return json.RawMessage("null"), nil
	default:
		return nil, fmt.Errorf("unknown background source %T", src)
	}
	return json.Marshal(body)
}

func unmarshalSource(data []byte) (BackgroundSource, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case "wallpaper":
		var s WallpaperSource
		err := json.Unmarshal(data, &s)
		return s, err
	case "image":
		var s ImageSource
		err := json.Unmarshal(data, &s)
		return s, err
	case "color":
		var s ColorSource
		err := json.Unmarshal(data, &s)
		return s, err
	case "gradient":
		var s GradientSource
		err := json.Unmarshal(data, &s)
		return s, err
	}
	return nil, fmt.Errorf("unknown background source type %q", tag.Type)
}
