package render

import (
	"encoding/json"
	"fmt"
)

// Progress is one event of a render job. It is one of Starting,
// EstimatedTotalFrames or FrameRendered.
type Progress interface {
	progressType() string
}

// Starting is emitted first, with the frame count estimated from the
// recording metadata.
type Starting struct {
	TotalFrames int `json:"totalFrames"`
}

// EstimatedTotalFrames revises the total after the source tracks were read.
type EstimatedTotalFrames struct {
	TotalFrames int `json:"totalFrames"`
}

// FrameRendered reports that frame CurrentFrame was written to the output.
type FrameRendered struct {
	CurrentFrame int `json:"currentFrame"`
}

func (Starting) progressType() string             { return "Starting" }
func (EstimatedTotalFrames) progressType() string { return "EstimatedTotalFrames" }
func (FrameRendered) progressType() string        { return "FrameRendered" }

// ProgressFunc receives the events of one render in order.
type ProgressFunc func(Progress)

// MarshalProgress encodes p as {"type": "...", ...fields}.
func MarshalProgress(p Progress) ([]byte, error) {
	switch v := p.(type) {
	case Starting:
		return json.Marshal(struct {
			Type string `json:"type"`
			Starting
		}{v.progressType(), v})
	case EstimatedTotalFrames:
		return json.Marshal(struct {
			Type string `json:"type"`
			EstimatedTotalFrames
		}{v.progressType(), v})
	case FrameRendered:
		return json.Marshal(struct {
			Type string `json:"type"`
			FrameRendered
		}{v.progressType(), v})
	}
	return nil, fmt.Errorf("unknown progress event %T", p)
}

// UnmarshalProgress decodes an event written by MarshalProgress.
func UnmarshalProgress(data []byte) (Progress, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case "Starting":
		var v Starting
		err := json.Unmarshal(data, &v)
		return v, err
	case "EstimatedTotalFrames":
		var v EstimatedTotalFrames
		err := json.Unmarshal(data, &v)
		return v, err
	case "FrameRendered":
		var v FrameRendered
		err := json.Unmarshal(data, &v)
		return v, err
	}
	return nil, fmt.Errorf("unknown progress type %q", tag.Type)
}

// Total returns the frame count announced by p, or -1 for FrameRendered.
func Total(p Progress) int {
	switch v := p.(type) {
	case Starting:
		return v.TotalFrames
	case EstimatedTotalFrames:
		return v.TotalFrames
	case FrameRendered:
		return -1
	}
	return -1
}
