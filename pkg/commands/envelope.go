package commands

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/eventbus"
	"github.com/user/clipdeck/pkg/render"
)

// Envelope is the wire form of a command.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a {"type", "payload"} envelope.
func Decode(data []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apperr.New(apperr.KindInvalidOptions, "decode command", err)
	}
	return DecodeEnvelope(env)
}

// DecodeEnvelope turns an envelope into its command. A missing payload
// decodes to the zero command.
func DecodeEnvelope(env Envelope) (Command, error) {
	switch env.Type {
	case TypeGetRecordingOptions:
		return payload[GetRecordingOptions](env)
	case TypeSetRecordingOptions:
		return payload[SetRecordingOptions](env)
	case TypeStartRecording:
		return payload[StartRecording](env)
	case TypeStopRecording:
		return payload[StopRecording](env)
	case TypeListCameras:
		return payload[ListCameras](env)
	case TypeListCaptureWindows:
		return payload[ListCaptureWindows](env)
	case TypeListAudioDevices:
		return payload[ListAudioDevices](env)
	case TypeListScreens:
		return payload[ListScreens](env)
	case TypeCheckPermissions:
		return payload[CheckPermissions](env)
	case TypeListRecordings:
		return payload[ListRecordings](env)
	case TypeGetRecordingMeta:
		return payload[GetRecordingMeta](env)
	case TypeGetVideoMetadata:
		return payload[GetVideoMetadata](env)
	case TypeRenderToFile:
		return payload[RenderToFile](env)
	case TypeGetRenderedVideo:
		return payload[GetRenderedVideo](env)
	case TypeCopyRenderedVideo:
		return payload[CopyRenderedVideo](env)
	case TypeCreateEditor:
		return payload[CreateEditor](env)
	case TypeGetEditor:
		return payload[GetEditor](env)
	case TypeCloseEditor:
		return payload[CloseEditor](env)
	case TypeSaveProject:
		return payload[SaveProject](env)
	case TypeSetProjectConfig:
		return payload[SetProjectConfig](env)
	case TypeStartPlayback:
		return payload[StartPlayback](env)
	case TypeStopPlayback:
		return payload[StopPlayback](env)
	case TypeSetPlayhead:
		return payload[SetPlayhead](env)
	case TypeDeleteRecording:
		return payload[DeleteRecording](env)
	case "":
		return nil, apperr.Newf(apperr.KindInvalidOptions, "decode command", "missing command type")
	}
	return nil, apperr.Newf(apperr.KindInvalidOptions, "decode command", "unknown command %q", env.Type)
}

func payload[T Command](env Envelope) (Command, error) {
	var cmd T
	raw := bytes.TrimSpace(env.Payload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return cmd, nil
	}
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return nil, apperr.New(apperr.KindInvalidOptions, "decode "+env.Type, err)
	}
	return cmd, nil
}

// Encode writes cmd as an envelope.
func Encode(cmd Command) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: Type(cmd), Payload: data})
}

// ErrorBody is the wire form of a failed command.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Frame   *int   `json:"frame,omitempty"`
}

// NewErrorBody describes err. Errors outside the taxonomy report kind
// "Internal".
func NewErrorBody(err error) *ErrorBody {
	body := &ErrorBody{Kind: string(apperr.KindOf(err)), Message: err.Error()}
	if body.Kind == "" {
		body.Kind = "Internal"
	}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Frame >= 0 && ae.Err != nil {
		frame := ae.Frame
		body.Frame = &frame
	}
	return body
}

// Response is the wire form of a finished command. Exactly one of Result
// and Error is set.
type Response struct {
	Result any        `json:"result,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// NewResponse builds the response of a dispatched command.
func NewResponse(result any, err error) Response {
	if err != nil {
		return Response{Error: NewErrorBody(err)}
	}
	if result == nil {
		result = struct{}{}
	}
	return Response{Result: result}
}

// EventEnvelope is the wire form of a bus event.
type EventEnvelope struct {
	Type    string         `json:"type"`
	Payload eventbus.Event `json:"payload"`
}

// WrapEvent builds the envelope of e.
func WrapEvent(e eventbus.Event) EventEnvelope {
	return EventEnvelope{Type: e.EventType(), Payload: e}
}

// ProgressMessage carries one render progress event.
type ProgressMessage struct {
	Progress render.Progress
}

func (m ProgressMessage) MarshalJSON() ([]byte, error) {
	return render.MarshalProgress(m.Progress)
}
