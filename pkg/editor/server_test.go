package editor

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/user/clipdeck/pkg/adapters/logger"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial %s failed: %v", url, err)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("expected a binary message, got %d", kind)
	}
	return data
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStreamServer_SendsFrames(t *testing.T) {
	hub := NewStreamHub(4)
	srv, err := NewStreamServer(hub, "127.0.0.1", logger.NewNoop())
	if err != nil {
		t.Fatalf("NewStreamServer failed: %v", err)
	}
	defer srv.Close()
	if !strings.HasPrefix(srv.URL(), "ws://127.0.0.1:") {
		t.Errorf("unexpected url %q", srv.URL())
	}

	hub.Publish(solidFrame(3, 5, 2))
	conn := dial(t, srv.URL())
	defer conn.Close()

	img, err := DecodeFrame(readFrame(t, conn))
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if img.Bounds().Dx() != 5 || img.Bounds().Dy() != 2 || img.Pix[0] != 3 {
		t.Errorf("unexpected frame %v, first byte %d", img.Bounds(), img.Pix[0])
	}

	hub.Publish(solidFrame(4, 5, 2))
	img, err = DecodeFrame(readFrame(t, conn))
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if img.Pix[0] != 4 {
		t.Errorf("expected the second frame, got first byte %d", img.Pix[0])
	}
}

func TestStreamServer_CloseDisconnects(t *testing.T) {
	hub := NewStreamHub(4)
	srv, err := NewStreamServer(hub, "127.0.0.1", logger.NewNoop())
	if err != nil {
		t.Fatalf("NewStreamServer failed: %v", err)
	}
	conn := dial(t, srv.URL())
	defer conn.Close()

	waitFor(t, "the consumer to subscribe", func() bool { return hub.Subscribers() == 1 })
	if err := srv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed")
	}
	if hub.Subscribers() != 0 {
		t.Errorf("expected the subscriber to be removed, got %d", hub.Subscribers())
	}
}

func TestStreamServer_RejectsPlainHTTP(t *testing.T) {
	hub := NewStreamHub(4)
	srv, err := NewStreamServer(hub, "127.0.0.1", logger.NewNoop())
	if err != nil {
		t.Fatalf("NewStreamServer failed: %v", err)
	}
	defer srv.Close()

	resp, err := http.Get("http://" + srv.Addr() + "/frames")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestInstance_StreamsPreviewAndSeek(t *testing.T) {
	f := newFixture(t)
	f.addRecording(t, "rec", 10, 30)
	inst := f.open(t, "rec")

	conn := dial(t, inst.StreamURL())
	defer conn.Close()

	img, err := DecodeFrame(readFrame(t, conn))
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	info := inst.Info()
	if img.Bounds().Dx() != info.Width || img.Bounds().Dy() != info.Height {
		t.Errorf("frame is %v, editor output is %dx%d", img.Bounds(), info.Width, info.Height)
	}

	if err := inst.Seek(6); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if _, err := DecodeFrame(readFrame(t, conn)); err != nil {
		t.Fatalf("DecodeFrame after seek failed: %v", err)
	}

	if err := f.registry.Close("rec"); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected closing the editor to disconnect consumers")
	}
}
