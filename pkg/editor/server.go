package editor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/user/clipdeck/pkg/ports"
)

const (
	writeTimeout = 5 * time.Second
	streamPath   = "/frames"
)

var frameUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamServer serves the frames of one hub on ws://host:port/frames. Each
// websocket connection is a hub subscriber and receives one binary message
// per frame (see EncodeFrame).
type StreamServer struct {
	hub      *StreamHub
	listener net.Listener
	server   *http.Server
	logger   ports.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	conns  sync.WaitGroup
}

// NewStreamServer listens on an ephemeral port of host and starts serving.
func NewStreamServer(hub *StreamHub, host string, logger ports.Logger) (*StreamServer, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &StreamServer{
		hub:      hub,
		listener: ln,
		logger:   logger.WithComponent("stream"),
		ctx:      ctx,
		cancel:   cancel,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET(streamPath, s.handleFrames)
	s.server = &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("Frame stream server stopped: %v", err)
		}
	}()
	s.logger.Debug("Serving frames on %s", s.URL())
	return s, nil
}

// Addr is the listening address, host:port.
func (s *StreamServer) Addr() string {
	return s.listener.Addr().String()
}

// URL is the websocket address consumers connect to.
func (s *StreamServer) URL() string {
	return "ws://" + s.Addr() + streamPath
}

func (s *StreamServer) handleFrames(c *gin.Context) {
	if !c.IsWebsocket() {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	s.conns.Add(1)
	s.mu.Unlock()
	defer s.conns.Done()

	conn, err := frameUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	// The consumer never sends anything; reading only detects a close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("Frame consumer connected from %s", conn.RemoteAddr())
	for {
		f, err := sub.Next(ctx)
		if err != nil {
			break
		}
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.BinaryMessage, EncodeFrame(f)); err != nil {
			s.logger.Debug("Frame consumer write failed: %v", err)
			break
		}
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.logger.Debug("Frame consumer disconnected, %d frames dropped", sub.Dropped())
}

// Close stops accepting consumers and disconnects the connected ones.
func (s *StreamServer) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	err := s.server.Close()
	s.conns.Wait()
	return err
}
