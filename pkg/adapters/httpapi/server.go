// Package httpapi exposes the command surface over HTTP and websocket for
// front-ends running in another process.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/commands"
	"github.com/user/clipdeck/pkg/eventbus"
	"github.com/user/clipdeck/pkg/ports"
)

const maxCommandSize = 4 << 20

// Server routes front-end requests to a dispatcher.
type Server struct {
	dispatcher *commands.Dispatcher
	bus        *eventbus.Bus
	logger     ports.Logger
	version    string
	engine     *gin.Engine

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	conns  sync.WaitGroup
}

// New creates a server for svc. Bus events are forwarded to websocket
// clients.
func New(svc commands.Service, bus *eventbus.Bus, logger ports.Logger, version string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		dispatcher: commands.NewDispatcher(svc),
		bus:        bus,
		logger:     logger.WithComponent("http"),
		version:    version,
		ctx:        ctx,
		cancel:     cancel,
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	api := s.engine.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/commands", s.command)
		api.GET("/ws", s.serveWS)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve accepts connections on ln until ctx is done, then disconnects
// every websocket client.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Debug("Listening on %s", ln.Addr())

	var err error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Close()
		err = srv.Shutdown(shutdownCtx)
	case err = <-errCh:
		s.Close()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close disconnects websocket clients and waits for their handlers.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.conns.Wait()
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

func (s *Server) command(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCommandSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, commands.NewResponse(nil, apperr.New(apperr.KindIOFailure, "read command", err)))
		return
	}
	cmd, err := commands.Decode(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, commands.NewResponse(nil, err))
		return
	}

	result, err := s.dispatcher.Dispatch(c.Request.Context(), cmd, nil)
	if err != nil {
		s.logger.Debug("Command %s failed: %v", commands.Type(cmd), err)
		c.JSON(statusOf(err), commands.NewResponse(nil, err))
		return
	}
	c.JSON(http.StatusOK, commands.NewResponse(result, nil))
}

// statusOf maps an error kind to an HTTP status.
func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidOptions:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindPermissionDenied:
		return http.StatusForbidden
	case apperr.KindSessionActive, apperr.KindDeviceBusy:
		return http.StatusConflict
	case apperr.KindDeviceUnavailable:
		return http.StatusServiceUnavailable
	case apperr.KindCancelled:
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}
