package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/commands"
	"github.com/user/clipdeck/pkg/eventbus"
	"github.com/user/clipdeck/pkg/render"
)

const (
	outboxSize   = 256
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// request is a command envelope tagged with a client-chosen id.
type request struct {
	ID string `json:"id"`
	commands.Envelope
}

// message is everything the server sends over the websocket. Replies and
// progress carry the id of their request; events carry none.
type message struct {
	ID       string                    `json:"id,omitempty"`
	Result   any                       `json:"result,omitempty"`
	Error    *commands.ErrorBody       `json:"error,omitempty"`
	Progress *commands.ProgressMessage `json:"progress,omitempty"`
	Event    *commands.EventEnvelope   `json:"event,omitempty"`
}

// client is one websocket connection. A single writer drains the outbox.
type client struct {
	conn   *websocket.Conn
	outbox chan message
	ctx    context.Context
	cancel context.CancelFunc
	s      *Server
}

func (s *Server) serveWS(c *gin.Context) {
	if !c.IsWebsocket() {
		c.JSON(http.StatusBadRequest, commands.NewResponse(nil,
			apperr.Newf(apperr.KindInvalidOptions, "connect", "websocket upgrade required")))
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

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxCommandSize)

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	cl := &client{conn: conn, outbox: make(chan message, outboxSize), ctx: ctx, cancel: cancel, s: s}

	sub := s.bus.SubscribeAll(cl.forward)
	defer s.bus.Unsubscribe(sub)

	go func() {
		defer cancel()
		cl.read()
	}()

	s.logger.Debug("Client connected from %s", conn.RemoteAddr())
	cl.write()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.logger.Debug("Client %s disconnected", conn.RemoteAddr())
}

// forward runs on the publisher goroutine and must not block.
func (cl *client) forward(e eventbus.Event) {
	env := commands.WrapEvent(e)
	select {
	case cl.outbox <- message{Event: &env}:
	default:
		cl.s.logger.Debug("Dropped %s event for a slow client", e.EventType())
	}
}

// send queues a reply or a progress message. It gives up when the client
// has gone.
func (cl *client) send(msg message) bool {
	select {
	case cl.outbox <- msg:
		return true
	case <-cl.ctx.Done():
		return false
	}
}

func (cl *client) read() {
	var running sync.WaitGroup
	defer running.Wait()
	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}
		var req request
		if err := json.Unmarshal(data, &req); err != nil {
			cl.send(message{Error: commands.NewErrorBody(apperr.New(apperr.KindInvalidOptions, "decode command", err))})
			continue
		}
		cmd, err := commands.DecodeEnvelope(req.Envelope)
		if err != nil {
			cl.send(message{ID: req.ID, Error: commands.NewErrorBody(err)})
			continue
		}
		running.Add(1)
		go func() {
			defer running.Done()
			cl.run(req.ID, cmd)
		}()
	}
}

// run dispatches one command. Renders are cancelled when the client goes
// away.
func (cl *client) run(id string, cmd commands.Command) {
	progress := func(p render.Progress) {
		cl.send(message{ID: id, Progress: &commands.ProgressMessage{Progress: p}})
	}
	result, err := cl.s.dispatcher.Dispatch(cl.ctx, cmd, progress)
	resp := commands.NewResponse(result, err)
	cl.send(message{ID: id, Result: resp.Result, Error: resp.Error})
}

func (cl *client) write() {
	for {
		select {
		case <-cl.ctx.Done():
			return
		case msg := <-cl.outbox:
			data, err := json.Marshal(msg)
			if err != nil {
				cl.s.logger.Warn("Encoding a websocket message failed: %v", err)
				continue
			}
			cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				cl.s.logger.Debug("Websocket write failed: %v", err)
				return
			}
		}
	}
}
