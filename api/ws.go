package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Titouaaaan/tutormesh/handoff"
	"github.com/Titouaaaan/tutormesh/logging"
)

// Server to client event types.
const (
	EventMessage = "message" // a persisted transcript message
	EventStatus  = "status"  // the runner status after a session ended
	EventHandoff = "handoff" // a Handoff Channel payload (consumers only)
	EventError   = "error"
)

// Client to server command types on consuming connections.
const (
	CommandAck   = "ack"
	CommandInput = "input"
)

// Envelope wraps every server to client frame.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type command struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

type conn struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
	mu     sync.Mutex // serializes writes
}

func (c *conn) write(ctx context.Context, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wsjson.Write(ctx, c.ws, v)
}

// Hub fans transcript events out to every connected client.
type Hub struct {
	mu     sync.RWMutex
	conns  map[*conn]struct{}
	logger logging.Logger
}

// NewHub creates an empty hub.
func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Hub{conns: make(map[*conn]struct{}), logger: logger}
}

// Broadcast sends env to all connected clients. Failed connections are
// dropped.
func (h *Hub) Broadcast(ctx context.Context, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("api.ws.marshal.error", "error", err.Error())
		return
	}

	h.mu.RLock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.mu.Lock()
		err := c.ws.Write(ctx, websocket.MessageText, data)
		c.mu.Unlock()
		if err != nil {
			h.logger.Debug("api.ws.write.error", "error", err.Error())
			h.remove(c)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		h.logger.Info("api.ws.disconnected")
	}
}

// handleWS upgrades the connection. Every connection receives transcript
// events. With ?consume=1 it also becomes the Handoff Channel consumer:
// payloads arrive as handoff events and the client answers with ack and
// input commands.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	consume := r.URL.Query().Get("consume") == "1"
	var ch *handoff.Channel
	if consume {
		var err error
		if ch, err = s.runner.Handoff(); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.opts.Logger.Error("api.ws.accept.error", "error", err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{ws: ws, cancel: cancel}
	s.hub.add(c)
	s.opts.Logger.Info("api.ws.connected", "remote", r.RemoteAddr, "consume", consume)

	if ch != nil {
		go s.pushHandoff(ctx, c, ch)
	}

	go func() {
		defer func() {
			s.hub.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			var cmd command
			if err := wsjson.Read(ctx, ws, &cmd); err != nil {
				return
			}
			if ch == nil {
				continue
			}
			if err := applyCommand(ch, cmd); err != nil {
				_ = c.write(ctx, Envelope{Type: EventError, Payload: errorResponse{Error: err.Error()}})
			}
		}
	}()
}

// pushHandoff forwards payloads until the terminal one.
func (s *Server) pushHandoff(ctx context.Context, c *conn, ch *handoff.Channel) {
	for {
		p, err := ch.Next(ctx)
		if err != nil {
			return
		}
		if err := c.write(ctx, Envelope{Type: EventHandoff, Payload: p}); err != nil {
			s.hub.remove(c)
			return
		}
		if p.Terminal {
			return
		}
	}
}

func applyCommand(ch *handoff.Channel, cmd command) error {
	switch cmd.Type {
	case CommandAck:
		return ch.Acknowledge()
	case CommandInput:
		return ch.SupplyUserInput(cmd.Content)
	default:
		return &unknownCommandError{cmd.Type}
	}
}

type unknownCommandError struct{ typ string }

func (e *unknownCommandError) Error() string { return "unknown command " + e.typ }
