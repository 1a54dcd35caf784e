package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/tryon/internal/adjust"
	"github.com/ayusman/tryon/internal/app"
	"github.com/ayusman/tryon/internal/server/api"
)

// writeWait bounds a single write to a client.
const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Panel commands accepted on the events socket.
const (
	cmdPanel     = "panel"
	cmdMode      = "mode"
	cmdSlide     = "slide"
	cmdReset     = "reset"
	cmdDragStart = "drag_start"
	cmdDragMove  = "drag_move"
	cmdDragEnd   = "drag_end"
)

// command is a message sent by the client.
type command struct {
	Command string  `json:"command"`
	Mode    string  `json:"mode,omitempty"`
	Field   string  `json:"field,omitempty"`
	Value   float64 `json:"value,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
}

// event is a message pushed to the client.
type event struct {
	Type  string             `json:"type"`
	State *app.State         `json:"state,omitempty"`
	Panel *adjust.PanelState `json:"panel,omitempty"`
	Error string             `json:"error,omitempty"`
}

// EventsHandler pushes engine state changes over a WebSocket and applies
// panel commands sent by the client.
type EventsHandler struct {
	engine api.Engine
}

// NewEventsHandler creates a new EventsHandler for engine.
func NewEventsHandler(engine api.Engine) *EventsHandler {
	return &EventsHandler{engine: engine}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	c := newClient(conn)
	go c.writeLoop(h.engine.State)
	defer close(c.quit)

	cancel := h.engine.OnChange(func(app.State) { c.notify() })
	defer cancel()

	state := h.engine.State()
	panel := h.engine.Panel().State()
	c.send(event{Type: "state", State: &state})
	c.send(event{Type: "panel", Panel: &panel})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.send(event{Type: "error", Error: "invalid command"})
			continue
		}

		snapshot, err := h.apply(cmd)
		if err != nil {
			c.send(event{Type: "error", Error: err.Error()})
			continue
		}
		c.send(event{Type: "panel", Panel: &snapshot})
	}
}

// apply runs one panel command and returns the resulting panel snapshot.
func (h *EventsHandler) apply(cmd command) (adjust.PanelState, error) {
	panel := h.engine.Panel()

	switch cmd.Command {
	case cmdPanel:
	case cmdMode:
		mode, err := adjust.ParseMode(cmd.Mode)
		if err != nil {
			return adjust.PanelState{}, err
		}
		if err := panel.SetMode(mode); err != nil {
			return adjust.PanelState{}, err
		}
	case cmdSlide:
		field, err := adjust.ParseField(cmd.Field)
		if err != nil {
			return adjust.PanelState{}, err
		}
		if _, err := panel.Slide(field, cmd.Value); err != nil {
			return adjust.PanelState{}, err
		}
	case cmdReset:
		if _, err := panel.Reset(); err != nil {
			return adjust.PanelState{}, err
		}
	case cmdDragStart:
		panel.BeginDrag(adjust.Point{X: cmd.X, Y: cmd.Y})
	case cmdDragMove:
		panel.DragTo(adjust.Point{X: cmd.X, Y: cmd.Y})
	case cmdDragEnd:
		panel.EndDrag()
	default:
		return adjust.PanelState{}, fmt.Errorf("unknown command %q", cmd.Command)
	}

	return panel.State(), nil
}

// client owns the write side of one connection. Replies queue on out.
// State changes only raise a flag, and the writer sends whatever state is
// current when it gets to it, so a slow connection never holds up the
// engine.
type client struct {
	conn  *websocket.Conn
	out   chan event
	dirty chan struct{}
	quit  chan struct{}
	dead  chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn:  conn,
		out:   make(chan event, 8),
		dirty: make(chan struct{}, 1),
		quit:  make(chan struct{}),
		dead:  make(chan struct{}),
	}
}

// notify marks the engine state as changed. It never blocks.
func (c *client) notify() {
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

// send queues a reply. It gives up once the writer has stopped.
func (c *client) send(e event) {
	select {
	case c.out <- e:
	case <-c.dead:
	}
}

// writeLoop is the only goroutine writing to the connection.
func (c *client) writeLoop(current func() app.State) {
	defer close(c.dead)

	for {
		var e event
		select {
		case <-c.quit:
			return
		case <-c.dirty:
			s := current()
			e = event{Type: "state", State: &s}
		case e = <-c.out:
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(e); err != nil {
			log.Printf("websocket write error: %v", err)
			// Unblocks the read loop in ServeHTTP.
			c.conn.Close()
			return
		}
	}
}
