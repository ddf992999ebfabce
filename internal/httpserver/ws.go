package httpserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/MonsterRookie/ashalytics/internal/capture"
	"github.com/MonsterRookie/ashalytics/internal/session"
)

// liveWSMessage is the control-frame format of the live feed.
// Server -> client types: "state", "error". Client -> server: "start", "stop",
// "bye"; audio chunks travel as binary frames between start and stop.
type liveWSMessage struct {
	Type  string            `json:"type"`
	Mime  string            `json:"mime,omitempty"`
	State *session.Snapshot `json:"state,omitempty"`
	Error string            `json:"error,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		// Allow any origin for demo use; restrict in production
		return true
	},
}

// hub fans session snapshots out to all live-feed connections of one session.
// Every write to a connection goes through the hub: gorilla allows at most one
// concurrent writer per conn, and state broadcasts arrive from handler
// goroutines while error frames originate in the read loop.
type hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// broadcast pushes one snapshot to every connection. Write failures drop the
// connection; the read loop notices on its own.
func (h *hub) broadcast(snap session.Snapshot) {
	msg, err := json.Marshal(liveWSMessage{Type: "state", State: &snap})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			_ = c.Close()
			delete(h.conns, c)
		}
	}
}

// sendError writes one error frame to a single connection, serialized against
// concurrent broadcasts.
func (h *hub) sendError(c *websocket.Conn, err error) {
	msg, merr := json.Marshal(liveWSMessage{Type: "error", Error: err.Error()})
	if merr != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	if werr := c.WriteMessage(websocket.TextMessage, msg); werr != nil {
		_ = c.Close()
		delete(h.conns, c)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		_ = c.Close()
		delete(h.conns, c)
	}
}

// live upgrades to WebSocket, streams state snapshots for one session and
// accepts streamed recording segments: a start control frame, binary audio
// chunks, then a stop frame that runs the full turn pipeline.
func (h *Handlers) live(c echo.Context) error {
	key := c.Param("key")
	sess, act, ok := h.lookup(key)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown session")
	}

	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return nil
	}
	act.hub.add(conn)
	defer func() {
		act.hub.remove(conn)
		_ = conn.Close()
	}()

	// Initial snapshot so a late joiner renders current state immediately.
	act.hub.broadcast(sess.Snapshot())

	recorder := capture.NewRecorder()
	for {
		mt, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return nil
		}
		switch mt {
		case websocket.BinaryMessage:
			if err := recorder.Write(data); err != nil {
				act.hub.sendError(conn, err)
			}
		case websocket.TextMessage:
			var m liveWSMessage
			if err := json.Unmarshal(data, &m); err != nil {
				continue
			}
			switch strings.ToLower(m.Type) {
			case "start":
				if err := recorder.Start(m.Mime); err != nil {
					act.hub.sendError(conn, err)
				}
			case "stop":
				seg, err := recorder.Stop()
				if err != nil {
					act.hub.sendError(conn, err)
					continue
				}
				// One turn at a time; the session rejects overlap itself.
				if _, err := h.completeTurn(context.Background(), key, sess, act, seg); err != nil {
					act.hub.sendError(conn, err)
				}
			case "bye":
				return nil
			}
		}
	}
}
