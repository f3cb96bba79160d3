package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/rpscam/internal/game"
)

// writeWait bounds each WebSocket write.
const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message types pushed to /api/events clients.
const (
	MessageRound = "round"
	MessageFrame = "frame"
)

// Message is the envelope for every event pushed to browsers.
type Message struct {
	Type  string            `json:"type"`
	Event game.EventType    `json:"event,omitempty"`
	Round *game.Round       `json:"round,omitempty"`
	Frame *game.Observation `json:"frame,omitempty"`
}

// sendBuffer is how many messages may wait for a client's writer before
// the client counts as too slow and is dropped.
const sendBuffer = 64

// client is one /api/events connection. Only its writer goroutine writes
// to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
	// bye is the close frame the writer sends once send is closed.
	bye []byte
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}

	if c.bye != nil {
		c.conn.WriteControl(websocket.CloseMessage, c.bye, time.Now().Add(writeWait))
	}
}

// Hub fans round and frame events out to WebSocket clients. New clients
// receive the latest round straight away. Publishing never waits on a
// client: each has a queue drained by its own writer, and a client whose
// queue is full is dropped.
type Hub struct {
	mu        sync.Mutex
	clients   map[*client]bool
	lastRound []byte
	closed    bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.clients[c] = true
	if h.lastRound != nil {
		c.send <- h.lastRound
	}
	h.mu.Unlock()

	go c.writePump()
	defer h.remove(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// PublishRound pushes a referee event. It matches the game.Runner listener
// signature.
func (h *Hub) PublishRound(ev game.Event) {
	round := ev.Round
	msg, err := json.Marshal(Message{Type: MessageRound, Event: ev.Type, Round: &round})
	if err != nil {
		log.Printf("encode round event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRound = msg
	h.broadcast(msg)
}

// PublishFrame pushes one detection result. It matches the game.Loop
// listener signature.
func (h *Hub) PublishFrame(obs game.Observation) {
	msg, err := json.Marshal(Message{Type: MessageFrame, Frame: &obs})
	if err != nil {
		log.Printf("encode frame event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcast(msg)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	bye := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for c := range h.clients {
		h.drop(c, bye)
	}
}

// broadcast queues msg for every client. h.mu must be held.
func (h *Hub) broadcast(msg []byte) {
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Printf("Dropping slow websocket client")
			h.drop(c, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"))
		}
	}
}

// drop unregisters c and lets its writer finish with bye. h.mu must be held.
func (h *Hub) drop(c *client, bye []byte) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	c.bye = bye
	close(c.send)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c, nil)
}
