package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Priya8975/harmony-node/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // callers are authenticated before the upgrade
	},
}

// MessageContractLeg is the type of every message the hub sends.
const MessageContractLeg = "contract_leg"

// LegMessage is a finished contract request or reply leg as seen by the
// organizations on either side of it.
type LegMessage struct {
	Type string `json:"type"`
	events.LegOutcome
	Timestamp time.Time `json:"timestamp"`
}

type broadcast struct {
	data     []byte
	audience [2]int64
}

// Hub pushes contract outcomes to connected organizations. A client only
// receives legs its organization is the requestor or requestee of.
type Hub struct {
	clients    map[*client]struct{}
	mu         sync.RWMutex
	broadcast  chan broadcast
	register   chan *client
	unregister chan *client
	done       chan struct{}
	logger     *slog.Logger
}

type client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	organizationID int64
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan broadcast, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the hub's event loop. It returns when ctx is done, after
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", "organization_id", c.organizationID, "total_clients", total)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", "organization_id", c.organizationID, "total_clients", total)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg broadcast) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if c.organizationID != msg.audience[0] && c.organizationID != msg.audience[1] {
			continue
		}
		select {
		case c.send <- msg.data:
		default:
			// slow client
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// LegCompleted broadcasts a finished leg to both organizations involved.
func (h *Hub) LegCompleted(outcome events.LegOutcome) {
	data, err := json.Marshal(LegMessage{
		Type:       MessageContractLeg,
		LegOutcome: outcome,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("failed to marshal websocket message", "error", err)
		return
	}

	select {
	case h.broadcast <- broadcast{data: data, audience: [2]int64{outcome.RequestorOrganizationID, outcome.RequesteeOrganizationID}}:
	default:
		h.logger.Warn("websocket broadcast channel full, dropping message", "event_id", outcome.EventID)
	}
}

// Serve upgrades the connection and subscribes it to the outcomes of
// organizationID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, organizationID int64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:            h,
		conn:           conn,
		send:           make(chan []byte, 256),
		organizationID: organizationID,
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only watches for pongs and disconnects.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
