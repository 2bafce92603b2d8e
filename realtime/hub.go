package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/maanas1234/Celestia-Hackathon/models"
)

const EventAlertCreated = "alert.created"

// Event is pushed to every connected dashboard when something changes.
type Event struct {
	Type      string            `json:"type"`
	Alert     *models.AlertView `json:"alert,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans alert events out to websocket clients. Slow clients are dropped
// rather than allowed to stall the broadcast loop.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	mu         sync.RWMutex
	log        *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	encoded, err := json.Marshal(event)
	if err != nil {
		h.log.Errorf("realtime: failed to marshal event: %v", err)
		return
	}
	select {
	case h.broadcast <- encoded:
	default:
		h.log.Warnf("realtime: dropping event, broadcast channel full")
	}
}

// AlertCreated broadcasts a newly stored alert.
func (h *Hub) AlertCreated(view models.AlertView) {
	h.Broadcast(Event{Type: EventAlertCreated, Alert: &view})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and registers a client
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("realtime: websocket upgrade error: %v", err)
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, 16)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// writer
	go func() {
		for msg := range client.send {
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		client.conn.Close()
	}()

	// reader (just consume pings/close)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
