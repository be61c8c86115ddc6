package ws

import (
	"context"
	"encoding/json"
	"sync"

	"quantprep/internal/pkg/logger"
	"quantprep/internal/workflow"

	"github.com/google/uuid"
)

type message struct {
	topic   uuid.UUID
	payload []byte
}

// Hub fans interview events out to the clients watching a session. Once Run
// returns the hub is closed: new clients are turned away and Unregister is a
// no-op.
type Hub struct {
	topics    map[uuid.UUID]map[*Client]struct{}
	broadcast chan message
	closed    bool
	mutex     sync.RWMutex
	log       *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		topics:    make(map[uuid.UUID]map[*Client]struct{}),
		broadcast: make(chan message, 1024),
		log:       log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			h.closed = true
			for topic, clients := range h.topics {
				for c := range clients {
					close(c.send)
				}
				delete(h.topics, topic)
			}
			h.mutex.Unlock()
			return

		case msg := <-h.broadcast:
			var slow []*Client
			h.mutex.RLock()
			for c := range h.topics[msg.topic] {
				select {
				case c.send <- msg.payload:
				default:
					slow = append(slow, c)
				}
			}
			h.mutex.RUnlock()

			for _, c := range slow {
				h.remove(c)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	clients, ok := h.topics[client.topic]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.topics, client.topic)
	}
	h.log.Debug("ws disconnected", "session_id", client.topic, "clients", len(clients))
}

// Register subscribes client to its session. On a closed hub the client's
// send channel is closed at once so its WritePump ends the connection.
func (h *Hub) Register(client *Client) {
	if h == nil || client == nil {
		return
	}
	h.mutex.Lock()
	if h.closed {
		h.mutex.Unlock()
		close(client.send)
		return
	}
	clients, ok := h.topics[client.topic]
	if !ok {
		clients = make(map[*Client]struct{})
		h.topics[client.topic] = clients
	}
	clients[client] = struct{}{}
	total := len(clients)
	h.mutex.Unlock()
	h.log.Debug("ws connected", "session_id", client.topic, "clients", total)
}

func (h *Hub) Unregister(client *Client) {
	if h == nil || client == nil {
		return
	}
	h.remove(client)
}

// Publish implements workflow.Notifier. Events are dropped when the buffer
// is full.
func (h *Hub) Publish(sessionID uuid.UUID, ev workflow.Event) {
	if h == nil {
		return
	}
	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("ws event encode failed", "session_id", sessionID, "error", err)
		return
	}
	select {
	case h.broadcast <- message{topic: sessionID, payload: b}:
	default:
		h.log.Warn("ws broadcast dropped", "session_id", sessionID, "reason", "buffer_full")
	}
}

func (h *Hub) ClientCount(sessionID uuid.UUID) int {
	if h == nil {
		return 0
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.topics[sessionID])
}

var _ workflow.Notifier = (*Hub)(nil)
