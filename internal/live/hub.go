// Package live pushes newly ingested pulses to WebSocket subscribers.
package live

import (
	"context"
	"sort"
	"sync"

	gojson "github.com/goccy/go-json"

	"github.com/MrSnakeDoc/pulse/internal/domain"
	"github.com/MrSnakeDoc/pulse/internal/logger"
	"github.com/MrSnakeDoc/pulse/internal/metrics"
)

const MessageTypePulse = "pulse"

// Message is the envelope written to subscribers.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub fans pulses out to every connected client. A client whose buffer is
// full is disconnected rather than slowing the others down.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        logger.Logger

	mu sync.RWMutex
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			n := h.closeAll()
			h.log.Info("live hub stopped", logger.Int("clients_closed", n))
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.LiveClients.Inc()
			h.log.Debug("live client connected", logger.Int("total_clients", total))

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("live client disconnected", logger.Int("total_clients", total))

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// Publish queues a pulse for broadcast. It never blocks: when the queue is
// full the pulse is dropped.
func (h *Hub) Publish(view domain.PulseView) {
	if view.IsSentinelLocation() {
		return
	}
	payload, err := gojson.Marshal(Message{Type: MessageTypePulse, Data: view})
	if err != nil {
		h.log.Error("failed to encode live message", logger.Error(err))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		metrics.LiveDropped.Inc()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) fanOut(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			metrics.LiveDropped.Inc()
			h.remove(c)
		}
	}
}

// remove drops c and closes its queue. Caller holds the lock.
func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.LiveClients.Dec()
}

func (h *Hub) closeAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.clients)
	for c := range h.clients {
		h.remove(c)
	}
	return n
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
