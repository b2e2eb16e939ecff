// Package ws pushes discovery events to connected websocket clients.
package ws

import (
	"context"
	"sync"

	"jobmatch/internal/logger"
	"jobmatch/internal/search"

	"go.uber.org/zap"
)

// event is a message bound for every client subscribed to topic. An empty
// topic reaches all clients.
type event struct {
	topic string
	data  []byte
}

type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	events     chan event
	register   chan *Client
	unregister chan *Client
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		events:     make(chan event, 1024),
		register:   make(chan *Client, 128),
		unregister: make(chan *Client, 128),
		log:        logger.OrNop(log).Named("ws"),
	}
}

// Topic is the subscription key for a search term.
func Topic(searchTerm string) string {
	return search.NormalizeQuery(searchTerm)
}

// Run serves registrations and deliveries until ctx is done, then closes
// every client's send channel.
func (h *Hub) Run(ctx context.Context) {
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
			if c != nil {
				h.add(c)
			}
		case c := <-h.unregister:
			if c != nil {
				h.remove(c)
			}
		case ev := <-h.events:
			h.deliver(ev)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("ws client connected", zap.Int("total_clients", total), zap.Int("topics", len(c.topics)))
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("ws client disconnected", zap.Int("total_clients", total))
}

// deliver hands ev to each interested client. A client whose buffer is full
// is dropped rather than stalling the hub.
func (h *Hub) deliver(ev event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(ev.topic) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- ev.data:
		default:
			h.log.Warn("ws client too slow, dropping connection")
			h.remove(c)
		}
	}
	h.log.Debug("ws delivered", zap.String("topic", ev.topic), zap.Int("clients", len(targets)))
}

func (h *Hub) Register(c *Client) {
	if h == nil {
		return
	}
	h.register <- c
}

func (h *Hub) Unregister(c *Client) {
	if h == nil {
		return
	}
	h.unregister <- c
}

// Broadcast queues message for every client.
func (h *Hub) Broadcast(message []byte) {
	h.Publish("", message)
}

// Publish queues message for clients subscribed to topic and for clients with
// no subscriptions. It never blocks; a full queue drops the message.
func (h *Hub) Publish(topic string, message []byte) {
	if h == nil {
		return
	}
	select {
	case h.events <- event{topic: topic, data: message}:
	default:
		h.log.Warn("ws event dropped", zap.String("topic", topic), zap.String("reason", "buffer_full"))
	}
}

func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
