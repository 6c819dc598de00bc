package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is the JSON frame pushed to clients.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type delivery struct {
	key     string
	payload []byte
}

// Hub keeps the connected clients per participant key ("role:id") and
// delivers events to them. The client map is only mutated by Run.
type Hub struct {
	clients map[string]map[*Client]bool

	deliver    chan delivery
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	// guards reads of clients from other goroutines
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		deliver:    make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and deliveries until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case d := <-h.deliver:
			h.deliverTo(d)
		}
	}
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, key)
	}
	h.logger.Info().Msg("Websocket hub stopped")
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.key]; !ok {
		h.clients[client.key] = make(map[*Client]bool)
	}
	h.clients[client.key][client] = true

	h.logger.Debug().
		Str("participant", client.key).
		Int("connections", len(h.clients[client.key])).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	set, ok := h.clients[client.key]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.key)
	}
	h.logger.Debug().Str("participant", client.key).Msg("Client unregistered")
}

// deliverTo hands the payload to every connection of the participant. A
// client whose buffer is full is dropped; it reconnects and resyncs.
func (h *Hub) deliverTo(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[d.key]
	if !ok {
		return
	}
	for client := range set {
		select {
		case client.send <- d.payload:
		default:
			h.logger.Warn().Str("participant", d.key).Msg("Dropping slow websocket client")
			h.removeLocked(client)
		}
	}
}

// SendTo queues ev for every connection of the participant key. It never
// blocks the caller for long: when the hub is stopped or its queue is full
// the event is dropped, clients fall back to polling.
func (h *Hub) SendTo(key string, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("type", ev.Type).Msg("Failed to marshal websocket event")
		return
	}

	select {
	case <-h.done:
	case h.deliver <- delivery{key: key, payload: payload}:
	default:
		h.logger.Warn().Str("participant", key).Str("type", ev.Type).Msg("Websocket queue full, event dropped")
	}
}

// ClientCount returns the number of open connections of a participant.
func (h *Hub) ClientCount(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[key])
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
