package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/sirupsen/logrus"
)

// Topics a client subscribes to when it names none.
var DefaultTopics = []string{enum.TopicCart, enum.TopicLedger, enum.TopicSync, enum.TopicNotice}

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

// Hub maintains the set of active clients and fans events out by topic.
type Hub struct {
	// Subscribed clients by topic
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan Event

	mu  sync.RWMutex
	log *logrus.Entry
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		log:        logrus.WithField("component", "ws"),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			for _, topic := range client.topics {
				if h.rooms[topic] == nil {
					h.rooms[topic] = make(map[*Client]bool)
				}
				h.rooms[topic][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event)
			if err != nil {
				h.log.WithError(err).WithField("type", event.Type).Error("marshal event")
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.Topic] {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes client from every room it joined and closes its send channel
// once. Caller holds h.mu.
func (h *Hub) drop(client *Client) {
	found := false
	for _, topic := range client.topics {
		clients, ok := h.rooms[topic]
		if !ok || !clients[client] {
			continue
		}
		found = true
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, topic)
		}
	}
	if found {
		close(client.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	seen := make(map[*Client]bool)
	for topic, clients := range h.rooms {
		for client := range clients {
			if !seen[client] {
				seen[client] = true
				close(client.send)
			}
		}
		delete(h.rooms, topic)
	}
}

// Subscribers returns the number of clients listening on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[topic])
}

// Publish queues an event for every client subscribed to topic. It never
// blocks: when the broadcast buffer is full the event is dropped.
func (h *Hub) Publish(topic, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).WithField("type", eventType).Error("marshal payload")
		return
	}
	ev := Event{Type: eventType, Topic: topic, Payload: raw, SentAt: time.Now()}
	select {
	case h.broadcast <- ev:
	default:
		h.log.WithField("type", eventType).Warn("broadcast buffer full, event dropped")
	}
}
