package hub

import (
	"context"
	"errors"
	"sync/atomic"

	"anoa.com/voteledger/internal/metrics"
)

var ErrHubStopped = errors.New("hub stopped")

// Client is one subscriber. The hub writes to Send and closes it when the
// client is removed.
type Client struct {
	topics []string
	send   chan []byte
}

func NewClient(topics []string, buffer int) *Client {
	return &Client{
		topics: topics,
		send:   make(chan []byte, buffer),
	}
}

func (c *Client) Send() <-chan []byte {
	return c.send
}

func (c *Client) Topics() []string {
	return c.topics
}

type message struct {
	topic   string
	payload []byte
}

// Hub keeps per-topic subscriber sets for this process.
type Hub struct {
	topics     map[string]map[*Client]struct{}
	members    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	count      atomic.Int64
}

func New() *Hub {
	return &Hub{
		topics:     make(map[string]map[*Client]struct{}),
		members:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
	}
}

// Run owns all hub state until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.members {
				h.remove(c)
			}
			return

		case c := <-h.register:
			h.members[c] = struct{}{}
			for _, topic := range c.topics {
				set := h.topics[topic]
				if set == nil {
					set = make(map[*Client]struct{})
					h.topics[topic] = set
				}
				set[c] = struct{}{}
			}
			h.count.Add(1)
			metrics.WebSocketConnections.Inc()

		case c := <-h.unregister:
			h.remove(c)

		case m := <-h.broadcast:
			for c := range h.topics[m.topic] {
				select {
				case c.send <- m.payload:
				default:
					h.remove(c)
					metrics.WebSocketDropped.Inc()
				}
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.members[c]; !ok {
		return
	}
	delete(h.members, c)
	for _, topic := range c.topics {
		set := h.topics[topic]
		delete(set, c)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
	close(c.send)
	h.count.Add(-1)
	metrics.WebSocketConnections.Dec()
}

func (h *Hub) Register(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues payload for every subscriber of topic.
func (h *Hub) Broadcast(topic string, payload []byte) {
	select {
	case h.broadcast <- message{topic: topic, payload: payload}:
	case <-h.done:
	}
}

// Count is the number of connected clients.
func (h *Hub) Count() int {
	return int(h.count.Load())
}
