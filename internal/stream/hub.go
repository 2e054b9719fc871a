package stream

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub fans live tracking updates out to websocket subscribers. Updates are
// keyed by tracking session id; a Redis pub/sub bridge carries them across
// instances so a subscriber does not have to be connected to the node that
// owns the active GPS session.
type Hub struct {
	id      string
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	TrackingID string
	Send       chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(trackingID string) *Client {
	client := &Client{
		TrackingID: trackingID,
		Send:       make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[trackingID] == nil {
		h.clients[trackingID] = map[*Client]struct{}{}
	}
	h.clients[trackingID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if trackingClients, ok := h.clients[client.TrackingID]; ok {
		delete(trackingClients, client)
		if len(trackingClients) == 0 {
			delete(h.clients, client.TrackingID)
		}
	}
	close(client.Send)
}

func (h *Hub) Broadcast(trackingID string, payload []byte) {
	h.mu.RLock()
	clients := h.clients[trackingID]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}

	if h.redis != nil {
		// Origin-tagged so the subscriber side can drop our own publishes;
		// local clients were already served above.
		wire := h.id + "|" + string(payload)
		err := h.redis.Publish(context.Background(), redisChannel(trackingID), wire).Err()
		if err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "mileage:*:distance")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		origin, payload := splitOrigin(msg.Payload)
		if origin == h.id {
			continue
		}
		trackingID := trackingIDFromChannel(msg.Channel)
		h.mu.RLock()
		clients := h.clients[trackingID]
		h.mu.RUnlock()
		for client := range clients {
			select {
			case client.Send <- []byte(payload):
			default:
			}
		}
	}
}

func splitOrigin(wire string) (origin, payload string) {
	idx := strings.IndexByte(wire, '|')
	if idx < 0 {
		return "", wire
	}
	return wire[:idx], wire[idx+1:]
}

func redisChannel(trackingID string) string {
	return "mileage:" + trackingID + ":distance"
}

func trackingIDFromChannel(ch string) string {
	// mileage:{tracking}:distance
	const prefix = "mileage:"
	const suffix = ":distance"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
