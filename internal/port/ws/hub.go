package ws

import (
	"context"
	"sync"

	redisadapter "github.com/Abdurahmanit/GroupProject/auction-service/internal/adapter/redis"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/platform/logger"
	"github.com/redis/go-redis/v9"
)

// Hub bridges Redis pub/sub channels to local websocket clients. One pub/sub
// connection carries every channel the hub currently has subscribers for;
// channels are joined when the first client arrives and left with the last.
type Hub struct {
	transport *redisadapter.Transport
	log       logger.Logger

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}

	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(transport *redisadapter.Transport, log logger.Logger) *Hub {
	return &Hub{
		transport: transport,
		log:       log,
		clients:   make(map[string]map[*Client]struct{}),
		done:      make(chan struct{}),
	}
}

// Start begins pumping transport messages to registered clients.
func (h *Hub) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.pubsub = h.transport.Subscribe(ctx)

	go h.pump(ctx)
}

func (h *Hub) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	if h.pubsub != nil {
		_ = h.pubsub.Close()
	}
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for client := range set {
			client.close()
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
}

func (h *Hub) pump(ctx context.Context) {
	defer close(h.done)
	for msg := range h.pubsub.Channel() {
		h.deliver(ctx, msg.Channel, []byte(msg.Payload))
	}
}

func (h *Hub) deliver(ctx context.Context, channel string, payload []byte) {
	h.mu.RLock()
	set := h.clients[channel]
	stale := make([]*Client, 0)
	for client := range set {
		if !client.trySend(payload) {
			// A full send buffer means the client stopped reading. Evict it
			// so one slow consumer cannot back up the channel.
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.log.Warnf("Evicting slow websocket client %s", client.connectionID)
		h.Unregister(client)
	}
}

// Register attaches a client to the hub and joins any channels that gained
// their first subscriber.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	newChannels := make([]string, 0, len(client.channels))
	for _, ch := range client.channels {
		set, ok := h.clients[ch]
		if !ok {
			set = make(map[*Client]struct{})
			h.clients[ch] = set
			newChannels = append(newChannels, ch)
		}
		set[client] = struct{}{}
	}
	h.mu.Unlock()

	if len(newChannels) > 0 {
		if err := h.pubsub.Subscribe(context.Background(), newChannels...); err != nil {
			h.log.Errorf("Failed to subscribe hub to channels %v: %v", newChannels, err)
		}
	}
}

// Unregister detaches a client, closes it, and leaves channels that lost
// their last subscriber.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	emptyChannels := make([]string, 0, len(client.channels))
	for _, ch := range client.channels {
		set, ok := h.clients[ch]
		if !ok {
			continue
		}
		if _, present := set[client]; !present {
			continue
		}
		delete(set, client)
		if len(set) == 0 {
			delete(h.clients, ch)
			emptyChannels = append(emptyChannels, ch)
		}
	}
	h.mu.Unlock()

	client.close()

	if len(emptyChannels) > 0 {
		if err := h.pubsub.Unsubscribe(context.Background(), emptyChannels...); err != nil {
			h.log.Warnf("Failed to unsubscribe hub from channels %v: %v", emptyChannels, err)
		}
	}
}

// SubscriberCount reports how many clients listen on a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[channel])
}
