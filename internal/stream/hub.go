package stream

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"backend-turfwar/internal/logger"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "turfwar:stream:"
	clientBuffer   = 64
	subscribeAwait = 2 * time.Second
)

// Hub fans events out to websocket clients grouped by topic. With Redis
// configured every event goes through pub/sub so all instances see it once;
// without Redis delivery is local only.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	log     *slog.Logger
}

type Client struct {
	Topic string
	Send  chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		clients: map[string]map[*Client]struct{}{},
		log:     logger.L().With("component", "stream"),
	}
	if redisClient == nil {
		return h
	}

	ctx, cancel := context.WithCancel(context.Background())
	pubsub := redisClient.PSubscribe(ctx, channelPrefix+"*")
	waitCtx, waitCancel := context.WithTimeout(ctx, subscribeAwait)
	defer waitCancel()
	if _, err := pubsub.Receive(waitCtx); err != nil {
		h.log.Warn("redis subscribe failed, stream is local only", "err", err)
		_ = pubsub.Close()
		cancel()
		return h
	}

	h.redis = redisClient
	h.ctx = ctx
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.subscribeRedis(pubsub)
	return h
}

func (h *Hub) Register(topic string) *Client {
	client := &Client{
		Topic: topic,
		Send:  make(chan []byte, clientBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = map[*Client]struct{}{}
	}
	h.clients[topic][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topicClients, ok := h.clients[client.Topic]
	if !ok {
		return
	}
	if _, ok := topicClients[client]; !ok {
		return
	}
	delete(topicClients, client)
	if len(topicClients) == 0 {
		delete(h.clients, client.Topic)
	}
	close(client.Send)
}

// Broadcast publishes payload on topic. Slow clients whose buffer is full
// miss the message.
func (h *Hub) Broadcast(topic string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(topic), payload).Err()
		if err == nil {
			return
		}
		h.log.Error("redis publish failed, delivering locally", "topic", topic, "err", err)
	}
	h.deliver(topic, payload)
}

// Close stops the Redis subscription.
func (h *Hub) Close() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
}

func (h *Hub) deliver(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[topic] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis(pubsub *redis.PubSub) {
	defer close(h.done)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			topic := topicFromChannel(msg.Channel)
			if topic == "" {
				continue
			}
			h.deliver(topic, []byte(msg.Payload))
		}
	}
}

func redisChannel(topic string) string {
	return channelPrefix + topic
}

func topicFromChannel(ch string) string {
	topic, ok := strings.CutPrefix(ch, channelPrefix)
	if !ok {
		return ""
	}
	return topic
}
