package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/internal/models"
)

const (
	channelPrefix  = "relay:"
	publishTimeout = 5 * time.Second
)

// chatPayload is what goes over the Redis channel.
type chatPayload struct {
	Origin  string             `json:"origin"`
	Message models.ChatMessage `json:"message"`
	At      int64              `json:"at"`
}

// ChatChannel returns the Redis channel carrying chat for session.
func ChatChannel(session string) string {
	return channelPrefix + session + ":chat"
}

// RedisChatBridge carries chat between relay instances over Redis pub/sub.
// Every instance, including the publisher, receives each message once from
// its subscription and delivers it to its own participants.
type RedisChatBridge struct {
	client   *redis.Client
	channel  string
	instance string
	logger   *zap.Logger
}

// NewRedisChatBridge creates a bridge for session. instance tags published
// messages for logs.
func NewRedisChatBridge(client *redis.Client, session, instance string, logger *zap.Logger) *RedisChatBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisChatBridge{client: client, channel: ChatChannel(session), instance: instance, logger: logger}
}

// PublishChat sends msg to every instance.
func (b *RedisChatBridge) PublishChat(ctx context.Context, msg models.ChatMessage) error {
	body, err := encodeChat(b.instance, msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return b.client.Publish(ctx, b.channel, body).Err()
}

// SubscribeChat calls handler for every chat message on the channel until
// ctx is done or cancel is called.
func (b *RedisChatBridge) SubscribeChat(ctx context.Context, handler func(models.ChatMessage)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(ctx)
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err = pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				origin, msg, err := decodeChat([]byte(m.Payload))
				if err != nil {
					b.logger.Warn("bad chat payload on redis", zap.Error(err))
					continue
				}
				b.logger.Debug("chat from redis", zap.String("origin", origin))
				handler(msg)
			}
		}
	}()
	b.logger.Info("subscribed to chat channel", zap.String("channel", b.channel))
	return cancelCtx, nil
}

func encodeChat(origin string, msg models.ChatMessage) ([]byte, error) {
	return json.Marshal(chatPayload{Origin: origin, Message: msg, At: time.Now().Unix()})
}

func decodeChat(data []byte) (string, models.ChatMessage, error) {
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", models.ChatMessage{}, err
	}
	return p.Origin, p.Message, nil
}
