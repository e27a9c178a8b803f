package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/drivevault/pkg/configs"
)

var errRedisBusClosed = errors.New("redis event bus closed")

func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}

// redisFrame 频道上传输的内容，metadata 随消息跨进程传递.
type redisFrame struct {
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

// redisBus pub/sub 没有持久化与重投，订阅前发布的消息会丢失. Ack/Nack 不产生效果.
type redisBus struct {
	rdb    *redis.Client
	prefix string
	buffer int
	logger watermill.LoggerAdapter

	mu     sync.Mutex
	subs   []*redis.PubSub
	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// redisPublisher 与订阅端共用连接，关闭交给订阅端.
type redisPublisher struct{ *redisBus }

func (redisPublisher) Close() error { return nil }

func redisFactory(
	ctx context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		ClientName: cfg.ClientID,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()

		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	buffer := cfg.Redis.Buffer
	if buffer <= 0 {
		buffer = 1
	}

	bus := &redisBus{
		rdb:    rdb,
		prefix: cfg.Redis.ChannelPrefix,
		buffer: buffer,
		logger: logger,
		done:   make(chan struct{}),
	}

	return redisPublisher{bus}, bus, nil
}

func (b *redisBus) channel(topic string) string { return b.prefix + topic }

// Publish 逐条发布，遇错即停.
func (b *redisBus) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		data, err := sonic.Marshal(redisFrame{UUID: msg.UUID, Metadata: msg.Metadata, Payload: msg.Payload})
		if err != nil {
			return fmt.Errorf("encode frame %s: %w", msg.UUID, err)
		}

		if err := b.rdb.Publish(msg.Context(), b.channel(topic), data).Err(); err != nil {
			return fmt.Errorf("publish to %s: %w", topic, err)
		}
	}

	return nil
}

// Subscribe 订阅 topic，ctx 取消或总线关闭时输出通道被关闭.
func (b *redisBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errRedisBusClosed
	}

	ps := b.rdb.Subscribe(ctx, b.channel(topic))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()

		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	b.subs = append(b.subs, ps)
	out := make(chan *message.Message, b.buffer)

	b.wg.Add(1)

	go b.forward(ctx, topic, ps.Channel(redis.WithChannelSize(b.buffer)), out)

	return out, nil
}

func (b *redisBus) forward(ctx context.Context, topic string, in <-chan *redis.Message, out chan<- *message.Message) {
	defer b.wg.Done()
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case raw, ok := <-in:
			if !ok {
				return
			}

			var frame redisFrame
			if err := sonic.UnmarshalString(raw.Payload, &frame); err != nil {
				b.logger.Error("dropping undecodable frame", err, watermill.LogFields{"topic": topic})

				continue
			}

			msg := message.NewMessage(frame.UUID, frame.Payload)
			for k, v := range frame.Metadata {
				msg.Metadata.Set(k, v)
			}

			select {
			case out <- msg:
			case <-ctx.Done():
				return
			case <-b.done:
				return
			}
		}
	}
}

// Close 退订全部频道并关闭连接.
func (b *redisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()

		return nil
	}

	b.closed = true
	close(b.done)

	errs := make([]error, 0, len(b.subs)+1)
	for _, ps := range b.subs {
		errs = append(errs, ps.Close())
	}
	b.mu.Unlock()

	b.wg.Wait()

	errs = append(errs, b.rdb.Close())

	return errors.Join(errs...)
}
