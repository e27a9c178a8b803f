package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/queue"
)

const producer = "drivevault"

// events 尽力而为的事件发布，失败只记录日志.
type events struct {
	pub  message.Publisher
	opts Options
	log  *zerolog.Logger
}

func newEvents(pub message.Publisher, opts Options, log *zerolog.Logger) *events {
	return &events{pub: pub, opts: opts, log: log}
}

func (e *events) enabled(topic string) bool {
	if e == nil || e.pub == nil || !e.opts.EventsEnabled {
		return false
	}

	switch topic {
	case queue.TopicActivityRecorded:
		return e.opts.ActivityEvents
	case queue.TopicLinkCreated, queue.TopicLinkDeleted:
		return e.opts.LinkEvents
	case queue.TopicResourcePurged:
		return e.opts.PurgeEvents
	default:
		return true
	}
}

// publish 发布事件并返回错误，调用者记录后丢弃.
func publish[T any](ctx context.Context, e *events, topic string, payload T) error {
	if !e.enabled(topic) {
		return nil
	}

	return queue.Publish(ctx, e.pub, topic, payload, queue.WithProducer(producer))
}

// emit 发布并在失败时记录告警.
func emit[T any](ctx context.Context, e *events, topic string, payload T) {
	if err := publish(ctx, e, topic, payload); err != nil {
		e.log.Warn().Err(err).Str("topic", topic).Msg("event publish failed")
	}
}

func resourceRef(rt model.ResourceType, id string) queue.ResourceRef {
	return queue.ResourceRef{Type: string(rt), ID: id}
}
