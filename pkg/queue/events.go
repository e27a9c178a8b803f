package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Publish 封装信封后发布到 topic.
func Publish[T any](ctx context.Context, pub message.Publisher, topic string, payload T, opts ...HeaderOption) error {
	msg, err := NewMessage(ctx, topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}

// ParseActivity 解析 dv.activity.recorded.
func ParseActivity(msg *message.Message) (Message[ActivityPayload], error) {
	return Parse[ActivityPayload](msg)
}

// ParseResourceChanged 解析 dv.resource.trashed/restored/moved.
func ParseResourceChanged(msg *message.Message) (Message[ResourceChangedPayload], error) {
	return Parse[ResourceChangedPayload](msg)
}

// ParsePurged 解析 dv.resource.purged.
func ParsePurged(msg *message.Message) (Message[ResourcePurgedPayload], error) {
	return Parse[ResourcePurgedPayload](msg)
}

// ParseLink 解析 dv.link.*.
func ParseLink(msg *message.Message) (Message[LinkPayload], error) {
	return Parse[LinkPayload](msg)
}

// ParseShare 解析 dv.share.*.
func ParseShare(msg *message.Message) (Message[SharePayload], error) {
	return Parse[SharePayload](msg)
}
