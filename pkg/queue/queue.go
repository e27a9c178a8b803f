// Package queue 定义领域事件的信封格式与 watermill 消息的互转.
//
// 每条消息的 payload 为 JSON 信封：
//
//	{
//	  "header": {"topic": "dv.link.created", "trace_id": "...", "producer": "drivevault",
//	             "occurred_at": "2025-01-02T03:04:05.123456Z", "version": "v1"},
//	  "payload": { ... }
//	}
//
// watermill metadata 额外携带 W3C traceparent，消费者可用 Extract 续接链路.
// 链接事件从不携带 token 与密码哈希.
package queue

import (
	"context"
	"fmt"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// PayloadVersionV1 当前信封版本.
const PayloadVersionV1 = "v1"

// metadata 键.
const (
	metaTopic      = "topic"
	metaProducer   = "producer"
	metaOccurredAt = "occurred_at"
	metaVersion    = "version"
)

// HeaderOption 调整事件头.
type HeaderOption func(*EventHeader)

// WithTraceID 设置 TraceID.
func WithTraceID(id string) HeaderOption { return func(h *EventHeader) { h.TraceID = id } }

// WithProducer 设置 Producer.
func WithProducer(p string) HeaderOption { return func(h *EventHeader) { h.Producer = p } }

// WithOccurredAt 覆盖发生时间，测试与重放使用.
func WithOccurredAt(t time.Time) HeaderOption {
	return func(h *EventHeader) { h.OccurredAt = t.UTC() }
}

// NewEventHeader 创建事件头，ctx 中存在 span 时自动带上 trace id.
func NewEventHeader(ctx context.Context, topic string, opts ...HeaderOption) EventHeader {
	hdr := EventHeader{Topic: topic, OccurredAt: time.Now().UTC(), Version: PayloadVersionV1}

	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		hdr.TraceID = sc.TraceID().String()
	}

	for _, opt := range opts {
		opt(&hdr)
	}

	return hdr
}

// Encode 序列化信封.
func Encode[T any](msg Message[T]) ([]byte, error) { return sonic.Marshal(msg) }

// Decode 反序列化信封，未知字段被忽略.
func Decode[T any](b []byte) (Message[T], error) {
	var m Message[T]
	if err := sonic.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("decode event: %w", err)
	}

	return m, nil
}

// NewMessage 把负载装入信封并生成 watermill 消息.
func NewMessage[T any](ctx context.Context, topic string, payload T, opts ...HeaderOption) (*message.Message, error) {
	header := NewEventHeader(ctx, topic, opts...)

	data, err := Encode(Message[T]{Header: header, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewULID(), data)
	msg.SetContext(ctx)

	md := msg.Metadata
	md.Set(metaTopic, topic)
	md.Set(metaOccurredAt, header.OccurredAt.Format(time.RFC3339Nano))
	md.Set(metaVersion, header.Version)

	if header.Producer != "" {
		md.Set(metaProducer, header.Producer)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(md))

	return msg, nil
}

// Parse 解出信封.
func Parse[T any](msg *message.Message) (Message[T], error) {
	return Decode[T](msg.Payload)
}

// Extract 从消息 metadata 恢复上游链路上下文.
func Extract(ctx context.Context, msg *message.Message) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(msg.Metadata))
}

// Topic 返回消息 metadata 中记录的主题.
func Topic(msg *message.Message) string {
	return msg.Metadata.Get(metaTopic)
}
