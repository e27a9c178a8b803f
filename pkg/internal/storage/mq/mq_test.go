package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/internal/storage/mq"
)

func TestMemoryPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mq.New(ctx, &configs.MQConfig{Type: configs.MQTypeMemory}, nil)
	if err != nil {
		t.Fatalf("new memory mq: %v", err)
	}
	defer client.Close()

	ch, err := client.Subscribe(ctx, "dv.test")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := client.Publish(ctx, "dv.test", message.NewMessage(watermill.NewUUID(), []byte("ping"))); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case m := <-ch:
		if string(m.Payload) != "ping" {
			t.Errorf("expected ping, got %q", m.Payload)
		}

		m.Ack()
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestUnsupportedType(t *testing.T) {
	if _, err := mq.New(context.Background(), &configs.MQConfig{Type: "kafka"}, nil); err == nil {
		t.Fatal("expected error for unsupported mq type")
	}
}

func TestNilClient(t *testing.T) {
	var c *mq.Client
	if err := c.Publish(context.Background(), "x"); err == nil {
		t.Error("expected error publishing on nil client")
	}
}
