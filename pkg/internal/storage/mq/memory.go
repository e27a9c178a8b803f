package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/drivevault/pkg/configs"
)

func init() {
	RegisterFactory(configs.MQTypeMemory, memoryFactory)
}

// memoryFactory 创建进程内 Pub/Sub，同一个实例同时作为 Publisher 与 Subscriber.
func memoryFactory(
	_ context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.Memory.OutputChannelBuffer,
	}, logger)

	return ps, &sharedSubscriber{GoChannel: ps}, nil
}

// sharedSubscriber 避免 Client.Close 对同一个 GoChannel 关闭两次.
type sharedSubscriber struct {
	*gochannel.GoChannel
}

func (s *sharedSubscriber) Close() error {
	return nil
}
