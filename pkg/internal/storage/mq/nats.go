package mq

import (
	"context"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	"github.com/yeisme/drivevault/pkg/configs"
)

func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

// natsOptions 连接选项. 认证优先级 JWT > NKey 文件 > 用户名密码.
func natsOptions(clientID string, cfg *configs.MQNATSConfig, logger watermill.LoggerAdapter) []nats.Option {
	opts := []nats.Option{
		nats.Name(clientID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.PingInterval(cfg.PingInterval),
		nats.ReconnectBufSize(cfg.ReconnectBuf),
		nats.DrainTimeout(30 * time.Second),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Error("nats disconnected", err, nil)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", watermill.LogFields{"url": c.ConnectedUrl()})
		}),
	}

	switch {
	case cfg.JWT != "":
		opts = append(opts, nats.UserJWTAndSeed(cfg.JWT, cfg.NKeySeed))
	case cfg.NKeyFile != "":
		if opt, err := nats.NkeyOptionFromSeed(cfg.NKeyFile); err == nil {
			opts = append(opts, opt)
		} else {
			logger.Error("unreadable nkey seed file, connecting without it", err, nil)
		}
	case cfg.User != "":
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	return opts
}

func jetStreamConfig(cfg configs.JetStreamConfig) wmnats.JetStreamConfig {
	if !cfg.Enabled {
		return wmnats.JetStreamConfig{Disabled: true}
	}

	return wmnats.JetStreamConfig{
		AutoProvision: cfg.AutoProvision,
		TrackMsgId:    cfg.TrackMsgID,
		AckAsync:      cfg.AckAsync,
		DurablePrefix: cfg.DurablePrefix,
	}
}

// natsFactory 发布端与订阅端各自持有连接.
func natsFactory(
	_ context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	url := strings.Join(cfg.NATS.Servers, ",")
	opts := natsOptions(cfg.ClientID, &cfg.NATS, logger)
	js := jetStreamConfig(cfg.NATS.JetStream)
	marshaler := &wmnats.NATSMarshaler{}

	logger.Info("connecting nats event bus", watermill.LogFields{
		"servers":   url,
		"jetstream": cfg.NATS.JetStream.Enabled,
	})

	pub, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   js,
		Marshaler:   marshaler,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	sub, err := wmnats.NewSubscriber(wmnats.SubscriberConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   js,
		Unmarshaler: marshaler,
	}, logger)
	if err != nil {
		_ = pub.Close()

		return nil, nil, err
	}

	return pub, sub, nil
}
