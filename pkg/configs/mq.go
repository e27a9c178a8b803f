package configs

import (
	"time"

	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeMemory MQType = "memory"
	MQTypeNATS   MQType = "nats"
	MQTypeRedis  MQType = "redis"
)

// MQConfig 领域事件总线配置. memory 只在单进程内可见.
type MQConfig struct {
	Type     MQType        `mapstructure:"type"     rule:"oneof=memory nats redis"`
	ClientID string        `mapstructure:"client_id" rule:"required"`
	Metrics  bool          `mapstructure:"metrics"`
	NATS     MQNATSConfig  `mapstructure:"nats"`
	Redis    MQRedisConfig `mapstructure:"redis"`
	Memory   MQMemConfig   `mapstructure:"memory"`
}

// MQNATSConfig NATS 连接与 JetStream 选项. Servers 多于一个时按集群连接.
type MQNATSConfig struct {
	Servers       []string        `mapstructure:"servers"        rule:"required,min=1,dive,required"`
	User          string          `mapstructure:"user"`
	Password      string          `mapstructure:"password"`
	JWT           string          `mapstructure:"jwt"`
	NKeySeed      string          `mapstructure:"nkey_seed"`
	NKeyFile      string          `mapstructure:"nkey_file"`
	MaxReconnects int             `mapstructure:"max_reconnects" rule:"min=-1"`
	ReconnectWait time.Duration   `mapstructure:"reconnect_wait"`
	PingInterval  time.Duration   `mapstructure:"ping_interval"`
	ReconnectBuf  int             `mapstructure:"reconnect_buf"  rule:"min=0"`
	JetStream     JetStreamConfig `mapstructure:"jetstream"`
}

// JetStreamConfig 持久化投递选项.
type JetStreamConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AutoProvision bool   `mapstructure:"auto_provision"`
	TrackMsgID    bool   `mapstructure:"track_msg_id"`
	AckAsync      bool   `mapstructure:"ack_async"`
	DurablePrefix string `mapstructure:"durable_prefix"`
}

// MQRedisConfig Redis pub/sub 配置，频道名为 ChannelPrefix + topic.
type MQRedisConfig struct {
	Addr          string `mapstructure:"addr"           rule:"hostname_port"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"             rule:"min=0,max=15"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
	Buffer        int    `mapstructure:"buffer"         rule:"min=1"`
}

// MQMemConfig 进程内队列配置.
type MQMemConfig struct {
	OutputChannelBuffer int64 `mapstructure:"output_channel_buffer" rule:"min=0"`
}

func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", MQTypeMemory)
	v.SetDefault("mq.client_id", "drivevault")
	v.SetDefault("mq.metrics", false)

	v.SetDefault("mq.nats.servers", []string{"nats://localhost:4222"})
	v.SetDefault("mq.nats.max_reconnects", 60)
	v.SetDefault("mq.nats.reconnect_wait", 2*time.Second)
	v.SetDefault("mq.nats.ping_interval", 20*time.Second)
	v.SetDefault("mq.nats.reconnect_buf", 8<<20)
	v.SetDefault("mq.nats.jetstream.enabled", true)
	v.SetDefault("mq.nats.jetstream.auto_provision", true)
	v.SetDefault("mq.nats.jetstream.track_msg_id", true)
	v.SetDefault("mq.nats.jetstream.ack_async", false)
	v.SetDefault("mq.nats.jetstream.durable_prefix", "drivevault")

	v.SetDefault("mq.redis.addr", "localhost:6379")
	v.SetDefault("mq.redis.db", 0)
	v.SetDefault("mq.redis.channel_prefix", "drivevault.")
	v.SetDefault("mq.redis.buffer", 256)

	v.SetDefault("mq.memory.output_channel_buffer", 256)
}
