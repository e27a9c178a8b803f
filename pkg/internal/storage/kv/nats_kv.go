package kv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yeisme/drivevault/pkg/configs"
)

// NATS KV 键只允许这些字符.
var natsKeyPattern = regexp.MustCompile(`^[-/_=.a-zA-Z0-9]+$`)

// NATSKV 基于 JetStream KV 的实现. bucket 只保留最新值，单键过期靠 wrapTTL.
type NATSKV struct {
	conn *nats.Conn
	kv   nats.KeyValue
	now  func() time.Time
}

// NewNATSKV 连接 NATS 并创建或打开 bucket.
func NewNATSKV(ctx context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.NATSKVConfig)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("invalid NATS KV config")
	}

	opts := []nats.Option{nats.Name("drivevault-kv")}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream(nats.Context(ctx))
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	replicas := cfg.Replicas
	if replicas < 1 {
		replicas = 1
	}

	bucket, err := js.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "drivevault link lookup cache",
		History:     1,
		TTL:         cfg.MaxAge,
		Replicas:    replicas,
	})
	if err != nil {
		// 已存在且配置不同时创建会失败，直接打开现有 bucket
		bucket, err = js.KeyValue(cfg.Bucket)
	}

	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to open KV bucket %s: %w", cfg.Bucket, err)
	}

	return &NATSKV{conn: nc, kv: bucket, now: time.Now}, nil
}

func checkKey(key string) error {
	if !natsKeyPattern.MatchString(key) || strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") {
		return fmt.Errorf("invalid NATS KV key %q", key)
	}

	return nil
}

// live 读取并解包，过期条目顺手删除.
func (n *NATSKV) live(key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	entry, err := n.kv.Get(key)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	val, ok, err := unwrapTTL(entry.Value(), n.now())
	if err != nil {
		return nil, err
	}

	if !ok {
		_ = n.kv.Delete(key)

		return nil, ErrKeyNotFound
	}

	return val, nil
}

// Get 获取键的值.
func (n *NATSKV) Get(_ context.Context, key string) ([]byte, error) {
	return n.live(key)
}

// Set 写入键，ttl>0 时包装过期时间.
func (n *NATSKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}

	encoded, err := wrapTTL(value, ttl, n.now())
	if err != nil {
		return err
	}

	if _, err := n.kv.Put(key, encoded); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

// Delete 删除键.
func (n *NATSKV) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	if err := n.kv.Delete(key); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

// Exists 检查键是否存在且未过期.
func (n *NATSKV) Exists(_ context.Context, key string) (bool, error) {
	_, err := n.live(key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}

	return err == nil, err
}

// Keys 列出前缀匹配且未过期的键.
func (n *NATSKV) Keys(_ context.Context, prefix string) ([]string, error) {
	keys, err := n.kv.Keys()
	if errors.Is(err, nats.ErrNoKeysFound) {
		return []string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	out := make([]string, 0, len(keys))

	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		if _, err := n.live(key); err == nil {
			out = append(out, key)
		}
	}

	return out, nil
}

// Close 排空并关闭连接.
func (n *NATSKV) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()

		return err
	}

	return nil
}

func init() {
	RegisterKVFactory(KVTypeNATS, NewNATSKV)
}
