// Package cache 提供基于键值存储的泛型缓存实现.
//
// 值使用 sonic 序列化. 所有键自动加上命名空间前缀，命名空间内的键用 "." 分隔，
// 以兼容不允许 ":" 的 NATS KV.
//
// 基本用法:
//
//	c := cache.NewCache(kvClient, "dv.links.v1")
//
//	err := cache.Set(ctx, c, hashKey, entry, 5*time.Minute)
//	entry, err := cache.Get[Entry](ctx, c, hashKey)
//
//	// 并发未命中只触发一次 loader
//	entry, err := cache.GetOrSet(ctx, c, hashKey, loadEntry, 5*time.Minute)
//
// 缓存写入失败不视为错误：GetOrSet 仍返回 loader 的结果.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/drivevault/pkg/internal/storage/kv"
	nlog "github.com/yeisme/drivevault/pkg/log"
)

// ErrMiss 缓存未命中.
var ErrMiss = errors.New("cache: miss")

// Cache 基于KV存储的缓存实现，并发安全取决于底层存储.
type Cache struct {
	kvStore   kv.KVStore
	namespace string
	group     singleflight.Group
}

// NewCache 创建一个新的缓存实例，namespace 可为空.
func NewCache(kvStore kv.KVStore, namespace string) *Cache {
	return &Cache{
		kvStore:   kvStore,
		namespace: strings.TrimSuffix(namespace, "."),
	}
}

// Key 返回带命名空间的完整键.
func (c *Cache) Key(key string) string {
	if c.namespace == "" {
		return key
	}

	return c.namespace + "." + key
}

// Get 泛型获取缓存值，未命中返回 ErrMiss.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, c.Key(key))
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return zero, ErrMiss
		}

		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, c.Key(key), data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, c.Key(key))
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, c.Key(key))
}

// GetOrSet 获取缓存值，未命中时调用 loader 并回填. 同一个键的并发未命中共享一次 loader 调用.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, loader func(context.Context) (T, error), ttl time.Duration) (T, error) {
	return GetOrSetConfirmed(ctx, c, key, loader, nil, ttl)
}

// GetOrSetConfirmed 与 GetOrSet 相同，但回填之后再调用 confirm 确认数据源仍然有效.
// confirm 返回错误时删除刚写入的键并返回该错误.
func GetOrSetConfirmed[T any](
	ctx context.Context,
	c *Cache,
	key string,
	loader func(context.Context) (T, error),
	confirm func(context.Context, T) error,
	ttl time.Duration,
) (T, error) {
	var zero T

	value, err := Get[T](ctx, c, key)
	if err == nil {
		return value, nil
	}

	if !errors.Is(err, ErrMiss) {
		nlog.Logger().Warn().Err(err).Str("key", c.Key(key)).Msg("cache read failed, loading from source")
	}

	v, err, _ := c.group.Do(c.Key(key), func() (any, error) {
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		if setErr := Set(ctx, c, key, loaded, ttl); setErr != nil {
			nlog.Logger().Warn().Err(setErr).Str("key", c.Key(key)).Msg("cache write failed")
		}

		if confirm != nil {
			if err := confirm(ctx, loaded); err != nil {
				if delErr := c.Delete(ctx, key); delErr != nil {
					nlog.Logger().Warn().Err(delErr).Str("key", c.Key(key)).Msg("cache rollback failed")
				}

				return nil, err
			}
		}

		return loaded, nil
	})
	if err != nil {
		return zero, err
	}

	return v.(T), nil
}

// Clear 删除命名空间内的全部键.
func (c *Cache) Clear(ctx context.Context) error {
	prefix := ""
	if c.namespace != "" {
		prefix = c.namespace + "."
	}

	keys, err := c.kvStore.Keys(ctx, prefix)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if delErr := c.kvStore.Delete(ctx, key); delErr != nil {
			return delErr
		}
	}

	return nil
}
