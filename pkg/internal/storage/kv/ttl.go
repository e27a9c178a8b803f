package kv

import (
	"bytes"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// 后端无单键过期能力时，值被包成 ttlPrefix + JSON{v,exp}.
var ttlPrefix = []byte("dvttl\x00")

type ttlEnvelope struct {
	Value     []byte `json:"v"`
	ExpiresAt int64  `json:"exp"` // unix 毫秒
}

// wrapTTL ttl<=0 时原样返回.
func wrapTTL(value []byte, ttl time.Duration, now time.Time) ([]byte, error) {
	if ttl <= 0 {
		return value, nil
	}

	body, err := sonic.Marshal(ttlEnvelope{Value: value, ExpiresAt: now.Add(ttl).UnixMilli()})
	if err != nil {
		return nil, fmt.Errorf("wrap ttl: %w", err)
	}

	return append(bytes.Clone(ttlPrefix), body...), nil
}

// unwrapTTL 还原值. 已过期时 ok 为 false.
func unwrapTTL(raw []byte, now time.Time) (value []byte, ok bool, err error) {
	body, wrapped := bytes.CutPrefix(raw, ttlPrefix)
	if !wrapped {
		return raw, true, nil
	}

	var env ttlEnvelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return nil, false, fmt.Errorf("unwrap ttl: %w", err)
	}

	if now.UnixMilli() >= env.ExpiresAt {
		return nil, false, nil
	}

	return env.Value, true, nil
}
