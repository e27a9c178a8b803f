// Package storage 聚合数据库、对象存储、键值缓存与消息队列客户端.
//
// Example:
//
//	mgr, err := storage.New(ctx, cfg, prometheus.DefaultRegisterer)
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	repo := gormstore.New(mgr.DB.GetDB())
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/drivevault/pkg/configs"
	dbc "github.com/yeisme/drivevault/pkg/internal/storage/db"
	kvc "github.com/yeisme/drivevault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/drivevault/pkg/internal/storage/mq"
	s3c "github.com/yeisme/drivevault/pkg/internal/storage/s3"
	nlog "github.com/yeisme/drivevault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB *dbc.Client
	S3 *s3c.Client
	KV *kvc.Client
	MQ *mqc.Client
}

// Component 可单独初始化的存储组件.
type Component string

const (
	ComponentDB Component = "db"
	ComponentS3 Component = "s3"
	ComponentKV Component = "kv"
	ComponentMQ Component = "mq"
)

// AllComponents serve 模式需要的全部组件.
var AllComponents = []Component{ComponentDB, ComponentS3, ComponentKV, ComponentMQ}

// New 按配置初始化指定组件，未指定时初始化全部. 任何一步失败都会关闭已打开的资源.
func New(ctx context.Context, cfg *configs.AppConfig, registerer prometheus.Registerer, only ...Component) (*Manager, error) {
	if len(only) == 0 {
		only = AllComponents
	}

	want := make(map[Component]bool, len(only))
	for _, c := range only {
		want[c] = true
	}

	m := &Manager{}

	if want[ComponentDB] {
		dbi, err := dbc.New(ctx, &cfg.DB, dbc.Options{
			Metrics: cfg.Metrics.Enabled && cfg.Metrics.DBStats,
			Debug:   cfg.Server.Debug,
		})
		if err != nil {
			return nil, m.fail(err)
		}

		m.DB = dbi
	}

	if want[ComponentS3] {
		s3i, err := s3c.New(ctx, &cfg.S3)
		if err != nil {
			return nil, m.fail(err)
		}

		m.S3 = s3i
	}

	if want[ComponentKV] {
		kvi, err := kvc.NewKVClient(ctx, &cfg.KV)
		if err != nil {
			return nil, m.fail(fmt.Errorf("init kv: %w", err))
		}

		m.KV = kvi
	}

	if want[ComponentMQ] {
		mqi, err := mqc.New(ctx, &cfg.MQ, registerer)
		if err != nil {
			return nil, m.fail(fmt.Errorf("init mq: %w", err))
		}

		m.MQ = mqi
	}

	nlog.Logger().Info().Interface("components", only).Msg("storage manager initialized")

	return m, nil
}

func (m *Manager) fail(err error) error {
	if cerr := m.Close(); cerr != nil {
		return errors.Join(err, cerr)
	}

	return err
}

// Close 关闭全部已打开的资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.S3 != nil {
		errs = append(errs, m.S3.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}

