package handle

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/api"
	"github.com/yeisme/drivevault/pkg/apperr"
	ctxPkg "github.com/yeisme/drivevault/pkg/context"
	"github.com/yeisme/drivevault/pkg/internal/storage"
)

const timeout = 2 * time.Second

const kvProbeKey = "dv.health.probe"

var errNotInitialized = errors.New("client not initialized")

// HealthStatus 组件健康状态.
type HealthStatus struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Backend   string `json:"backend,omitempty"`
}

type probe func(ctx context.Context, mgr *storage.Manager) (backend string, err error)

// health 在超时内执行探测，失败时返回 503.
func health(component string, p probe) gin.HandlerFunc {
	return func(c *gin.Context) {
		mgr := ctxPkg.GetManager(c.Request.Context())
		if mgr == nil {
			api.Fail(c, apperr.ErrUnavailable.WithMessage("%s unhealthy: storage manager not initialized", component))

			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		backend, err := p(ctx, mgr)
		if err != nil {
			api.Fail(c, apperr.ErrUnavailable.WithMessage("%s unhealthy", component).WithCause(err))

			return
		}

		api.OK(c, HealthStatus{Component: component, Status: "ok", Backend: backend})
	}
}

// HealthDB 数据库健康检查.
//
//	@Summary	数据库健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	api.Envelope{data=HealthStatus}
//	@Failure	503	{object}	api.Envelope
//	@Router		/api/v1/health/db [get]
func HealthDB(c *gin.Context) {
	health("db", func(ctx context.Context, mgr *storage.Manager) (string, error) {
		if mgr.DB == nil {
			return "", errNotInitialized
		}

		return string(mgr.DB.Config().Type), mgr.DB.Ping(ctx)
	})(c)
}

// HealthS3 对象存储健康检查.
//
//	@Summary	对象存储健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	api.Envelope{data=HealthStatus}
//	@Failure	503	{object}	api.Envelope
//	@Router		/api/v1/health/s3 [get]
func HealthS3(c *gin.Context) {
	health("s3", func(ctx context.Context, mgr *storage.Manager) (string, error) {
		if mgr.S3 == nil {
			return "", errNotInitialized
		}

		return mgr.S3.Bucket(), mgr.S3.HealthCheck(ctx)
	})(c)
}

// HealthKV 键值缓存健康检查.
//
//	@Summary	键值缓存健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	api.Envelope{data=HealthStatus}
//	@Failure	503	{object}	api.Envelope
//	@Router		/api/v1/health/kv [get]
func HealthKV(c *gin.Context) {
	health("kv", func(ctx context.Context, mgr *storage.Manager) (string, error) {
		if mgr.KV == nil {
			return "", errNotInitialized
		}

		_, err := mgr.KV.Exists(ctx, kvProbeKey)

		return string(mgr.KV.Type()), err
	})(c)
}

// HealthMQ 消息队列健康检查.
//
//	@Summary	消息队列健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	api.Envelope{data=HealthStatus}
//	@Failure	503	{object}	api.Envelope
//	@Router		/api/v1/health/mq [get]
func HealthMQ(c *gin.Context) {
	health("mq", func(_ context.Context, mgr *storage.Manager) (string, error) {
		if mgr.MQ == nil || mgr.MQ.Publisher() == nil {
			return "", errNotInitialized
		}

		return string(mgr.MQ.Type()), nil
	})(c)
}
