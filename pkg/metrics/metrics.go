// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP 指标与访问控制、链接分享、限流、级联删除等领域指标.
//
// Example:
//
//	import "github.com/yeisme/drivevault/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.PermissionDecisions.WithLabelValues("allowed").Inc()
package metrics

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/drivevault/pkg/configs"
)

const namespace = "drivevault"

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ActiveConnections 处理中的请求数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of in-flight requests",
		},
	)

	// PermissionDecisions 权限判定结果，result 为 allowed、denied 或 error.
	PermissionDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_decisions_total",
			Help:      "Permission resolutions by result",
		},
		[]string{"result"},
	)

	// LinkResolutions 公开链接解析结果.
	LinkResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_resolutions_total",
			Help:      "Public link resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// RateLimitRejections 被限流拒绝的请求数.
	RateLimitRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_rejections_total",
			Help:      "Requests rejected by the per-user rate limiter",
		},
	)

	// PurgedResources 永久删除的资源数.
	PurgedResources = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_resources_total",
			Help:      "Resources permanently deleted",
		},
		[]string{"type"},
	)

	// IntegrityErrors 层级数据损坏（环或超深）被检测到的次数.
	IntegrityErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_errors_total",
			Help:      "Hierarchy corruption detected during traversal",
		},
		[]string{"component"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
)

// InitMetrics 初始化Metrics，重复注册的指标会被忽略.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	collectors := []prometheus.Collector{
		RequestCounter,
		RequestDuration,
		ActiveConnections,
		PermissionDecisions,
		LinkResolutions,
		RateLimitRejections,
		PurgedResources,
		IntegrityErrors,
	}

	reg := prometheus.WrapRegistererWith(prometheus.Labels(config.Labels), registry)

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}

	return nil
}

// Handler 返回 /metrics 处理器. 运行时与 gorm 连接池指标注册在默认注册表中，按配置合并输出.
func Handler(config configs.MetricsConfig) gin.HandlerFunc {
	var gatherer prometheus.Gatherer = registry
	if config.RuntimeMetrics || config.DBStats {
		gatherer = prometheus.Gatherers{registry, prometheus.DefaultGatherer}
	}

	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

// StartMetricsServer 在 engine 上挂载 metrics 路由.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	engine.GET(config.Path, Handler(config))

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
