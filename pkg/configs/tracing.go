package configs

import (
	"time"

	"github.com/spf13/viper"
)

// 支持的 span 导出器.
const (
	TraceExporterOTLPHTTP = "otlp-http"
	TraceExporterOTLPGRPC = "otlp-grpc"
	TraceExporterZipkin   = "zipkin"
)

// TracingConfig OpenTelemetry 链路追踪.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name" rule:"required"`
	Environment string `mapstructure:"environment"` // deployment.environment 资源属性
	Exporter    string `mapstructure:"exporter"     rule:"oneof=otlp-http otlp-grpc zipkin"`
	Endpoint    string `mapstructure:"endpoint"`
	// Insecure 仅对 otlp-grpc 生效，关闭 TLS
	Insecure bool `mapstructure:"insecure"`
	// Headers 附加到 OTLP 导出请求，常用于鉴权
	Headers map[string]string `mapstructure:"headers"`
	// SampleRatio 根 span 的采样比例，子 span 跟随上游决定
	SampleRatio  float64       `mapstructure:"sample_ratio"  rule:"gte=0,lte=1"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

func (c *TracingConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "drivevault")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.exporter", TraceExporterOTLPHTTP)
	v.SetDefault("tracing.endpoint", "http://localhost:4318")
	v.SetDefault("tracing.insecure", false)
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.batch_timeout", 5*time.Second)
}
