package configs

import (
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultServerPort              = 8080
	DefaultServerHost              = "0.0.0.0"
	DefaultServerReadHeaderTimeout = 10 * time.Second
	DefaultServerIdleTimeout       = 2 * time.Minute
	DefaultServerShutdownTimeout   = 15 * time.Second
	DefaultServerMaxUploadMB       = 512
)

// ServerConfig HTTP 服务配置.
type ServerConfig struct {
	Port         int    `mapstructure:"port"          rule:"min=1,max=65535"`
	Host         string `mapstructure:"host"          rule:"ip"`
	ReloadConfig bool   `mapstructure:"reload_config"` // fsnotify 热重载
	Debug        bool   `mapstructure:"debug"`

	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" rule:"gt=0"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    rule:"gt=0"`

	// MaxUploadMB 单个上传文件的大小上限，同时作为 multipart 内存阈值
	MaxUploadMB int64 `mapstructure:"max_upload_mb" rule:"min=1"`

	// AllowedOrigins 为空时允许任意来源
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// TrustedProxies 决定 ClientIP 是否读取 X-Forwarded-For，影响公开链接的按 IP 限流
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// Addr 监听地址.
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// MaxUploadBytes 上传上限（字节）.
func (s *ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.host", DefaultServerHost)
	v.SetDefault("server.reload_config", false)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.read_header_timeout", DefaultServerReadHeaderTimeout)
	v.SetDefault("server.idle_timeout", DefaultServerIdleTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)
	v.SetDefault("server.max_upload_mb", DefaultServerMaxUploadMB)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.trusted_proxies", []string{})
}
