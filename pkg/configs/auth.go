package configs

import "github.com/spf13/viper"

// 身份来源.
const (
	AuthModeHeader = "header" // 由 oauth2-proxy 等可信网关注入请求头
	AuthModeJWT    = "jwt"    // HS256 Bearer token，用户 ID 取自 sub
)

// AuthConfig 控制统一身份认证（优先支持 oauth2-proxy 注入的请求头）。
type AuthConfig struct {
	Mode          string   `mapstructure:"mode"            rule:"oneof=header jwt"`
	SkipPaths     []string `mapstructure:"skip_paths"`      // 跳过认证的路径前缀（如 /metrics、/api/v1/health）
	UserHeaders   []string `mapstructure:"user_headers"`    // header 模式下依次尝试的请求头
	JWTSecret     string   `mapstructure:"jwt_secret"`      // jwt 模式的签名密钥
	JWTIssuer     string   `mapstructure:"jwt_issuer"`      // 非空时校验 iss
	DevAllowQuery bool     `mapstructure:"dev_allow_query"` // 开发模式允许用 ?user= 便于本地调试
	Admins        []string `mapstructure:"admins"`          // 可访问 /admin 接口的用户 ID
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.mode", AuthModeHeader)
	v.SetDefault("auth.dev_allow_query", false)
	v.SetDefault("auth.user_headers", []string{
		"X-Auth-Request-Email",
		"X-Forwarded-Email",
		"X-User-Id",
	})
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "")
	v.SetDefault("auth.admins", []string{})
	v.SetDefault("auth.skip_paths", []string{
		"/metrics",
		"/api/v1/health",
		"/api/v1/public",
		"/swagger",
	})
}
