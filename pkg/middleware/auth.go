package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yeisme/drivevault/pkg/api"
	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/context"
)

var errNoIdentity = errors.New("no identity in request")

// AuthMiddleware 解析调用者身份并写入请求上下文.
//   - header 模式：依次读取 user_headers，由 oauth2-proxy 等可信网关注入
//   - jwt 模式：校验 HS256 Bearer token，用户 ID 取自 sub
//   - dev_allow_query 为真时允许 ?user= 兜底，仅用于本地调试
//
// 跳过的路径不要求身份，但仍会尽量解析.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	parser := jwt.NewParser(jwtParserOptions(conf)...)

	return func(c *gin.Context) {
		caller, err := identify(c, conf, parser)
		if err == nil {
			c.Request = c.Request.WithContext(context.WithCaller(c.Request.Context(), caller))
			c.Set("caller", caller)
			c.Next()

			return
		}

		if isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()

			return
		}

		api.Fail(c, apperr.ErrUnauthenticated.WithCause(err))
	}
}

func jwtParserOptions(conf configs.AuthConfig) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}

	if conf.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(conf.JWTIssuer))
	}

	return opts
}

func identify(c *gin.Context, conf configs.AuthConfig, parser *jwt.Parser) (string, error) {
	var (
		caller string
		err    error
	)

	switch conf.Mode {
	case configs.AuthModeJWT:
		caller, err = fromJWT(c, conf, parser)
	default:
		caller = fromHeaders(c, conf.UserHeaders)
	}

	if caller == "" && conf.DevAllowQuery {
		caller = strings.TrimSpace(c.Query("user"))
	}

	if caller != "" {
		return caller, nil
	}

	if err == nil {
		err = errNoIdentity
	}

	return "", err
}

func fromHeaders(c *gin.Context, headers []string) string {
	for _, h := range headers {
		if v := strings.TrimSpace(c.GetHeader(h)); v != "" {
			return v
		}
	}

	return ""
}

func fromJWT(c *gin.Context, conf configs.AuthConfig, parser *jwt.Parser) (string, error) {
	raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", errNoIdentity
	}

	claims := &jwt.RegisteredClaims{}

	_, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return []byte(conf.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(claims.Subject), nil
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
