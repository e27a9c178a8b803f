// Package log 进程级 zerolog logger. stderr 可选 console 或 JSON，文件输出经 lumberjack 轮转.
package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yeisme/drivevault/pkg/configs"
)

var (
	logger   zerolog.Logger
	initOnce sync.Once
)

// Init 按全局配置初始化，只生效一次. 同时设置 gin 的运行模式.
func Init() {
	initOnce.Do(func() {
		cfg := configs.GetConfig()
		logger = New(cfg.Log, cfg.Server.Debug, os.Stderr)
		log.Logger = logger

		if cfg.Server.Debug {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
	})
}

// New 构建 logger. 无法识别的级别按 info 处理.
func New(cfg configs.LogConfig, debug bool, stderr io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	out := stderr
	if cfg.Format != configs.LogFormatJSON {
		out = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.TimeOnly}
	}

	if cfg.File.Enabled && cfg.File.Path != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		})
	}

	zc := zerolog.New(out).Level(lvl).With().Timestamp()
	if debug {
		zc = zc.Caller()
	}

	l := zc.Logger()
	if err != nil && cfg.Level != "" {
		l.Warn().Str("level", cfg.Level).Msg("unknown log level, using info")
	}

	return l
}

// Logger 返回全局 logger，必要时先初始化.
func Logger() *zerolog.Logger {
	Init()

	return &logger
}

// Named 返回带 component 字段的子 logger.
func Named(component string) *zerolog.Logger {
	l := Logger().With().Str("component", component).Logger()

	return &l
}

// GinWriter 把 gin 的文本输出逐行转成日志事件.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

// NewGinWriter 用于 gin.DefaultWriter 与 gin.DefaultErrorWriter.
func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

func (w *GinWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lvl := w.level
		if lvl < zerolog.WarnLevel {
			lvl = zerolog.DebugLevel
		}

		w.logger.WithLevel(lvl).Str("source", "gin").Msg(line)
	}

	return len(p), nil
}
