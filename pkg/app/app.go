// Package app 组装配置、存储、服务、调度器与 HTTP 引擎.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/drivevault/pkg/cache"
	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/internal/handle"
	"github.com/yeisme/drivevault/pkg/internal/jobs"
	"github.com/yeisme/drivevault/pkg/internal/router"
	"github.com/yeisme/drivevault/pkg/internal/service"
	"github.com/yeisme/drivevault/pkg/internal/storage"
	"github.com/yeisme/drivevault/pkg/internal/store/gormstore"
	"github.com/yeisme/drivevault/pkg/log"
	"github.com/yeisme/drivevault/pkg/metrics"
	"github.com/yeisme/drivevault/pkg/middleware"
	"github.com/yeisme/drivevault/pkg/scheduler"
	"github.com/yeisme/drivevault/pkg/tracing"
)

// App 一次 serve 运行所需的全部资源.
type App struct {
	Engine    *gin.Engine
	Config    *configs.AppConfig
	Manager   *storage.Manager
	Services  *service.Services
	Scheduler *scheduler.Scheduler
}

// New 读取配置并初始化全部组件. 出错时已打开的资源会被关闭.
func New(ctx context.Context, configPath string) (*App, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()
	log.Init()

	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	manager, err := storage.New(ctx, config, metrics.GetRegistry())
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a := &App{Config: config, Manager: manager}

	a.Services = service.New(service.Deps{
		Store:     gormstore.New(manager.DB.GetDB()),
		Blobs:     manager.S3,
		Cache:     cache.NewCache(manager.KV, service.LinkCacheNamespace),
		Publisher: manager.MQ.Publisher(),
		Logger:    log.Logger(),
	}, service.OptionsFromConfig(config))

	sched, err := scheduler.NewScheduler()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init scheduler: %w", err), a.Close())
	}

	a.Scheduler = sched

	if err := jobs.RegisterCronJobs(context.WithoutCancel(ctx), sched, a.Services, config, nil); err != nil {
		return nil, errors.Join(fmt.Errorf("register jobs: %w", err), a.Close())
	}

	a.Engine = a.buildEngine()

	return a, nil
}

func (a *App) buildEngine() *gin.Engine {
	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.MaxMultipartMemory = a.Config.Server.MaxUploadBytes()

	if err := engine.SetTrustedProxies(a.Config.Server.TrustedProxies); err != nil {
		l.Warn().Err(err).Strs("trusted_proxies", a.Config.Server.TrustedProxies).Msg("invalid trusted proxies, trusting none")
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.CORSMiddleware(a.Config.Server),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.AuthMiddleware(a.Config.Auth),
		middleware.CircuitBreakerMiddleware(a.Config.CircuitBreaker),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{a.Config.Metrics.Path})),
		middleware.InjectMiddleware(a.Manager, a.Scheduler),
	)

	if a.Config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(a.Config.Metrics, engine)
	}

	router.RegisterSwaggerRoute(engine, a.Config.Server)
	router.Register(engine, handle.New(a.Services), a.Config, a.Services.RateLimiter)

	return engine
}

// Run 启动调度器与 HTTP 服务，ctx 取消后优雅退出.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Server.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.Config.Server.ReadHeaderTimeout,
		IdleTimeout:       a.Config.Server.IdleTimeout,
	}

	a.Scheduler.Start()

	errCh := make(chan error, 1)

	go func() {
		log.Logger().Info().Str("addr", srv.Addr).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	log.Logger().Info().Msg("shutting down http server")

	return srv.Shutdown(shutdownCtx)
}

// Close 释放调度器、存储与追踪资源.
func (a *App) Close() error {
	var errs []error

	if a.Scheduler != nil {
		errs = append(errs, a.Scheduler.Shutdown())
	}

	if a.Manager != nil {
		errs = append(errs, a.Manager.Close())
	}

	timeout := 15 * time.Second
	if a.Config != nil && a.Config.Server.ShutdownTimeout > 0 {
		timeout = a.Config.Server.ShutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	errs = append(errs, tracing.ShutdownTracer(ctx))

	return errors.Join(errs...)
}
