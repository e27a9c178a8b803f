// Package jobs 负责注册与实现业务定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/internal/service"
	"github.com/yeisme/drivevault/pkg/log"
	"github.com/yeisme/drivevault/pkg/scheduler"
)

// Clock 返回当前时间.
type Clock func() time.Time

// RegisterCronJobs 按配置注册业务定时任务：
//   - trash.auto_clean：永久删除超过保留天数的回收站资源
//   - ratelimit.sweep：清理滑出窗口的限流记录
//
// cron 表达式为空或功能关闭时跳过对应任务.
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, svc *service.Services, cfg *configs.AppConfig, now Clock) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if svc == nil {
		return errors.New("services are nil")
	}

	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	if cfg.Trash.AutoClean && cfg.Trash.CleanCron != "" {
		retention := time.Duration(cfg.Trash.RetentionDays) * 24 * time.Hour

		err := sched.AddCron(ctx, JobTrashAutoClean, cfg.Trash.CleanCron, func(ctx context.Context) error {
			return TrashAutoClean(ctx, svc.Cascade, now().Add(-retention))
		})
		if err != nil {
			return err
		}
	}

	if svc.RateLimiter.Enabled() && cfg.RateLimit.SweepCron != "" {
		err := sched.AddCron(ctx, JobRateLimitSweep, cfg.RateLimit.SweepCron, func(ctx context.Context) error {
			return RateLimitSweep(ctx, svc.RateLimiter, now())
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// TrashAutoClean 永久删除 before 之前进入回收站的资源.
func TrashAutoClean(ctx context.Context, cascade *service.CascadeEngine, before time.Time) error {
	l := log.Named("jobs").With().Str("job", JobTrashAutoClean).Logger()

	report, err := cascade.PurgeExpired(ctx, before)
	if report != nil && report.Total() > 0 {
		l.Info().
			Int("files", len(report.FileIDs)).
			Int("folders", len(report.FolderIDs)).
			Int("skipped", len(report.Skipped)).
			Int("blob_failures", len(report.BlobFailures)).
			Time("before", before).
			Msg("auto cleaned trash")
	}

	return err
}

// RateLimitSweep 删除滑出窗口的请求记录.
func RateLimitSweep(ctx context.Context, limiter *service.RateLimiter, now time.Time) error {
	n, err := limiter.Sweep(ctx, now)
	if err != nil {
		return err
	}

	if n > 0 {
		log.Logger().Debug().Str("job", JobRateLimitSweep).Int64("deleted", n).Msg("swept rate limit records")
	}

	return nil
}
