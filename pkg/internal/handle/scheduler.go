package handle

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/drivevault/pkg/api"
	"github.com/yeisme/drivevault/pkg/apperr"
	ctxPkg "github.com/yeisme/drivevault/pkg/context"
	"github.com/yeisme/drivevault/pkg/scheduler"
)

func schedulerOf(c *gin.Context) (*scheduler.Scheduler, bool) {
	sched := ctxPkg.GetScheduler(c.Request.Context())
	if sched == nil {
		api.Fail(c, apperr.ErrUnavailable.WithMessage("scheduler not running"))

		return nil, false
	}

	return sched, true
}

// SchedulerJobs 返回所有定时任务的状态.
//
//	@Summary	定时任务列表
//	@Tags		管理
//	@Produce	json
//	@Success	200	{object}	api.Envelope{data=[]scheduler.JobInfo}
//	@Failure	403	{object}	api.Envelope
//	@Router		/api/v1/admin/jobs [get]
func SchedulerJobs(c *gin.Context) {
	sched, ok := schedulerOf(c)
	if !ok {
		return
	}

	api.OK(c, sched.GetJobInfos())
}

// SchedulerJob 返回单个任务的状态.
//
//	@Summary	任务详情
//	@Tags		管理
//	@Produce	json
//	@Param		name	path		string	true	"任务名称"
//	@Success	200		{object}	api.Envelope{data=scheduler.JobInfo}
//	@Failure	404		{object}	api.Envelope
//	@Router		/api/v1/admin/jobs/{name} [get]
func SchedulerJob(c *gin.Context) {
	sched, ok := schedulerOf(c)
	if !ok {
		return
	}

	info, err := sched.GetJobInfoByName(c.Param("name"))
	if err != nil {
		failJob(c, c.Param("name"), err)

		return
	}

	api.OK(c, info)
}

func failJob(c *gin.Context, name string, err error) {
	if errors.Is(err, scheduler.ErrJobNotFound) {
		api.Fail(c, apperr.ErrNotFound.WithMessage("job %q not found", name))

		return
	}

	api.Fail(c, err)
}

// SchedulerRunJob 立即执行一次指定任务.
//
//	@Summary	立即执行任务
//	@Tags		管理
//	@Produce	json
//	@Param		name	path		string	true	"任务名称"
//	@Success	200		{object}	api.Envelope
//	@Failure	404		{object}	api.Envelope
//	@Router		/api/v1/admin/jobs/{name}/run [post]
func SchedulerRunJob(c *gin.Context) {
	sched, ok := schedulerOf(c)
	if !ok {
		return
	}

	name := c.Param("name")
	if err := sched.RunNow(name); err != nil {
		failJob(c, name, err)

		return
	}

	api.OK(c, gin.H{"name": name, "triggered": true})
}
