package http

import (
	"sync"

	"github.com/gin-gonic/gin"

	"media-transcode-service/ddd/application/cqe"
	appservice "media-transcode-service/ddd/application/service"
	"media-transcode-service/ddd/infrastructure/worker"
	"media-transcode-service/pkg/assert"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/errno"
	"media-transcode-service/pkg/manager"
	"media-transcode-service/pkg/middleware"
	"media-transcode-service/pkg/restapi"
)

func init() {
	manager.RegisterControllerPlugin(&TranscodeControllerPlugin{})
}

var (
	transcodeControllerOnce      sync.Once
	singletonTranscodeController *TranscodeController
)

// TranscodeControllerPlugin 转码控制器插件
type TranscodeControllerPlugin struct{}

func (p *TranscodeControllerPlugin) Name() string {
	return "transcodeControllerPlugin"
}

func (p *TranscodeControllerPlugin) MustCreateController(deps *manager.Dependencies) manager.Controller {
	assert.NotCircular()
	transcodeControllerOnce.Do(func() {
		app, _ := deps.TranscodeAppService.(appservice.TranscodeApp)
		singletonTranscodeController = &TranscodeController{
			transcodeApp: app,
			cfg:          deps.Config,
		}
	})
	assert.NotNil(singletonTranscodeController)
	return singletonTranscodeController
}

// TranscodeController 转码HTTP控制器
type TranscodeController struct {
	transcodeApp appservice.TranscodeApp
	cfg          *config.Config
}

// RegisterRoutes 挂载路由
func (c *TranscodeController) RegisterRoutes(engine *gin.Engine) {
	cfg := c.cfg
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}

	v1 := engine.Group("/api/v1/transcode")
	v1.Use(middleware.ServiceAuthMiddleware(&cfg.JWT))
	{
		v1.POST("/enqueue", c.Enqueue)                 // 异步入队
		v1.POST("/inline", c.RunInline)                // 同步执行（门控）
		v1.GET("/:video_uuid/progress", c.GetProgress) // 进度查询
	}

	internal := engine.Group("/internal/v1")
	{
		internal.GET("/worker/stats", c.WorkerStats) // Worker统计
	}

	engine.GET("/health", c.Health)
}

// Enqueue 受理转码作业
func (c *TranscodeController) Enqueue(ctx *gin.Context) {
	var cmd cqe.EnqueueTranscodeCmd
	if err := ctx.ShouldBindJSON(&cmd); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}

	result, err := c.transcodeApp.Enqueue(ctx.Request.Context(), &cmd)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Accepted(ctx, result)
}

// RunInline 同步执行转码
func (c *TranscodeController) RunInline(ctx *gin.Context) {
	var cmd cqe.InlineTranscodeCmd
	if err := ctx.ShouldBindJSON(&cmd); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}

	result, err := c.transcodeApp.RunInline(ctx.Request.Context(), &cmd)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, result)
}

// GetProgress 查询转码进度
func (c *TranscodeController) GetProgress(ctx *gin.Context) {
	videoUUID := ctx.Param("video_uuid")

	result, err := c.transcodeApp.GetProgress(ctx.Request.Context(), videoUUID)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, result)
}

// WorkerStats 返回本进程Worker统计
func (c *TranscodeController) WorkerStats(ctx *gin.Context) {
	w := worker.DefaultWorker()
	if w == nil {
		restapi.Success(ctx, gin.H{"running": false})
		return
	}
	restapi.Success(ctx, w.GetStats())
}

// Health 健康检查
func (c *TranscodeController) Health(ctx *gin.Context) {
	ctx.JSON(200, gin.H{
		"status":  "ok",
		"service": "media-transcode-service",
	})
}
