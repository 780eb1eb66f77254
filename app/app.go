package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	appsvc "media-transcode-service/ddd/application/service"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/logger"
	"media-transcode-service/pkg/manager"
	"media-transcode-service/pkg/middleware"
	"media-transcode-service/pkg/task"

	// 触发插件注册
	_ "media-transcode-service/ddd/adapter/component"
	_ "media-transcode-service/ddd/adapter/http"
	_ "media-transcode-service/ddd/infrastructure/worker"
	_ "media-transcode-service/internal/resource"
)

// Run 启动转码服务：配置、日志、资源、组件、HTTP，收尾优雅退出。
func Run() {
	fmt.Println("[STARTUP] Starting media transcode service...")

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	// 全局配置必须先于资源管理器就位
	config.SetGlobalConfig(cfg)
	fmt.Printf("[STARTUP] Config file loaded: %s\n", cfgPath)

	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)

	logger.Debug("Logger initialized", map[string]interface{}{
		"level":  cfg.Log.Level,
		"format": cfg.Log.Format,
		"output": cfg.Log.Output,
	})
	logger.Infof("Media transcode service starting")

	// FFmpeg不可用时直接在启动阶段失败
	mustCheckFFmpeg(cfg)

	logger.Infof("Initializing resource manager...")
	manager.MustInitResources()
	defer manager.CloseResources()
	logger.Infof("Resource manager initialized")

	// 装配应用服务
	transcodeApp := appsvc.DefaultTranscodeApp()

	deps := &manager.Dependencies{
		Config:              cfg,
		TranscodeAppService: transcodeApp,
	}

	logger.Infof("Initializing components...")
	manager.MustInitComponents(deps)
	logger.Infof("All components initialized")

	// 拉起后台任务（Worker循环、回收器）
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	if err := task.StartAll(rootCtx); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to start background tasks error=%v", err))
	}

	logger.Infof("Creating HTTP routes...")
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestContextMiddleware())

	manager.MustInitControllers(deps)
	manager.RegisterAllRoutes(router)
	logger.Infof("Routes registered")

	port := cfg.Server.Port
	if port == 0 {
		port = 8083
	}
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(fmt.Sprintf("Failed to start HTTP server error=%v", err))
		}
	}()
	logger.Infof("HTTP server started addr=%s", server.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Received shutdown signal, shutting down server...")

	task.StopAll()
	manager.Shutdown()
	logger.Infof("Components closed")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to close error=%v", err)
	}

	logger.Infof("Server exited safely")
	if logService != nil {
		logService.Close()
	}
	fmt.Println("[SHUTDOWN] Media transcode service exited safely")
}

// RunWorker 仅启动Worker与回收器的无HTTP进程，供独立部署使用。
func RunWorker() {
	fmt.Println("[STARTUP] Starting transcode worker process...")

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	// Worker进程强制开启轮询
	cfg.Worker.Enabled = true
	config.SetGlobalConfig(cfg)

	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)

	mustCheckFFmpeg(cfg)

	manager.MustInitResources()
	defer manager.CloseResources()

	transcodeApp := appsvc.DefaultTranscodeApp()
	deps := &manager.Dependencies{
		Config:              cfg,
		TranscodeAppService: transcodeApp,
	}
	manager.MustInitComponents(deps)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	if err := task.StartAll(rootCtx); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to start background tasks error=%v", err))
	}
	logger.Infof("Worker process started worker_id=%s", cfg.Worker.WorkerID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Received shutdown signal, stopping worker...")
	task.StopAll()
	manager.Shutdown()
	if logService != nil {
		logService.Close()
	}
	fmt.Println("[SHUTDOWN] Worker process exited safely")
}

// mustCheckFFmpeg 校验ffmpeg/ffprobe二进制可用
func mustCheckFFmpeg(cfg *config.Config) {
	ffmpegBin := cfg.Transcode.FFmpeg.BinaryPath
	if strings.TrimSpace(ffmpegBin) == "" {
		ffmpegBin = "ffmpeg"
	}
	if _, err := exec.LookPath(ffmpegBin); err != nil {
		logger.Fatal(fmt.Sprintf("FFmpeg binary not found, please install or set transcode.ffmpeg.binary_path binary=%s error=%v", ffmpegBin, err))
	}
	if probe := cfg.Transcode.FFmpeg.ProbePath; strings.TrimSpace(probe) != "" {
		if _, err := exec.LookPath(probe); err != nil {
			logger.Warnf("ffprobe not found, duration probing disabled binary=%s error=%v", probe, err)
		}
	}
}

// resolveConfigPath 根据环境选择配置文件，支持CONFIG_PATH覆盖、CONFIG_ENV区分环境
func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := strings.ToLower(strings.TrimSpace(os.Getenv("CONFIG_ENV")))
	if env == "" {
		env = "dev"
	}

	switch env {
	case "prod", "production":
		return "configs/config_prod.yaml"
	case "dev", "development":
		return "configs/config.dev.yaml"
	default:
		return fmt.Sprintf("configs/config.%s.yaml", env)
	}
}
