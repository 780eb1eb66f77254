package manager

import (
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/logger"
)

// Resource 外部资源（数据库、Redis、对象存储、消息队列）的生命周期抽象。
type Resource interface {
	MustOpen()
	Close()
}

// ResourcePlugin 资源插件，init阶段注册，启动阶段统一打开。
type ResourcePlugin interface {
	Name() string
	MustCreateResource() Resource
}

// Component 后台组件（消费者、Worker等）
type Component interface {
	Start() error
	Stop() error
	GetName() string
}

// ComponentPlugin 组件插件
type ComponentPlugin interface {
	Name() string
	MustCreateComponent(deps *Dependencies) Component
}

// Controller HTTP控制器
type Controller interface {
	RegisterRoutes(engine *gin.Engine)
}

// ControllerPlugin 控制器插件
type ControllerPlugin interface {
	Name() string
	MustCreateController(deps *Dependencies) Controller
}

// Dependencies 依赖注入容器
type Dependencies struct {
	DB                  *gorm.DB
	Config              *config.Config
	TranscodeAppService interface{}
}

var (
	mu                sync.Mutex
	resourcePlugins   []ResourcePlugin
	componentPlugins  []ComponentPlugin
	controllerPlugins []ControllerPlugin
	openResources     []Resource
	liveComponents    []Component
	controllers       []Controller
)

// RegisterResourcePlugin 注册资源插件
func RegisterResourcePlugin(p ResourcePlugin) {
	mu.Lock()
	defer mu.Unlock()
	resourcePlugins = append(resourcePlugins, p)
}

// RegisterComponentPlugin 注册组件插件
func RegisterComponentPlugin(p ComponentPlugin) {
	mu.Lock()
	defer mu.Unlock()
	componentPlugins = append(componentPlugins, p)
}

// RegisterControllerPlugin 注册控制器插件
func RegisterControllerPlugin(p ControllerPlugin) {
	mu.Lock()
	defer mu.Unlock()
	controllerPlugins = append(controllerPlugins, p)
}

// MustInitResources 打开所有已注册资源，失败直接panic。
func MustInitResources() {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range resourcePlugins {
		logger.Infof("Opening resource name=%s", p.Name())
		r := p.MustCreateResource()
		r.MustOpen()
		openResources = append(openResources, r)
	}
}

// CloseResources 逆序关闭所有资源
func CloseResources() {
	mu.Lock()
	defer mu.Unlock()
	for i := len(openResources) - 1; i >= 0; i-- {
		openResources[i].Close()
	}
	openResources = nil
}

// MustInitComponents 创建并启动所有组件
func MustInitComponents(deps *Dependencies) {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range componentPlugins {
		c := p.MustCreateComponent(deps)
		if err := c.Start(); err != nil {
			panic("failed to start component " + c.GetName() + ": " + err.Error())
		}
		logger.Infof("Component started name=%s", c.GetName())
		liveComponents = append(liveComponents, c)
	}
}

// MustInitControllers 创建所有控制器
func MustInitControllers(deps *Dependencies) {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range controllerPlugins {
		controllers = append(controllers, p.MustCreateController(deps))
	}
}

// RegisterAllRoutes 将所有控制器路由挂载到gin引擎
func RegisterAllRoutes(engine *gin.Engine) {
	mu.Lock()
	defer mu.Unlock()
	for _, c := range controllers {
		c.RegisterRoutes(engine)
	}
}

// Shutdown 逆序停止所有组件
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	for i := len(liveComponents) - 1; i >= 0; i-- {
		c := liveComponents[i]
		if err := c.Stop(); err != nil {
			logger.Warnf("Component stop failed name=%s error=%v", c.GetName(), err)
		}
	}
	liveComponents = nil
}
