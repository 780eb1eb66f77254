package resource

import (
	"sync"

	"gorm.io/gorm"

	"media-transcode-service/pkg/assert"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/logger"
	"media-transcode-service/pkg/manager"
	"media-transcode-service/pkg/repository"
)

var (
	mysqlResourceOnce      sync.Once
	singletonMysqlResource *MysqlResource
)

// MysqlResource 管理主库连接的生命周期
type MysqlResource struct {
	db *repository.Database
}

// DefaultMysqlResource 获取MySQL资源单例
func DefaultMysqlResource() *MysqlResource {
	assert.NotCircular()
	mysqlResourceOnce.Do(func() {
		singletonMysqlResource = &MysqlResource{}
	})
	assert.NotNil(singletonMysqlResource)
	return singletonMysqlResource
}

// MustOpen 建立数据库连接
func (r *MysqlResource) MustOpen() {
	if r.db != nil {
		return
	}

	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized before MysqlResource")
	}

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		panic("failed to connect mysql: " + err.Error())
	}
	r.db = db

	logger.Info("MySQL resource initialized", map[string]interface{}{
		"host":     cfg.Database.Host,
		"database": cfg.Database.Database,
	})
}

// MainDB 获取主库句柄
func (r *MysqlResource) MainDB() *gorm.DB {
	if r.db == nil {
		return nil
	}
	return r.db.Self
}

// Close 关闭连接池
func (r *MysqlResource) Close() {
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
}

// MySqlResourcePlugin MySQL资源插件
type MySqlResourcePlugin struct{}

func (p *MySqlResourcePlugin) Name() string {
	return "mysqlResource"
}

func (p *MySqlResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultMysqlResource()
}
