package repository

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"media-transcode-service/pkg/config"
)

// Database 封装gorm数据库连接
type Database struct {
	Self *gorm.DB
}

// NewDatabase 建立MySQL连接并应用连接池配置。
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	db, err := gorm.Open(mysql.Open(cfg.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &Database{Self: db}, nil
}

// Close 关闭底层连接池
func (d *Database) Close() {
	if d == nil || d.Self == nil {
		return
	}
	if sqlDB, err := d.Self.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
