package resource

import (
	"media-transcode-service/pkg/manager"
)

// 注册所有资源插件，打开顺序与注册顺序一致。
func init() {
	manager.RegisterResourcePlugin(&MySqlResourcePlugin{})
	manager.RegisterResourcePlugin(&RedisResourcePlugin{})
	manager.RegisterResourcePlugin(&MinioResourcePlugin{})
	manager.RegisterResourcePlugin(&KafkaResourcePlugin{})
}
