package observability

import (
	"fmt"
	"os"

	pyroscope "github.com/grafana/pyroscope-go"
)

// StartProfiling 接入pyroscope持续性能分析，未配置服务端地址时静默跳过。
func StartProfiling(appName string) {
	serverAddr := os.Getenv("PYROSCOPE_SERVER_ADDRESS")
	if serverAddr == "" {
		return
	}

	_, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   serverAddr,
		Logger:          nil,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		fmt.Printf("[WARN] pyroscope start failed: %v\n", err)
	}
}
