package assert

import (
	"fmt"
	"sync"
)

var (
	mu    sync.Mutex
	depth int
)

// NotCircular 防止单例初始化过程中出现循环依赖导致的死锁。
func NotCircular() {
	mu.Lock()
	defer mu.Unlock()
	depth++
	if depth > 200 {
		panic("circular singleton initialization detected")
	}
}

// NotNil 断言对象非空，单例构造完成后调用。
func NotNil(v interface{}) {
	if v == nil {
		panic(fmt.Sprintf("assert: unexpected nil value %T", v))
	}
}
