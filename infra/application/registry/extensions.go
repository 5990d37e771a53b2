package registry

import (
	"log"
	"sync"

	"github.com/grand-thief-cash/voltify/infra/application/core"
)

// target -> 额外运行期依赖, 在组件注册之后、StartAll 之前生效
var (
	runtimeDepExtMap = map[string][]string{}
	runtimeDepExtMu  sync.Mutex
)

// ExtendRuntimeDependencies 声明 target 启动前必须先启动 deps (例如 http_server 依赖各 controller)
// 只影响启动/停止顺序, 不影响构建顺序; 需在 BuildAndRegisterAll 之前调用
func ExtendRuntimeDependencies(target string, deps ...string) {
	if target == "" || len(deps) == 0 {
		return
	}
	runtimeDepExtMu.Lock()
	runtimeDepExtMap[target] = append(runtimeDepExtMap[target], deps...)
	runtimeDepExtMu.Unlock()
}

func applyRuntimeDepExtensions(c *core.Container) {
	runtimeDepExtMu.Lock()
	defer runtimeDepExtMu.Unlock()
	for target, extra := range runtimeDepExtMap {
		comp, err := c.Resolve(target)
		if err != nil {
			log.Printf("registry: runtime dep extension target %s not registered (skipped)", target)
			continue
		}
		extender, ok := comp.(interface{ AddDependencies(...string) })
		if !ok {
			log.Printf("registry: component %s does not support AddDependencies; extension skipped", target)
			continue
		}
		// 只追加已注册的依赖, 被禁用的组件不应阻塞启动
		var present []string
		for _, d := range extra {
			if _, err := c.Resolve(d); err == nil {
				present = append(present, d)
			}
		}
		extender.AddDependencies(present...)
	}
	runtimeDepExtMap = map[string][]string{}
}
