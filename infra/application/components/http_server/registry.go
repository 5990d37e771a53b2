package http_server

import (
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/grand-thief-cash/voltify/infra/application/core"
)

// RouteRegisterFunc 业务包在 init() 中注册路由, 启动时按注册顺序挂载
type RouteRegisterFunc func(r chi.Router, c *core.Container) error

var (
	routeMu    sync.Mutex
	registrars []RouteRegisterFunc
)

func RegisterRoutes(fn RouteRegisterFunc) {
	if fn == nil {
		return
	}
	routeMu.Lock()
	registrars = append(registrars, fn)
	routeMu.Unlock()
}

func snapshot() []RouteRegisterFunc {
	routeMu.Lock()
	defer routeMu.Unlock()
	out := make([]RouteRegisterFunc, len(registrars))
	copy(out, registrars)
	return out
}
