package registry_ext

import (
	"github.com/grand-thief-cash/voltify/infra/application/config"
	appconsts "github.com/grand-thief-cash/voltify/infra/application/consts"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/infra/application/registry"
	"github.com/grand-thief-cash/voltify/internal/api"
	bizConfig "github.com/grand-thief-cash/voltify/internal/config"
	"github.com/grand-thief-cash/voltify/internal/consts"
)

func init() {
	// http_server 在 controller 之后启动, 路由注册时才能解析到它们
	registry.ExtendRuntimeDependencies(appconsts.COMPONENT_HTTP_SERVER,
		consts.COMP_CTRL_AUTH, consts.COMP_CTRL_TASK, consts.COMP_CTRL_DIGEST)

	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, api.NewAuthController(bizConfig.GetBizConfig().Session.TTL), nil
	})
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, api.NewTaskController(), nil
	})
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, api.NewDigestController(), nil
	})
}
