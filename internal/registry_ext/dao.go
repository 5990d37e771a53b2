package registry_ext

import (
	"github.com/grand-thief-cash/voltify/infra/application/config"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/infra/application/registry"
	bizConfig "github.com/grand-thief-cash/voltify/internal/config"
	"github.com/grand-thief-cash/voltify/internal/consts"
	"github.com/grand-thief-cash/voltify/internal/dao"
)

func init() {
	// store.backend 决定用 gorm 还是 mongo 实现; 两者组件名相同
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		store := bizConfig.GetBizConfig().Store
		if store.Backend == consts.STORE_MONGO {
			return true, dao.NewMongoTaskDao(store.TaskCollection), nil
		}
		// data_source 对应 mysql_gorm / postgres_gorm 下的 data_sources
		return true, dao.NewGormTaskDao(store.Backend, store.DataSource), nil
	})
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		store := bizConfig.GetBizConfig().Store
		if store.Backend == consts.STORE_MONGO {
			return true, dao.NewMongoUserDao(store.UserCollection), nil
		}
		return true, dao.NewGormUserDao(store.Backend, store.DataSource), nil
	})
}
