package registry_ext

import (
	"github.com/grand-thief-cash/voltify/infra/application/config"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/infra/application/registry"
	bizConfig "github.com/grand-thief-cash/voltify/internal/config"
	"github.com/grand-thief-cash/voltify/internal/service"
)

func init() {
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, service.NewMetrics(), nil
	})
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, service.NewSessionManager(bizConfig.GetBizConfig().Session), nil
	})
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, service.NewAuthService(0), nil
	})
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, service.NewEnrichmentService(bizConfig.GetBizConfig().LLM), nil
	})
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, service.NewNotificationService(bizConfig.GetBizConfig().Telegram.ChatID), nil
	})
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, service.NewNotificationDispatcher(bizConfig.GetBizConfig().Dispatcher), nil
	})
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, service.NewTaskLifecycleManager(), nil
	})
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		s, err := service.NewWeeklyDigestScheduler(bizConfig.GetBizConfig().Digest)
		if err != nil {
			return true, nil, err
		}
		return true, s, nil
	})
}
