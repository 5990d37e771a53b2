package registry_ext

import (
	"github.com/grand-thief-cash/voltify/infra/application/config"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/infra/application/registry"
	bizConfig "github.com/grand-thief-cash/voltify/internal/config"
	"github.com/grand-thief-cash/voltify/internal/llm"
	"github.com/grand-thief-cash/voltify/internal/telegram"
)

func init() {
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		l := bizConfig.GetBizConfig().LLM
		return true, llm.NewClient(l.Client, l.APIKey), nil
	})
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		tg := bizConfig.GetBizConfig().Telegram
		return true, telegram.NewClient(tg.Client, tg.BotToken), nil
	})
}
