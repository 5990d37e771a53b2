package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/grand-thief-cash/voltify/infra/application"
	"github.com/grand-thief-cash/voltify/infra/application/config"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	bizConfig "github.com/grand-thief-cash/voltify/internal/config"
	"github.com/grand-thief-cash/voltify/internal/consts"
	_ "github.com/grand-thief-cash/voltify/internal/registry_ext"
	"github.com/grand-thief-cash/voltify/internal/service"
	"github.com/grand-thief-cash/voltify/internal/telegram"
)

var Version = "v0.1.0"

func main() {
	var cfgPath, env string
	rootCmd := &cobra.Command{
		Use:     "voltify",
		Short:   "Voltify - personal tasks with LLM enrichment and Telegram notifications",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app := application.GetApp()
			app.SetConfigPath(cfgPath)
			app.SetEnv(env)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return application.GetApp().Run()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default $APP_CONFIG or config.yaml)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment, overrides $APP_ENV")

	rootCmd.AddCommand(serveCmd(), digestCmd(), chatIDCmd(), pingBotCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the weekly digest timer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return application.GetApp().Run()
		},
	}
}

// oneShot 关闭 http_server 与定时器, 启动其余组件后执行 fn
func oneShot(ctx context.Context, fn func(ctx context.Context, c *core.Container) error) error {
	app := application.GetApp()
	app.Configure(func(cfg *config.AppConfig) {
		if cfg.HTTPServer != nil {
			cfg.HTTPServer.Enabled = false
		}
		if cfg.Prometheus != nil {
			cfg.Prometheus.Enabled = false
		}
		bizConfig.GetBizConfig().Digest.Enabled = false
	})
	return app.Exec(ctx, fn)
}

func resolve[T any](c *core.Container, name string) (T, error) {
	var zero T
	comp, err := c.Resolve(name)
	if err != nil {
		return zero, err
	}
	v, ok := comp.(T)
	if !ok {
		return zero, fmt.Errorf("%s type assertion failed", name)
	}
	return v, nil
}

func digestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Send the weekly summary of open tasks now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd.Context(), func(ctx context.Context, c *core.Container) error {
				s, err := resolve[*service.WeeklyDigestScheduler](c, consts.COMP_SVC_DIGEST)
				if err != nil {
					return err
				}
				msg, err := s.TryRun(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
}

func chatIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat-id",
		Short: "List chats the bot has seen, to find TELEGRAM_CHAT_ID",
		Long:  "Send any message to the bot (or add it to a group) first, then run this command.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd.Context(), func(ctx context.Context, c *core.Container) error {
				tg, err := resolve[*telegram.Client](c, consts.COMP_CLI_TG)
				if err != nil {
					return err
				}
				chats, err := tg.GetUpdates(ctx)
				if err != nil {
					return err
				}
				if len(chats) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no chats found, send a message to the bot and try again")
					return nil
				}
				for _, ch := range chats {
					fmt.Fprintln(cmd.OutOrStdout(), ch.String())
				}
				return nil
			})
		},
	}
}

func pingBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping-bot",
		Short: "Send a test message to the configured chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd.Context(), func(ctx context.Context, c *core.Container) error {
				n, err := resolve[*service.NotificationService](c, consts.COMP_SVC_NOTIFY)
				if err != nil {
					return err
				}
				if err := n.SendText(ctx, consts.MsgPingBot); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "message sent")
				return nil
			})
		},
	}
}
