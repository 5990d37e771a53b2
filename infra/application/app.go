package application

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/grand-thief-cash/voltify/infra/application/autowire"
	"github.com/grand-thief-cash/voltify/infra/application/config"
	"github.com/grand-thief-cash/voltify/infra/application/consts"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/infra/application/hooks"
	"github.com/grand-thief-cash/voltify/infra/application/registry"
)

type App struct {
	env        string
	configPath string
	bizConfig  any
	overrides  []func(*config.AppConfig)

	container        *core.Container
	lifecycleManager *core.LifecycleManager
	configManager    *config.ConfigManager

	bootOnce sync.Once
	bootErr  error

	shutdownTimeout time.Duration
}

var (
	appOnce sync.Once
	app     *App
)

// GetApp 进程级单例; env / 配置路径默认取 APP_ENV / APP_CONFIG
func GetApp() *App {
	appOnce.Do(func() {
		app = NewApp(os.Getenv(consts.ENV_KEY_APP_ENV), os.Getenv(consts.ENV_KEY_APP_CONFIG))
	})
	return app
}

func NewApp(env string, configPath string) *App {
	if configPath == "" {
		configPath = consts.DEFAULT_CONFIG_PATH
	}
	container := core.NewContainer()
	return &App{
		env:              env,
		configPath:       configPath,
		container:        container,
		lifecycleManager: core.NewLifecycleManagerWithHooks(container, hooks.GetGlobalHookManager()),
		shutdownTimeout:  30 * time.Second,
	}
}

// SetConfigPath 只在 boot 之前生效 (命令行 --config)
func (app *App) SetConfigPath(p string) {
	if p != "" {
		app.configPath = p
	}
}

func (app *App) SetEnv(env string) {
	if env != "" {
		app.env = env
	}
}

// SetBizConfig 业务配置指针, 一般在业务 config 包的 init() 中设置
func (app *App) SetBizConfig(b any) { app.bizConfig = b }

// Configure 在配置加载后、组件构建前修改配置 (例如命令行关闭 http_server)
func (app *App) Configure(fn func(*config.AppConfig)) {
	if fn != nil {
		app.overrides = append(app.overrides, fn)
	}
}

func (app *App) SetShutdownTimeout(d time.Duration) {
	app.shutdownTimeout = d
	app.lifecycleManager.SetTimeout(d)
}

func (app *App) boot() error {
	app.bootOnce.Do(func() {
		abs := app.configPath
		if p, err := filepath.Abs(app.configPath); err == nil {
			abs = p
		}
		app.configManager = config.NewConfigManager(app.env, abs)
		if app.bizConfig != nil {
			app.configManager.SetBizConfig(app.bizConfig)
		}
		if err := app.configManager.LoadConfig(); err != nil {
			app.bootErr = fmt.Errorf("load config failed: %w", err)
			return
		}
		cfg := app.configManager.GetConfig()
		for _, fn := range app.overrides {
			fn(cfg)
		}
		if err := registry.BuildAndRegisterAll(cfg, app.container); err != nil {
			app.bootErr = fmt.Errorf("register components failed: %w", err)
			return
		}
		if err := autowire.InjectAll(app.container); err != nil {
			app.bootErr = fmt.Errorf("autowire failed: %w", err)
			return
		}
	})
	return app.bootErr
}

func (app *App) GetComponent(name string) (core.Component, error) {
	return app.container.Resolve(name)
}

func (app *App) Container() *core.Container { return app.container }

func (app *App) GetConfig() *config.AppConfig {
	if app.configManager == nil {
		return nil
	}
	return app.configManager.GetConfig()
}

func (app *App) AddHook(name string, phase hooks.Phase, fn hooks.HookFunc, priority int) error {
	return app.lifecycleManager.AddHook(name, phase, fn, priority)
}

// Run 监听 SIGINT/SIGTERM, 收到后优雅退出
func (app *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.RunWithContext(ctx)
}

// RunWithContext 启动全部组件并阻塞到 ctx 结束
func (app *App) RunWithContext(ctx context.Context) error {
	if err := app.boot(); err != nil {
		return err
	}
	if err := app.lifecycleManager.StartAll(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	app.Shutdown()
	return nil
}

// Exec 一次性任务: 启动组件 -> fn -> 停止 (命令行子命令使用)
func (app *App) Exec(ctx context.Context, fn func(ctx context.Context, c *core.Container) error) error {
	if err := app.boot(); err != nil {
		return err
	}
	if err := app.lifecycleManager.StartAll(ctx); err != nil {
		return err
	}
	defer app.Shutdown()
	return fn(ctx, app.container)
}

func (app *App) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
	defer cancel()
	app.lifecycleManager.StopAll(ctx)
}
