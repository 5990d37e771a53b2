package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/grand-thief-cash/voltify/infra/application/hooks"
)

// LifecycleManager 按依赖顺序启动组件, 逆序停止
// 这里只能用标准库 log: logging 组件本身也是被管理的组件
type LifecycleManager struct {
	container   *Container
	hookManager *hooks.Manager
	timeout     time.Duration

	mu      sync.Mutex
	started []Component
	stopped bool
}

func NewLifecycleManager(container *Container) *LifecycleManager {
	return NewLifecycleManagerWithHooks(container, hooks.NewManager())
}

// NewLifecycleManagerWithHooks 使用外部钩子管理器 (一般是全局的那个)
func NewLifecycleManagerWithHooks(container *Container, hm *hooks.Manager) *LifecycleManager {
	if hm == nil {
		hm = hooks.NewManager()
	}
	return &LifecycleManager{container: container, hookManager: hm, timeout: 30 * time.Second}
}

// SetTimeout 单个组件启动/停止的超时
func (lm *LifecycleManager) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		lm.timeout = timeout
	}
}

func (lm *LifecycleManager) AddHook(name string, phase hooks.Phase, function hooks.HookFunc, priority int) error {
	return lm.hookManager.Register(&hooks.Hook{Name: name, Phase: phase, Function: function, Priority: priority})
}

// StartAll 启动全部组件; 任一失败时回滚已启动的组件
func (lm *LifecycleManager) StartAll(ctx context.Context) error {
	if err := lm.hookManager.Execute(ctx, hooks.BeforeStart); err != nil {
		return fmt.Errorf("before_start hooks failed: %w", err)
	}

	components, err := lm.container.SortComponentsByDependencies()
	if err != nil {
		return fmt.Errorf("failed to sort components: %w", err)
	}

	for _, comp := range components {
		startCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := comp.Start(startCtx)
		cancel()
		if err != nil {
			log.Printf("Failed to start component %s: %v", comp.Name(), err)
			lm.rollback(context.Background())
			return fmt.Errorf("failed to start component %s: %w", comp.Name(), err)
		}
		lm.mu.Lock()
		lm.started = append(lm.started, comp)
		lm.mu.Unlock()
		log.Printf("Component %s started", comp.Name())
	}

	if err := lm.hookManager.Execute(ctx, hooks.AfterStart); err != nil {
		log.Printf("after_start hooks failed: %v", err)
	}
	return nil
}

// StopAll 只执行一次
func (lm *LifecycleManager) StopAll(ctx context.Context) {
	lm.mu.Lock()
	if lm.stopped {
		lm.mu.Unlock()
		return
	}
	lm.stopped = true
	lm.mu.Unlock()

	if err := lm.hookManager.Execute(ctx, hooks.BeforeShutdown); err != nil {
		log.Printf("before_shutdown hooks failed: %v", err)
	}
	lm.rollback(ctx)
	if err := lm.hookManager.Execute(ctx, hooks.AfterShutdown); err != nil {
		log.Printf("after_shutdown hooks failed: %v", err)
	}
}

func (lm *LifecycleManager) rollback(ctx context.Context) {
	lm.mu.Lock()
	started := lm.started
	lm.started = nil
	lm.mu.Unlock()

	for i := len(started) - 1; i >= 0; i-- {
		comp := started[i]
		if !comp.IsActive() {
			continue
		}
		stopCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		if err := comp.Stop(stopCtx); err != nil {
			log.Printf("Error stopping component %s: %v", comp.Name(), err)
		}
		cancel()
	}
}
