package hooks

import (
	"context"
	"log"
)

var globalHookManager = NewManager()

func init() {
	defaults := []struct {
		name  string
		phase Phase
		msg   string
	}{
		{"log_startup", BeforeStart, "Application is starting..."},
		{"log_started", AfterStart, "Application started successfully"},
		{"log_shutdown", BeforeShutdown, "Application is shutting down..."},
		{"log_shutdown_complete", AfterShutdown, "Application shutdown completed"},
	}
	for _, d := range defaults {
		msg := d.msg
		if err := RegisterHook(d.name, d.phase, func(ctx context.Context) error {
			log.Println(msg)
			return nil
		}, 100); err != nil {
			log.Printf("Failed to register default hook %s: %v", d.name, err)
		}
	}
}

// RegisterHook 注册到全局钩子管理器
func RegisterHook(name string, phase Phase, function HookFunc, priority int) error {
	return globalHookManager.Register(&Hook{Name: name, Phase: phase, Function: function, Priority: priority})
}

func GetGlobalHookManager() *Manager { return globalHookManager }
