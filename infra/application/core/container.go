package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Container 组件注册表
type Container struct {
	mu         sync.RWMutex
	components map[string]Component
}

func NewContainer() *Container {
	return &Container{components: make(map[string]Component)}
}

func (c *Container) Register(name string, component Component) error {
	if component == nil {
		return fmt.Errorf("component %s is nil", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.components[name]; exists {
		return fmt.Errorf("component %s already registered", name)
	}
	c.components[name] = component
	return nil
}

func (c *Container) Resolve(name string) (Component, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	component, exists := c.components[name]
	if !exists {
		return nil, fmt.Errorf("component %s not found", name)
	}
	return component, nil
}

// ListRegistered 返回快照, 调用方修改 map 不影响容器
func (c *Container) ListRegistered() map[string]Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make(map[string]Component, len(c.components))
	for name, comp := range c.components {
		result[name] = comp
	}
	return result
}

// Replace 替换尚未启动的组件 (测试里用 stub 顶替真实实现)
func (c *Container) Replace(name string, component Component) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, exists := c.components[name]
	if !exists {
		return fmt.Errorf("component %s not registered", name)
	}
	if existing.IsActive() {
		return fmt.Errorf("component %s is active; cannot replace", name)
	}
	c.components[name] = component
	return nil
}

// SortComponentsByDependencies 深度优先拓扑排序, 名字排序保证结果稳定
func (c *Container) SortComponentsByDependencies() ([]Component, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(c.components))
	result := make([]Component, 0, len(c.components))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("circular dependency detected: %s", strings.Join(append(path, name), " -> "))
		}
		comp, ok := c.components[name]
		if !ok {
			if len(path) > 0 {
				return fmt.Errorf("component %s depends on unknown component %s", path[len(path)-1], name)
			}
			return fmt.Errorf("component %s not found", name)
		}
		state[name] = visiting
		deps := comp.Dependencies()
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		result = append(result, comp)
		return nil
	}

	names := make([]string, 0, len(c.components))
	for name := range c.components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// HealthReport 对所有已启动组件执行 HealthCheck, 只返回失败项
func (c *Container) HealthReport() map[string]error {
	failed := map[string]error{}
	for name, comp := range c.ListRegistered() {
		if !comp.IsActive() {
			continue
		}
		if err := comp.HealthCheck(); err != nil {
			failed[name] = err
		}
	}
	return failed
}
