package registry

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/grand-thief-cash/voltify/infra/application/config"
	"github.com/grand-thief-cash/voltify/infra/application/core"
)

// BuilderFunc 返回 (enabled, component, error); enabled=false 跳过注册
type BuilderFunc func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error)

type builder struct {
	name string
	fn   BuilderFunc
	auto bool     // 名字与构建期依赖由组件实例推断
	deps []string // 构建顺序依赖

	built   core.Component
	enabled bool
}

var (
	mu       sync.Mutex
	builders []*builder
)

func find(name string) *builder {
	for _, b := range builders {
		if b.name == name {
			return b
		}
	}
	return nil
}

// Register 显式命名的 builder
func Register(name string, fn BuilderFunc) {
	if name == "" {
		panic("registry: empty name in Register")
	}
	mu.Lock()
	defer mu.Unlock()
	if find(name) != nil {
		panic("registry: duplicate builder name " + name)
	}
	builders = append(builders, &builder{name: name, fn: fn})
}

// RegisterAuto 组件名取 Name(), 构建依赖取 `infra:"dep:x"` 标签
func RegisterAuto(fn BuilderFunc) {
	mu.Lock()
	builders = append(builders, &builder{auto: true, fn: fn})
	mu.Unlock()
}

// BuildAndRegisterAll
// 1. auto builder 预构建一次, 推断名字与依赖
// 2. 按依赖拓扑排序
// 3. 依次构建并注册到容器
func BuildAndRegisterAll(cfg *config.AppConfig, c *core.Container) error {
	mu.Lock()
	defer mu.Unlock()

	var active []*builder
	for _, b := range builders {
		if !b.auto {
			active = append(active, b)
			continue
		}
		enabled, comp, err := b.fn(cfg, c)
		if err != nil {
			return fmt.Errorf("prebuild auto component failed: %w", err)
		}
		if !enabled || comp == nil {
			continue
		}
		if comp.Name() == "" {
			return fmt.Errorf("auto builder produced unnamed component")
		}
		if existing := find(comp.Name()); existing != nil && existing != b {
			return fmt.Errorf("duplicate component name: %s", comp.Name())
		}
		b.name, b.built, b.enabled = comp.Name(), comp, true
		b.deps = inferTagDependencies(comp)
		active = append(active, b)
	}

	ordered, err := topoSort(active)
	if err != nil {
		return err
	}
	for _, b := range ordered {
		enabled, comp := b.enabled, b.built
		if !b.auto {
			if enabled, comp, err = b.fn(cfg, c); err != nil {
				return fmt.Errorf("build %s failed: %w", b.name, err)
			}
		}
		if !enabled || comp == nil {
			continue
		}
		if err := c.Register(b.name, comp); err != nil {
			return fmt.Errorf("register %s failed: %w", b.name, err)
		}
	}
	applyRuntimeDepExtensions(c)
	return nil
}

// inferTagDependencies 读取导出字段上的 `infra:"dep:<name>"` / `infra:"dep:<name>?"`
func inferTagDependencies(comp core.Component) []string {
	v := reflect.ValueOf(comp)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	t := v.Type()
	seen := map[string]bool{}
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name, _, ok := ParseDepTag(f.Tag.Get("infra"))
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// ParseDepTag 解析 dep 标签, optional 表示带 '?' 后缀
func ParseDepTag(tag string) (name string, optional bool, ok bool) {
	if !strings.HasPrefix(tag, "dep:") {
		return "", false, false
	}
	name = strings.TrimSpace(strings.TrimPrefix(tag, "dep:"))
	if strings.HasSuffix(name, "?") {
		optional = true
		name = strings.TrimSpace(strings.TrimSuffix(name, "?"))
	}
	return name, optional, name != ""
}

// topoSort Kahn 算法; 未知依赖忽略 (可选依赖可能没有 builder)
func topoSort(list []*builder) ([]*builder, error) {
	byName := map[string]*builder{}
	inDeg := map[string]int{}
	for _, b := range list {
		byName[b.name] = b
		inDeg[b.name] = 0
	}
	adj := map[string][]string{}
	for _, b := range list {
		for _, d := range b.deps {
			if _, ok := byName[d]; !ok || d == b.name {
				continue
			}
			adj[d] = append(adj[d], b.name)
			inDeg[b.name]++
		}
	}
	var ready []string
	for n, d := range inDeg {
		if d == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)
	ordered := make([]*builder, 0, len(list))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byName[n])
		for _, next := range adj[n] {
			inDeg[next]--
			if inDeg[next] == 0 {
				ready = append(ready, next)
			}
		}
		sort.Strings(ready)
	}
	if len(ordered) != len(byName) {
		var cyc []string
		for n, d := range inDeg {
			if d > 0 {
				cyc = append(cyc, n)
			}
		}
		sort.Strings(cyc)
		return nil, fmt.Errorf("registry: cyclic builder deps: %v", cyc)
	}
	return ordered, nil
}

// reset 仅测试使用
func reset() {
	mu.Lock()
	builders = nil
	mu.Unlock()
	runtimeDepExtMu.Lock()
	runtimeDepExtMap = map[string][]string{}
	runtimeDepExtMu.Unlock()
}
