// Package autowire 按 `infra:"dep:<name>"` 标签注入组件依赖.
// 名字以 '?' 结尾表示可选, 容器中不存在时保持零值.
// 注入成功后同时把依赖追加到组件的运行期依赖, 保证启动顺序.
package autowire

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/infra/application/registry"
)

func InjectAll(c *core.Container) error {
	registered := c.ListRegistered()
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []string
	for _, name := range names {
		if err := Inject(c, registered[name]); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("autowire errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func Inject(c *core.Container, comp core.Component) error {
	val := reflect.ValueOf(comp)
	if comp == nil || val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return nil
	}
	val = val.Elem()
	adder, _ := comp.(interface{ AddDependencies(...string) })

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" {
			continue
		}
		name, optional, ok := registry.ParseDepTag(field.Tag.Get("infra"))
		if !ok {
			continue
		}
		resolved, err := c.Resolve(name)
		if err != nil {
			if optional {
				continue
			}
			return fmt.Errorf("resolve %s failed: %w", name, err)
		}
		if err := assignValue(val.Field(i), resolved); err != nil {
			return fmt.Errorf("assign %s -> field %s failed: %w", name, field.Name, err)
		}
		if adder != nil {
			adder.AddDependencies(name)
		}
	}
	return nil
}

func assignValue(dst reflect.Value, src interface{}) error {
	if !dst.CanSet() {
		return fmt.Errorf("destination not settable")
	}
	sv := reflect.ValueOf(src)
	switch {
	case dst.Kind() == reflect.Interface && sv.Type().Implements(dst.Type()):
		dst.Set(sv)
	case sv.Type().AssignableTo(dst.Type()):
		dst.Set(sv)
	default:
		return fmt.Errorf("incompatible types: %s -> %s", sv.Type(), dst.Type())
	}
	return nil
}
