package registry_ext_test

import (
	"testing"

	"github.com/grand-thief-cash/voltify/infra/application/autowire"
	"github.com/grand-thief-cash/voltify/infra/application/config"
	appconsts "github.com/grand-thief-cash/voltify/infra/application/consts"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/infra/application/registry"
	"github.com/grand-thief-cash/voltify/internal/api"
	bizConfig "github.com/grand-thief-cash/voltify/internal/config"
	"github.com/grand-thief-cash/voltify/internal/consts"
	"github.com/grand-thief-cash/voltify/internal/dao"
	_ "github.com/grand-thief-cash/voltify/internal/registry_ext"
	"github.com/grand-thief-cash/voltify/internal/service"
)

// 只做构建与注入, 不启动组件, 不需要真实的 mysql
func buildContainer(t *testing.T) *core.Container {
	t.Helper()
	cm := config.NewConfigManager("test", "./testdata/config.yaml")
	cm.SetBizConfig(bizConfig.GetBizConfig())
	if err := cm.LoadConfig(); err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	c := core.NewContainer()
	if err := registry.BuildAndRegisterAll(cm.GetConfig(), c); err != nil {
		t.Fatalf("build/register failed: %v", err)
	}
	if err := autowire.InjectAll(c); err != nil {
		t.Fatalf("autowire failed: %v", err)
	}
	return c
}

func TestWiringAndStartOrder(t *testing.T) {
	c := buildContainer(t)

	comp, err := c.Resolve(consts.COMP_DAO_TASK)
	if err != nil {
		t.Fatalf("resolve task_dao: %v", err)
	}
	if _, ok := comp.(*dao.GormTaskDao); !ok {
		t.Fatalf("store.backend=mysql should build the gorm task dao, got %T", comp)
	}

	comp, err = c.Resolve(consts.COMP_SVC_LIFECYCLE)
	if err != nil {
		t.Fatalf("resolve lifecycle: %v", err)
	}
	m := comp.(*service.TaskLifecycleManager)
	if m.TaskDao == nil || m.Enricher == nil || m.Dispatcher == nil || m.Metrics == nil {
		t.Fatalf("lifecycle dependencies not injected: %+v", m)
	}

	comp, err = c.Resolve(consts.COMP_CTRL_DIGEST)
	if err != nil {
		t.Fatalf("resolve digest controller: %v", err)
	}
	if comp.(*api.DigestController).Digest == nil {
		t.Fatalf("digest controller missing scheduler")
	}

	comp, err = c.Resolve(consts.COMP_SVC_SESSION)
	if err != nil {
		t.Fatalf("resolve session store: %v", err)
	}
	if comp.(*service.SessionManager).Redis != nil {
		t.Fatalf("redis is disabled, optional dep must stay nil")
	}

	ordered, err := c.SortComponentsByDependencies()
	if err != nil {
		t.Fatalf("sort deps failed: %v", err)
	}
	idx := map[string]int{}
	for i, comp := range ordered {
		idx[comp.Name()] = i
	}
	checkBefore := func(a, b string) {
		ia, okA := idx[a]
		ib, okB := idx[b]
		if !okA || !okB {
			t.Fatalf("component missing: %s=%v %s=%v", a, okA, b, okB)
		}
		if ia > ib {
			t.Fatalf("expected %s before %s in start order, got %d > %d", a, b, ia, ib)
		}
	}
	checkBefore(appconsts.COMPONENT_MYSQL_GORM, consts.COMP_DAO_TASK)
	checkBefore(appconsts.COMPONENT_HTTP_CLIENTS, consts.COMP_CLI_LLM)
	checkBefore(appconsts.COMPONENT_PROMETHEUS, consts.COMP_SVC_METRICS)
	checkBefore(consts.COMP_CLI_TG, consts.COMP_SVC_NOTIFY)
	checkBefore(consts.COMP_SVC_NOTIFY, consts.COMP_SVC_DISPATCHER)
	checkBefore(consts.COMP_DAO_TASK, consts.COMP_SVC_LIFECYCLE)
	checkBefore(consts.COMP_SVC_DISPATCHER, consts.COMP_SVC_LIFECYCLE)
	checkBefore(consts.COMP_SVC_ENRICH, consts.COMP_SVC_DIGEST)
	checkBefore(consts.COMP_SVC_LIFECYCLE, consts.COMP_CTRL_TASK)
	checkBefore(consts.COMP_CTRL_TASK, appconsts.COMPONENT_HTTP_SERVER)
	checkBefore(consts.COMP_CTRL_AUTH, appconsts.COMPONENT_HTTP_SERVER)
	checkBefore(consts.COMP_CTRL_DIGEST, appconsts.COMPONENT_HTTP_SERVER)
}
