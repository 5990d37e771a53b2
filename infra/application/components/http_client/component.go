package http_client

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/consts"
	"github.com/grand-thief-cash/voltify/infra/application/core"
)

// HTTPClientsComponent 按名字管理多个出站客户端 (openai / telegram ...)
type HTTPClientsComponent struct {
	*core.BaseComponent
	cfg     *HTTPClientsConfig
	mu      sync.RWMutex
	clients map[string]*InstrumentedClient
}

func NewHTTPClientsComponent(cfg *HTTPClientsConfig, deps ...string) *HTTPClientsComponent {
	cfg.applyDefaults()
	hc := &HTTPClientsComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_HTTP_CLIENTS, deps...),
		cfg:           cfg,
		clients:       map[string]*InstrumentedClient{},
	}
	// 构造时即创建, 依赖方在 Start 之前也能拿到
	for name, cCfg := range cfg.Clients {
		hc.clients[name] = NewInstrumentedClient(name, cCfg)
	}
	return hc
}

func (hc *HTTPClientsComponent) Start(ctx context.Context) error {
	names := make([]string, 0, len(hc.clients))
	for name := range hc.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	logging.Infof(ctx, "http_clients ready: %v", names)
	return hc.BaseComponent.Start(ctx)
}

func (hc *HTTPClientsComponent) Stop(ctx context.Context) error {
	hc.mu.RLock()
	for _, cli := range hc.clients {
		if cli.Underlying != nil {
			cli.Underlying.CloseIdleConnections()
		}
	}
	hc.mu.RUnlock()
	return hc.BaseComponent.Stop(ctx)
}

// Client 空名字返回默认客户端
func (hc *HTTPClientsComponent) Client(name string) (*InstrumentedClient, error) {
	if name == "" {
		name = hc.cfg.Default
	}
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	cli, ok := hc.clients[name]
	if !ok {
		return nil, fmt.Errorf("http client %s not found", name)
	}
	return cli, nil
}

func (hc *HTTPClientsComponent) Default() (*InstrumentedClient, error) {
	return hc.Client(hc.cfg.Default)
}
