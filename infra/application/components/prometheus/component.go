package prometheus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/consts"
	"github.com/grand-thief-cash/voltify/infra/application/core"
)

// Component 独立端口暴露 /metrics; registry 在构造时创建, 依赖方可在 Start 前注册指标
type Component struct {
	*core.BaseComponent
	cfg      *Config
	registry *prometheus.Registry
	server   *http.Server
}

func NewComponent(cfg *Config, deps ...string) *Component {
	cfg.setDefaults()
	reg := prometheus.NewRegistry()
	if !cfg.DisableRuntimeCollectors {
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return &Component{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_PROMETHEUS, deps...),
		cfg:           cfg,
		registry:      reg,
	}
}

func (c *Component) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(c.cfg.Path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry}))
	ln, err := net.Listen("tcp", c.cfg.Address)
	if err != nil {
		return fmt.Errorf("prometheus listen %s: %w", c.cfg.Address, err)
	}
	c.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logging.Infof(ctx, "prometheus metrics listening on %s%s", ln.Addr(), c.cfg.Path)
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Errorf(context.Background(), "prometheus server error: %v", err)
		}
	}()
	return c.BaseComponent.Start(ctx)
}

func (c *Component) Stop(ctx context.Context) error {
	defer c.BaseComponent.Stop(ctx)
	if c.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("prometheus server shutdown: %w", err)
	}
	return nil
}

func (c *Component) Registry() *prometheus.Registry { return c.registry }

func (c *Component) NewCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.cfg.Namespace,
		Subsystem: c.cfg.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	c.registry.MustRegister(cv)
	return cv
}

func (c *Component) NewHistogramVec(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.cfg.Namespace,
		Subsystem: c.cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
	c.registry.MustRegister(hv)
	return hv
}
