package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/consts"
	"github.com/grand-thief-cash/voltify/infra/application/core"
)

type HTTPServerComponent struct {
	*core.BaseComponent
	cfg       *HTTPServerConfig
	container *core.Container
	router    chi.Router
	server    *http.Server
	addr      net.Addr
}

func NewHTTPServerComponent(cfg *HTTPServerConfig, c *core.Container, deps ...string) *HTTPServerComponent {
	cfg.applyDefaults()
	return &HTTPServerComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_HTTP_SERVER, deps...),
		cfg:           cfg,
		container:     c,
	}
}

// Handler 构建完整路由; Start 调用它, 测试也可以直接拿来用 httptest
func (hc *HTTPServerComponent) Handler() (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(hc.cfg.HandlerTimeout))
	r.Use(otelchi.Middleware(hc.cfg.ServiceName, otelchi.WithChiRoutes(r)))
	r.Use(accessLog)

	if hc.cfg.EnableHealth {
		r.Get("/healthz", hc.healthHandler)
	}
	for _, fn := range snapshot() {
		if err := fn(r, hc.container); err != nil {
			return nil, fmt.Errorf("route register failed: %w", err)
		}
	}
	hc.router = r
	return r, nil
}

func (hc *HTTPServerComponent) Start(ctx context.Context) error {
	handler, err := hc.Handler()
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", hc.cfg.Address)
	if err != nil {
		return fmt.Errorf("http_server listen %s: %w", hc.cfg.Address, err)
	}
	hc.addr = ln.Addr()
	hc.server = &http.Server{
		Handler:      handler,
		ReadTimeout:  hc.cfg.ReadTimeout,
		WriteTimeout: hc.cfg.WriteTimeout,
		IdleTimeout:  hc.cfg.IdleTimeout,
	}

	go func() {
		logging.Infof(ctx, "http_server listening on %s", hc.addr)
		if err := hc.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Errorf(context.Background(), "http_server serve error: %v", err)
		}
	}()
	return hc.BaseComponent.Start(ctx)
}

func (hc *HTTPServerComponent) Stop(ctx context.Context) error {
	defer hc.BaseComponent.Stop(ctx)
	if hc.server == nil {
		return nil
	}
	stopCtx, cancel := context.WithTimeout(ctx, hc.cfg.GracefulTimeout)
	defer cancel()
	if err := hc.server.Shutdown(stopCtx); err != nil {
		return fmt.Errorf("http_server graceful shutdown failed: %w", err)
	}
	logging.Info(ctx, "http_server stopped")
	return nil
}

func (hc *HTTPServerComponent) HealthCheck() error {
	if err := hc.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	if hc.server == nil {
		return fmt.Errorf("http_server not started")
	}
	return nil
}

// healthHandler 汇总容器内组件的健康状态
func (hc *HTTPServerComponent) healthHandler(w http.ResponseWriter, _ *http.Request) {
	failed := map[string]error{}
	if hc.container != nil {
		failed = hc.container.HealthReport()
	}
	if len(failed) == 0 {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	for name, err := range failed {
		_, _ = fmt.Fprintf(w, "%s: %v\n", name, err)
	}
}

// accessLog 放在 otelchi 之后, 这样能拿到 server span
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sc := trace.SpanContextFromContext(r.Context())
		if sc.IsValid() {
			w.Header().Set("traceparent", fmt.Sprintf("00-%s-%s-%s", sc.TraceID(), sc.SpanID(), sc.TraceFlags()))
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logging.Info(r.Context(), "http_access",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("dur", time.Since(start)),
		)
	})
}
