package service

import (
	"context"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/grand-thief-cash/voltify/infra/application/components/prometheus"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/internal/consts"
)

// Metrics 业务指标; prometheus 未启用时所有方法都是空操作, nil 接收者同样安全
type Metrics struct {
	*core.BaseComponent
	Prom *prometheus.Component `infra:"dep:prometheus?"`

	taskOps       *prom.CounterVec
	enrichments   *prom.CounterVec
	enrichLatency *prom.HistogramVec
	notifications *prom.CounterVec
	digestRuns    *prom.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{BaseComponent: core.NewBaseComponent(consts.COMP_SVC_METRICS)}
}

func (m *Metrics) Start(ctx context.Context) error {
	if m.IsActive() {
		return nil
	}
	if m.Prom != nil {
		m.taskOps = m.Prom.NewCounterVec("task_operations_total", "Task lifecycle operations by result.", []string{"op", "result"})
		m.enrichments = m.Prom.NewCounterVec("enrichment_requests_total", "LLM enrichment calls by kind and result.", []string{"kind", "result"})
		m.enrichLatency = m.Prom.NewHistogramVec("enrichment_duration_seconds", "LLM enrichment latency.", []string{"kind"}, nil)
		m.notifications = m.Prom.NewCounterVec("notifications_total", "Outbound notifications by kind and result.", []string{"kind", "result"})
		m.digestRuns = m.Prom.NewCounterVec("digest_runs_total", "Weekly digest runs by result.", []string{"result"})
	}
	return m.BaseComponent.Start(ctx)
}

func (m *Metrics) TaskOp(op string, err error) {
	if m == nil || m.taskOps == nil {
		return
	}
	m.taskOps.WithLabelValues(op, resultOf(err)).Inc()
}

func (m *Metrics) Enrichment(kind string, d time.Duration, err error) {
	if m == nil || m.enrichments == nil {
		return
	}
	m.enrichments.WithLabelValues(kind, resultOf(err)).Inc()
	m.enrichLatency.WithLabelValues(kind).Observe(d.Seconds())
}

// Notification result 取 ok / error / dropped
func (m *Metrics) Notification(kind, result string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

// DigestRun result 取 ok / empty / error / skipped
func (m *Metrics) DigestRun(result string) {
	if m == nil || m.digestRuns == nil {
		return
	}
	m.digestRuns.WithLabelValues(result).Inc()
}

func resultOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
