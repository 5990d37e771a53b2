package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	bizConfig "github.com/grand-thief-cash/voltify/internal/config"
	"github.com/grand-thief-cash/voltify/internal/consts"
	"github.com/grand-thief-cash/voltify/internal/dao"
	"github.com/grand-thief-cash/voltify/internal/model"
)

const digestPromptHeader = "Create a weekly summary based on the following open tasks:\n"

// WeeklyDigestScheduler 按 cron 汇总所有用户的未完成任务并推送.
// running 标志保证同一时刻只有一次汇总在执行, 重叠的触发直接跳过.
type WeeklyDigestScheduler struct {
	*core.BaseComponent
	TaskDao    dao.TaskDao `infra:"dep:task_dao"`
	Summarizer Summarizer  `infra:"dep:enrichment_service"`
	Notifier   Notifier    `infra:"dep:notification_service"`
	Metrics    *Metrics    `infra:"dep:biz_metrics?"`

	cfg     bizConfig.DigestConfig
	spec    *cronSpec
	loc     *time.Location
	running atomic.Bool
	cancel  context.CancelFunc
	mu      sync.Mutex // 保护 stopped 与 wg.Add
	stopped bool
	wg      sync.WaitGroup
	lastRun time.Time // 上次触发的秒, 防止同一秒被 ticker 触发两次
}

func NewWeeklyDigestScheduler(cfg bizConfig.DigestConfig) (*WeeklyDigestScheduler, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	spec, err := parseCron(cfg.Cron)
	if err != nil {
		return nil, err
	}
	loc := time.UTC
	if cfg.Timezone != "" {
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("digest timezone: %w", err)
		}
	}
	return &WeeklyDigestScheduler{
		BaseComponent: core.NewBaseComponent(consts.COMP_SVC_DIGEST),
		cfg:           cfg,
		spec:          spec,
		loc:           loc,
	}, nil
}

func (s *WeeklyDigestScheduler) Start(ctx context.Context) error {
	if s.IsActive() {
		return nil
	}
	if err := s.BaseComponent.Start(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()
	if !s.cfg.Enabled {
		logging.Info(ctx, "weekly digest timer disabled")
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case now := <-ticker.C:
				s.tick(loopCtx, now)
			}
		}
	}()
	logging.Info(ctx, "weekly digest timer started", zap.String("cron", s.spec.expr), zap.String("timezone", s.loc.String()))
	return nil
}

func (s *WeeklyDigestScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	if !s.IsActive() {
		s.wg.Wait()
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return s.BaseComponent.Stop(ctx)
}

// tick 到点则在独立 goroutine 中执行, 不阻塞 ticker
func (s *WeeklyDigestScheduler) tick(ctx context.Context, now time.Time) {
	sec := now.In(s.loc).Truncate(time.Second)
	if sec.Equal(s.lastRun) || !s.spec.matches(sec) {
		return
	}
	s.lastRun = sec
	if !s.track() {
		return
	}
	go func() {
		defer s.wg.Done()
		if _, err := s.TryRun(ctx); err != nil && err != ErrDigestRunning {
			logging.Error(ctx, "weekly digest failed", zap.Error(err))
		}
	}()
}

// TryRun 已有汇总在执行时返回 ErrDigestRunning; 返回值为推送的消息
func (s *WeeklyDigestScheduler) TryRun(ctx context.Context) (string, error) {
	if !s.running.CompareAndSwap(false, true) {
		logging.Warn(ctx, "weekly digest still running, tick skipped")
		s.Metrics.DigestRun("skipped")
		return "", ErrDigestRunning
	}
	defer s.running.Store(false)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()
	return s.run(ctx)
}

// track 登记一个后台汇总; Stop 开始后返回 false
func (s *WeeklyDigestScheduler) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

// Trigger 立即在后台执行一次汇总.
// 已在执行时返回 ErrDigestRunning, Stop 之后返回 ErrDigestStopped.
func (s *WeeklyDigestScheduler) Trigger(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.Metrics.DigestRun("skipped")
		return ErrDigestRunning
	}
	if !s.track() {
		s.running.Store(false)
		return ErrDigestStopped
	}
	// 请求结束后汇总仍需继续, 只保留 trace 信息
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RunTimeout)
	go func() {
		defer s.wg.Done()
		defer cancel()
		defer s.running.Store(false)
		if _, err := s.run(runCtx); err != nil {
			logging.Error(runCtx, "manual weekly digest failed", zap.Error(err))
		}
	}()
	return nil
}

// Running 是否有汇总在执行
func (s *WeeklyDigestScheduler) Running() bool { return s.running.Load() }

func (s *WeeklyDigestScheduler) run(ctx context.Context) (string, error) {
	tasks, err := s.TaskDao.ListOpen(ctx)
	if err != nil {
		s.Metrics.DigestRun("error")
		return "", fmt.Errorf("list open tasks: %w", err)
	}
	summary := consts.MsgDigestEmpty
	result := "empty"
	if len(tasks) > 0 {
		summary, err = s.Summarizer.Summarize(ctx, BuildDigestPrompt(tasks))
		if err != nil {
			s.Metrics.DigestRun("error")
			return "", err
		}
		result = "ok"
	}
	if err := s.Notifier.NotifyDigest(ctx, summary); err != nil {
		// 推送失败只记录
		logging.Error(ctx, "weekly digest notification failed", zap.Error(err))
		s.Metrics.Notification(string(EventDigest), "error")
	} else {
		s.Metrics.Notification(string(EventDigest), "ok")
	}
	s.Metrics.DigestRun(result)
	logging.Info(ctx, "weekly digest sent", zap.Int("open_tasks", len(tasks)))
	return summary, nil
}

func BuildDigestPrompt(tasks []*model.Task) string {
	var b strings.Builder
	b.WriteString(digestPromptHeader)
	for _, t := range tasks {
		fmt.Fprintf(&b, "- %s: %s\n", t.Title, t.Description)
	}
	return b.String()
}
