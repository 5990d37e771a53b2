package gormx

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
)

// gormLogger 把 gorm 日志桥接到 logging 全局 logger
type gormLogger struct {
	tag           string
	logLevel      logger.LogLevel
	slowThreshold time.Duration
}

func NewLogger(tag string, cfg *Config) logger.Interface {
	l := &gormLogger{tag: "[" + tag + "] ", logLevel: logger.Warn, slowThreshold: 200 * time.Millisecond}
	if cfg == nil {
		return l
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "silent":
		l.logLevel = logger.Silent
	case "error":
		l.logLevel = logger.Error
	case "warn", "warning":
		l.logLevel = logger.Warn
	case "info", "debug":
		l.logLevel = logger.Info
	}
	if cfg.SlowThreshold > 0 {
		l.slowThreshold = cfg.SlowThreshold
	}
	return l
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	nl := *l
	nl.logLevel = level
	return &nl
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		logging.Infof(ctx, l.tag+msg, data...)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		logging.Warnf(ctx, l.tag+msg, data...)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		logging.Errorf(ctx, l.tag+msg, data...)
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.logLevel >= logger.Error:
		sql, rows := fc()
		logging.Errorf(ctx, "%serror elapsed=%s rows=%d sql=%s err=%v", l.tag, elapsed, rows, sql, err)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.logLevel >= logger.Warn:
		sql, rows := fc()
		logging.Warnf(ctx, "%sslow elapsed=%s threshold=%s rows=%d sql=%s", l.tag, elapsed, l.slowThreshold, rows, sql)
	case l.logLevel >= logger.Info:
		sql, rows := fc()
		logging.Debugf(ctx, "%selapsed=%s rows=%d sql=%s", l.tag, elapsed, rows, sql)
	}
}
