package service

import (
	"errors"
	"fmt"
)

// ValidationError 入参不合法, 对应 400
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NotFoundError 任务不存在或不属于当前用户, 两种情况不区分
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return "task not found" }

// EnrichmentError LLM 调用或结果解析失败, 对应 502
type EnrichmentError struct {
	Op  string
	Err error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrichment %s failed: %v", e.Op, e.Err)
}

func (e *EnrichmentError) Unwrap() error { return e.Err }

// NotificationError 推送失败, 只记录日志
type NotificationError struct {
	Kind string
	Err  error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification %s failed: %v", e.Kind, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrDigestRunning      = errors.New("digest already running")
	ErrDigestStopped      = errors.New("digest scheduler stopped")
)

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

func IsEnrichment(err error) bool {
	var ee *EnrichmentError
	return errors.As(err, &ee)
}
