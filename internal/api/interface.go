package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/internal/model"
	"github.com/grand-thief-cash/voltify/internal/service"
)

type TaskManager interface {
	CreateTask(ctx context.Context, owner string, in model.TaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, owner, id string, in model.TaskInput) (*model.Task, error)
	SetCompletion(ctx context.Context, owner, id string, completed bool) (*model.Task, error)
	DeleteTask(ctx context.Context, owner, id string) error
	SuggestDescription(ctx context.Context, owner, id string) (string, error)
	ApplySuggestedDescription(ctx context.Context, owner, id, description string) (*model.Task, error)
	ListTasks(ctx context.Context, owner string, filter *model.TaskFilter) ([]*model.Task, error)
	GetTask(ctx context.Context, owner, id string) (*model.Task, error)
}

type Authenticator interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (string, error)
}

type DigestTrigger interface {
	Trigger(ctx context.Context) error
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeText(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(msg))
}

// isForm 表单提交返回纯文本, 其余一律按 JSON 处理
func isForm(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}

// reply 按请求类型输出成功结果; form 请求只返回 text
func reply(w http.ResponseWriter, r *http.Request, code int, text string, v any) {
	if isForm(r) {
		writeText(w, code, text)
		return
	}
	writeJSON(w, code, v)
}

// statusOf 业务错误 -> HTTP 状态码与对外消息
func statusOf(err error) (int, string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case service.IsNotFound(err):
		return http.StatusNotFound, "Task not found"
	case service.IsEnrichment(err):
		return http.StatusBadGateway, "Task enrichment failed"
	case errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict, "Username already exists"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, service.ErrDigestRunning):
		return http.StatusConflict, "Digest already running"
	case errors.Is(err, service.ErrDigestStopped):
		return http.StatusServiceUnavailable, "Digest scheduler stopped"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusOf(err)
	if code >= http.StatusInternalServerError {
		logging.Error(r.Context(), "request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	if isForm(r) {
		writeText(w, code, msg)
		return
	}
	writeErr(w, code, msg)
}
