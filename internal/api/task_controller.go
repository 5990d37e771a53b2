package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	bizConsts "github.com/grand-thief-cash/voltify/internal/consts"
	"github.com/grand-thief-cash/voltify/internal/model"
	"github.com/grand-thief-cash/voltify/internal/service"
)

type TaskController struct {
	*core.BaseComponent
	Tasks TaskManager `infra:"dep:task_lifecycle"`
}

func NewTaskController() *TaskController {
	return &TaskController{BaseComponent: core.NewBaseComponent(bizConsts.COMP_CTRL_TASK)}
}

// looseText 接受字符串或数字, 原样交给业务层校验
type looseText string

func (t *looseText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = looseText(s)
		return nil
	}
	*t = looseText(b)
	return nil
}

type taskReq struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Completed        bool      `json:"completed"`
	Priority         bool      `json:"priority"`
	Category         string    `json:"category"`
	EstimatedMinutes looseText `json:"estimated_minutes"`
}

// formBool 复选框未勾选时字段不存在
func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}

func decodeTaskInput(r *http.Request) (model.TaskInput, error) {
	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			return model.TaskInput{}, err
		}
		return model.TaskInput{
			Title:            r.PostFormValue("title"),
			Description:      r.PostFormValue("description"),
			Completed:        formBool(r.PostFormValue("completed")),
			Priority:         formBool(r.PostFormValue("priority")),
			Category:         r.PostFormValue("category"),
			EstimatedMinutes: r.PostFormValue("estimated_minutes"),
		}, nil
	}
	var req taskReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return model.TaskInput{}, err
	}
	return model.TaskInput{
		Title:            req.Title,
		Description:      req.Description,
		Completed:        req.Completed,
		Priority:         req.Priority,
		Category:         req.Category,
		EstimatedMinutes: string(req.EstimatedMinutes),
	}, nil
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	if isForm(r) {
		writeText(w, http.StatusBadRequest, msg)
		return
	}
	writeErr(w, http.StatusBadRequest, msg)
}

func (tc *TaskController) listTasks(w http.ResponseWriter, r *http.Request) {
	filter := &model.TaskFilter{}
	if raw := strings.TrimSpace(r.URL.Query().Get("completed")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid completed filter")
			return
		}
		filter.Completed = &b
	}
	tasks, err := tc.Tasks.ListTasks(r.Context(), ownerFrom(r.Context()), filter)
	if err != nil {
		fail(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (tc *TaskController) getTask(w http.ResponseWriter, r *http.Request, id string) {
	t, err := tc.Tasks.GetTask(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (tc *TaskController) createTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := decodeTaskInput(r)
	if err != nil {
		logging.Warn(ctx, fmt.Sprintf("create task decode failed: %v", err))
		badRequest(w, r, "invalid request body")
		return
	}
	t, err := tc.Tasks.CreateTask(ctx, ownerFrom(ctx), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	reply(w, r, http.StatusCreated, "Task created", t)
}

func (tc *TaskController) updateTask(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	in, err := decodeTaskInput(r)
	if err != nil {
		logging.Warn(ctx, fmt.Sprintf("update task decode failed: %v", err))
		badRequest(w, r, "invalid request body")
		return
	}
	t, err := tc.Tasks.UpdateTask(ctx, ownerFrom(ctx), id, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	reply(w, r, http.StatusOK, "Task updated", t)
}

func (tc *TaskController) setCompletion(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	var completed *bool
	if isForm(r) {
		if err := r.ParseForm(); err == nil {
			if _, ok := r.PostForm["completed"]; ok {
				b := formBool(r.PostFormValue("completed"))
				completed = &b
			}
		}
	} else {
		var req struct {
			Completed *bool `json:"completed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			completed = req.Completed
		}
	}
	if completed == nil {
		badRequest(w, r, "completed is required")
		return
	}
	t, err := tc.Tasks.SetCompletion(ctx, ownerFrom(ctx), id, *completed)
	if err != nil {
		fail(w, r, err)
		return
	}
	reply(w, r, http.StatusOK, "Task updated", t)
}

func (tc *TaskController) deleteTask(w http.ResponseWriter, r *http.Request, id string) {
	if err := tc.Tasks.DeleteTask(r.Context(), ownerFrom(r.Context()), id); err != nil {
		fail(w, r, err)
		return
	}
	reply(w, r, http.StatusOK, "Task deleted", map[string]string{"message": "Task deleted"})
}

func (tc *TaskController) suggestDescription(w http.ResponseWriter, r *http.Request, id string) {
	s, err := tc.Tasks.SuggestDescription(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	reply(w, r, http.StatusOK, s, map[string]string{"suggestion": s})
}

func (tc *TaskController) applyDescription(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	var description string
	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			badRequest(w, r, "invalid request body")
			return
		}
		description = r.PostFormValue("description")
	} else {
		var req struct {
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, r, "invalid request body")
			return
		}
		description = req.Description
	}
	t, err := tc.Tasks.ApplySuggestedDescription(ctx, ownerFrom(ctx), id, description)
	if err != nil {
		fail(w, r, err)
		return
	}
	reply(w, r, http.StatusOK, "Description updated", t)
}

var _ TaskManager = (*service.TaskLifecycleManager)(nil)
