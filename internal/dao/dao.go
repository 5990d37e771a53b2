package dao

import (
	"context"
	"errors"

	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// UpdateResult 单文档更新结果
type UpdateResult struct {
	Matched  bool // owner+id 命中
	Modified bool // 至少一个字段发生变化
}

// TaskDao 所有方法 (ListOpen 除外) 都以 owner 作为查询条件的一部分
type TaskDao interface {
	core.Component
	Find(ctx context.Context, owner string, filter *model.TaskFilter) ([]*model.Task, error)
	FindOne(ctx context.Context, owner, id string) (*model.Task, error)
	Insert(ctx context.Context, t *model.Task) error
	UpdateOne(ctx context.Context, owner, id string, patch *model.TaskPatch) (UpdateResult, error)
	DeleteOne(ctx context.Context, owner, id string) (bool, error)
	// ListOpen 跨用户查询未完成任务, 仅周报使用
	ListOpen(ctx context.Context) ([]*model.Task, error)
}

type UserDao interface {
	core.Component
	Create(ctx context.Context, u *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}
