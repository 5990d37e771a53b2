package model

import "time"

// Task 个人待办, 所有读写都带 owner 条件
type Task struct {
	ID               string    `gorm:"column:id;primaryKey;size:36" bson:"_id" json:"id"`
	Owner            string    `gorm:"column:owner;size:64;not null;index:idx_tasks_owner" bson:"owner" json:"-"`
	Title            string    `gorm:"column:title;size:255;not null" bson:"title" json:"title"`
	Description      string    `gorm:"column:description;type:text" bson:"description" json:"description"`
	Completed        bool      `gorm:"column:completed;not null;default:false" bson:"completed" json:"completed"`
	Priority         bool      `gorm:"column:priority;not null;default:false" bson:"priority" json:"priority"`
	Category         string    `gorm:"column:category;size:32" bson:"category" json:"category"`
	EstimatedMinutes *int      `gorm:"column:estimated_minutes" bson:"estimated_minutes,omitempty" json:"estimated_minutes,omitempty"` // 正整数或为空
	CreatedAt        time.Time `gorm:"column:created_at;not null" bson:"created_at" json:"created_at"`
}

func (Task) TableName() string { return "tasks" }

// TaskInput 创建/全量更新的入参, 未经校验
type TaskInput struct {
	Title            string
	Description      string
	Completed        bool
	Priority         bool
	Category         string // 空表示缺失
	EstimatedMinutes string // 原始文本, 空表示缺失
}

// TaskPatch 部分更新; nil 字段不修改
type TaskPatch struct {
	Title            *string
	Description      *string
	Completed        *bool
	Priority         *bool
	Category         *string
	EstimatedMinutes *int
}

// Columns 转成 gorm Updates 使用的列映射
func (p *TaskPatch) Columns() map[string]interface{} {
	m := map[string]interface{}{}
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Completed != nil {
		m["completed"] = *p.Completed
	}
	if p.Priority != nil {
		m["priority"] = *p.Priority
	}
	if p.Category != nil {
		m["category"] = *p.Category
	}
	if p.EstimatedMinutes != nil {
		m["estimated_minutes"] = *p.EstimatedMinutes
	}
	return m
}

func (p *TaskPatch) Empty() bool { return len(p.Columns()) == 0 }

// TaskFilter 列表查询的附加条件
type TaskFilter struct {
	Completed *bool
}

// EnrichmentResult 推断结果, 不单独持久化
type EnrichmentResult struct {
	Category         string `json:"category"`
	EstimatedMinutes int    `json:"estimated_time"`
}

// Diff 只保留与 t 当前值不同的列; 空结果表示更新没有效果
func (p *TaskPatch) Diff(t *Task) map[string]interface{} {
	m := map[string]interface{}{}
	if p.Title != nil && *p.Title != t.Title {
		m["title"] = *p.Title
	}
	if p.Description != nil && *p.Description != t.Description {
		m["description"] = *p.Description
	}
	if p.Completed != nil && *p.Completed != t.Completed {
		m["completed"] = *p.Completed
	}
	if p.Priority != nil && *p.Priority != t.Priority {
		m["priority"] = *p.Priority
	}
	if p.Category != nil && *p.Category != t.Category {
		m["category"] = *p.Category
	}
	if p.EstimatedMinutes != nil && (t.EstimatedMinutes == nil || *p.EstimatedMinutes != *t.EstimatedMinutes) {
		m["estimated_minutes"] = *p.EstimatedMinutes
	}
	return m
}

// Apply 把 patch 写回内存对象
func (p *TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.EstimatedMinutes != nil {
		v := *p.EstimatedMinutes
		t.EstimatedMinutes = &v
	}
}
