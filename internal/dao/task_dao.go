package dao

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/internal/consts"
	"github.com/grand-thief-cash/voltify/internal/model"
)

type GormTaskDao struct {
	*core.BaseComponent
	MySQL    DBProvider `infra:"dep:mysql_gorm?"`
	Postgres DBProvider `infra:"dep:postgres_gorm?"`

	backend    string
	dataSource string
	db         *gorm.DB
}

func NewGormTaskDao(backend, dataSource string) *GormTaskDao {
	return &GormTaskDao{
		BaseComponent: core.NewBaseComponent(consts.COMP_DAO_TASK),
		backend:       backend,
		dataSource:    dataSource,
	}
}

func (d *GormTaskDao) Start(ctx context.Context) error {
	db, err := pickDB(d.backend, d.dataSource, d.MySQL, d.Postgres)
	if err != nil {
		return fmt.Errorf("task_dao: %w", err)
	}
	d.db = db
	return d.BaseComponent.Start(ctx)
}

func (d *GormTaskDao) owned(ctx context.Context, owner, id string) *gorm.DB {
	return d.db.WithContext(ctx).Model(&model.Task{}).Where("owner = ? AND id = ?", owner, id)
}

func (d *GormTaskDao) Find(ctx context.Context, owner string, filter *model.TaskFilter) ([]*model.Task, error) {
	q := d.db.WithContext(ctx).Where("owner = ?", owner)
	if filter != nil && filter.Completed != nil {
		q = q.Where("completed = ?", *filter.Completed)
	}
	var list []*model.Task
	if err := q.Order("priority DESC").Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (d *GormTaskDao) FindOne(ctx context.Context, owner, id string) (*model.Task, error) {
	var t model.Task
	if err := d.owned(ctx, owner, id).Take(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (d *GormTaskDao) Insert(ctx context.Context, t *model.Task) error {
	if err := d.db.WithContext(ctx).Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// UpdateOne mysql 的 RowsAffected 是变更行数而不是匹配行数, 所以先读再比较
func (d *GormTaskDao) UpdateOne(ctx context.Context, owner, id string, patch *model.TaskPatch) (UpdateResult, error) {
	var res UpdateResult
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur model.Task
		if err := tx.Where("owner = ? AND id = ?", owner, id).Take(&cur).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		res.Matched = true
		cols := patch.Diff(&cur)
		if len(cols) == 0 {
			return nil
		}
		if err := tx.Model(&model.Task{}).Where("owner = ? AND id = ?", owner, id).Updates(cols).Error; err != nil {
			return err
		}
		res.Modified = true
		return nil
	})
	return res, err
}

func (d *GormTaskDao) DeleteOne(ctx context.Context, owner, id string) (bool, error) {
	r := d.db.WithContext(ctx).Where("owner = ? AND id = ?", owner, id).Delete(&model.Task{})
	if r.Error != nil {
		return false, r.Error
	}
	return r.RowsAffected > 0, nil
}

func (d *GormTaskDao) ListOpen(ctx context.Context) ([]*model.Task, error) {
	var list []*model.Task
	if err := d.db.WithContext(ctx).Where("completed = ?", false).Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
