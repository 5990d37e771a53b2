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

type GormUserDao struct {
	*core.BaseComponent
	MySQL    DBProvider `infra:"dep:mysql_gorm?"`
	Postgres DBProvider `infra:"dep:postgres_gorm?"`

	backend    string
	dataSource string
	db         *gorm.DB
}

func NewGormUserDao(backend, dataSource string) *GormUserDao {
	return &GormUserDao{
		BaseComponent: core.NewBaseComponent(consts.COMP_DAO_USER),
		backend:       backend,
		dataSource:    dataSource,
	}
}

func (d *GormUserDao) Start(ctx context.Context) error {
	db, err := pickDB(d.backend, d.dataSource, d.MySQL, d.Postgres)
	if err != nil {
		return fmt.Errorf("user_dao: %w", err)
	}
	d.db = db
	return d.BaseComponent.Start(ctx)
}

func (d *GormUserDao) Create(ctx context.Context, u *model.User) error {
	if err := d.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (d *GormUserDao) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := d.db.WithContext(ctx).Where("username = ?", username).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
