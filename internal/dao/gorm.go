package dao

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/grand-thief-cash/voltify/internal/consts"
)

// DBProvider mysql_gorm / postgres_gorm 组件都满足
type DBProvider interface {
	GetDB(name string) (*gorm.DB, error)
}

func pickDB(backend, dataSource string, mysql, postgres DBProvider) (*gorm.DB, error) {
	var p DBProvider
	switch backend {
	case consts.STORE_MYSQL:
		p = mysql
	case consts.STORE_POSTGRES:
		p = postgres
	default:
		return nil, fmt.Errorf("backend %s is not a gorm store", backend)
	}
	if p == nil {
		return nil, fmt.Errorf("%s gorm component not available", backend)
	}
	return p.GetDB(dataSource)
}
