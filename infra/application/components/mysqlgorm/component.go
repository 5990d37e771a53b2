package mysqlgorm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	mysqlDriver "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/grand-thief-cash/voltify/infra/application/components/gormx"
	"github.com/grand-thief-cash/voltify/infra/application/consts"
)

type Config = gormx.Config
type DataSourceConfig = gormx.DataSourceConfig

// GormComponent MySQL 版 gorm 数据源
type GormComponent struct {
	*gormx.Component
}

func NewGormComponent(cfg *Config, deps ...string) *GormComponent {
	return &GormComponent{Component: gormx.NewComponent(consts.COMPONENT_MYSQL_GORM, cfg, gormx.Dialect{
		BuildDSN: buildDSN,
		Dialector: func(dsn string) gorm.Dialector {
			return mysqlDriver.New(mysqlDriver.Config{DSN: dsn})
		},
	}, deps...)}
}

// buildDSN 未显式提供 dsn 时由各字段拼装
func buildDSN(ds *DataSourceConfig) (string, error) {
	if strings.TrimSpace(ds.DSN) != "" {
		return ds.DSN, nil
	}
	if ds.Host == "" || ds.User == "" || ds.Database == "" {
		return "", errors.New("host, user, database required when dsn not provided")
	}
	port := ds.Port
	if port == 0 {
		port = 3306
	}
	mc := mysql.NewConfig()
	mc.User = ds.User
	mc.Passwd = ds.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", ds.Host, port)
	mc.DBName = ds.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	for k, v := range ds.Params {
		mc.Params[k] = v
	}
	return mc.FormatDSN(), nil
}
