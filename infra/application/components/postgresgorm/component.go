package postgresgorm

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/grand-thief-cash/voltify/infra/application/components/gormx"
	"github.com/grand-thief-cash/voltify/infra/application/consts"
)

type Config = gormx.Config
type DataSourceConfig = gormx.DataSourceConfig

type PostgresGormComponent struct {
	*gormx.Component
}

func NewPostgresGormComponent(cfg *Config, deps ...string) *PostgresGormComponent {
	return &PostgresGormComponent{Component: gormx.NewComponent(consts.COMPONENT_POSTGRES_GORM, cfg, gormx.Dialect{
		BuildDSN:  buildDSN,
		Dialector: func(dsn string) gorm.Dialector { return gormpg.Open(dsn) },
	}, deps...)}
}

// buildDSN libpq 风格: host=... user=... password=... dbname=... port=...
func buildDSN(ds *DataSourceConfig) (string, error) {
	if strings.TrimSpace(ds.DSN) != "" {
		return ds.DSN, nil
	}
	if ds.Host == "" || ds.User == "" || ds.Database == "" {
		return "", errors.New("host, user, database required when dsn not provided")
	}
	port := ds.Port
	if port == 0 {
		port = 5432
	}
	parts := []string{
		"host=" + ds.Host,
		"user=" + ds.User,
		"password=" + ds.Password,
		"dbname=" + ds.Database,
		fmt.Sprintf("port=%d", port),
	}
	keys := make([]string, 0, len(ds.Params))
	for k := range ds.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+ds.Params[k])
	}
	return strings.Join(parts, " "), nil
}
