package registry

import (
	"github.com/grand-thief-cash/voltify/infra/application/components/http_client"
	"github.com/grand-thief-cash/voltify/infra/application/components/http_server"
	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/components/mongodb"
	"github.com/grand-thief-cash/voltify/infra/application/components/mysqlgorm"
	"github.com/grand-thief-cash/voltify/infra/application/components/postgresgorm"
	"github.com/grand-thief-cash/voltify/infra/application/components/prometheus"
	"github.com/grand-thief-cash/voltify/infra/application/components/redis"
	"github.com/grand-thief-cash/voltify/infra/application/components/telemetry"
	"github.com/grand-thief-cash/voltify/infra/application/config"
	"github.com/grand-thief-cash/voltify/infra/application/consts"
	"github.com/grand-thief-cash/voltify/infra/application/core"
)

// 框架内置组件的 builder; 业务组件在各自项目的 registry_ext 中注册

func init() {
	Register(consts.COMPONENT_LOGGING, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Logging == nil || !cfg.Logging.Enabled {
			return false, nil, nil
		}
		comp, err := logging.NewFactory().Create(cfg.Logging)
		return true, comp, err
	})

	Register(consts.COMPONENT_TELEMETRY, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Telemetry == nil || !cfg.Telemetry.Enabled {
			return false, nil, nil
		}
		if cfg.Telemetry.ServiceName == "" {
			cfg.Telemetry.ServiceName = cfg.APPInfo.APPName
		}
		return true, telemetry.NewTelemetryComponent(cfg.Telemetry, baseDeps(cfg)...), nil
	})

	Register(consts.COMPONENT_HTTP_SERVER, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.HTTPServer == nil || !cfg.HTTPServer.Enabled {
			return false, nil, nil
		}
		cfg.HTTPServer.ServiceName = cfg.APPInfo.APPName
		return true, http_server.NewHTTPServerComponent(cfg.HTTPServer, c, tracedDeps(cfg)...), nil
	})

	Register(consts.COMPONENT_HTTP_CLIENTS, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.HTTPClients == nil || !cfg.HTTPClients.Enabled {
			return false, nil, nil
		}
		return true, http_client.NewHTTPClientsComponent(cfg.HTTPClients, tracedDeps(cfg)...), nil
	})

	Register(consts.COMPONENT_MYSQL_GORM, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.MySQLGORM == nil || !cfg.MySQLGORM.Enabled {
			return false, nil, nil
		}
		return true, mysqlgorm.NewGormComponent(cfg.MySQLGORM, baseDeps(cfg)...), nil
	})

	Register(consts.COMPONENT_POSTGRES_GORM, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.PostgresGORM == nil || !cfg.PostgresGORM.Enabled {
			return false, nil, nil
		}
		return true, postgresgorm.NewPostgresGormComponent(cfg.PostgresGORM, baseDeps(cfg)...), nil
	})

	Register(consts.COMPONENT_MONGODB, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.MongoDB == nil || !cfg.MongoDB.Enabled {
			return false, nil, nil
		}
		if cfg.MongoDB.AppName == "" {
			cfg.MongoDB.AppName = cfg.APPInfo.APPName
		}
		return true, mongodb.NewMongoComponent(cfg.MongoDB, baseDeps(cfg)...), nil
	})

	Register(consts.COMPONENT_REDIS, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Redis == nil || !cfg.Redis.Enabled {
			return false, nil, nil
		}
		return true, redis.NewRedisComponent(cfg.Redis, baseDeps(cfg)...), nil
	})

	Register(consts.COMPONENT_PROMETHEUS, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Prometheus == nil || !cfg.Prometheus.Enabled {
			return false, nil, nil
		}
		return true, prometheus.NewComponent(cfg.Prometheus, baseDeps(cfg)...), nil
	})
}

// baseDeps 启用了 logging 时所有组件都排在它之后
func baseDeps(cfg *config.AppConfig) []string {
	if cfg.Logging != nil && cfg.Logging.Enabled {
		return []string{consts.COMPONENT_LOGGING}
	}
	return nil
}

// tracedDeps 需要全局 TracerProvider 的组件 (otelchi / otelhttp)
func tracedDeps(cfg *config.AppConfig) []string {
	deps := baseDeps(cfg)
	if cfg.Telemetry != nil && cfg.Telemetry.Enabled {
		deps = append(deps, consts.COMPONENT_TELEMETRY)
	}
	return deps
}
