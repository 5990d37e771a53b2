package config

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
)

// AppConfig 应用配置根
type AppConfig struct {
	APPInfo      *APPInfo                       `yaml:"app_info" json:"app_info"`
	Logging      *logging.LoggingConfig         `yaml:"logging" json:"logging"`
	HTTPServer   *http_server.HTTPServerConfig  `yaml:"http_server" json:"http_server"`
	HTTPClients  *http_client.HTTPClientsConfig `yaml:"http_clients" json:"http_clients"`
	MySQLGORM    *mysqlgorm.Config              `yaml:"mysql_gorm" json:"mysql_gorm"`
	PostgresGORM *postgresgorm.Config           `yaml:"postgres_gorm" json:"postgres_gorm"`
	MongoDB      *mongodb.Config                `yaml:"mongodb" json:"mongodb"`
	Redis        *redis.Config                  `yaml:"redis" json:"redis"`
	Prometheus   *prometheus.Config             `yaml:"prometheus" json:"prometheus"`
	Telemetry    *telemetry.Config              `yaml:"telemetry" json:"telemetry"`

	// 业务配置, 加载后替换为业务方通过 SetBizConfig 传入的指针
	BizConfig any `yaml:"biz_config" json:"biz_config"`
}

type APPInfo struct {
	APPName string `yaml:"app_name" json:"app_name"`
	ENV     string `yaml:"env" json:"env"`
}
