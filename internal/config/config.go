package config

import (
	"fmt"
	"time"

	"github.com/grand-thief-cash/voltify/infra/application"
	appconfig "github.com/grand-thief-cash/voltify/infra/application/config"
	"github.com/grand-thief-cash/voltify/internal/consts"
)

type StoreConfig struct {
	Backend        string `yaml:"backend" json:"backend"`                 // mysql / postgres / mongo
	DataSource     string `yaml:"data_source" json:"data_source"`         // gorm 数据源名
	TaskCollection string `yaml:"task_collection" json:"task_collection"` // mongo
	UserCollection string `yaml:"user_collection" json:"user_collection"` // mongo
}

type LLMConfig struct {
	Client              string  `yaml:"client" json:"client"` // http_clients 中的名字
	APIKey              string  `yaml:"api_key" json:"api_key"`
	CategoryModel       string  `yaml:"category_model" json:"category_model"`
	CategoryTemperature float64 `yaml:"category_temperature" json:"category_temperature"`
	SummaryModel        string  `yaml:"summary_model" json:"summary_model"`
	SummaryTemperature  float64 `yaml:"summary_temperature" json:"summary_temperature"`
}

type TelegramConfig struct {
	Client   string `yaml:"client" json:"client"`
	BotToken string `yaml:"bot_token" json:"bot_token"`
	ChatID   string `yaml:"chat_id" json:"chat_id"`
}

type DispatcherConfig struct {
	Workers     int           `yaml:"workers" json:"workers"`
	QueueSize   int           `yaml:"queue_size" json:"queue_size"`
	SendTimeout time.Duration `yaml:"send_timeout" json:"send_timeout"`
}

type DigestConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Cron         string        `yaml:"cron" json:"cron"` // 6 字段, 秒 分 时 日 月 周
	Timezone     string        `yaml:"timezone" json:"timezone"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	RunTimeout   time.Duration `yaml:"run_timeout" json:"run_timeout"`
}

type SessionConfig struct {
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
	KeyPrefix string        `yaml:"key_prefix" json:"key_prefix"`
}

type BizConfig struct {
	Store      StoreConfig      `yaml:"store" json:"store"`
	LLM        LLMConfig        `yaml:"llm" json:"llm"`
	Telegram   TelegramConfig   `yaml:"telegram" json:"telegram"`
	Dispatcher DispatcherConfig `yaml:"dispatcher" json:"dispatcher"`
	Digest     DigestConfig     `yaml:"digest" json:"digest"`
	Session    SessionConfig    `yaml:"session" json:"session"`
}

var bizCfg = DefaultBizConfig()

func init() {
	application.GetApp().SetBizConfig(bizCfg)
}

// GetBizConfig 配置加载后才是最终值, 只应在 builder 中调用
func GetBizConfig() *BizConfig { return bizCfg }

func DefaultBizConfig() *BizConfig {
	return &BizConfig{
		Store: StoreConfig{
			Backend:        consts.STORE_MYSQL,
			DataSource:     "default",
			TaskCollection: "tasks",
			UserCollection: "users",
		},
		LLM: LLMConfig{
			Client:              "openai",
			CategoryModel:       "gpt-4",
			CategoryTemperature: 0.5,
			SummaryModel:        "gpt-3.5-turbo",
			SummaryTemperature:  0.7,
		},
		Telegram: TelegramConfig{Client: "telegram"},
		Dispatcher: DispatcherConfig{
			Workers:     2,
			QueueSize:   100,
			SendTimeout: 10 * time.Second,
		},
		Digest: DigestConfig{
			Enabled:      true,
			Cron:         "0 0 8 * * 0",
			Timezone:     "UTC",
			PollInterval: time.Second,
			RunTimeout:   2 * time.Minute,
		},
		Session: SessionConfig{
			TTL:       24 * time.Hour,
			KeyPrefix: "voltify:session:",
		},
	}
}

// Validate 由框架在加载配置后调用
func (b *BizConfig) Validate(cfg *appconfig.AppConfig) error {
	switch b.Store.Backend {
	case consts.STORE_MYSQL:
		if cfg.MySQLGORM == nil || !cfg.MySQLGORM.Enabled {
			return fmt.Errorf("store.backend=mysql requires mysql_gorm enabled")
		}
	case consts.STORE_POSTGRES:
		if cfg.PostgresGORM == nil || !cfg.PostgresGORM.Enabled {
			return fmt.Errorf("store.backend=postgres requires postgres_gorm enabled")
		}
	case consts.STORE_MONGO:
		if cfg.MongoDB == nil || !cfg.MongoDB.Enabled {
			return fmt.Errorf("store.backend=mongo requires mongodb enabled")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", b.Store.Backend)
	}
	if cfg.HTTPClients == nil || !cfg.HTTPClients.Enabled {
		return fmt.Errorf("http_clients must be enabled for llm and telegram")
	}
	if b.Dispatcher.Workers <= 0 || b.Dispatcher.QueueSize <= 0 {
		return fmt.Errorf("dispatcher workers and queue_size must be positive")
	}
	if _, err := time.LoadLocation(b.Digest.Timezone); err != nil {
		return fmt.Errorf("digest.timezone: %w", err)
	}
	return nil
}
