package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/grand-thief-cash/voltify/infra/application/consts"
)

type Loader struct {
	env        string
	configPath string
	bizConfig  any
}

func NewLoader(env string, configPath string) *Loader {
	if env == "" {
		env = consts.ENV_DEVELOPMENT
	}
	if configPath == "" {
		configPath = consts.DEFAULT_CONFIG_PATH
	}
	return &Loader{env: env, configPath: configPath}
}

// SetBizConfig b 必须是指针, 其中已有的字段值作为默认值保留
func (l *Loader) SetBizConfig(b any) {
	if b == nil {
		return
	}
	if reflect.TypeOf(b).Kind() != reflect.Ptr {
		panic("SetBizConfig expects a pointer, e.g. &MyBizConfig{}")
	}
	l.bizConfig = b
}

// LoadConfig 读取文件 -> 展开 ${VAR} -> 解析 AppConfig -> biz_config 二次解码到业务指针
func (l *Loader) LoadConfig() (*AppConfig, error) {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	var cfg AppConfig
	ext := strings.ToLower(filepath.Ext(l.configPath))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if l.bizConfig != nil {
		if cfg.BizConfig != nil {
			if err := decodeBizSection(ext, cfg.BizConfig, l.bizConfig); err != nil {
				return nil, fmt.Errorf("decode biz_config failed: %w", err)
			}
		}
		cfg.BizConfig = l.bizConfig
	}

	l.mergeEnvVars(&cfg)
	return &cfg, nil
}

// decodeBizSection yaml.v3 不会把 interface{} 解进已有指针, 只能 marshal 再 unmarshal
func decodeBizSection(ext string, raw any, target any) error {
	switch ext {
	case ".json":
		b, err := json.Marshal(raw)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, target)
	default:
		b, err := yaml.Marshal(raw)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(b, target)
	}
}

// mergeEnvVars 命令行/环境指定的 env 优先于文件
func (l *Loader) mergeEnvVars(cfg *AppConfig) {
	if cfg.APPInfo == nil {
		cfg.APPInfo = &APPInfo{}
	}
	if v := os.Getenv(consts.ENV_KEY_APP_ENV); v != "" {
		cfg.APPInfo.ENV = v
	} else if cfg.APPInfo.ENV == "" {
		cfg.APPInfo.ENV = l.env
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
