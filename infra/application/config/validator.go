package config

import (
	"fmt"

	"github.com/grand-thief-cash/voltify/infra/application/consts"
)

type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) ValidateAppConfig(cfg *AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if cfg.APPInfo == nil || cfg.APPInfo.APPName == "" {
		return fmt.Errorf("app_info.app_name is required")
	}
	switch cfg.APPInfo.ENV {
	case consts.ENV_PRODUCTION, consts.ENV_DEVELOPMENT, consts.ENV_TEST:
	default:
		return fmt.Errorf("running environment is not valid: %s", cfg.APPInfo.ENV)
	}
	// 业务配置可选实现 Validate
	if bv, ok := cfg.BizConfig.(interface{ Validate(*AppConfig) error }); ok {
		if err := bv.Validate(cfg); err != nil {
			return fmt.Errorf("biz_config: %w", err)
		}
	}
	return nil
}

func (v *Validator) validateConfigFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("config file path cannot be empty")
	}
	if !fileExists(path) {
		return fmt.Errorf("config file does not exist: %s", path)
	}
	return nil
}
