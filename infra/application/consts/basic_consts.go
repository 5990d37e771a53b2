package consts

const (
	ENV_PRODUCTION  = "production"
	ENV_DEVELOPMENT = "development"
	ENV_TEST        = "test"

	DEFAULT_CONFIG_PATH = "config.yaml"

	// 环境变量
	ENV_KEY_APP_ENV    = "APP_ENV"
	ENV_KEY_APP_CONFIG = "APP_CONFIG"

	KEY_TraceID = "trace_id"
)
