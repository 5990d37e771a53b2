package consts

const (
	COMP_DAO_TASK    = "task_dao"
	COMP_DAO_USER    = "user_dao"
	COMP_CLI_LLM     = "llm_client"
	COMP_CLI_TG      = "telegram_client"
	COMP_SVC_METRICS = "biz_metrics"

	COMP_SVC_SESSION    = "session_store"
	COMP_SVC_AUTH       = "auth_service"
	COMP_SVC_ENRICH     = "enrichment_service"
	COMP_SVC_NOTIFY     = "notification_service"
	COMP_SVC_DISPATCHER = "notification_dispatcher"
	COMP_SVC_LIFECYCLE  = "task_lifecycle"
	COMP_SVC_DIGEST     = "digest_scheduler"

	COMP_CTRL_AUTH   = "auth_ctrl"
	COMP_CTRL_TASK   = "task_ctrl"
	COMP_CTRL_DIGEST = "digest_ctrl"
)

// 存储后端 (biz_config.store.backend)
const (
	STORE_MYSQL    = "mysql"
	STORE_POSTGRES = "postgres"
	STORE_MONGO    = "mongo"
)
