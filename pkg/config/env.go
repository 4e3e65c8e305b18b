package config

// EnvPrefix is empty because every field tag already carries the STOCKFLOW_ prefix.
const EnvPrefix = ""

const (
	AppEnvDev        = "dev"
	AppEnvProd       = "prod"
	AppEnvProduction = "production"
)

const DefaultSQLiteDSN = "file:stockflow.db?_foreign_keys=on"

const (
	EnvAppEnv   = "STOCKFLOW_APP_ENV"
	EnvPort     = "STOCKFLOW_APP_PORT"
	EnvLogLevel = "STOCKFLOW_LOG_LEVEL"

	EnvDBDSN  = "STOCKFLOW_DB_DSN"
	EnvDBHost = "STOCKFLOW_DB_HOST"
	EnvDBUser = "STOCKFLOW_DB_USER"
	EnvDBName = "STOCKFLOW_DB_NAME"

	EnvRedisURL = "STOCKFLOW_REDIS_URL"

	EnvUseSQLite = "STOCKFLOW_USE_SQLITE"

	EnvReviewRunAt    = "STOCKFLOW_REVIEW_RUN_AT"
	EnvReviewTimeZone = "STOCKFLOW_REVIEW_TIME_ZONE"
	EnvReviewInterval = "STOCKFLOW_REVIEW_INTERVAL"

	EnvCORSAllowedOrigins = "STOCKFLOW_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
