package config

const (
	EnvPrefix = "SHAREBRIDGE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "SHAREBRIDGE_APP_ENV"
	EnvPort     = "SHAREBRIDGE_APP_PORT"
	EnvLogLevel = "SHAREBRIDGE_LOG_LEVEL"

	EnvDBDSN    = "SHAREBRIDGE_DB_DSN"
	EnvDBDriver = "SHAREBRIDGE_DB_DRIVER"
	EnvDBHost   = "SHAREBRIDGE_DB_HOST"
	EnvDBUser   = "SHAREBRIDGE_DB_USER"
	EnvDBName   = "SHAREBRIDGE_DB_NAME"

	EnvRedisURL = "SHAREBRIDGE_REDIS_URL"

	EnvJWTSecret = "SHAREBRIDGE_JWT_SECRET"
	EnvJWTIssuer = "SHAREBRIDGE_JWT_ISSUER"

	EnvSendgridAPIKey = "SHAREBRIDGE_SENDGRID_API_KEY"

	EnvBridgeAPIKey  = "SHAREBRIDGE_BRIDGE_API_KEY"
	EnvBridgeUSDRate = "SHAREBRIDGE_BRIDGE_USD_RATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
