package config

const (
	EnvPrefix = "BUNDLEHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "BUNDLEHUB_APP_ENV"
	EnvPort     = "BUNDLEHUB_APP_PORT"
	EnvLogLevel = "BUNDLEHUB_LOG_LEVEL"

	EnvDBDSN  = "BUNDLEHUB_DB_DSN"
	EnvDBHost = "BUNDLEHUB_DB_HOST"
	EnvDBUser = "BUNDLEHUB_DB_USER"
	EnvDBName = "BUNDLEHUB_DB_NAME"

	EnvRedisURL = "BUNDLEHUB_REDIS_URL"

	EnvJWTSecret  = "BUNDLEHUB_JWT_SECRET"
	EnvJWTIssuer  = "BUNDLEHUB_JWT_ISSUER"
	EnvJWTExpMins = "BUNDLEHUB_JWT_EXPIRATION_MINUTES"

	EnvGuestVerifyDelay = "BUNDLEHUB_GUEST_VERIFY_DELAY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
