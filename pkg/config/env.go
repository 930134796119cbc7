package config

// EnvPrefix scopes envconfig lookups; every field also carries its full variable name.
const EnvPrefix = "BOARDPRO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv     = "BOARDPRO_APP_ENV"
	EnvPort       = "BOARDPRO_APP_PORT"
	EnvAppBaseURL = "BOARDPRO_APP_BASE_URL"

	EnvDBDSN  = "BOARDPRO_DB_DSN"
	EnvDBHost = "BOARDPRO_DB_HOST"
	EnvDBUser = "BOARDPRO_DB_USER"
	EnvDBName = "BOARDPRO_DB_NAME"

	EnvRedisURL = "BOARDPRO_REDIS_URL"

	EnvJWTSecret  = "BOARDPRO_JWT_SECRET"
	EnvJWTIssuer  = "BOARDPRO_JWT_ISSUER"
	EnvJWTExpMins = "BOARDPRO_JWT_EXPIRATION_MINUTES"

	EnvStripeAPIKey = "BOARDPRO_STRIPE_API_KEY"
	EnvStripeSecret = "BOARDPRO_STRIPE_WEBHOOK_SECRET"

	EnvPlanAmount   = "BOARDPRO_PLAN_AMOUNT"
	EnvPlanInterval = "BOARDPRO_PLAN_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
