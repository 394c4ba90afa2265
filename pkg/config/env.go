package config

// EnvPrefix is the envconfig prefix shared by every service binary.
const EnvPrefix = "aforsev"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "AFORSEV_APP_ENV"
	EnvPort                   = "AFORSEV_APP_PORT"
	EnvDBDSN                  = "AFORSEV_DB_DSN"
	EnvDBHost                 = "AFORSEV_DB_HOST"
	EnvDBUser                 = "AFORSEV_DB_USER"
	EnvDBName                 = "AFORSEV_DB_NAME"
	EnvRedisURL               = "AFORSEV_REDIS_URL"
	EnvJWTSecret              = "AFORSEV_JWT_SECRET"
	EnvJWTIssuer              = "AFORSEV_JWT_ISSUER"
	EnvJWTExpMins             = "AFORSEV_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "AFORSEV_REFRESH_TOKEN_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
