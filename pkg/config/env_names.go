package config

const (
	EnvPrefix = "lunaria"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "LUNARIA_APP_ENV"
	EnvPort       = "LUNARIA_APP_PORT"
	EnvBaseURL    = "LUNARIA_APP_BASE_URL"
	EnvDBDSN      = "LUNARIA_DB_DSN"
	EnvDBHost     = "LUNARIA_DB_HOST"
	EnvDBUser     = "LUNARIA_DB_USER"
	EnvDBName     = "LUNARIA_DB_NAME"
	EnvRedisURL   = "LUNARIA_REDIS_URL"
	EnvJWTSecret  = "LUNARIA_JWT_SECRET"
	EnvJWTIssuer  = "LUNARIA_JWT_ISSUER"
	EnvVNPayTmn   = "LUNARIA_VNPAY_TMN_CODE"
	EnvVNPaySecret = "LUNARIA_VNPAY_HASH_SECRET"
	EnvGHTKToken  = "LUNARIA_GHTK_TOKEN"
	EnvGHTKPickName     = "LUNARIA_GHTK_PICK_NAME"
	EnvGHTKPickTel      = "LUNARIA_GHTK_PICK_TEL"
	EnvGHTKPickAddress  = "LUNARIA_GHTK_PICK_ADDRESS"
	EnvGHTKPickProvince = "LUNARIA_GHTK_PICK_PROVINCE"
	EnvGHTKPickDistrict = "LUNARIA_GHTK_PICK_DISTRICT"
)

var fallbackDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
