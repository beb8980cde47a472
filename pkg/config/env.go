package config

const (
	EnvPrefix = "STORE"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	VcodeModeLegacy   = "legacy"
	VcodeModeExtended = "extended"

	EnvAppEnv = "STORE_APP_ENV"
	EnvPort   = "STORE_APP_PORT"

	EnvDBDSN  = "STORE_DB_DSN"
	EnvDBHost = "STORE_DB_HOST"
	EnvDBUser = "STORE_DB_USER"
	EnvDBName = "STORE_DB_NAME"

	EnvFiuuMerchantID = "STORE_FIUU_MERCHANT_ID"
	EnvFiuuVerifyKey  = "STORE_FIUU_VERIFY_KEY"
	EnvFiuuSecretKey  = "STORE_FIUU_SECRET_KEY"
	EnvFiuuVcodeMode  = "STORE_FIUU_VCODE_MODE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
