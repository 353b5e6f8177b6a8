package config

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "QUARTERMASTER"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv  = "QUARTERMASTER_APP_ENV"
	EnvAppPort = "QUARTERMASTER_APP_PORT"
	EnvDBPath  = "QUARTERMASTER_DB_PATH"
)
