package config

const (
	EnvPrefix = "BREWSHOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)
