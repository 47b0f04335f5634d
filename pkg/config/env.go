package config

const (
	EnvPrefix = "POS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "POS_APP_ENV"
	EnvPort           = "POS_APP_PORT"
	EnvCounterNumber  = "POS_COUNTER_NUMBER"
	EnvBackendURL     = "POS_BACKEND_URL"
	EnvBackendToken   = "POS_BACKEND_TOKEN"
	EnvBackendTimeout = "POS_BACKEND_TIMEOUT"
	EnvRedisURL       = "POS_REDIS_URL"
	EnvScannerDevices = "POS_SCANNER_DEVICES"
	EnvSearchDebounce = "POS_SEARCH_DEBOUNCE"
	EnvPrinterKind    = "POS_PRINTER_KIND"
	EnvPrinterAddress = "POS_PRINTER_ADDRESS"
	EnvCORSOrigins    = "POS_CORS_ORIGINS"

	PrinterKindNone    = "none"
	PrinterKindNetwork = "network"
	PrinterKindDevice  = "device"
)
