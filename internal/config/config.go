package config

type Config interface {
	EnvConfig
	CorsConfig
	TokenConfig
	CookieConfig
	StoreConfig
	AuditConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetUsersFile() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Tokens
	Cookies
	Stores
	Audit
}

func New() Config {
	return mainConfig{}
}
