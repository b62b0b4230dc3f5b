package config

import "time"

const (
	StoreBackendMemory   = "memory"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
)

type StoreConfig interface {
	GetStoreBackend() string
	GetStoreTimeout() time.Duration
	GetRedisURL() string
	GetDatabaseURL() string
	GetDatabaseDriver() string
}

type Stores struct{}

var _ StoreConfig = Stores{}

func (Stores) GetStoreBackend() string {
	return GetEnv("STORE_BACKEND", StoreBackendMemory)
}

// GetStoreTimeout bounds every refresh store call
func (Stores) GetStoreTimeout() time.Duration {
	return GetEnvDuration("STORE_TIMEOUT", 2*time.Second)
}

func (Stores) GetRedisURL() string {
	return GetEnv("REDIS_URL", "redis://localhost:6379/0")
}

func (Stores) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}

// GetDatabaseDriver selects the database/sql driver: "pgx" (default) or "postgres" (lib/pq)
func (Stores) GetDatabaseDriver() string {
	return GetEnv("DATABASE_DRIVER", "pgx")
}
