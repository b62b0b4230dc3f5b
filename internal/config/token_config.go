package config

import "time"

const DefaultJWTKeyID = "session-key-1"

type TokenConfig interface {
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetJWTSecret() string
	GetJWTPrivateKeyPEM() string
	GetJWTKeyID() string
	GetJWTIssuer() string
}

type Tokens struct{}

var _ TokenConfig = Tokens{}

func (Tokens) GetAccessTokenTTL() time.Duration {
	return GetEnvDuration("ACCESS_TOKEN_TTL", 10*time.Minute)
}

func (Tokens) GetRefreshTokenTTL() time.Duration {
	return GetEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour) // 7 days
}

// GetJWTSecret returns the HMAC secret. Ignored when a private key PEM is configured.
func (Tokens) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", "")
}

func (Tokens) GetJWTPrivateKeyPEM() string {
	return GetEnv("JWT_PRIVATE_KEY_PEM", "")
}

func (Tokens) GetJWTKeyID() string {
	return GetEnv("JWT_KEY_ID", DefaultJWTKeyID)
}

func (Tokens) GetJWTIssuer() string {
	return GetEnv("JWT_ISSUER", "go-session-server")
}
