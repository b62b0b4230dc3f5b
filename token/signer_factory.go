package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jrsteele09/go-session-server/internal/config"
	"github.com/rs/zerolog/log"
)

const minHMACSecretLength = 32

// NewSignerFromConfig builds the signer from the configured key material.
// A private key PEM takes precedence over an HMAC secret. With neither set a
// random HMAC secret is generated, so issued tokens do not survive a restart.
func NewSignerFromConfig(cfg config.TokenConfig) (Signer, error) {
	if pemData := cfg.GetJWTPrivateKeyPEM(); pemData != "" {
		keyPair, err := LoadKeyPairFromPEM(cfg.GetJWTKeyID(), pemData)
		if err != nil {
			return nil, fmt.Errorf("failed to load signing key: %w", err)
		}
		return NewKeyPairSigner(keyPair), nil
	}

	if secret := cfg.GetJWTSecret(); secret != "" {
		if len(secret) < minHMACSecretLength {
			return nil, fmt.Errorf("JWT secret must be at least %d bytes", minHMACSecretLength)
		}
		return NewHMACSigner(secret), nil
	}

	secret := make([]byte, 32) // 256 bits
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate HMAC secret: %w", err)
	}
	log.Warn().Msg("No signing key configured, using an ephemeral HMAC secret")
	return NewHMACSigner(hex.EncodeToString(secret)), nil
}
