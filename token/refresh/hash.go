package refresh

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken returns the lowercase hex SHA-256 of a raw refresh token
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
