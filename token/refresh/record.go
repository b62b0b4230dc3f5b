package refresh

import (
	"time"

	"github.com/jrsteele09/go-session-server/token"
)

// Status is the lifecycle state of a refresh record
type Status string

const (
	StatusActive   Status = "active"
	StatusReplaced Status = "replaced"
	StatusRevoked  Status = "revoked"
)

// Revocation reasons recorded on revoked records
const (
	ReasonReuseDetected = "reuse-detected"
	ReasonLogout        = "logout"
	ReasonLogoutAll     = "logout-all"
	ReasonLogoutDevice  = "logout-device"
	ReasonRotationLost  = "rotation-lost"
)

// Record is the server-side state of one refresh token. The raw token is never
// stored, only its hash. ReplacedBy is set only while Status is replaced and
// RevokedAt/RevokedReason only while Status is revoked.
type Record struct {
	ID            string
	UserID        string
	TokenHash     string
	DeviceID      string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Status        Status
	ReplacedBy    string
	RevokedAt     time.Time
	RevokedReason string
}

// Clone returns a copy safe to hand out of a store
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// TokenPair is what a successful login or rotation hands back to the caller
type TokenPair struct {
	AccessToken  *token.AccessToken
	RefreshToken string
	Record       *Record
}

func newRecord(issued *token.IssuedRefreshToken) *Record {
	return &Record{
		ID:        issued.ID,
		UserID:    issued.UserID,
		TokenHash: HashToken(issued.Raw),
		DeviceID:  issued.DeviceID,
		IssuedAt:  issued.IssuedAt,
		ExpiresAt: issued.ExpiresAt,
		Status:    StatusActive,
	}
}
