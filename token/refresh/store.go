package refresh

import (
	"context"
	"time"
)

// Store persists refresh records. Implementations must make
// TransitionToReplaced linearizable per record id: of any number of concurrent
// callers for the same id exactly one gets nil.
//
// Semantic outcomes are reported with the sentinels from internal/errors
// (ErrNotFound, ErrDuplicateID, ErrAlreadyTransitioned). Backend failures and
// context deadlines wrap ErrStoreUnavailable and nothing else.
type Store interface {
	// Insert adds a new record. ErrDuplicateID when the id or hash already exists.
	Insert(ctx context.Context, record *Record) error
	FindByHash(ctx context.Context, hash string) (*Record, error)
	FindByID(ctx context.Context, id string) (*Record, error)
	// TransitionToReplaced moves an active record to replaced and links it to
	// its successor.
	TransitionToReplaced(ctx context.Context, id, successorID string) error
	// RevokeChain revokes every member of the chain containing id, walking
	// successor links forward and the reverse index backward. It returns how
	// many records were newly revoked.
	RevokeChain(ctx context.Context, id, reason string, at time.Time) (int, error)
	RevokeAllForUser(ctx context.Context, userID, reason string, at time.Time) (int, error)
	RevokeAllForDevice(ctx context.Context, userID, deviceID, reason string, at time.Time) (int, error)
	// ListByUser returns the user's records, oldest first
	ListByUser(ctx context.Context, userID string) ([]*Record, error)
}
