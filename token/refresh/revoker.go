package refresh

import (
	"context"

	"github.com/jrsteele09/go-session-server/internal/audit"
)

// Revoker marks refresh records revoked. Nothing is ever deleted; every
// operation reports how many records it newly revoked. A revocation that has
// started is not abandoned when the caller's context is cancelled.
type Revoker struct {
	store Store
	opts  options
}

func NewRevoker(store Store, opts ...Option) *Revoker {
	return &Revoker{store: store, opts: newOptions(opts)}
}

// RevokeChain revokes the whole rotation chain that id belongs to
func (r *Revoker) RevokeChain(ctx context.Context, id, reason string) (int, error) {
	storeCtx, cancel := r.opts.revocationContext(ctx)
	defer cancel()

	count, err := r.store.RevokeChain(storeCtx, id, reason, r.opts.now())
	if err != nil {
		r.opts.logger.Error().Err(err).Str("record_id", id).Str("reason", reason).Msg("Failed to revoke refresh chain")
		return 0, err
	}

	r.opts.logger.Info().Str("record_id", id).Str("reason", reason).Int("revoked", count).Msg("Revoked refresh chain")
	r.opts.emit(ctx, audit.Event{Type: audit.EventChainRevoked, RecordID: id, Reason: reason, Count: count})
	return count, nil
}

func (r *Revoker) RevokeAllForUser(ctx context.Context, userID, reason string) (int, error) {
	storeCtx, cancel := r.opts.revocationContext(ctx)
	defer cancel()

	count, err := r.store.RevokeAllForUser(storeCtx, userID, reason, r.opts.now())
	if err != nil {
		r.opts.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to revoke user refresh tokens")
		return 0, err
	}

	r.opts.logger.Info().Str("user_id", userID).Str("reason", reason).Int("revoked", count).Msg("Revoked user refresh tokens")
	r.opts.emit(ctx, audit.Event{Type: audit.EventUserRevoked, UserID: userID, Reason: reason, Count: count})
	return count, nil
}

func (r *Revoker) RevokeAllForDevice(ctx context.Context, userID, deviceID, reason string) (int, error) {
	storeCtx, cancel := r.opts.revocationContext(ctx)
	defer cancel()

	count, err := r.store.RevokeAllForDevice(storeCtx, userID, deviceID, reason, r.opts.now())
	if err != nil {
		r.opts.logger.Error().Err(err).Str("user_id", userID).Str("device_id", deviceID).Msg("Failed to revoke device refresh tokens")
		return 0, err
	}

	r.opts.logger.Info().Str("user_id", userID).Str("device_id", deviceID).Str("reason", reason).Int("revoked", count).Msg("Revoked device refresh tokens")
	r.opts.emit(ctx, audit.Event{Type: audit.EventDeviceRevoked, UserID: userID, DeviceID: deviceID, Reason: reason, Count: count})
	return count, nil
}
