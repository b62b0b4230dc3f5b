package refresh

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-session-server/internal/audit"
	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/token"
)

// SubjectResolver looks up the current claims for a user when a refresh token
// is rotated. Blocked users resolve to ErrAccountDisabled.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, userID string) (token.Subject, error)
}

// SubjectResolverFunc adapts a function to SubjectResolver
type SubjectResolverFunc func(ctx context.Context, userID string) (token.Subject, error)

func (f SubjectResolverFunc) ResolveSubject(ctx context.Context, userID string) (token.Subject, error) {
	return f(ctx, userID)
}

// Engine starts refresh chains at login and rotates them on every refresh.
// Every refresh token is single use; presenting an already rotated token
// revokes the chain it belongs to.
type Engine struct {
	tokens   *token.Service
	store    Store
	resolver SubjectResolver
	revoker  *Revoker
	opts     options
}

func NewEngine(tokens *token.Service, store Store, resolver SubjectResolver, opts ...Option) *Engine {
	opts = append([]Option{WithNowFunc(tokens.Now)}, opts...)
	return &Engine{
		tokens:   tokens,
		store:    store,
		resolver: resolver,
		revoker:  NewRevoker(store, opts...),
		opts:     newOptions(opts),
	}
}

// Revoker returns the revoker sharing the engine's store, logger and audit sink
func (e *Engine) Revoker() *Revoker {
	return e.revoker
}

// Start issues the first token pair of a new chain
func (e *Engine) Start(ctx context.Context, subject token.Subject, deviceID string) (*TokenPair, error) {
	access, err := e.tokens.IssueAccessToken(subject)
	if err != nil {
		return nil, err
	}
	issued, err := e.tokens.IssueRefreshToken(subject.UserID, deviceID)
	if err != nil {
		return nil, err
	}

	record := newRecord(issued)
	if err := e.insert(ctx, record); err != nil {
		return nil, autherrors.Wrapf(err, "failed to store refresh token")
	}

	e.opts.logger.Debug().Str("user_id", record.UserID).Str("record_id", record.ID).Msg("Started refresh chain")
	return &TokenPair{AccessToken: access, RefreshToken: issued.Raw, Record: record.Clone()}, nil
}

// Rotate exchanges a refresh token for a new pair. Errors wrap one of
// ErrInvalidToken, ErrExpiredRefreshToken, ErrRevokedToken, ErrReuseDetected,
// ErrConcurrentRotation, ErrAccountDisabled or ErrStoreUnavailable.
func (e *Engine) Rotate(ctx context.Context, raw string) (*TokenPair, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty refresh token", autherrors.ErrInvalidToken)
	}

	record, err := e.findByHash(ctx, HashToken(raw))
	if err != nil {
		if autherrors.Is(err, autherrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown refresh token", autherrors.ErrInvalidToken)
		}
		return nil, err
	}

	result := e.tokens.VerifyRefresh(raw)
	switch result.Status {
	case token.VerifyExpired:
		return nil, autherrors.ErrExpiredRefreshToken
	case token.VerifyInvalid:
		return nil, fmt.Errorf("%w: %w", autherrors.ErrInvalidToken, result.Err)
	}
	if result.Claims.ID != record.ID || result.Claims.Subject != record.UserID {
		return nil, fmt.Errorf("%w: refresh token does not match its record", autherrors.ErrInvalidToken)
	}
	if e.tokens.IsExpired(record.ExpiresAt) {
		return nil, autherrors.ErrExpiredRefreshToken
	}

	switch record.Status {
	case StatusRevoked:
		return nil, autherrors.ErrRevokedToken
	case StatusReplaced:
		return nil, e.reuseDetected(ctx, record)
	case StatusActive:
		return e.rotateActive(ctx, record)
	default:
		return nil, fmt.Errorf("%w: unknown record status %q", autherrors.ErrInvalidToken, record.Status)
	}
}

func (e *Engine) reuseDetected(ctx context.Context, record *Record) error {
	e.opts.logger.Warn().Str("user_id", record.UserID).Str("record_id", record.ID).Msg("Refresh token reuse detected")

	count, err := e.revoker.RevokeChain(ctx, record.ID, ReasonReuseDetected)
	if err != nil {
		return err
	}
	e.opts.emit(ctx, audit.Event{
		Type:     audit.EventReuseDetected,
		UserID:   record.UserID,
		DeviceID: record.DeviceID,
		RecordID: record.ID,
		Reason:   ReasonReuseDetected,
		Count:    count,
	})
	return autherrors.ErrReuseDetected
}

func (e *Engine) rotateActive(ctx context.Context, record *Record) (*TokenPair, error) {
	subject, err := e.resolver.ResolveSubject(ctx, record.UserID)
	if err != nil {
		e.opts.emit(ctx, audit.Event{Type: audit.EventRotationDenied, UserID: record.UserID, RecordID: record.ID, Reason: err.Error()})
		return nil, err
	}

	access, err := e.tokens.IssueAccessToken(subject)
	if err != nil {
		return nil, err
	}
	issued, err := e.tokens.IssueRefreshToken(record.UserID, record.DeviceID)
	if err != nil {
		return nil, err
	}

	// The successor exists before the predecessor links to it so a concurrent
	// chain revocation can never miss it.
	successor := newRecord(issued)
	if err := e.insert(ctx, successor); err != nil {
		return nil, autherrors.Wrapf(err, "failed to store rotated refresh token")
	}

	err = e.transition(ctx, record.ID, successor.ID)
	switch {
	case err == nil:
		e.opts.emit(ctx, audit.Event{
			Type:     audit.EventRotation,
			UserID:   record.UserID,
			DeviceID: record.DeviceID,
			RecordID: successor.ID,
			Metadata: map[string]string{"replaces": record.ID},
		})
		return &TokenPair{AccessToken: access, RefreshToken: issued.Raw, Record: successor.Clone()}, nil

	case autherrors.Is(err, autherrors.ErrAlreadyTransitioned):
		e.discard(ctx, successor)
		current, findErr := e.findByID(ctx, record.ID)
		if findErr != nil {
			return nil, findErr
		}
		if current.Status == StatusRevoked {
			return nil, autherrors.ErrRevokedToken
		}
		return nil, autherrors.ErrConcurrentRotation

	case autherrors.Is(err, autherrors.ErrNotFound):
		e.discard(ctx, successor)
		return nil, fmt.Errorf("%w: refresh record disappeared", autherrors.ErrInvalidToken)

	default:
		e.discard(ctx, successor)
		return nil, err
	}
}

// discard revokes a successor that lost its rotation. Its raw token was never
// handed out, so a failure here only leaves an unusable record behind.
func (e *Engine) discard(ctx context.Context, successor *Record) {
	storeCtx, cancel := e.opts.revocationContext(ctx)
	defer cancel()

	if _, err := e.store.RevokeChain(storeCtx, successor.ID, ReasonRotationLost, e.opts.now()); err != nil {
		e.opts.logger.Warn().Err(err).Str("record_id", successor.ID).Msg("Failed to discard losing refresh token")
	}
}

func (e *Engine) insert(ctx context.Context, record *Record) error {
	storeCtx, cancel := e.opts.storeContext(ctx)
	defer cancel()
	return e.store.Insert(storeCtx, record)
}

func (e *Engine) transition(ctx context.Context, id, successorID string) error {
	storeCtx, cancel := e.opts.storeContext(ctx)
	defer cancel()
	return e.store.TransitionToReplaced(storeCtx, id, successorID)
}

func (e *Engine) findByHash(ctx context.Context, hash string) (*Record, error) {
	storeCtx, cancel := e.opts.storeContext(ctx)
	defer cancel()
	return e.store.FindByHash(storeCtx, hash)
}

func (e *Engine) findByID(ctx context.Context, id string) (*Record, error) {
	storeCtx, cancel := e.opts.storeContext(ctx)
	defer cancel()
	return e.store.FindByID(storeCtx, id)
}

// Sessions lists a user's refresh records, oldest first
func (e *Engine) Sessions(ctx context.Context, userID string) ([]*Record, error) {
	storeCtx, cancel := e.opts.storeContext(ctx)
	defer cancel()
	return e.store.ListByUser(storeCtx, userID)
}

// FindByToken returns the record for a raw refresh token without verifying it
func (e *Engine) FindByToken(ctx context.Context, raw string) (*Record, error) {
	if raw == "" {
		return nil, autherrors.ErrNotFound
	}
	return e.findByHash(ctx, HashToken(raw))
}
