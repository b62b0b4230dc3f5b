package refreshrepofake

import (
	"context"
	"sort"
	"sync"
	"time"

	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/token/refresh"
)

var _ refresh.Store = (*FakeRefreshRepo)(nil)

// FakeRefreshRepo is an in-process refresh store. A single mutex makes every
// operation, including the replaced transition, atomic.
type FakeRefreshRepo struct {
	records map[string]*refresh.Record
	hashes  map[string]string   // token hash to record id
	next    map[string]string   // predecessor to successor
	prev    map[string]string   // successor to predecessor
	userIDs map[string][]string // user id to record ids, insertion order
	lock    sync.Mutex
}

func NewFakeRefreshRepo() *FakeRefreshRepo {
	return &FakeRefreshRepo{
		records: make(map[string]*refresh.Record),
		hashes:  make(map[string]string),
		next:    make(map[string]string),
		prev:    make(map[string]string),
		userIDs: make(map[string][]string),
	}
}

func (rr *FakeRefreshRepo) Insert(ctx context.Context, record *refresh.Record) error {
	if err := ctx.Err(); err != nil {
		return autherrors.Unavailable(err, "insert refresh record")
	}
	rr.lock.Lock()
	defer rr.lock.Unlock()

	if _, ok := rr.records[record.ID]; ok {
		return autherrors.ErrDuplicateID
	}
	if _, ok := rr.hashes[record.TokenHash]; ok {
		return autherrors.ErrDuplicateID
	}

	rr.records[record.ID] = record.Clone()
	rr.hashes[record.TokenHash] = record.ID
	rr.userIDs[record.UserID] = append(rr.userIDs[record.UserID], record.ID)
	return nil
}

func (rr *FakeRefreshRepo) FindByHash(ctx context.Context, hash string) (*refresh.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.Unavailable(err, "find refresh record")
	}
	rr.lock.Lock()
	defer rr.lock.Unlock()

	id, ok := rr.hashes[hash]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return rr.records[id].Clone(), nil
}

func (rr *FakeRefreshRepo) FindByID(ctx context.Context, id string) (*refresh.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.Unavailable(err, "find refresh record")
	}
	rr.lock.Lock()
	defer rr.lock.Unlock()

	record, ok := rr.records[id]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return record.Clone(), nil
}

func (rr *FakeRefreshRepo) TransitionToReplaced(ctx context.Context, id, successorID string) error {
	if err := ctx.Err(); err != nil {
		return autherrors.Unavailable(err, "transition refresh record")
	}
	rr.lock.Lock()
	defer rr.lock.Unlock()

	record, ok := rr.records[id]
	if !ok {
		return autherrors.ErrNotFound
	}
	if record.Status != refresh.StatusActive {
		return autherrors.ErrAlreadyTransitioned
	}

	record.Status = refresh.StatusReplaced
	record.ReplacedBy = successorID
	rr.next[id] = successorID
	rr.prev[successorID] = id
	return nil
}

func (rr *FakeRefreshRepo) RevokeChain(ctx context.Context, id, reason string, at time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, autherrors.Unavailable(err, "revoke refresh chain")
	}
	rr.lock.Lock()
	defer rr.lock.Unlock()

	if _, ok := rr.records[id]; !ok {
		return 0, autherrors.ErrNotFound
	}

	root := id
	for {
		p, ok := rr.prev[root]
		if !ok {
			break
		}
		root = p
	}

	count := 0
	for current, ok := root, true; ok; current, ok = rr.next[current] {
		if rr.revoke(current, reason, at) {
			count++
		}
	}
	return count, nil
}

func (rr *FakeRefreshRepo) RevokeAllForUser(ctx context.Context, userID, reason string, at time.Time) (int, error) {
	return rr.revokeWhere(ctx, userID, func(*refresh.Record) bool { return true }, reason, at)
}

func (rr *FakeRefreshRepo) RevokeAllForDevice(ctx context.Context, userID, deviceID, reason string, at time.Time) (int, error) {
	return rr.revokeWhere(ctx, userID, func(r *refresh.Record) bool { return r.DeviceID == deviceID }, reason, at)
}

func (rr *FakeRefreshRepo) ListByUser(ctx context.Context, userID string) ([]*refresh.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, autherrors.Unavailable(err, "list refresh records")
	}
	rr.lock.Lock()
	defer rr.lock.Unlock()

	records := make([]*refresh.Record, 0, len(rr.userIDs[userID]))
	for _, id := range rr.userIDs[userID] {
		records = append(records, rr.records[id].Clone())
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].IssuedAt.Before(records[j].IssuedAt)
	})
	return records, nil
}

func (rr *FakeRefreshRepo) revokeWhere(ctx context.Context, userID string, match func(*refresh.Record) bool, reason string, at time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, autherrors.Unavailable(err, "revoke refresh records")
	}
	rr.lock.Lock()
	defer rr.lock.Unlock()

	count := 0
	for _, id := range rr.userIDs[userID] {
		if match(rr.records[id]) && rr.revoke(id, reason, at) {
			count++
		}
	}
	return count, nil
}

// revoke must be called with the lock held
func (rr *FakeRefreshRepo) revoke(id, reason string, at time.Time) bool {
	record, ok := rr.records[id]
	if !ok || record.Status == refresh.StatusRevoked {
		return false
	}
	record.Status = refresh.StatusRevoked
	record.ReplacedBy = ""
	record.RevokedAt = at.UTC()
	record.RevokedReason = reason
	return true
}
