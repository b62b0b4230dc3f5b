// Package refreshtest holds the behaviour every refresh.Store implementation
// must share, runnable against any backend.
package refreshtest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/token/refresh"
	"github.com/stretchr/testify/require"
)

var Epoch = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

// NewRecord builds an active record issued n seconds after Epoch
func NewRecord(id, userID, deviceID string, n int) *refresh.Record {
	issued := Epoch.Add(time.Duration(n) * time.Second)
	return &refresh.Record{
		ID:        id,
		UserID:    userID,
		TokenHash: refresh.HashToken("raw-" + id),
		DeviceID:  deviceID,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(24 * time.Hour),
		Status:    refresh.StatusActive,
	}
}

// RunStoreContract runs the shared store behaviour against stores built by newStore
func RunStoreContract(t *testing.T, newStore func(t *testing.T) refresh.Store) {
	t.Run("InsertAndFind", func(t *testing.T) { testInsertAndFind(t, newStore(t)) })
	t.Run("DuplicateID", func(t *testing.T) { testDuplicateID(t, newStore(t)) })
	t.Run("Transition", func(t *testing.T) { testTransition(t, newStore(t)) })
	t.Run("ConcurrentTransitionSingleWinner", func(t *testing.T) { testConcurrentTransition(t, newStore(t)) })
	t.Run("RevokeChainBothDirections", func(t *testing.T) { testRevokeChain(t, newStore(t)) })
	t.Run("RevokeAllForUserAndDevice", func(t *testing.T) { testRevokeAll(t, newStore(t)) })
	t.Run("ListByUser", func(t *testing.T) { testListByUser(t, newStore(t)) })
	t.Run("CancelledContextIsUnavailable", func(t *testing.T) { testCancelledContext(t, newStore(t)) })
}

// BuildChain inserts ids as one rotation chain, each replaced by the next
func BuildChain(t *testing.T, store refresh.Store, userID string, ids ...string) {
	t.Helper()
	ctx := context.Background()
	for i, id := range ids {
		require.NoError(t, store.Insert(ctx, NewRecord(id, userID, "", i)))
		if i > 0 {
			require.NoError(t, store.TransitionToReplaced(ctx, ids[i-1], id))
		}
	}
}

func testInsertAndFind(t *testing.T, store refresh.Store) {
	ctx := context.Background()
	record := NewRecord("rec-a", "42", "laptop", 0)
	require.NoError(t, store.Insert(ctx, record))

	byHash, err := store.FindByHash(ctx, record.TokenHash)
	require.NoError(t, err)
	require.Equal(t, record, byHash)

	byID, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, record, byID)

	_, err = store.FindByHash(ctx, refresh.HashToken("unknown"))
	require.ErrorIs(t, err, autherrors.ErrNotFound)
	_, err = store.FindByID(ctx, "unknown")
	require.ErrorIs(t, err, autherrors.ErrNotFound)
}

func testDuplicateID(t *testing.T, store refresh.Store) {
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, NewRecord("rec-a", "42", "", 0)))

	clash := NewRecord("rec-a", "43", "", 1)
	clash.TokenHash = refresh.HashToken("another")
	require.ErrorIs(t, store.Insert(ctx, clash), autherrors.ErrDuplicateID)

	sameHash := NewRecord("rec-b", "42", "", 1)
	sameHash.TokenHash = refresh.HashToken("raw-rec-a")
	require.ErrorIs(t, store.Insert(ctx, sameHash), autherrors.ErrDuplicateID)

	stored, err := store.FindByID(ctx, "rec-a")
	require.NoError(t, err)
	require.Equal(t, "42", stored.UserID)
}

func testTransition(t *testing.T, store refresh.Store) {
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, NewRecord("rec-a", "42", "", 0)))
	require.NoError(t, store.Insert(ctx, NewRecord("rec-b", "42", "", 1)))

	require.NoError(t, store.TransitionToReplaced(ctx, "rec-a", "rec-b"))
	require.ErrorIs(t, store.TransitionToReplaced(ctx, "rec-a", "rec-b"), autherrors.ErrAlreadyTransitioned)
	require.ErrorIs(t, store.TransitionToReplaced(ctx, "unknown", "rec-b"), autherrors.ErrNotFound)

	a, err := store.FindByID(ctx, "rec-a")
	require.NoError(t, err)
	require.Equal(t, refresh.StatusReplaced, a.Status)
	require.Equal(t, "rec-b", a.ReplacedBy)

	b, err := store.FindByID(ctx, "rec-b")
	require.NoError(t, err)
	require.Equal(t, refresh.StatusActive, b.Status)
	require.Empty(t, b.ReplacedBy)
}

func testConcurrentTransition(t *testing.T, store refresh.Store) {
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, NewRecord("rec-a", "42", "", 0)))

	const n = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		lost int
	)
	for i := 0; i < n; i++ {
		successor := NewRecord(fmt.Sprintf("succ-%d", i), "42", "", i+1)
		require.NoError(t, store.Insert(ctx, successor))

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.TransitionToReplaced(ctx, "rec-a", successor.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case autherrors.Is(err, autherrors.ErrAlreadyTransitioned):
				lost++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Equal(t, n-1, lost)
}

func testRevokeChain(t *testing.T, store refresh.Store) {
	ctx := context.Background()
	BuildChain(t, store, "42", "rec-a", "rec-b", "rec-c")
	require.NoError(t, store.Insert(ctx, NewRecord("other", "42", "", 10)))

	at := Epoch.Add(time.Hour)
	count, err := store.RevokeChain(ctx, "rec-b", refresh.ReasonReuseDetected, at)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	for _, id := range []string{"rec-a", "rec-b", "rec-c"} {
		record, err := store.FindByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, refresh.StatusRevoked, record.Status, id)
		require.Equal(t, refresh.ReasonReuseDetected, record.RevokedReason, id)
		require.True(t, at.Equal(record.RevokedAt), id)
		require.Empty(t, record.ReplacedBy, id)
	}

	other, err := store.FindByID(ctx, "other")
	require.NoError(t, err)
	require.Equal(t, refresh.StatusActive, other.Status)

	// Idempotent, and revoked members still link the chain together
	count, err = store.RevokeChain(ctx, "rec-a", refresh.ReasonLogout, at.Add(time.Minute))
	require.NoError(t, err)
	require.Zero(t, count)

	c, err := store.FindByID(ctx, "rec-c")
	require.NoError(t, err)
	require.Equal(t, refresh.ReasonReuseDetected, c.RevokedReason)

	_, err = store.RevokeChain(ctx, "unknown", refresh.ReasonLogout, at)
	require.ErrorIs(t, err, autherrors.ErrNotFound)
}

func testRevokeAll(t *testing.T, store refresh.Store) {
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, NewRecord("a1", "42", "laptop", 0)))
	require.NoError(t, store.Insert(ctx, NewRecord("a2", "42", "phone", 1)))
	require.NoError(t, store.Insert(ctx, NewRecord("a3", "42", "phone", 2)))
	require.NoError(t, store.Insert(ctx, NewRecord("b1", "43", "phone", 3)))

	at := Epoch.Add(time.Hour)
	count, err := store.RevokeAllForDevice(ctx, "42", "phone", refresh.ReasonLogoutDevice, at)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	laptop, err := store.FindByID(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, refresh.StatusActive, laptop.Status)

	count, err = store.RevokeAllForUser(ctx, "42", refresh.ReasonLogoutAll, at)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	otherUser, err := store.FindByID(ctx, "b1")
	require.NoError(t, err)
	require.Equal(t, refresh.StatusActive, otherUser.Status)

	count, err = store.RevokeAllForUser(ctx, "nobody", refresh.ReasonLogoutAll, at)
	require.NoError(t, err)
	require.Zero(t, count)
}

func testListByUser(t *testing.T, store refresh.Store) {
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, NewRecord("late", "42", "", 5)))
	require.NoError(t, store.Insert(ctx, NewRecord("early", "42", "", 1)))
	require.NoError(t, store.Insert(ctx, NewRecord("other", "43", "", 2)))

	records, err := store.ListByUser(ctx, "42")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "early", records[0].ID)
	require.Equal(t, "late", records[1].ID)

	records, err = store.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, records)
}

func testCancelledContext(t *testing.T, store refresh.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Insert(ctx, NewRecord("rec-a", "42", "", 0))
	require.ErrorIs(t, err, autherrors.ErrStoreUnavailable)

	_, err = store.FindByHash(ctx, refresh.HashToken("raw-rec-a"))
	require.ErrorIs(t, err, autherrors.ErrStoreUnavailable)
	require.NotErrorIs(t, err, autherrors.ErrNotFound)
}
