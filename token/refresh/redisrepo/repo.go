package redisrepo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/token/refresh"
	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "rt"

var _ refresh.Store = (*Repo)(nil)

// Repo stores refresh records in Redis. Each record is a hash; the token hash,
// user and link indexes are plain keys and sorted sets. Every write that must
// be atomic runs as a Lua script. Scripts address keys derived from the
// prefix, so the store targets a single Redis node rather than a cluster.
type Repo struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRepo(client redis.UniversalClient, prefix string) *Repo {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Repo{redis: client, prefix: prefix}
}

// NewClient builds a client from a redis:// URL
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, autherrors.Wrapf(err, "invalid redis url")
	}
	return redis.NewClient(opts), nil
}

func (r *Repo) recordKey(id string) string {
	return r.prefix + ":rec:" + id
}

func (r *Repo) hashKey(hash string) string {
	return r.prefix + ":hash:" + hash
}

func (r *Repo) userKey(userID string) string {
	return r.prefix + ":user:" + userID
}

func (r *Repo) nextKey(id string) string {
	return r.prefix + ":next:" + id
}

func (r *Repo) prevKey(id string) string {
	return r.prefix + ":prev:" + id
}

// Ping checks connectivity
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return autherrors.Unavailable(err, "ping redis")
	}
	return nil
}

func (r *Repo) Insert(ctx context.Context, record *refresh.Record) error {
	status, err := insertLua.Run(ctx, r.redis,
		[]string{r.recordKey(record.ID), r.hashKey(record.TokenHash), r.userKey(record.UserID)},
		record.ID,
		record.UserID,
		record.TokenHash,
		record.DeviceID,
		record.IssuedAt.Unix(),
		record.ExpiresAt.Unix(),
		string(record.Status),
	).Int64()
	if err != nil {
		return autherrors.Unavailable(err, "insert refresh record")
	}
	if status == insertStatusDuplicate {
		return autherrors.ErrDuplicateID
	}
	return nil
}

func (r *Repo) FindByHash(ctx context.Context, hash string) (*refresh.Record, error) {
	id, err := r.redis.Get(ctx, r.hashKey(hash)).Result()
	if err == redis.Nil {
		return nil, autherrors.ErrNotFound
	}
	if err != nil {
		return nil, autherrors.Unavailable(err, "find refresh record")
	}
	return r.FindByID(ctx, id)
}

func (r *Repo) FindByID(ctx context.Context, id string) (*refresh.Record, error) {
	fields, err := r.redis.HGetAll(ctx, r.recordKey(id)).Result()
	if err != nil {
		return nil, autherrors.Unavailable(err, "find refresh record")
	}
	if len(fields) == 0 {
		return nil, autherrors.ErrNotFound
	}
	return decodeRecord(fields)
}

func (r *Repo) TransitionToReplaced(ctx context.Context, id, successorID string) error {
	status, err := transitionLua.Run(ctx, r.redis,
		[]string{r.recordKey(id), r.nextKey(id), r.prevKey(successorID)},
		successorID,
		id,
	).Int64()
	if err != nil {
		return autherrors.Unavailable(err, "transition refresh record")
	}

	switch status {
	case transitionStatusTransitioned:
		return nil
	case transitionStatusNotFound:
		return autherrors.ErrNotFound
	case transitionStatusReplaced:
		return autherrors.ErrAlreadyTransitioned
	default:
		return autherrors.Unavailable(fmt.Errorf("unknown transition status %d", status), "transition refresh record")
	}
}

func (r *Repo) RevokeChain(ctx context.Context, id, reason string, at time.Time) (int, error) {
	count, err := revokeChainLua.Run(ctx, r.redis, nil, r.prefix, id, reason, at.Unix()).Int64()
	if err != nil {
		return 0, autherrors.Unavailable(err, "revoke refresh chain")
	}
	if count == revokeStatusNotFound {
		return 0, autherrors.ErrNotFound
	}
	return int(count), nil
}

func (r *Repo) RevokeAllForUser(ctx context.Context, userID, reason string, at time.Time) (int, error) {
	return r.revokeUser(ctx, userID, reason, at, false, "")
}

func (r *Repo) RevokeAllForDevice(ctx context.Context, userID, deviceID, reason string, at time.Time) (int, error) {
	return r.revokeUser(ctx, userID, reason, at, true, deviceID)
}

func (r *Repo) revokeUser(ctx context.Context, userID, reason string, at time.Time, byDevice bool, deviceID string) (int, error) {
	filter := "0"
	if byDevice {
		filter = "1"
	}
	count, err := revokeUserLua.Run(ctx, r.redis, []string{r.userKey(userID)}, r.prefix, reason, at.Unix(), filter, deviceID).Int64()
	if err != nil {
		return 0, autherrors.Unavailable(err, "revoke refresh records")
	}
	return int(count), nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]*refresh.Record, error) {
	ids, err := r.redis.ZRange(ctx, r.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, autherrors.Unavailable(err, "list refresh records")
	}
	if len(ids) == 0 {
		return []*refresh.Record{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, r.recordKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, autherrors.Unavailable(err, "list refresh records")
	}

	records := make([]*refresh.Record, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		record, err := decodeRecord(fields)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func decodeRecord(fields map[string]string) (*refresh.Record, error) {
	issuedAt, err := parseUnix(fields["issued_at"])
	if err != nil {
		return nil, err
	}
	expiresAt, err := parseUnix(fields["expires_at"])
	if err != nil {
		return nil, err
	}
	revokedAt, err := parseUnix(fields["revoked_at"])
	if err != nil {
		return nil, err
	}

	return &refresh.Record{
		ID:            fields["id"],
		UserID:        fields["user_id"],
		TokenHash:     fields["token_hash"],
		DeviceID:      fields["device_id"],
		IssuedAt:      issuedAt,
		ExpiresAt:     expiresAt,
		Status:        refresh.Status(fields["status"]),
		ReplacedBy:    fields["replaced_by"],
		RevokedAt:     revokedAt,
		RevokedReason: fields["revoked_reason"],
	}, nil
}

func parseUnix(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, autherrors.Unavailable(err, "decode refresh record")
	}
	return time.Unix(n, 0).UTC(), nil
}
