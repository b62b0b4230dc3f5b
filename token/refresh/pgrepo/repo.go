package pgrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/token/refresh"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const recordColumns = `id, user_id, token_hash, device_id, issued_at, expires_at, status,
	COALESCE(replaced_by, ''), revoked_at, COALESCE(revoked_reason, '')`

const (
	insertQuery = `INSERT INTO refresh_tokens (id, user_id, token_hash, device_id, issued_at, expires_at, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	findByHashQuery = `SELECT ` + recordColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	findByIDQuery   = `SELECT ` + recordColumns + ` FROM refresh_tokens WHERE id = $1`
	listByUserQuery = `SELECT ` + recordColumns + ` FROM refresh_tokens WHERE user_id = $1 ORDER BY issued_at, id`
	existsQuery     = `SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE id = $1)`

	transitionQuery = `UPDATE refresh_tokens SET status = 'replaced', replaced_by = $2
	WHERE id = $1 AND status = 'active'`
	insertLinkQuery = `INSERT INTO refresh_token_links (predecessor_id, successor_id) VALUES ($1, $2)`

	revokeChainQuery = `WITH RECURSIVE
	back (id) AS (
		SELECT $1::text
		UNION
		SELECT l.predecessor_id FROM refresh_token_links l JOIN back b ON l.successor_id = b.id
	),
	chain (id) AS (
		SELECT id FROM back
		UNION
		SELECT l.successor_id FROM refresh_token_links l JOIN chain c ON l.predecessor_id = c.id
	)
	UPDATE refresh_tokens t SET status = 'revoked', replaced_by = NULL, revoked_reason = $2, revoked_at = $3
	FROM chain WHERE t.id = chain.id AND t.status <> 'revoked'`

	revokeUserQuery = `UPDATE refresh_tokens SET status = 'revoked', replaced_by = NULL, revoked_reason = $2, revoked_at = $3
	WHERE user_id = $1 AND status <> 'revoked'`

	revokeDeviceQuery = `UPDATE refresh_tokens SET status = 'revoked', replaced_by = NULL, revoked_reason = $2, revoked_at = $3
	WHERE user_id = $1 AND device_id = $4 AND status <> 'revoked'`
)

var _ refresh.Store = (*Repo)(nil)

// Repo stores refresh records in PostgreSQL. Chain links live in their own
// table so revoked records stay reachable for chain walks.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Open connects with the given database/sql driver name, "pgx" or "postgres"
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, autherrors.Wrapf(err, "db open error (%s)", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, autherrors.Unavailable(err, "ping database")
	}
	return db, nil
}

func (r *Repo) Insert(ctx context.Context, record *refresh.Record) error {
	_, err := r.db.ExecContext(ctx, insertQuery,
		record.ID,
		record.UserID,
		record.TokenHash,
		record.DeviceID,
		record.IssuedAt.UTC(),
		record.ExpiresAt.UTC(),
		string(record.Status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return autherrors.ErrDuplicateID
		}
		return autherrors.Unavailable(err, "insert refresh record")
	}
	return nil
}

func (r *Repo) FindByHash(ctx context.Context, hash string) (*refresh.Record, error) {
	return r.findOne(ctx, findByHashQuery, hash)
}

func (r *Repo) FindByID(ctx context.Context, id string) (*refresh.Record, error) {
	return r.findOne(ctx, findByIDQuery, id)
}

func (r *Repo) TransitionToReplaced(ctx context.Context, id, successorID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return autherrors.Unavailable(err, "transition refresh record")
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, transitionQuery, id, successorID)
	if err != nil {
		return autherrors.Unavailable(err, "transition refresh record")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return autherrors.Unavailable(err, "transition refresh record")
	}

	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, existsQuery, id).Scan(&exists); err != nil {
			return autherrors.Unavailable(err, "transition refresh record")
		}
		if !exists {
			return autherrors.ErrNotFound
		}
		return autherrors.ErrAlreadyTransitioned
	}

	if _, err := tx.ExecContext(ctx, insertLinkQuery, id, successorID); err != nil {
		return autherrors.Unavailable(err, "link refresh records")
	}
	if err := tx.Commit(); err != nil {
		return autherrors.Unavailable(err, "transition refresh record")
	}
	return nil
}

func (r *Repo) RevokeChain(ctx context.Context, id, reason string, at time.Time) (int, error) {
	count, err := r.exec(ctx, "revoke refresh chain", revokeChainQuery, id, reason, at.UTC())
	if err != nil || count > 0 {
		return count, err
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, existsQuery, id).Scan(&exists); err != nil {
		return 0, autherrors.Unavailable(err, "revoke refresh chain")
	}
	if !exists {
		return 0, autherrors.ErrNotFound
	}
	return 0, nil
}

func (r *Repo) RevokeAllForUser(ctx context.Context, userID, reason string, at time.Time) (int, error) {
	return r.exec(ctx, "revoke refresh records", revokeUserQuery, userID, reason, at.UTC())
}

func (r *Repo) RevokeAllForDevice(ctx context.Context, userID, deviceID, reason string, at time.Time) (int, error) {
	return r.exec(ctx, "revoke refresh records", revokeDeviceQuery, userID, reason, at.UTC(), deviceID)
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]*refresh.Record, error) {
	rows, err := r.db.QueryContext(ctx, listByUserQuery, userID)
	if err != nil {
		return nil, autherrors.Unavailable(err, "list refresh records")
	}
	defer rows.Close()

	records := make([]*refresh.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, autherrors.Unavailable(err, "list refresh records")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, autherrors.Unavailable(err, "list refresh records")
	}
	return records, nil
}

func (r *Repo) findOne(ctx context.Context, query, arg string) (*refresh.Record, error) {
	record, err := scanRecord(r.db.QueryRowContext(ctx, query, arg))
	if autherrors.Is(err, sql.ErrNoRows) {
		return nil, autherrors.ErrNotFound
	}
	if err != nil {
		return nil, autherrors.Unavailable(err, "find refresh record")
	}
	return record, nil
}

func (r *Repo) exec(ctx context.Context, op, query string, args ...any) (int, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, autherrors.Unavailable(err, op)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, autherrors.Unavailable(err, op)
	}
	return int(affected), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*refresh.Record, error) {
	var (
		record    refresh.Record
		status    string
		revokedAt sql.NullTime
	)
	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.TokenHash,
		&record.DeviceID,
		&record.IssuedAt,
		&record.ExpiresAt,
		&status,
		&record.ReplacedBy,
		&revokedAt,
		&record.RevokedReason,
	)
	if err != nil {
		return nil, err
	}

	record.Status = refresh.Status(status)
	record.IssuedAt = record.IssuedAt.UTC()
	record.ExpiresAt = record.ExpiresAt.UTC()
	if revokedAt.Valid {
		record.RevokedAt = revokedAt.Time.UTC()
	}
	return &record, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if autherrors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if autherrors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
