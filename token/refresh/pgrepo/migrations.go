package pgrepo

import (
	"context"
	"database/sql"
	"embed"

	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the refresh token schema
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return autherrors.Wrapf(err, "migration dialect error")
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return autherrors.Wrapf(err, "migration error")
	}
	return nil
}
