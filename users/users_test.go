package users_test

import (
	"os"
	"path/filepath"
	"testing"

	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/users"
	fakeuserrepo "github.com/jrsteele09/go-session-server/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := users.HashPassword("Secret123")
	require.NoError(t, err)
	require.NotEqual(t, "Secret123", hash)

	u := &users.User{PasswordHash: hash}
	require.True(t, u.CheckPassword("Secret123"))
	require.False(t, u.CheckPassword("secret123"))
	require.False(t, (&users.User{}).CheckPassword(""))
}

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, users.ValidatePasswordStrength("Secret123"))
	require.Error(t, users.ValidatePasswordStrength("Short1"))
	require.Error(t, users.ValidatePasswordStrength("alllowercase1"))
	require.Error(t, users.ValidatePasswordStrength("ALLUPPERCASE1"))
	require.Error(t, users.ValidatePasswordStrength("NoNumbersHere"))
}

const seedYAML = `
users:
  - id: "42"
    email: John.Doe@Example.com
    name: John Doe
    password_hash: $2a$10$abcdefghijklmnopqrstuu
  - id: "1"
    email: admin@example.com
    name: Admin
    role: admin
    password_hash: $2a$10$abcdefghijklmnopqrstuu
    blocked: true
`

func TestParseSeed(t *testing.T) {
	seeded, err := users.ParseSeed([]byte(seedYAML))
	require.NoError(t, err)
	require.Len(t, seeded, 2)

	require.Equal(t, "john.doe@example.com", seeded[0].Email)
	require.Equal(t, users.RoleUser, seeded[0].Role)
	require.Equal(t, users.RoleAdmin, seeded[1].Role)
	require.True(t, seeded[1].Blocked)
}

func TestParseSeedRejectsBadInput(t *testing.T) {
	for name, doc := range map[string]string{
		"not yaml":      "users: [",
		"missing hash":  "users:\n  - email: a@example.com\n",
		"unknown role":  "users:\n  - email: a@example.com\n    password_hash: x\n    role: root\n",
		"duplicate":     "users:\n  - email: a@example.com\n    password_hash: x\n  - email: A@example.com\n    password_hash: y\n",
		"missing email": "users:\n  - password_hash: x\n",
	} {
		_, err := users.ParseSeed([]byte(doc))
		require.Error(t, err, name)
	}
}

func TestLoadSeedFileAndSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	seeded, err := users.LoadSeedFile(path)
	require.NoError(t, err)

	repo := fakeuserrepo.NewFakeUserRepo()
	require.NoError(t, users.Seed(repo, seeded))

	u, err := repo.GetByEmail("JOHN.DOE@example.com")
	require.NoError(t, err)
	require.Equal(t, "42", u.ID)

	_, err = users.LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	u := &users.User{Email: "a@example.com", Name: "A", Role: users.RoleUser}
	require.NoError(t, repo.Upsert(u))
	require.NotEmpty(t, u.ID)
	require.NoError(t, repo.Upsert(&users.User{ID: "zz", Email: "b@example.com"}))

	byID, err := repo.GetByID(u.ID)
	require.NoError(t, err)
	require.Equal(t, "A", byID.Name)

	_, err = repo.GetByEmail("nobody@example.com")
	require.ErrorIs(t, err, autherrors.ErrNotFound)
	_, err = repo.GetByID("nobody")
	require.ErrorIs(t, err, autherrors.ErrNotFound)

	require.NoError(t, repo.SetBlocked("A@example.com", true))
	blocked, err := repo.GetByEmail("a@example.com")
	require.NoError(t, err)
	require.True(t, blocked.Blocked)
	require.ErrorIs(t, repo.SetBlocked("nobody@example.com", true), autherrors.ErrNotFound)

	// Email changes move the index
	require.NoError(t, repo.Upsert(&users.User{ID: u.ID, Email: "c@example.com"}))
	_, err = repo.GetByEmail("a@example.com")
	require.ErrorIs(t, err, autherrors.ErrNotFound)

	all, err := repo.List(0, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	page, err := repo.List(1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	empty, err := repo.List(5, 1)
	require.NoError(t, err)
	require.Empty(t, empty)
}
