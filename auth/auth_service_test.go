package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-server/auth"
	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/token"
	"github.com/jrsteele09/go-session-server/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-session-server/token/refresh/repofake"
	"github.com/jrsteele09/go-session-server/users"
	fakeuserrepo "github.com/jrsteele09/go-session-server/users/repofake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	secretStr        = "0123456789abcdef0123456789abcdef"
	testUserID       = "42"
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "Password123"
	testAdminID      = "1"
	testAdminEmail   = "admin@example.com"
	testDeviceID     = "laptop-1"
)

// testFixture holds all test dependencies
type testFixture struct {
	now          time.Time
	userRepo     *fakeuserrepo.FakeUserRepo
	refreshStore *refreshrepofake.FakeRefreshRepo
	tokens       *token.Service
	service      *auth.SessionService
}

// setupTestFixture creates a new test fixture with all dependencies
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		now:          time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
		userRepo:     fakeuserrepo.NewFakeUserRepo(),
		refreshStore: refreshrepofake.NewFakeRefreshRepo(),
	}
	f.tokens = token.NewService(
		token.NewCodec(token.NewHMACSigner(secretStr)),
		token.WithNowFunc(func() time.Time { return f.now }),
	)

	hash, err := users.HashPassword(testUserPassword)
	require.NoError(t, err)
	require.NoError(t, f.userRepo.Upsert(&users.User{
		ID: testUserID, Email: testUserEmail, Name: "John Doe", Role: users.RoleUser, PasswordHash: hash,
	}))
	require.NoError(t, f.userRepo.Upsert(&users.User{
		ID: testAdminID, Email: testAdminEmail, Name: "Admin", Role: users.RoleAdmin, PasswordHash: hash,
	}))

	engine := refresh.NewEngine(f.tokens, f.refreshStore, auth.NewSubjectResolver(f.userRepo), refresh.WithLogger(zerolog.Nop()))
	f.service, err = auth.NewSessionService(f.userRepo, f.tokens, engine)
	require.NoError(t, err)
	return f
}

func (f *testFixture) login(t *testing.T) *refresh.TokenPair {
	t.Helper()
	pair, err := f.service.Login(context.Background(), testUserEmail, testUserPassword, testDeviceID)
	require.NoError(t, err)
	return pair
}

func TestNewSessionServiceRequiresDependencies(t *testing.T) {
	_, err := auth.NewSessionService(nil, nil, nil)
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)
	pair := f.login(t)

	require.Equal(t, testUserID, pair.AccessToken.Claims.Subject)
	require.Equal(t, "user", pair.AccessToken.Claims.Role)
	require.Equal(t, f.now.Add(10*time.Minute), pair.AccessToken.ExpiresAt)

	record, err := f.refreshStore.FindByHash(context.Background(), refresh.HashToken(pair.RefreshToken))
	require.NoError(t, err)
	require.Equal(t, refresh.StatusActive, record.Status)
	require.Equal(t, testDeviceID, record.DeviceID)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Login(context.Background(), testUserEmail, "wrong", "")
	require.ErrorIs(t, err, autherrors.ErrInvalidCredentials)

	_, err = f.service.Login(context.Background(), "nobody@example.com", testUserPassword, "")
	require.ErrorIs(t, err, autherrors.ErrInvalidCredentials)
}

func TestLoginBlockedUser(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.userRepo.SetBlocked(testUserEmail, true))

	_, err := f.service.Login(context.Background(), testUserEmail, testUserPassword, "")
	require.ErrorIs(t, err, autherrors.ErrAccountDisabled)
}

func TestRefreshPicksUpRoleChanges(t *testing.T) {
	f := setupTestFixture(t)
	pair := f.login(t)

	require.NoError(t, f.userRepo.Upsert(&users.User{ID: testUserID, Email: testUserEmail, Role: users.RoleAdmin}))

	next, err := f.service.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "admin", next.AccessToken.Claims.Role)
}

func TestRefreshBlockedUserDoesNotRevoke(t *testing.T) {
	f := setupTestFixture(t)
	pair := f.login(t)
	require.NoError(t, f.userRepo.SetBlocked(testUserEmail, true))

	_, err := f.service.Refresh(context.Background(), pair.RefreshToken)
	require.ErrorIs(t, err, autherrors.ErrAccountDisabled)

	record, err := f.refreshStore.FindByID(context.Background(), pair.Record.ID)
	require.NoError(t, err)
	require.Equal(t, refresh.StatusActive, record.Status)
}

func TestLogoutRevokesChain(t *testing.T) {
	f := setupTestFixture(t)
	first := f.login(t)
	second, err := f.service.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)

	count, err := f.service.Logout(context.Background(), second.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	_, err = f.service.Refresh(context.Background(), second.RefreshToken)
	require.ErrorIs(t, err, autherrors.ErrRevokedToken)

	count, err = f.service.Logout(context.Background(), "unknown-token")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestLogoutAllAndDevice(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	_, err := f.service.Login(context.Background(), testUserEmail, testUserPassword, "phone")
	require.NoError(t, err)
	_, err = f.service.Login(context.Background(), testUserEmail, testUserPassword, "phone")
	require.NoError(t, err)

	sessions, err := f.service.Sessions(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	count, err := f.service.LogoutDevice(context.Background(), testUserID, "phone")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	sessions, err = f.service.Sessions(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, testDeviceID, sessions[0].DeviceID)

	count, err = f.service.LogoutAll(context.Background(), testUserID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	sessions, err = f.service.Sessions(context.Background(), testUserID)
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestSessionsHidesExpired(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.now = f.now.Add(f.service.RefreshTokenTTL())
	sessions, err := f.service.Sessions(context.Background(), testUserID)
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestAuthenticate(t *testing.T) {
	f := setupTestFixture(t)
	pair := f.login(t)

	identity, ok := f.service.Authenticate(pair.AccessToken.Token)
	require.True(t, ok)
	require.Equal(t, auth.Identity{UserID: testUserID, Role: "user", Email: testUserEmail, Name: "John Doe"}, identity)

	_, ok = f.service.Authenticate(pair.RefreshToken)
	require.False(t, ok)
	_, ok = f.service.Authenticate("")
	require.False(t, ok)
	_, ok = f.service.Authenticate("not-a-token")
	require.False(t, ok)

	f.now = pair.AccessToken.ExpiresAt
	_, ok = f.service.Authenticate(pair.AccessToken.Token)
	require.False(t, ok)
}

func TestIdentityContext(t *testing.T) {
	_, ok := auth.IdentityFromContext(context.Background())
	require.False(t, ok)

	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: testAdminID, Role: "admin"})
	identity, ok := auth.IdentityFromContext(ctx)
	require.True(t, ok)
	require.True(t, identity.HasRole("admin"))
	require.False(t, identity.HasRole("user"))
}

func TestSubjectResolverUnknownUser(t *testing.T) {
	resolver := auth.NewSubjectResolver(fakeuserrepo.NewFakeUserRepo())
	_, err := resolver.ResolveSubject(context.Background(), "missing")
	require.ErrorIs(t, err, autherrors.ErrInvalidToken)
}
