package token_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/token"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testIssuer   = "session-test"
	testUserID   = "42"
	testDeviceID = "laptop-1"
)

var testStart = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func newTestService(t *testing.T, c *clock) *token.Service {
	t.Helper()
	return token.NewService(
		token.NewCodec(token.NewHMACSigner(testSecret)),
		token.WithIssuer(testIssuer),
		token.WithTokenTTLs(10*time.Minute, 24*time.Hour),
		token.WithNowFunc(c.Now),
	)
}

func testSubject() token.Subject {
	return token.Subject{UserID: testUserID, Role: "user", Email: "john.doe@example.com", Name: "John Doe"}
}

func TestCodecRoundTrip(t *testing.T) {
	codec := token.NewCodec(token.NewHMACSigner(testSecret))

	claims := token.Claims{
		ID:        "jti-1",
		Subject:   testUserID,
		Role:      "admin",
		Email:     "john.doe@example.com",
		Name:      "John Doe",
		Type:      token.AccessTokenType,
		Issuer:    testIssuer,
		IssuedAt:  testStart,
		ExpiresAt: testStart.Add(10 * time.Minute),
	}

	raw, err := codec.Encode(claims)
	require.NoError(t, err)
	require.Len(t, strings.Split(raw, "."), 3)

	decoded, err := codec.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, claims, *decoded)
}

func TestCodecRejectsTamperedPayload(t *testing.T) {
	codec := token.NewCodec(token.NewHMACSigner(testSecret))
	raw, err := codec.Encode(token.Claims{
		Subject: testUserID, Role: "user", Type: token.AccessTokenType,
		IssuedAt: testStart, ExpiresAt: testStart.Add(time.Minute),
	})
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	forged := strings.Replace(string(payload), `"role":"user"`, `"role":"admin"`, 1)
	require.NotEqual(t, string(payload), forged)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	_, err = codec.Decode(strings.Join(parts, "."))
	require.ErrorIs(t, err, autherrors.ErrInvalidSignature)
}

func TestCodecRejectsOtherKeyAndMalformed(t *testing.T) {
	codec := token.NewCodec(token.NewHMACSigner(testSecret))
	other := token.NewCodec(token.NewHMACSigner(strings.Repeat("x", 32)))

	raw, err := other.Encode(token.Claims{Subject: testUserID, Type: token.AccessTokenType, IssuedAt: testStart, ExpiresAt: testStart.Add(time.Minute)})
	require.NoError(t, err)

	_, err = codec.Decode(raw)
	require.ErrorIs(t, err, autherrors.ErrInvalidSignature)

	for _, bad := range []string{"", "abc", "a.b", "a.b.c", "..."} {
		_, err := codec.Decode(bad)
		require.ErrorIs(t, err, autherrors.ErrMalformedToken, bad)
	}
}

func TestCodecRejectsAlgorithmSwitch(t *testing.T) {
	keyPair, err := token.GenerateKeyPair("kid-1", token.AlgES256, 0)
	require.NoError(t, err)
	ecCodec := token.NewCodec(token.NewKeyPairSigner(keyPair))
	hmacCodec := token.NewCodec(token.NewHMACSigner(testSecret))

	raw, err := hmacCodec.Encode(token.Claims{Subject: testUserID, Type: token.AccessTokenType, IssuedAt: testStart, ExpiresAt: testStart.Add(time.Minute)})
	require.NoError(t, err)

	_, err = ecCodec.Decode(raw)
	require.ErrorIs(t, err, autherrors.ErrInvalidSignature)
}

func TestCodecMissingClaimsIsMalformed(t *testing.T) {
	codec := token.NewCodec(token.NewHMACSigner(testSecret))
	raw, err := codec.Encode(token.Claims{Type: token.AccessTokenType, IssuedAt: testStart, ExpiresAt: testStart.Add(time.Minute)})
	require.NoError(t, err)

	_, err = codec.Decode(raw)
	require.ErrorIs(t, err, autherrors.ErrMalformedToken)
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	c := &clock{now: testStart}
	svc := newTestService(t, c)

	access, err := svc.IssueAccessToken(testSubject())
	require.NoError(t, err)
	require.Equal(t, testStart.Add(10*time.Minute), access.ExpiresAt)

	result := svc.VerifyAccess(access.Token)
	require.True(t, result.Valid())
	require.Equal(t, access.Claims, *result.Claims)
	require.Equal(t, testUserID, result.Claims.Subject)
	require.Equal(t, "user", result.Claims.Role)
	require.Equal(t, "john.doe@example.com", result.Claims.Email)
}

func TestExpiryBoundary(t *testing.T) {
	c := &clock{now: testStart}
	svc := newTestService(t, c)

	access, err := svc.IssueAccessToken(testSubject())
	require.NoError(t, err)

	c.now = access.ExpiresAt.Add(-time.Second)
	require.Equal(t, token.VerifyValid, svc.VerifyAccess(access.Token).Status)

	c.now = access.ExpiresAt
	result := svc.VerifyAccess(access.Token)
	require.Equal(t, token.VerifyExpired, result.Status)
	require.ErrorIs(t, result.Err, autherrors.ErrExpiredAccessToken)
	require.NotNil(t, result.Claims)

	c.now = access.ExpiresAt.Add(500 * time.Millisecond)
	require.Equal(t, token.VerifyExpired, svc.VerifyAccess(access.Token).Status)
}

func TestRefreshTokenVerification(t *testing.T) {
	c := &clock{now: testStart}
	svc := newTestService(t, c)

	refresh, err := svc.IssueRefreshToken(testUserID, testDeviceID)
	require.NoError(t, err)
	require.NotEmpty(t, refresh.ID)
	require.Equal(t, testStart.Add(24*time.Hour), refresh.ExpiresAt)

	result := svc.VerifyRefresh(refresh.Raw)
	require.True(t, result.Valid())
	require.Equal(t, refresh.ID, result.Claims.ID)
	require.Equal(t, testDeviceID, result.Claims.DeviceID)

	// A refresh token is never accepted as a bearer token
	require.Equal(t, token.VerifyInvalid, svc.VerifyAccess(refresh.Raw).Status)

	c.now = refresh.ExpiresAt
	expired := svc.VerifyRefresh(refresh.Raw)
	require.Equal(t, token.VerifyExpired, expired.Status)
	require.ErrorIs(t, expired.Err, autherrors.ErrExpiredRefreshToken)
}

func TestRefreshTokensAreUnique(t *testing.T) {
	svc := newTestService(t, &clock{now: testStart})

	a, err := svc.IssueRefreshToken(testUserID, "")
	require.NoError(t, err)
	b, err := svc.IssueRefreshToken(testUserID, "")
	require.NoError(t, err)

	require.NotEqual(t, a.ID, b.ID)
	require.NotEqual(t, a.Raw, b.Raw)
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	c := &clock{now: testStart}
	codec := token.NewCodec(token.NewHMACSigner(testSecret))
	foreign := token.NewService(codec, token.WithIssuer("someone-else"), token.WithNowFunc(c.Now))
	svc := newTestService(t, c)

	access, err := foreign.IssueAccessToken(testSubject())
	require.NoError(t, err)

	result := svc.Verify(access.Token)
	require.Equal(t, token.VerifyInvalid, result.Status)
	require.ErrorIs(t, result.Err, autherrors.ErrInvalidToken)
}

func TestIssueRequiresSubject(t *testing.T) {
	svc := newTestService(t, &clock{now: testStart})

	_, err := svc.IssueAccessToken(token.Subject{})
	require.Error(t, err)
	_, err = svc.IssueRefreshToken("", "")
	require.Error(t, err)
}
