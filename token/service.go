package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
)

const (
	defaultAccessTokenTTL  = 10 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Subject is the identity an access token is issued for
type Subject struct {
	UserID string
	Role   string
	Email  string
	Name   string
}

// AccessToken is a signed access token and its claims. It is never persisted.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
	Claims    Claims
}

// IssuedRefreshToken is a freshly minted refresh token. Raw must only leave the
// process in the refresh cookie; persistence is the rotation engine's job.
type IssuedRefreshToken struct {
	Raw       string
	ID        string
	UserID    string
	DeviceID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// VerifyStatus is the outcome of verifying a token
type VerifyStatus int

const (
	VerifyInvalid VerifyStatus = iota
	VerifyValid
	VerifyExpired
)

func (s VerifyStatus) String() string {
	switch s {
	case VerifyValid:
		return "valid"
	case VerifyExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// VerifyResult is a tagged verification outcome. Claims are set for Valid and
// Expired results; Err explains Expired and Invalid results.
type VerifyResult struct {
	Status VerifyStatus
	Claims *Claims
	Err    error
}

// Valid reports whether the token verified and has not expired
func (r VerifyResult) Valid() bool {
	return r.Status == VerifyValid
}

// Service issues and verifies access and refresh tokens. It holds no mutable state.
type Service struct {
	codec      *Codec
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	nowFunc    func() time.Time
}

type ServiceOption func(*Service)

func WithTokenTTLs(accessTTL, refreshTTL time.Duration) ServiceOption {
	return func(s *Service) {
		s.accessTTL = accessTTL
		s.refreshTTL = refreshTTL
	}
}

func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) {
		s.issuer = issuer
	}
}

func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

func NewService(codec *Codec, options ...ServiceOption) *Service {
	s := &Service{
		codec:   codec,
		nowFunc: time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	if s.accessTTL <= 0 {
		s.accessTTL = defaultAccessTokenTTL
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = defaultRefreshTokenTTL
	}
	return s
}

// Now returns the service clock, truncated to the wire precision
func (s *Service) Now() time.Time {
	return s.nowFunc().UTC().Truncate(time.Second)
}

func (s *Service) AccessTokenTTL() time.Duration {
	return s.accessTTL
}

func (s *Service) RefreshTokenTTL() time.Duration {
	return s.refreshTTL
}

func (s *Service) IssueAccessToken(subject Subject) (*AccessToken, error) {
	if subject.UserID == "" {
		return nil, errors.New("access token subject is required")
	}

	now := s.Now()
	claims := Claims{
		ID:        uuid.New().String(),
		Subject:   subject.UserID,
		Role:      subject.Role,
		Email:     subject.Email,
		Name:      subject.Name,
		Type:      AccessTokenType,
		Issuer:    s.issuer,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.accessTTL),
	}

	signed, err := s.codec.Encode(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	return &AccessToken{Token: signed, ExpiresAt: claims.ExpiresAt, Claims: claims}, nil
}

func (s *Service) IssueRefreshToken(userID, deviceID string) (*IssuedRefreshToken, error) {
	if userID == "" {
		return nil, errors.New("refresh token subject is required")
	}

	now := s.Now()
	claims := Claims{
		ID:        uuid.New().String(),
		Subject:   userID,
		DeviceID:  deviceID,
		Type:      RefreshTokenType,
		Issuer:    s.issuer,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
	}

	signed, err := s.codec.Encode(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	return &IssuedRefreshToken{
		Raw:       signed,
		ID:        claims.ID,
		UserID:    userID,
		DeviceID:  deviceID,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Verify decodes the token and checks its expiry. A token whose exp equals
// the current second is already expired.
func (s *Service) Verify(raw string) VerifyResult {
	claims, err := s.codec.Decode(raw)
	if err != nil {
		return VerifyResult{Status: VerifyInvalid, Err: err}
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return VerifyResult{Status: VerifyInvalid, Err: fmt.Errorf("%w: unexpected issuer", autherrors.ErrInvalidToken)}
	}
	if s.IsExpired(claims.ExpiresAt) {
		expiredErr := autherrors.ErrExpiredAccessToken
		if claims.Type == RefreshTokenType {
			expiredErr = autherrors.ErrExpiredRefreshToken
		}
		return VerifyResult{Status: VerifyExpired, Claims: claims, Err: expiredErr}
	}
	return VerifyResult{Status: VerifyValid, Claims: claims}
}

// VerifyAccess verifies a bearer token; refresh tokens are Invalid here
func (s *Service) VerifyAccess(raw string) VerifyResult {
	return s.verifyType(raw, AccessTokenType)
}

// VerifyRefresh verifies a refresh token; access tokens are Invalid here
func (s *Service) VerifyRefresh(raw string) VerifyResult {
	return s.verifyType(raw, RefreshTokenType)
}

// IsExpired applies the inclusive expiry boundary: expired once now >= expiresAt
func (s *Service) IsExpired(expiresAt time.Time) bool {
	return s.Now().Unix() >= expiresAt.Unix()
}

// JWKS returns the public key set when the codec signs with an asymmetric key
func (s *Service) JWKS() (*JWKS, error) {
	keyPairSigner, ok := s.codec.Signer().(*KeyPairSigner)
	if !ok {
		return nil, errors.New("JWKS only supported for asymmetric signing (RSA/ECDSA)")
	}
	return keyPairSigner.GetJWKS()
}

func (s *Service) verifyType(raw string, want TokenType) VerifyResult {
	result := s.Verify(raw)
	if result.Status == VerifyInvalid {
		return result
	}
	if result.Claims.Type != want {
		return VerifyResult{
			Status: VerifyInvalid,
			Err:    fmt.Errorf("%w: expected %s token, got %s", autherrors.ErrInvalidToken, want, result.Claims.Type),
		}
	}
	return result
}
