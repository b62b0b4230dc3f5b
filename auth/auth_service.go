package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-server/internal/audit"
	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/token"
	"github.com/jrsteele09/go-session-server/token/refresh"
	"github.com/jrsteele09/go-session-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Used to spend the same bcrypt time on unknown emails as on wrong passwords
var dummyPasswordHash = sync.OnceValue(func() string {
	hash, _ := users.HashPassword("dummy-password-for-timing")
	return hash
})

// SessionService logs users in and manages their refresh token chains
type SessionService struct {
	users  users.UserRepo
	tokens *token.Service
	engine *refresh.Engine
	sink   audit.Sink
}

// SessionServiceOption defines a function type to modify the SessionService instance.
type SessionServiceOption func(*SessionService)

func WithAuditSink(sink audit.Sink) SessionServiceOption {
	return func(s *SessionService) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// NewSessionService initializes a new SessionService with required dependencies.
func NewSessionService(
	userRepo users.UserRepo,
	tokens *token.Service,
	engine *refresh.Engine,
	options ...SessionServiceOption,
) (*SessionService, error) {
	// Validate required parameters
	if userRepo == nil {
		return nil, errors.New("[NewSessionService] Users repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewSessionService] token service is required")
	}
	if engine == nil {
		return nil, errors.New("[NewSessionService] rotation engine is required")
	}

	s := &SessionService{
		users:  userRepo,
		tokens: tokens,
		engine: engine,
		sink:   audit.Nop{},
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// Login checks the credentials and starts a new refresh chain.
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, email, password, deviceID string) (*refresh.TokenPair, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if !autherrors.Is(err, autherrors.ErrNotFound) {
			return nil, errors.Wrap(err, "[SessionService.Login] GetByEmail")
		}
		users.CheckPasswordHash(password, dummyPasswordHash())
		s.emit(ctx, audit.Event{Type: audit.EventLoginFailed, Reason: "unknown email"})
		return nil, autherrors.ErrInvalidCredentials
	}

	if !user.CheckPassword(password) {
		s.emit(ctx, audit.Event{Type: audit.EventLoginFailed, UserID: user.ID, Reason: "password mismatch"})
		return nil, autherrors.ErrInvalidCredentials
	}
	if user.Blocked {
		s.emit(ctx, audit.Event{Type: audit.EventLoginFailed, UserID: user.ID, Reason: "blocked"})
		return nil, autherrors.ErrAccountDisabled
	}

	pair, err := s.engine.Start(ctx, subjectFromUser(user), deviceID)
	if err != nil {
		return nil, errors.Wrap(err, "[SessionService.Login] Start")
	}

	s.emit(ctx, audit.Event{Type: audit.EventLogin, UserID: user.ID, DeviceID: deviceID, RecordID: pair.Record.ID})
	return pair, nil
}

// Refresh rotates the presented refresh token
func (s *SessionService) Refresh(ctx context.Context, rawRefreshToken string) (*refresh.TokenPair, error) {
	return s.engine.Rotate(ctx, rawRefreshToken)
}

// Logout revokes the chain of the presented refresh token. Unknown tokens are
// not an error; there is nothing left to log out.
func (s *SessionService) Logout(ctx context.Context, rawRefreshToken string) (int, error) {
	record, err := s.engine.FindByToken(ctx, rawRefreshToken)
	if err != nil {
		if autherrors.Is(err, autherrors.ErrNotFound) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "[SessionService.Logout] FindByToken")
	}
	return s.engine.Revoker().RevokeChain(ctx, record.ID, refresh.ReasonLogout)
}

func (s *SessionService) LogoutAll(ctx context.Context, userID string) (int, error) {
	return s.engine.Revoker().RevokeAllForUser(ctx, userID, refresh.ReasonLogoutAll)
}

func (s *SessionService) LogoutDevice(ctx context.Context, userID, deviceID string) (int, error) {
	return s.engine.Revoker().RevokeAllForDevice(ctx, userID, deviceID, refresh.ReasonLogoutDevice)
}

// Sessions returns the user's usable refresh records: active and unexpired
func (s *SessionService) Sessions(ctx context.Context, userID string) ([]*refresh.Record, error) {
	records, err := s.engine.Sessions(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[SessionService.Sessions] ListByUser")
	}

	active := make([]*refresh.Record, 0, len(records))
	for _, r := range records {
		if r.Status == refresh.StatusActive && !s.tokens.IsExpired(r.ExpiresAt) {
			active = append(active, r)
		}
	}
	return active, nil
}

// Authenticate verifies a bearer access token. Any failure means anonymous.
func (s *SessionService) Authenticate(rawAccessToken string) (Identity, bool) {
	if rawAccessToken == "" {
		return Identity{}, false
	}
	result := s.tokens.VerifyAccess(rawAccessToken)
	if !result.Valid() {
		return Identity{}, false
	}
	return identityFromClaims(result.Claims), true
}

func (s *SessionService) AccessTokenTTL() time.Duration {
	return s.tokens.AccessTokenTTL()
}

func (s *SessionService) RefreshTokenTTL() time.Duration {
	return s.tokens.RefreshTokenTTL()
}

func (s *SessionService) JWKS() (*token.JWKS, error) {
	return s.tokens.JWKS()
}

func (s *SessionService) emit(ctx context.Context, event audit.Event) {
	if event.At.IsZero() {
		event.At = s.tokens.Now()
	}
	if err := audit.Emit(ctx, s.sink, event); err != nil {
		log.Warn().Err(err).Str("event", string(event.Type)).Msg("Failed to emit audit event")
	}
}
