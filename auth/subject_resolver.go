package auth

import (
	"context"

	autherrors "github.com/jrsteele09/go-session-server/internal/errors"
	"github.com/jrsteele09/go-session-server/token"
	"github.com/jrsteele09/go-session-server/token/refresh"
	"github.com/jrsteele09/go-session-server/users"
	"github.com/pkg/errors"
)

var _ refresh.SubjectResolver = (*UserSubjectResolver)(nil)

// UserSubjectResolver reloads the user on every rotation so role changes and
// blocks take effect at the next refresh
type UserSubjectResolver struct {
	users users.UserRepo
}

func NewSubjectResolver(userRepo users.UserRepo) *UserSubjectResolver {
	return &UserSubjectResolver{users: userRepo}
}

func (r *UserSubjectResolver) ResolveSubject(_ context.Context, userID string) (token.Subject, error) {
	user, err := r.users.GetByID(userID)
	if err != nil {
		if autherrors.Is(err, autherrors.ErrNotFound) {
			return token.Subject{}, errors.Wrap(autherrors.ErrInvalidToken, "[ResolveSubject] user no longer exists")
		}
		return token.Subject{}, errors.Wrap(err, "[ResolveSubject] GetByID")
	}
	if user.Blocked {
		return token.Subject{}, autherrors.ErrAccountDisabled
	}
	return subjectFromUser(user), nil
}

func subjectFromUser(user *users.User) token.Subject {
	return token.Subject{
		UserID: user.ID,
		Role:   string(user.Role),
		Email:  user.Email,
		Name:   user.Name,
	}
}
