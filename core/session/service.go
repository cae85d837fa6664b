package session

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
)

var (
	// errors
	ErrUserInvalid     = errors.New("user-invalid")
	ErrPasswordInvalid = errors.New("password-invalid")
)

// Authenticator exchanges credentials for a Session with the remote API.
// It returns ErrUserInvalid or ErrPasswordInvalid on rejected credentials.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials, roles []Role) (Session, error)
}

type Service struct {
	auth     Authenticator
	store    *Store
	validate *core.Validator
	logger   core.Logger
}

func NewService(auth Authenticator, store *Store, validate *core.Validator, logger core.Logger) *Service {
	return &Service{
		auth:     auth,
		store:    store,
		validate: validate,
		logger:   logger,
	}
}

// SignIn authenticates creds and creates the session.
// Every failure is a *core.ValidationError attached to the username or password field.
func (svc *Service) SignIn(ctx context.Context, creds Credentials) (Session, error) {
	creds.clean()
	if err := svc.validate.Struct(creds, credentialsMessages); err != nil {
		return Session{}, err
	}

	sess, err := svc.auth.Login(ctx, creds, LoginRoles)
	if err != nil {
		switch errors.Cause(err) {
		case ErrUserInvalid:
			return Session{}, core.NewValidationError(err, core.FieldError{
				Field: "username",
				Error: fmt.Sprintf("No user with username %s", creds.Username),
			})
		case ErrPasswordInvalid:
			return Session{}, core.NewValidationError(err, core.FieldError{Field: "password", Error: "Wrong password"})
		default:
			svc.logger.Error("signing in", errors.Wrap(err, "session.SignIn"))
			return Session{}, core.NewValidationError(err, core.FieldError{Field: "username", Error: "Something went wrong"})
		}
	}

	svc.store.Create(sess)
	svc.logger.Info(fmt.Sprintf("signed in as %s (%s)", sess.Username, sess.Role), sess)
	return sess, nil
}

// SignOut clears the session.
func (svc *Service) SignOut() {
	svc.store.Clear()
}
