package account

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/platinummonkey/larder/pkg/audit"
	"github.com/platinummonkey/larder/pkg/auth"
	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/platinummonkey/larder/pkg/storage"
	"github.com/platinummonkey/larder/pkg/validation"
)

// Operation names used in metrics
const (
	OpRegister       = "register"
	OpLogin          = "login"
	OpLogout         = "logout"
	OpChangePassword = "change_password"
	OpGetSelf        = "get_self"
	OpGetByID        = "get_by_id"
)

// dummyPassword is hashed once and compared against on unknown-email logins
const dummyPassword = "larder-timing-equalizer"

// Deps are the collaborators of a Service
type Deps struct {
	Users       storage.UserStore
	Revocations storage.RevocationStore
	Tokens      *auth.TokenService
	Hasher      auth.PasswordHasher
	Audit       *audit.Recorder
	Metrics     *observability.Metrics
}

// Service implements registration, login, logout, password change and
// identity lookup
type Service struct {
	users       storage.UserStore
	revocations storage.RevocationStore
	tokens      *auth.TokenService
	hasher      auth.PasswordHasher
	audit       *audit.Recorder
	metrics     *observability.Metrics
	validate    *validator.Validate

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates an account service
func NewService(deps Deps) *Service {
	hasher := deps.Hasher
	if hasher == nil {
		hasher = auth.NewBcryptHasher(auth.DefaultBcryptCost)
	}
	return &Service{
		users:       deps.Users,
		revocations: deps.Revocations,
		tokens:      deps.Tokens,
		hasher:      hasher,
		audit:       deps.Audit,
		metrics:     deps.Metrics,
		validate:    validation.New(),
	}
}

// Register validates req, creates the identity and opens a session
func (s *Service) Register(ctx context.Context, req RegisterRequest) (_ *Session, err error) {
	defer func() { s.record(OpRegister, err) }()

	req.Email = NormalizeEmail(req.Email)
	if err := validation.Struct(ctx, s.validate, &req, ValidationSummary, registerMessages); err != nil {
		return nil, err
	}
	req.Role = req.Role.OrDefault()

	_, err = s.users.GetUserByEmail(ctx, req.Email)
	switch {
	case err == nil:
		s.audit.Authentication(ctx, audit.EventTypeAuthRegister, "", req.Email, audit.EventStatusFailure, "email already registered")
		return nil, auth.ErrDuplicateIdentity
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &auth.Identity{Email: req.Email, PasswordHash: hash, Role: req.Role}
	if err = s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			s.audit.Authentication(ctx, audit.EventTypeAuthRegister, "", req.Email, audit.EventStatusFailure, "email already registered")
			return nil, auth.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.open(user)
	if err != nil {
		return nil, err
	}

	s.audit.Authentication(ctx, audit.EventTypeAuthRegister, user.ID, user.Email, audit.EventStatusSuccess, "user registered")
	return session, nil
}

// Login verifies credentials and opens a session. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (_ *Session, err error) {
	defer func() { s.record(OpLogin, err) }()

	email := NormalizeEmail(req.Email)
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		// Spend the same bcrypt time as a real comparison
		_ = s.hasher.Compare(s.dummy(), req.Password)
		s.audit.Authentication(ctx, audit.EventTypeAuthLoginFailed, "", email, audit.EventStatusFailure, "unknown email")
		return nil, auth.ErrInvalidCredentials
	}

	if err = s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, err
		}
		s.audit.Authentication(ctx, audit.EventTypeAuthLoginFailed, user.ID, email, audit.EventStatusFailure, "wrong password")
		return nil, auth.ErrInvalidCredentials
	}

	session, err := s.open(user)
	if err != nil {
		return nil, err
	}

	s.audit.Authentication(ctx, audit.EventTypeAuthLogin, user.ID, user.Email, audit.EventStatusSuccess, "login succeeded")
	return session, nil
}

// Logout revokes token if it still verifies. A missing, expired or malformed
// token is not an error. A revocation store fault is, because the token
// would otherwise stay live.
func (s *Service) Logout(ctx context.Context, token string) (err error) {
	defer func() { s.record(OpLogout, err) }()

	if token == "" {
		return nil
	}

	v := s.tokens.Verify(token)
	if !v.Valid() {
		s.audit.Authentication(ctx, audit.EventTypeAuthLogout, "", "", audit.EventStatusSuccess, "token already invalid")
		return nil
	}

	if err = s.revocations.Revoke(ctx, token, v.Claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.audit.Authentication(ctx, audit.EventTypeAuthLogout, v.Claims.UserID, v.Claims.Email, audit.EventStatusSuccess, "token revoked")
	return nil
}

// ChangePassword re-verifies the current password and stores a new hash.
// Sessions opened before the change stay valid until they expire.
func (s *Service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) (err error) {
	defer func() { s.record(OpChangePassword, err) }()

	if err := validation.Struct(ctx, s.validate, &req, ValidationSummary, changePasswordMessages); err != nil {
		return err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	if err = s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			return err
		}
		s.audit.Authentication(ctx, audit.EventTypeAuthPasswordChange, user.ID, user.Email, audit.EventStatusFailure, "current password incorrect")
		return auth.ErrCurrentPasswordIncorrect
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err = s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.audit.Authentication(ctx, audit.EventTypeAuthPasswordChange, user.ID, user.Email, audit.EventStatusSuccess, "password changed")
	return nil
}

// GetSelf returns the caller's identity
func (s *Service) GetSelf(ctx context.Context, userID string) (_ *auth.Identity, err error) {
	defer func() { s.record(OpGetSelf, err) }()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	return user, nil
}

// GetByID returns any identity; callers must already hold the admin role
func (s *Service) GetByID(ctx context.Context, id string) (_ *auth.Identity, err error) {
	defer func() { s.record(OpGetByID, err) }()

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}

	event := audit.NewEvent(ctx, audit.EventTypeAdminUserRead, audit.EventStatusSuccess)
	event.ResourceType = audit.ResourceTypeUser
	event.ResourceID = user.ID
	s.audit.Record(ctx, event)
	return user, nil
}

func (s *Service) open(user *auth.Identity) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Identity: user}, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(dummyPassword)
	})
	return s.dummyHash
}

func (s *Service) record(op string, err error) {
	s.metrics.RecordAuthOperation(op, Outcome(err))
}

// Outcome classifies an operation result for metrics
func Outcome(err error) string {
	var ve *auth.ValidationError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrDuplicateIdentity),
		errors.Is(err, auth.ErrCurrentPasswordIncorrect),
		errors.Is(err, storage.ErrNotFound):
		return "rejected"
	default:
		return "error"
	}
}
