package gatehouse

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AccountRegistrerer is the interface we need to handle new user registrations
type AccountRegistrerer interface {
	RegisterUser(ctx context.Context, email, username, password string) (*User, error)
}

// LoginTracker is implemented by stores that persist login attempt counters.
// Stores without it still authenticate; the cooldown window just will not
// survive a restart.
type LoginTracker interface {
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// IdentifierLookup is implemented by stores that resolve free-form
// identifiers (uuid, email, or username) themselves.
type IdentifierLookup interface {
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
}

// UserProvider turns a UserStore into an IdentityProvider: it resolves
// identifiers, verifies passwords, throttles attempts, and gates on lifecycle
// status.
type UserProvider struct {
	store     UserStore
	Validator func(*User) error
	logger    Logger
	provider  LoggerProvider

	dummyHashOnce sync.Once
	dummyHash     string
}

// MaxLoginAttempts is the maximun number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	loggerProvider, logger := ResolveLogger("gatehouse.user_provider", nil, nil)
	return &UserProvider{
		store:     store,
		logger:    logger,
		provider:  loggerProvider,
		Validator: defaultValidator,
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.provider, u.logger = ResolveLogger("gatehouse.user_provider", u.provider, l)
	return u
}

// WithLoggerProvider overrides the logger provider used by the user provider.
func (u *UserProvider) WithLoggerProvider(provider LoggerProvider) *UserProvider {
	u.provider, u.logger = ResolveLogger("gatehouse.user_provider", provider, u.logger)
	return u
}

func (u *UserProvider) validate(user *User) error {
	if u.Validator != nil {
		return u.Validator(user)
	}
	return defaultValidator(user)
}

// lookupUser resolves an identifier against the store. Stores that implement
// IdentifierLookup decide for themselves; otherwise uuid-shaped identifiers go
// through FindByID and everything else is treated as an email.
func (u *UserProvider) lookupUser(ctx context.Context, identifier string) (*User, error) {
	if lookup, ok := u.store.(IdentifierLookup); ok {
		return lookup.FindByIdentifier(ctx, identifier)
	}

	if _, err := uuid.Parse(identifier); err == nil {
		return u.store.FindByID(ctx, identifier)
	}

	return u.store.FindByEmail(ctx, identifier)
}

// VerifyIdentity will find the user, compare to the password, and return identity.
// An unknown identifier and a wrong password both come back as
// ErrMismatchedHashAndPassword; the miss path still burns a hash comparison so
// the two are not separable by response time either.
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.lookupUser(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			u.equalizeCompareCost(password)
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		u.equalizeCompareCost(password)
		return nil, ErrMismatchedHashAndPassword
	}

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	//if we have too many attempts in the given window, cool off!
	if user.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		// We have to increment the login_attempts counter and login_attempt_at
		if err2 := u.trackAttemptedLogin(ctx, user); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}

		return nil, ErrMismatchedHashAndPassword
	}

	// the password holder may still be locked out by lifecycle status
	if err := ensureAuthenticatableUser(user); err != nil {
		return nil, err
	}

	// reset the login_attempts counter and login_attempt_at
	if err := u.trackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	aid := authIdentity{
		id:       user.ID.String(),
		email:    user.Email,
		username: user.Username,
		role:     string(user.Role),
		status:   user.Status,
	}

	return aid, nil
}

func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.lookupUser(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if err := ensureAuthenticatableUser(user); err != nil {
		return nil, err
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	aid := authIdentity{
		email:    user.Email,
		id:       user.ID.String(),
		username: user.Username,
		role:     string(user.Role),
		status:   user.Status,
	}

	return aid, nil
}

func (u *UserProvider) trackAttemptedLogin(ctx context.Context, user *User) error {
	if tracker, ok := u.store.(LoginTracker); ok {
		return tracker.TrackAttemptedLogin(ctx, user)
	}
	return nil
}

func (u *UserProvider) trackSuccessfulLogin(ctx context.Context, user *User) error {
	if tracker, ok := u.store.(LoginTracker); ok {
		return tracker.TrackSuccessfulLogin(ctx, user)
	}
	return nil
}

// equalizeCompareCost runs a comparison against a throwaway hash so lookup
// misses take as long as real password mismatches.
func (u *UserProvider) equalizeCompareCost(password string) {
	u.dummyHashOnce.Do(func() {
		u.dummyHash = RandomPasswordHash()
	})
	_ = ComparePasswordAndHash(password, u.dummyHash)
}

type authIdentity struct {
	id       string
	username string
	email    string
	role     string
	status   UserStatus
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Username() string {
	return a.username
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Role() string {
	return a.role
}

func (a authIdentity) Status() UserStatus {
	if a.status == "" {
		return UserStatusActive
	}
	return a.status
}

var _ Identity = authIdentity{}

func defaultValidator(u *User) error {
	switch u.Role {
	case RoleOwner, RoleAdmin, RoleMember, RoleGuest:
		return nil
	default:
		return errors.New("user has an unkonwn or invalid role", errors.CategoryAuth).
			WithTextCode("INVALID_ROLE").
			WithMetadata(map[string]any{"role": u.Role, "user_id": u.ID.String()})
	}
}

func ensureAuthenticatableUser(user *User) error {
	if user == nil {
		return ErrIdentityNotFound
	}

	user.EnsureStatus()
	if err := statusAuthError(user.Status); err != nil {
		return err
	}

	return nil
}

// statusAuthError maps lifecycle statuses to auth failures. Only active
// accounts authenticate; everything else is denied with a status-specific
// text code.
func statusAuthError(status UserStatus) error {
	switch status {
	case UserStatusActive:
		return nil
	case UserStatusPending:
		return errors.New("account is pending activation", errors.CategoryAuth).
			WithTextCode("ACCOUNT_PENDING").WithCode(errors.CodeUnauthorized)
	case UserStatusSuspended:
		return errors.New("account is suspended", errors.CategoryAuth).
			WithTextCode("ACCOUNT_SUSPENDED").WithCode(errors.CodeUnauthorized)
	case UserStatusDisabled:
		return errors.New("account is disabled", errors.CategoryAuth).
			WithTextCode("ACCOUNT_DISABLED").WithCode(errors.CodeUnauthorized)
	case UserStatusArchived:
		return errors.New("account is archived", errors.CategoryAuth).
			WithTextCode("ACCOUNT_ARCHIVED").WithCode(errors.CodeUnauthorized)
	default:
		return errors.New("account status does not permit authentication", errors.CategoryAuth).
			WithTextCode("ACCOUNT_STATUS_INVALID").WithCode(errors.CodeUnauthorized).
			WithMetadata(map[string]any{"status": string(status)})
	}
}
