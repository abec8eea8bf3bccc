package gatehouse_test

import (
	"context"
	"errors"
	"testing"
	"time"

	gatehouse "github.com/gatehouselabs/go-gatehouse"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockUserStore implements UserStore plus the optional LoginTracker surface.
// It deliberately does not implement IdentifierLookup so the provider's own
// uuid-vs-email resolution is the code path under test.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*gatehouse.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*gatehouse.User)
	return user, args.Error(1)
}

func (m *MockUserStore) FindByID(ctx context.Context, id string) (*gatehouse.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*gatehouse.User)
	return user, args.Error(1)
}

func (m *MockUserStore) TrackAttemptedLogin(ctx context.Context, user *gatehouse.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) TrackSuccessfulLogin(ctx context.Context, user *gatehouse.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func TestUserProviderVerifyIdentity(t *testing.T) {
	ctx := context.Background()
	mockStore := new(MockUserStore)

	provider := gatehouse.NewUserProvider(mockStore)

	t.Run("Successful verification", func(t *testing.T) {
		userID := uuid.New()
		passwordHash, _ := gatehouse.HashPassword("password123")
		user := &gatehouse.User{
			ID:            userID,
			Username:      "testuser",
			Email:         "test@example.com",
			PasswordHash:  passwordHash,
			Role:          gatehouse.RoleAdmin,
			Status:        gatehouse.UserStatusActive,
			LoginAttempts: 0,
		}

		mockStore.On("FindByEmail", ctx, "test@example.com").Return(user, nil).Once()
		mockStore.On("TrackSuccessfulLogin", ctx, user).Return(nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		assert.NoError(t, err)
		assert.NotNil(t, identity)
		assert.Equal(t, userID.String(), identity.ID())
		assert.Equal(t, "testuser", identity.Username())
		assert.Equal(t, "test@example.com", identity.Email())
		assert.Equal(t, string(gatehouse.RoleAdmin), identity.Role())

		mockStore.AssertExpectations(t)
	})

	t.Run("UUID identifier resolves through FindByID", func(t *testing.T) {
		userID := uuid.New()
		passwordHash, _ := gatehouse.HashPassword("password123")
		user := &gatehouse.User{
			ID:           userID,
			Username:     "testuser",
			Email:        "test@example.com",
			PasswordHash: passwordHash,
			Role:         gatehouse.RoleMember,
			Status:       gatehouse.UserStatusActive,
		}

		mockStore.On("FindByID", ctx, userID.String()).Return(user, nil).Once()
		mockStore.On("TrackSuccessfulLogin", ctx, user).Return(nil).Once()

		identity, err := provider.VerifyIdentity(ctx, userID.String(), "password123")

		assert.NoError(t, err)
		assert.NotNil(t, identity)
		assert.Equal(t, userID.String(), identity.ID())

		mockStore.AssertExpectations(t)
	})

	t.Run("Invalid password", func(t *testing.T) {
		userID := uuid.New()
		passwordHash, _ := gatehouse.HashPassword("correct_password")
		user := &gatehouse.User{
			ID:            userID,
			Username:      "testuser",
			Email:         "test@example.com",
			PasswordHash:  passwordHash,
			Role:          gatehouse.RoleAdmin,
			Status:        gatehouse.UserStatusActive,
			LoginAttempts: 0,
		}

		mockStore.On("FindByEmail", ctx, "test@example.com").Return(user, nil).Once()
		mockStore.On("TrackAttemptedLogin", ctx, user).Return(nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "wrong_password")

		assert.Error(t, err)
		assert.Nil(t, identity)
		assert.Equal(t, gatehouse.ErrMismatchedHashAndPassword, err)

		mockStore.AssertExpectations(t)
	})

	t.Run("User not found is indistinguishable from wrong password", func(t *testing.T) {
		mockStore.On("FindByEmail", ctx, "nonexistent@example.com").
			Return(nil, gatehouse.ErrIdentityNotFound).Once()

		identity, err := provider.VerifyIdentity(ctx, "nonexistent@example.com", "password123")

		assert.Error(t, err)
		assert.Nil(t, identity)
		assert.Equal(t, gatehouse.ErrMismatchedHashAndPassword, err)
		assertTextCode(t, err, gatehouse.TextCodeInvalidCreds)

		mockStore.AssertExpectations(t)
	})

	t.Run("Store fault surfaces as internal error", func(t *testing.T) {
		mockStore.On("FindByEmail", ctx, "test@example.com").
			Return(nil, goerrors.New("connection refused", goerrors.CategoryInternal)).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		assert.Error(t, err)
		assert.Nil(t, identity)
		assert.Contains(t, err.Error(), "failed to retrieve user during verification")
		assert.True(t, gatehouse.IsStoreFault(err))

		mockStore.AssertExpectations(t)
	})

	t.Run("Too many login attempts", func(t *testing.T) {
		userID := uuid.New()
		passwordHash, _ := gatehouse.HashPassword("password123")
		now := time.Now()
		user := &gatehouse.User{
			ID:             userID,
			Username:       "testuser",
			Email:          "test@example.com",
			PasswordHash:   passwordHash,
			Role:           gatehouse.RoleAdmin,
			Status:         gatehouse.UserStatusActive,
			LoginAttempts:  gatehouse.MaxLoginAttempts + 1,
			LoginAttemptAt: &now,
		}

		mockStore.On("FindByEmail", ctx, "test@example.com").Return(user, nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		assert.Error(t, err)
		assert.Nil(t, identity)
		assert.Equal(t, gatehouse.ErrTooManyLoginAttempts, err)

		mockStore.AssertExpectations(t)
	})

	t.Run("Login attempts cooldown expired", func(t *testing.T) {
		userID := uuid.New()
		passwordHash, _ := gatehouse.HashPassword("password123")
		oldAttempt := time.Now().Add(-48 * time.Hour)
		user := &gatehouse.User{
			ID:             userID,
			Username:       "testuser",
			Email:          "test@example.com",
			PasswordHash:   passwordHash,
			Role:           gatehouse.RoleAdmin,
			Status:         gatehouse.UserStatusActive,
			LoginAttempts:  gatehouse.MaxLoginAttempts + 1,
			LoginAttemptAt: &oldAttempt,
		}

		mockStore.On("FindByEmail", ctx, "test@example.com").Return(user, nil).Once()
		mockStore.On("TrackSuccessfulLogin", ctx, mock.MatchedBy(func(u *gatehouse.User) bool {
			return u.ID == userID && u.LoginAttempts == 0 // attempts reset
		})).Return(nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		assert.NoError(t, err)
		assert.NotNil(t, identity)
		assert.Equal(t, userID.String(), identity.ID())

		mockStore.AssertExpectations(t)
	})

	t.Run("Suspended account is rejected even with correct password", func(t *testing.T) {
		userID := uuid.New()
		passwordHash, _ := gatehouse.HashPassword("password123")
		user := &gatehouse.User{
			ID:           userID,
			Username:     "testuser",
			Email:        "suspended@example.com",
			PasswordHash: passwordHash,
			Role:         gatehouse.RoleMember,
			Status:       gatehouse.UserStatusSuspended,
		}

		mockStore.On("FindByEmail", ctx, "suspended@example.com").Return(user, nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "suspended@example.com", "password123")

		assert.Error(t, err)
		assert.Nil(t, identity)
		assertTextCode(t, err, "ACCOUNT_SUSPENDED")

		// correct password, so no attempt is tracked
		mockStore.AssertNotCalled(t, "TrackAttemptedLogin", ctx, user)
		mockStore.AssertExpectations(t)
	})

	t.Run("Pending account is rejected", func(t *testing.T) {
		userID := uuid.New()
		passwordHash, _ := gatehouse.HashPassword("password123")
		user := &gatehouse.User{
			ID:           userID,
			Username:     "testuser",
			Email:        "pending@example.com",
			PasswordHash: passwordHash,
			Role:         gatehouse.RoleMember,
			Status:       gatehouse.UserStatusPending,
		}

		mockStore.On("FindByEmail", ctx, "pending@example.com").Return(user, nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "pending@example.com", "password123")

		assert.Error(t, err)
		assert.Nil(t, identity)
		assertTextCode(t, err, "ACCOUNT_PENDING")

		mockStore.AssertExpectations(t)
	})
}

func TestUserProviderFindIdentityByIdentifier(t *testing.T) {
	ctx := context.Background()
	mockStore := new(MockUserStore)

	provider := gatehouse.NewUserProvider(mockStore)

	t.Run("User found", func(t *testing.T) {
		userID := uuid.New()
		user := &gatehouse.User{
			ID:       userID,
			Username: "testuser",
			Email:    "test@example.com",
			Role:     gatehouse.RoleAdmin,
			Status:   gatehouse.UserStatusActive,
		}

		mockStore.On("FindByEmail", ctx, "test@example.com").Return(user, nil).Once()

		identity, err := provider.FindIdentityByIdentifier(ctx, "test@example.com")

		assert.NoError(t, err)
		assert.NotNil(t, identity)
		assert.Equal(t, userID.String(), identity.ID())
		assert.Equal(t, "testuser", identity.Username())
		assert.Equal(t, "test@example.com", identity.Email())
		assert.Equal(t, string(gatehouse.RoleAdmin), identity.Role())

		mockStore.AssertExpectations(t)
	})

	t.Run("User not found", func(t *testing.T) {
		mockStore.On("FindByEmail", ctx, "nonexistent@example.com").
			Return(nil, gatehouse.ErrIdentityNotFound).Once()

		identity, err := provider.FindIdentityByIdentifier(ctx, "nonexistent@example.com")

		assert.Error(t, err)
		assert.Nil(t, identity)
		assert.ErrorIs(t, err, gatehouse.ErrIdentityNotFound)

		mockStore.AssertExpectations(t)
	})

	t.Run("Invalid role", func(t *testing.T) {
		userID := uuid.New()
		user := &gatehouse.User{
			ID:       userID,
			Username: "testuser",
			Email:    "test@example.com",
			Role:     "invalid_role",
			Status:   gatehouse.UserStatusActive,
		}

		mockStore.On("FindByEmail", ctx, "test@example.com").Return(user, nil).Once()

		identity, err := provider.FindIdentityByIdentifier(ctx, "test@example.com")

		assert.Error(t, err)
		assert.Nil(t, identity)
		assertTextCode(t, err, "INVALID_ROLE")

		mockStore.AssertExpectations(t)
	})

	t.Run("Inactive account is rejected", func(t *testing.T) {
		userID := uuid.New()
		user := &gatehouse.User{
			ID:       userID,
			Username: "testuser",
			Email:    "disabled@example.com",
			Role:     gatehouse.RoleMember,
			Status:   gatehouse.UserStatusDisabled,
		}

		mockStore.On("FindByEmail", ctx, "disabled@example.com").Return(user, nil).Once()

		identity, err := provider.FindIdentityByIdentifier(ctx, "disabled@example.com")

		assert.Error(t, err)
		assert.Nil(t, identity)
		assertTextCode(t, err, "ACCOUNT_DISABLED")

		mockStore.AssertExpectations(t)
	})
}

func TestUserProviderValidation(t *testing.T) {
	mockStore := new(MockUserStore)

	provider := gatehouse.NewUserProvider(mockStore)

	validRoles := []gatehouse.UserRole{
		gatehouse.RoleGuest,
		gatehouse.RoleMember,
		gatehouse.RoleAdmin,
		gatehouse.RoleOwner,
	}

	for _, role := range validRoles {
		t.Run("Valid role: "+string(role), func(t *testing.T) {
			user := &gatehouse.User{
				ID:       uuid.New(),
				Username: "testuser",
				Email:    "test@example.com",
				Role:     role,
			}

			err := provider.Validator(user)
			assert.NoError(t, err)
		})
	}

	t.Run("Invalid role", func(t *testing.T) {
		user := &gatehouse.User{
			ID:       uuid.New(),
			Username: "testuser",
			Email:    "test@example.com",
			Role:     "invalid_role",
		}

		err := provider.Validator(user)
		assert.Error(t, err)
		assertTextCode(t, err, "INVALID_ROLE")
	})

	t.Run("Custom validator", func(t *testing.T) {
		customErr := errors.New("custom validation error")
		provider.Validator = func(u *gatehouse.User) error {
			return customErr
		}

		user := &gatehouse.User{
			ID:       uuid.New(),
			Username: "testuser",
			Email:    "test@example.com",
		}

		err := provider.Validator(user)
		assert.Error(t, err)
		assert.Equal(t, customErr, err)
	})
}
