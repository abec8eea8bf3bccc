package gatehouse_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"testing"

	gatehouse "github.com/gatehouselabs/go-gatehouse"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// setupDB opens an in-memory sqlite database and applies the bundled
// migrations so repository queries run against the real schema. The database
// is named after the test so each test gets its own instance.
func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqldb.Close() })

	dir := "data/sql/migrations/sqlite"
	entries, err := fs.ReadDir(gatehouse.GetMigrationsFS(), dir)
	require.NoError(t, err)

	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		ddl, err := fs.ReadFile(gatehouse.GetMigrationsFS(), path.Join(dir, entry.Name()))
		require.NoError(t, err)
		_, err = sqldb.Exec(string(ddl))
		require.NoError(t, err, "migration %s", entry.Name())
	}

	return bun.NewDB(sqldb, sqlitedialect.New())
}

func TestUsersRepositorySQLite(t *testing.T) {
	ctx := context.Background()
	mgr := gatehouse.NewRepositoryManager(setupDB(t))
	require.NoError(t, mgr.Validate())

	hash, err := gatehouse.HashPassword("initial-password")
	require.NoError(t, err)

	created, err := mgr.Users().Create(ctx, &gatehouse.User{
		Role:         gatehouse.RoleMember,
		FirstName:    "Ada",
		LastName:     "Owens",
		Username:     "ada",
		Email:        "ada@example.com",
		PasswordHash: hash,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, gatehouse.UserStatusActive, created.Status)

	byEmail, err := mgr.Users().FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byUsername, err := mgr.Users().FindByIdentifier(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byUsername.ID)

	byID, err := mgr.Users().FindByIdentifier(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)

	_, err = mgr.Users().FindByEmail(ctx, "nobody@example.com")
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsersRepositoryLoginTrackingSQLite(t *testing.T) {
	ctx := context.Background()
	mgr := gatehouse.NewRepositoryManager(setupDB(t))

	user, err := mgr.Users().Create(ctx, &gatehouse.User{
		Role:     gatehouse.RoleMember,
		Username: "rita",
		Email:    "rita@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, mgr.Users().TrackAttemptedLogin(ctx, user))
	user, err = mgr.Users().FindByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, user.LoginAttempts)
	assert.NotNil(t, user.LoginAttemptAt)

	require.NoError(t, mgr.Users().TrackAttemptedLogin(ctx, user))
	user, err = mgr.Users().FindByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, user.LoginAttempts)

	require.NoError(t, mgr.Users().TrackSuccessfulLogin(ctx, user))
	user, err = mgr.Users().FindByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 0, user.LoginAttempts)
	assert.Nil(t, user.LoginAttemptAt)
	assert.NotNil(t, user.LoggedInAt)
}

func TestUsersRepositoryResetPasswordSQLite(t *testing.T) {
	ctx := context.Background()
	mgr := gatehouse.NewRepositoryManager(setupDB(t))

	user, err := mgr.Users().Create(ctx, &gatehouse.User{
		Role:     gatehouse.RoleMember,
		Username: "max",
		Email:    "max@example.com",
	})
	require.NoError(t, err)

	newHash, err := gatehouse.HashPassword("rotated-password")
	require.NoError(t, err)

	require.NoError(t, mgr.Users().ResetPassword(ctx, user.ID, newHash))

	user, err = mgr.Users().FindByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, newHash, user.PasswordHash)
	assert.True(t, user.EmailValidated)

	err = mgr.Users().ResetPassword(ctx, uuid.New(), newHash)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestRepositoryManagerRunInTxSQLite(t *testing.T) {
	ctx := context.Background()
	mgr := gatehouse.NewRepositoryManager(setupDB(t))

	err := mgr.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := mgr.Users().RegisterTx(ctx, tx, &gatehouse.User{
			Role:     gatehouse.RoleMember,
			Username: "tx-user",
			Email:    "tx@example.com",
		})
		if err != nil {
			return err
		}

		_, err = mgr.PasswordResets().CreateTx(ctx, tx, &gatehouse.PasswordReset{
			ID:     uuid.New(),
			UserID: &user.ID,
			Status: gatehouse.ResetRequestedStatus,
			Email:  user.Email,
		})
		return err
	})
	require.NoError(t, err)

	user, err := mgr.Users().FindByEmail(ctx, "tx@example.com")
	require.NoError(t, err)

	// Reset rows resolve by email, the identifier column registered for the model.
	reset, err := mgr.PasswordResets().GetByIdentifier(ctx, "tx@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, *reset.UserID)
}

func TestRegisterUserHandlerSQLite(t *testing.T) {
	ctx := context.Background()
	mgr := gatehouse.NewRepositoryManager(setupDB(t))

	handler := gatehouse.NewRegisterUserHandler(mgr)
	err := handler.Execute(ctx, gatehouse.RegisterUserMessage{
		FirstName: "Nina",
		Email:     "nina@example.com",
		Password:  "a-long-enough-password",
		UseHashid: true,
	})
	require.NoError(t, err)

	user, err := mgr.Users().FindByEmail(ctx, "nina@example.com")
	require.NoError(t, err)

	// Deterministic id derived from the email.
	wantID, err := hashid.NewUUID("nina@example.com")
	require.NoError(t, err)
	assert.Equal(t, wantID, user.ID)

	// Username falls back to the email local part, role to member.
	assert.Equal(t, "nina", user.Username)
	assert.Equal(t, gatehouse.RoleMember, user.Role)
	require.NoError(t, gatehouse.ComparePasswordAndHash("a-long-enough-password", user.PasswordHash))

	// Same email again violates the unique index.
	err = handler.Execute(ctx, gatehouse.RegisterUserMessage{
		Email:    "nina@example.com",
		Password: "another-password",
	})
	assert.Error(t, err)
}
