package gatehouse_test

import (
	"context"
	"database/sql"

	gatehouse "github.com/gatehouselabs/go-gatehouse"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockAuthenticator implements gatehouse.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, identifier, password string) (string, error) {
	args := m.Called(ctx, identifier, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) Impersonate(ctx context.Context, identifier string) (string, error) {
	args := m.Called(ctx, identifier)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) RefreshSession(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) SessionFromToken(token string) (gatehouse.Session, error) {
	args := m.Called(token)
	session, _ := args.Get(0).(gatehouse.Session)
	return session, args.Error(1)
}

func (m *MockAuthenticator) IdentityFromSession(ctx context.Context, session gatehouse.Session) (gatehouse.Identity, error) {
	args := m.Called(ctx, session)
	identity, _ := args.Get(0).(gatehouse.Identity)
	return identity, args.Error(1)
}

func (m *MockAuthenticator) TokenService() gatehouse.TokenService {
	args := m.Called()
	svc, _ := args.Get(0).(gatehouse.TokenService)
	return svc
}

// MockLoginPayload implements gatehouse.LoginPayload
type MockLoginPayload struct {
	Identifier      string
	Password        string
	ExtendedSession bool
}

func (m MockLoginPayload) GetIdentifier() string {
	return m.Identifier
}

func (m MockLoginPayload) GetPassword() string {
	return m.Password
}

func (m MockLoginPayload) GetExtendedSession() bool {
	return m.ExtendedSession
}

// MockContext mocks router.Context. Cookie writes and redirects go through
// testify expectations so tests can assert on their contents.
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

// MockConfig implements gatehouse.Config. It deliberately does not implement
// DurationConfig so tests exercise the hour based fallback path.
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetSigningMethod() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetContextKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetTokenExpiration() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetExtendedTokenDuration() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetTokenLookup() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAuthScheme() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetIssuer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	aud, _ := args.Get(0).([]string)
	return aud
}

func (m *MockConfig) GetRejectedRouteKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetRejectedRouteDefault() string {
	args := m.Called()
	return args.String(0)
}

// MockIdentityProvider implements gatehouse.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (gatehouse.Identity, error) {
	args := m.Called(ctx, identifier, password)
	identity, _ := args.Get(0).(gatehouse.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (gatehouse.Identity, error) {
	args := m.Called(ctx, identifier)
	identity, _ := args.Get(0).(gatehouse.Identity)
	return identity, args.Error(1)
}

// MockResourceRoleProvider implements gatehouse.ResourceRoleProvider
type MockResourceRoleProvider struct {
	mock.Mock
}

func (m *MockResourceRoleProvider) FindResourceRoles(ctx context.Context, identity gatehouse.Identity) (map[string]string, error) {
	args := m.Called(ctx, identity)
	roles, _ := args.Get(0).(map[string]string)
	return roles, args.Error(1)
}

// MockActivitySink implements gatehouse.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event gatehouse.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockUsers mocks the subset of gatehouse.Users the tests exercise. Calls to
// methods without an explicit override panic through the embedded nil
// interface, which flags an unexpected repository hit.
type MockUsers struct {
	mock.Mock
	gatehouse.Users
}

func (m *MockUsers) FindByEmail(ctx context.Context, email string) (*gatehouse.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*gatehouse.User)
	return user, args.Error(1)
}

func (m *MockUsers) FindByID(ctx context.Context, id string) (*gatehouse.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*gatehouse.User)
	return user, args.Error(1)
}

func (m *MockUsers) FindByIdentifier(ctx context.Context, identifier string) (*gatehouse.User, error) {
	args := m.Called(ctx, identifier)
	user, _ := args.Get(0).(*gatehouse.User)
	return user, args.Error(1)
}

func (m *MockUsers) TrackAttemptedLogin(ctx context.Context, user *gatehouse.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackSuccessfulLogin(ctx context.Context, user *gatehouse.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) UpdateStatus(ctx context.Context, id uuid.UUID, status gatehouse.UserStatus, opts ...gatehouse.StatusUpdateOption) (*gatehouse.User, error) {
	args := m.Called(ctx, id, status, opts)
	user, _ := args.Get(0).(*gatehouse.User)
	return user, args.Error(1)
}

func (m *MockUsers) RawTx(ctx context.Context, tx bun.IDB, query string, queryArgs ...any) ([]*gatehouse.User, error) {
	args := m.Called(ctx, tx, query, queryArgs)
	users, _ := args.Get(0).([]*gatehouse.User)
	return users, args.Error(1)
}

// MockPasswordResets mocks the password reset repository.
type MockPasswordResets struct {
	mock.Mock
	repository.Repository[*gatehouse.PasswordReset]
}

func (m *MockPasswordResets) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*gatehouse.PasswordReset, error) {
	args := m.Called(ctx, id, criteria)
	reset, _ := args.Get(0).(*gatehouse.PasswordReset)
	return reset, args.Error(1)
}

func (m *MockPasswordResets) CreateTx(ctx context.Context, tx bun.IDB, record *gatehouse.PasswordReset, criteria ...repository.InsertCriteria) (*gatehouse.PasswordReset, error) {
	args := m.Called(ctx, tx, record, criteria)
	reset, _ := args.Get(0).(*gatehouse.PasswordReset)
	return reset, args.Error(1)
}

func (m *MockPasswordResets) UpdateTx(ctx context.Context, tx bun.IDB, record *gatehouse.PasswordReset, criteria ...repository.UpdateCriteria) (*gatehouse.PasswordReset, error) {
	args := m.Called(ctx, tx, record, criteria)
	reset, _ := args.Get(0).(*gatehouse.PasswordReset)
	return reset, args.Error(1)
}

// MockRepositoryManager mocks gatehouse.RepositoryManager. RunInTx invokes
// the callback with a zero transaction when the mocked return is nil, so
// command handlers see the callback's own error.
type MockRepositoryManager struct {
	mock.Mock
	gatehouse.RepositoryManager
}

func (m *MockRepositoryManager) Users() gatehouse.Users {
	args := m.Called()
	users, _ := args.Get(0).(gatehouse.Users)
	return users
}

func (m *MockRepositoryManager) PasswordResets() repository.Repository[*gatehouse.PasswordReset] {
	args := m.Called()
	resets, _ := args.Get(0).(repository.Repository[*gatehouse.PasswordReset])
	return resets
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(context.Context, bun.Tx) error) error {
	args := m.Called(ctx, opts, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	return fn(ctx, bun.Tx{})
}

// testLogger discards everything. Tests that assert on log output use their
// own capture spies instead.
type testLogger struct{}

func (testLogger) Trace(string, ...any) {}
func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
func (testLogger) Fatal(string, ...any) {}

func (l testLogger) WithContext(context.Context) gatehouse.Logger { return l }
