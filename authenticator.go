package gatehouse

import (
	"context"
	"reflect"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// ResourceRoleProvider supplies per-resource role grants for an identity at
// token mint time. Implementations typically consult a membership table; the
// returned map is keyed by resource identifier (e.g. "project:123") with the
// role name as value, and is embedded verbatim in the token's "res" claim.
type ResourceRoleProvider interface {
	FindResourceRoles(ctx context.Context, identity Identity) (map[string]string, error)
}

// Auth is the default Authenticator implementation. It verifies credentials
// through an IdentityProvider, enforces account lifecycle status, and mints
// signed tokens through its TokenService.
type Auth struct {
	provider        IdentityProvider
	roleProvider    ResourceRoleProvider
	ttl             time.Duration
	issuer          string
	audience        []string
	logger          Logger
	loggerProvider  LoggerProvider
	tokenService    TokenService
	tokenValidator  TokenValidator
	activitySink    ActivitySink
	claimsDecorator ClaimsDecorator
}

// NewAuthenticator returns a new Auth backed by the given identity provider.
// Configuration problems, such as a signing key below MinSigningKeyLength,
// surface here rather than on the first login.
func NewAuthenticator(provider IdentityProvider, cfg Config) (*Auth, error) {
	if provider == nil {
		return nil, errors.New("identity provider is required", errors.CategoryBadInput)
	}

	loggerProvider, logger := ResolveLogger("gatehouse", nil, nil)

	tokenService, err := NewTokenService(cfg, loggerProvider.GetLogger("gatehouse.token_service"))
	if err != nil {
		return nil, err
	}

	return &Auth{
		provider:        provider,
		roleProvider:    noopResourceRoleProvider{},
		ttl:             tokenTTLFromConfig(cfg),
		issuer:          cfg.GetIssuer(),
		audience:        cfg.GetAudience(),
		logger:          logger,
		loggerProvider:  loggerProvider,
		tokenService:    tokenService,
		activitySink:    noopActivitySink{},
		claimsDecorator: noopClaimsDecorator{},
	}, nil
}

func (s *Auth) WithLogger(logger Logger) *Auth {
	if logger == nil {
		return s
	}

	s.logger = logger
	if ts, ok := s.tokenService.(*HSTokenService); ok {
		ts.WithLogger(logger)
	}

	return s
}

// WithLoggerProvider resolves scoped loggers for the authenticator and its
// token service from the given provider.
func (s *Auth) WithLoggerProvider(provider LoggerProvider) *Auth {
	s.loggerProvider, s.logger = ResolveLogger("gatehouse", provider, s.logger)
	if ts, ok := s.tokenService.(*HSTokenService); ok {
		ts.WithLogger(s.loggerProvider.GetLogger("gatehouse.token_service"))
	}

	return s
}

// WithResourceRoleProvider sets a custom ResourceRoleProvider for the Auth.
// This enables resource-level permissions in issued tokens.
func (s *Auth) WithResourceRoleProvider(provider ResourceRoleProvider) *Auth {
	s.roleProvider = provider
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auth) WithActivitySink(sink ActivitySink) *Auth {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClaimsDecorator configures a ClaimsDecorator for enriching tokens.
func (s *Auth) WithClaimsDecorator(decorator ClaimsDecorator) *Auth {
	s.claimsDecorator = normalizeClaimsDecorator(decorator)
	return s
}

// WithTokenValidator sets a custom token validator for externally issued tokens.
func (s *Auth) WithTokenValidator(validator TokenValidator) *Auth {
	s.tokenValidator = validator
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auth) TokenService() TokenService {
	return s.tokenService
}

func (s *Auth) Login(ctx context.Context, identifier, password string) (string, error) {
	var err error
	var identity Identity

	if identity, err = s.provider.VerifyIdentity(ctx, identifier, password); err != nil {
		s.logger.Error("Login error", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      ErrIdentityNotFound.Error(),
		})
		return "", ErrIdentityNotFound
	}

	if status, err := s.ensureIdentityActive(identity); err != nil {
		s.logger.Warn("Login blocked due to user status", "status", status, "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
			"status":     status,
		})
		return "", err
	}

	resourceRoles, err := s.roleProvider.FindResourceRoles(ctx, identity)
	if err != nil {
		s.logger.Error("Login failed to fetch resource roles", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	token, err := s.generateToken(ctx, identity, resourceRoles)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return token, nil
}

func (s *Auth) Impersonate(ctx context.Context, identifier string) (string, error) {
	var err error
	var identity Identity

	if identity, err = s.provider.FindIdentityByIdentifier(ctx, identifier); err != nil {
		s.logger.Error("Impersonate find identity error", "error", err)
		s.emitAuthEvent(ctx, ActivityEventImpersonationFailure, ActorRef{Type: "system"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Impersonate identity is nil")
		s.emitAuthEvent(ctx, ActivityEventImpersonationFailure, ActorRef{Type: "system"}, "", map[string]any{
			"identifier": identifier,
			"error":      ErrIdentityNotFound.Error(),
		})
		return "", ErrIdentityNotFound
	}

	if status, err := s.ensureIdentityActive(identity); err != nil {
		s.logger.Warn("Impersonation blocked due to user status", "status", status, "error", err)
		s.emitAuthEvent(ctx, ActivityEventImpersonationFailure, ActorRef{Type: "system"}, identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
			"status":     status,
		})
		return "", err
	}

	resourceRoles, err := s.roleProvider.FindResourceRoles(ctx, identity)
	if err != nil {
		s.logger.Error("Impersonate failed to fetch resource roles", "error", err)
		s.emitAuthEvent(ctx, ActivityEventImpersonationFailure, ActorRef{Type: "system"}, identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	token, err := s.generateToken(ctx, identity, resourceRoles)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventImpersonationFailure, ActorRef{Type: "system"}, identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventImpersonationSuccess, ActorRef{Type: "system"}, identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return token, nil
}

// RefreshSession validates a previously issued token and mints a fresh one for
// the same subject. The identity is re-resolved and its lifecycle status
// re-checked, so a user removed or suspended after the original login cannot
// refresh. Roles and resource grants are re-fetched rather than copied from
// the old claims.
func (s *Auth) RefreshSession(ctx context.Context, raw string) (string, error) {
	session, err := s.SessionFromToken(raw)
	if err != nil {
		return "", err
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, session.GetUserID())
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("RefreshSession subject no longer exists", "user_id", session.GetUserID())
			return "", ErrStaleIdentity
		}
		s.logger.Error("RefreshSession find identity error", "error", err)
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		return "", ErrStaleIdentity
	}

	if status, err := s.ensureIdentityActive(identity); err != nil {
		s.logger.Warn("RefreshSession blocked due to user status", "status", status, "error", err)
		return "", err
	}

	resourceRoles, err := s.roleProvider.FindResourceRoles(ctx, identity)
	if err != nil {
		s.logger.Error("RefreshSession failed to fetch resource roles", "error", err)
		return "", err
	}

	token, err := s.generateToken(ctx, identity, resourceRoles)
	if err != nil {
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventSessionRefresh, s.actorFromIdentity(identity), identity.ID(), nil)

	return token, nil
}

func (s *Auth) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	identity, err := s.provider.FindIdentityByIdentifier(ctx, session.GetUserID())

	if err != nil {
		s.logger.Error("IdentityFromSession find identity by identifier", "error", err)
		return nil, err
	}

	return identity, nil
}

func (s *Auth) SessionFromToken(raw string) (Session, error) {
	validator := s.tokenValidator
	if validator == nil {
		validator = s.tokenService
	}

	claims, err := validator.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims", "error", err)
		return nil, err
	}

	return session, nil
}

// generateToken builds structured claims for the identity, runs the claims
// decorator under the immutable-claims guard, and signs the result.
func (s *Auth) generateToken(ctx context.Context, identity Identity, resourceRoles map[string]string) (string, error) {
	claims := s.newTokenClaims(identity, resourceRoles)
	snapshot := captureImmutableClaims(claims)

	decorator := normalizeClaimsDecorator(s.claimsDecorator)
	if err := decorator.Decorate(ctx, identity, claims); err != nil {
		s.logger.Error("claims decorator failed", "error", err)
		return "", err
	}

	if err := snapshot.validate(claims); err != nil {
		s.logger.Error("claims decorator mutated immutable claims", "error", err)
		return "", err
	}

	return s.tokenService.SignClaims(claims)
}

func (s *Auth) newTokenClaims(identity Identity, resourceRoles map[string]string) *TokenClaims {
	now := time.Now()

	var aud jwt.ClaimStrings
	if len(s.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(s.audience))
		copy(aud, s.audience)
	}

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.ID(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UID:       identity.ID(),
		UserRole:  identity.Role(),
		Resources: resourceRoles,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}

func (s *Auth) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}

func (s *Auth) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "user",
	}
}

func (s *Auth) ensureIdentityActive(identity Identity) (UserStatus, error) {
	status, ok := identityStatus(identity)
	if !ok {
		return "", nil
	}

	if status == "" {
		status = UserStatusActive
	}

	if err := statusAuthError(status); err != nil {
		return status, err
	}

	return status, nil
}

type statusAwareIdentity interface {
	Status() UserStatus
}

func identityStatus(identity Identity) (UserStatus, bool) {
	if identity == nil {
		return "", false
	}

	if sa, ok := identity.(statusAwareIdentity); ok {
		return sa.Status(), true
	}

	return "", false
}

type noopResourceRoleProvider struct{}

func (noopResourceRoleProvider) FindResourceRoles(context.Context, Identity) (map[string]string, error) {
	return nil, nil
}
