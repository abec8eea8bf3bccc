package gatehouse

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// CurrentUserResolver hydrates the full user record behind validated claims.
// Claims prove who the caller was when the token was minted; the resolver
// answers who they are now by reading the store on every call.
type CurrentUserResolver struct {
	store  UserStore
	logger Logger
}

// NewCurrentUserResolver returns a resolver backed by the given store.
func NewCurrentUserResolver(store UserStore) *CurrentUserResolver {
	_, logger := ResolveLogger("gatehouse.resolver", nil, nil)
	return &CurrentUserResolver{
		store:  store,
		logger: logger,
	}
}

func (r *CurrentUserResolver) WithLogger(logger Logger) *CurrentUserResolver {
	if logger != nil {
		r.logger = logger
	}
	return r
}

func (r *CurrentUserResolver) WithLoggerProvider(provider LoggerProvider) *CurrentUserResolver {
	_, r.logger = ResolveLogger("gatehouse.resolver", provider, r.logger)
	return r
}

// Resolve returns the user for the authenticated request carried by ctx.
// Requests the middleware never authenticated yield ErrUnauthenticated. A
// subject that no longer resolves to a user yields ErrStaleIdentity: the
// bearer holds a verified token for an account that is gone, which is an
// authentication failure rather than a server fault. Store faults pass
// through untouched so callers can surface them as 5xx.
func (r *CurrentUserResolver) Resolve(ctx context.Context) (*User, error) {
	claims, ok := r.claimsFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	return r.hydrate(ctx, claims)
}

// CurrentUser resolves the user for a router request. It reads claims stored
// by the token middleware in router locals and falls back to the standard
// context for requests enriched elsewhere.
func (r *CurrentUserResolver) CurrentUser(ctx router.Context) (*User, error) {
	if claims, ok := GetRouterClaims(ctx, ""); ok {
		return r.hydrate(ctx.Context(), claims)
	}

	return r.Resolve(ctx.Context())
}

func (r *CurrentUserResolver) hydrate(ctx context.Context, claims AuthClaims) (*User, error) {
	userID := claims.UserID()
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	user, err := r.store.FindByID(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			r.logger.Warn("current user no longer exists", "user_id", userID)
			return nil, ErrStaleIdentity
		}
		r.logger.Error("current user lookup failed", "error", err, "user_id", userID)
		return nil, err
	}

	return user, nil
}

func (r *CurrentUserResolver) claimsFromContext(ctx context.Context) (AuthClaims, bool) {
	if auth := RequestAuthFromContext(ctx); auth.Authenticated() {
		if claims, ok := auth.Claims.(AuthClaims); ok {
			return claims, true
		}
	}

	if claims, ok := GetClaims(ctx); ok {
		return claims, true
	}

	return nil, false
}
