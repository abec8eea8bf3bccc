package gatehouse

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}
var actorCtxKey = &contextKey{"actor"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// GetRouterClaims extracts the AuthClaims from the router context
func GetRouterClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = "user" // Default key used by the token middleware
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}

// ActorContext is a transport-agnostic snapshot of the authenticated caller,
// assembled from token claims once per request and carried on the standard
// context so guards, repositories, and audit sinks can consume it without
// depending on the HTTP layer.
type ActorContext struct {
	ActorID        string
	Subject        string
	Role           string
	TenantID       string
	OrganizationID string
	ResourceRoles  map[string]string
	Scopes         []string
	IsImpersonated bool
	ImpersonatorID string
	Metadata       map[string]any
}

// WithActorContext stores the actor snapshot in the given context.
func WithActorContext(ctx context.Context, actor *ActorContext) context.Context {
	return context.WithValue(ctx, actorCtxKey, actor)
}

// ActorFromContext retrieves the actor snapshot from the standard context.
func ActorFromContext(ctx context.Context) (*ActorContext, bool) {
	actor, ok := ctx.Value(actorCtxKey).(*ActorContext)
	if !ok || actor == nil {
		return nil, false
	}
	return actor, true
}

// ActorContextFromClaims builds an ActorContext from validated claims. Tenant,
// organization, and impersonation attributes travel in the claims metadata
// under "tenant_id", "organization_id", and "impersonator_id".
func ActorContextFromClaims(claims AuthClaims) *ActorContext {
	if claims == nil {
		return nil
	}

	actor := &ActorContext{
		ActorID: claims.UserID(),
		Subject: claims.Subject(),
		Role:    claims.Role(),
	}

	tc, ok := claims.(*TokenClaims)
	if !ok {
		return actor
	}

	if len(tc.Resources) > 0 {
		actor.ResourceRoles = make(map[string]string, len(tc.Resources))
		for resource, role := range tc.Resources {
			actor.ResourceRoles[resource] = role
		}
	}

	if len(tc.Scopes) > 0 {
		actor.Scopes = append([]string(nil), tc.Scopes...)
	}

	if len(tc.Metadata) > 0 {
		actor.Metadata = make(map[string]any, len(tc.Metadata))
		for key, value := range tc.Metadata {
			actor.Metadata[key] = value
		}

		actor.TenantID = metadataString(tc.Metadata, "tenant_id")
		actor.OrganizationID = metadataString(tc.Metadata, "organization_id")
		actor.ImpersonatorID = metadataString(tc.Metadata, "impersonator_id")
		actor.IsImpersonated = actor.ImpersonatorID != ""
	}

	return actor
}

// ActorFromRouterContext retrieves the actor for the current request. It
// prefers the snapshot placed on the standard context by the middleware's
// context enricher and falls back to rebuilding one from router-local claims.
func ActorFromRouterContext(ctx router.Context) (*ActorContext, bool) {
	if actor, ok := ActorFromContext(ctx.Context()); ok {
		return actor, true
	}

	claims, ok := GetRouterClaims(ctx, "")
	if !ok {
		return nil, false
	}

	actor := ActorContextFromClaims(claims)
	return actor, actor != nil
}

func metadataString(metadata map[string]any, key string) string {
	if value, ok := metadata[key].(string); ok {
		return value
	}
	return ""
}

// Can is a convenience function to check permissions directly from the standard context
// Use CanFromRouter for router-based contexts.
func Can(ctx context.Context, resource, permission string) bool {
	claims, ok := GetClaims(ctx)
	if !ok {
		return false
	}

	return claimsAllow(claims, resource, permission)
}

// CanFromRouter is a convenience function to check permissions directly from the router context
func CanFromRouter(ctx router.Context, resource, permission string) bool {
	claims, ok := GetRouterClaims(ctx, "")
	if !ok {
		return false
	}

	return claimsAllow(claims, resource, permission)
}

func claimsAllow(claims AuthClaims, resource, permission string) bool {
	switch permission {
	case "read":
		return claims.CanRead(resource)
	case "edit":
		return claims.CanEdit(resource)
	case "create":
		return claims.CanCreate(resource)
	case "delete":
		return claims.CanDelete(resource)
	default:
		return false
	}
}
