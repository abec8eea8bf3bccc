package tokenware

import "context"

// AuthState tracks where a request sits in the authentication flow. Every
// request enters the middleware Unchecked and leaves in exactly one of the
// three terminal states.
type AuthState string

const (
	StateUnchecked     AuthState = "unchecked"
	StatePassedThrough AuthState = "passed_through"
	StateAuthenticated AuthState = "authenticated"
	StateRejected      AuthState = "rejected"
)

// RequestAuthKey is the router-locals key under which the middleware stores
// the request's RequestAuth record.
const RequestAuthKey = "request_auth"

// RequestAuth records the authentication outcome for a single request.
// Claims and Token are populated only in the Authenticated state.
type RequestAuth struct {
	State  AuthState
	Claims AuthClaims
	Token  string
}

// Authenticated reports whether the request carries validated claims.
func (r RequestAuth) Authenticated() bool {
	return r.State == StateAuthenticated && r.Claims != nil
}

type requestAuthCtxKey struct{}

// WithRequestAuth stores the authentication outcome on the standard context.
func WithRequestAuth(ctx context.Context, auth RequestAuth) context.Context {
	return context.WithValue(ctx, requestAuthCtxKey{}, auth)
}

// RequestAuthFromContext returns the request's authentication outcome. A
// context that never passed through the middleware reports StateUnchecked.
func RequestAuthFromContext(ctx context.Context) RequestAuth {
	if auth, ok := ctx.Value(requestAuthCtxKey{}).(RequestAuth); ok {
		return auth
	}
	return RequestAuth{State: StateUnchecked}
}
