package gatehouse

import (
	"context"

	"github.com/gatehouselabs/go-gatehouse/middleware/tokenware"
)

// ValidationListener aliases the tokenware listener so consumers can use gatehouse helpers directly.
type ValidationListener = tokenware.ValidationListener

// RequestAuth aliases the middleware's per-request authentication record.
type RequestAuth = tokenware.RequestAuth

// AuthState aliases the middleware's request authentication state.
type AuthState = tokenware.AuthState

const (
	StateUnchecked     = tokenware.StateUnchecked
	StatePassedThrough = tokenware.StatePassedThrough
	StateAuthenticated = tokenware.StateAuthenticated
	StateRejected      = tokenware.StateRejected
)

// RequestAuthFromContext returns the authentication outcome the middleware
// recorded for this request. Handlers behind the middleware see Authenticated
// or PassedThrough; code running outside it sees Unchecked.
func RequestAuthFromContext(ctx context.Context) RequestAuth {
	return tokenware.RequestAuthFromContext(ctx)
}

// ContextEnricherAdapter adapts tokenware.AuthClaims to gatehouse.AuthClaims and stores
// claims + actor context in the standard context for downstream guard usage.
func ContextEnricherAdapter(c context.Context, claims tokenware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}

	ctxWithClaims := WithClaimsContext(c, authClaims)

	if actor := ActorContextFromClaims(authClaims); actor != nil {
		return WithActorContext(ctxWithClaims, actor)
	}

	return ctxWithClaims
}

// RegisterValidationListeners appends listeners to a tokenware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *tokenware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}

type tokenwareValidator struct {
	validator TokenValidator
}

func (v tokenwareValidator) Validate(tokenString string) (tokenware.AuthClaims, error) {
	claims, err := v.validator.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// NewTokenwareValidator adapts any gatehouse TokenValidator (the token
// service, a JWKS validator, a composite) for the middleware package.
func NewTokenwareValidator(validator TokenValidator) tokenware.TokenValidator {
	if validator == nil {
		return nil
	}
	return tokenwareValidator{validator: validator}
}
