package gatehouse

import (
	"time"

	"github.com/gatehouselabs/go-gatehouse/middleware/tokenware"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator adapts an Authenticator to cookie-mode HTTP transport:
// it writes the session cookie on login, clears it on logout, and builds the
// token middleware for protected routes.
type RouteAuthenticator struct {
	auth                   Authenticator
	cfg                    Config
	registry               AccountRegistrerer
	cookieDuration         time.Duration
	extendedCookieDuration time.Duration
	logger                 Logger
	loggerProvider         LoggerProvider
	validationListeners    []ValidationListener
	AuthErrorHandler       func(c router.Context, err error) error
	ErrorHandler           func(c router.Context, err error) error
}

// NewHTTPAuthenticator builds a RouteAuthenticator whose cookie lifetimes
// follow the configured token TTLs.
func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("authenticator is required", errors.CategoryBadInput)
	}

	a := &RouteAuthenticator{
		cfg:                    cfg,
		auth:                   auther,
		cookieDuration:         tokenTTLFromConfig(cfg),
		extendedCookieDuration: extendedTTLFromConfig(cfg),
	}
	a.loggerProvider, a.logger = ResolveLogger("gatehouse.http", nil, nil)

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

// WithLogger replaces the logger used for HTTP-level auth events.
func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithLoggerProvider sources the logger from the given provider.
func (a *RouteAuthenticator) WithLoggerProvider(provider LoggerProvider) *RouteAuthenticator {
	a.loggerProvider, a.logger = ResolveLogger("gatehouse.http", provider, a.logger)
	return a
}

// WithAccountRegistry wires the registry RegisterUser delegates to.
func (a *RouteAuthenticator) WithAccountRegistry(registry AccountRegistrerer) *RouteAuthenticator {
	a.registry = registry
	return a
}

// WithValidationListeners registers listeners ProtectedRoute middleware will
// invoke after each successful token validation.
func (a *RouteAuthenticator) WithValidationListeners(listeners ...ValidationListener) *RouteAuthenticator {
	a.validationListeners = append(a.validationListeners, listeners...)
	return a
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

func (a RouteAuthenticator) GetExtendedCookieDuration() time.Duration {
	return a.extendedCookieDuration
}

// ProtectedRoute builds token middleware from cfg. Requests matching the
// config's allow list pass through unauthenticated; everything else needs a
// token that validates against the authenticator's token service.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	var allowList *tokenware.AllowList
	if alc, ok := cfg.(AllowListConfig); ok {
		allowList = tokenware.NewAllowList(alc.GetAllowList()...)
	}

	twCfg := tokenware.Config{
		ErrorHandler:    errorHandler,
		AllowList:       allowList,
		TokenValidator:  NewTokenwareValidator(a.auth.TokenService()),
		AuthScheme:      cfg.GetAuthScheme(),
		ContextKey:      cfg.GetContextKey(),
		TokenLookup:     cfg.GetTokenLookup(),
		ContextEnricher: ContextEnricherAdapter,
	}
	RegisterValidationListeners(&twCfg, a.validationListeners...)

	return tokenware.New(twCfg)
}

// Login authenticates the payload and, on success, writes the session cookie.
// The issued token is returned so JSON handlers can include it in the body.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (string, error) {
	token, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.logger.Error("Login error", "error", err)
		return "", err
	}

	duration := a.cookieDuration
	if payload.GetExtendedSession() {
		duration = a.extendedCookieDuration
	}

	a.setCookieToken(ctx, token, duration)
	return token, nil
}

// Logout clears the session cookie. Tokens are stateless so nothing is
// revoked server side; the client simply stops holding a credential.
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

// RefreshSession exchanges the request's current token for a fresh one and
// rewrites the session cookie.
func (a *RouteAuthenticator) RefreshSession(ctx router.Context) (string, error) {
	raw, err := a.requestToken(ctx)
	if err != nil {
		return "", err
	}

	token, err := a.auth.RefreshSession(ctx.Context(), raw)
	if err != nil {
		a.logger.Error("RefreshSession error", "error", err)
		return "", err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return token, nil
}

// RegisterUser provisions an account through the configured registry and
// starts a session for it.
func (a *RouteAuthenticator) RegisterUser(ctx router.Context, email, username, password string) (*User, error) {
	if a.registry == nil {
		return nil, errors.New("account registration is not configured", errors.CategoryOperation)
	}

	user, err := a.registry.RegisterUser(ctx.Context(), email, username, password)
	if err != nil {
		a.logger.Error("RegisterUser error", "error", err)
		return nil, err
	}

	token, err := a.auth.Login(ctx.Context(), email, password)
	if err != nil {
		a.logger.Error("RegisterUser login error", "error", err)
		return user, err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return user, nil
}

// MakeClientRouteAuthErrorHandler builds the middleware error handler for
// browser-facing routes. With optional set, failed authentication logs and
// proceeds unauthenticated instead of rejecting.
func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

// GetRedirect returns and clears the stashed rejected-route cookie, falling
// back to def when none was set.
func (a *RouteAuthenticator) GetRedirect(ctx router.Context, def ...string) string {
	fallback := a.cfg.GetRejectedRouteDefault()
	if len(def) > 0 {
		fallback = def[0]
	}

	rejectedRoute := a.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		return fallback
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

// GetRedirectOrDefault resolves the post-login destination from the stashed
// cookie, the Referer header, or the configured default, in that order.
func (a *RouteAuthenticator) GetRedirectOrDefault(ctx router.Context) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = a.cfg.GetRejectedRouteDefault()
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

// SetRedirect stashes the current URL so the client can be sent back after
// authenticating.
func (a *RouteAuthenticator) SetRedirect(ctx router.Context) {
	rejectedRoute := a.cfg.GetRejectedRouteKey()

	a.logger.Info("Setting redirect cookie", "key", rejectedRoute, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// Impersonate issues a session for the identified user without credentials
// and writes the cookie. Callers gate access; this only mints the session.
func (a *RouteAuthenticator) Impersonate(c router.Context, identifier string) error {
	token, err := a.auth.Impersonate(c.Context(), identifier)
	if err != nil {
		a.logger.Error("Impersonate authentication error", "error", err)
		return err
	}

	a.setCookieToken(c, token, a.cookieDuration)
	return nil
}

// requestToken pulls the raw token from wherever the config says tokens live.
func (a *RouteAuthenticator) requestToken(c router.Context) (string, error) {
	extractors := tokenware.GetExtractors(a.cfg.GetTokenLookup(), a.cfg.GetAuthScheme())

	var lastErr error
	for _, extract := range extractors {
		token, err := extract(c)
		if err == nil && token != "" {
			return token, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = tokenware.ErrTokenMissingOrMalformed
	}

	return "", errors.Wrap(lastErr, errors.CategoryAuth, "no session token in request").
		WithCode(errors.CodeUnauthorized)
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.logger.Info(
		"Authentication error, redirecting to login",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	a.SetRedirect(c)

	statusCode := router.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = router.StatusFound
	}
	return c.Redirect(a.cfg.GetRejectedRouteDefault(), statusCode)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		status := richErr.Code
		if status == 0 {
			status = router.StatusInternalServerError
		}
		return c.JSON(status, map[string]any{
			"error":     richErr.Message,
			"text_code": richErr.TextCode,
		})
	}
}
