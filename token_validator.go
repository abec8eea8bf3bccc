package gatehouse

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrUnableToDecodeSession
	}
	return f(tokenString)
}

// MultiTokenValidator tries validators in order until one succeeds.
// It treats ErrTokenMalformed as "try next" and returns the last malformed
// error if all validators fail.
type MultiTokenValidator struct {
	validators []TokenValidator
}

// NewMultiTokenValidator filters nil validators and returns a composite validator.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	filtered := make([]TokenValidator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &MultiTokenValidator{validators: filtered}
}

// Validate satisfies the TokenValidator interface.
func (m *MultiTokenValidator) Validate(tokenString string) (AuthClaims, error) {
	var lastErr error
	for _, v := range m.validators {
		claims, err := v.Validate(tokenString)
		if err == nil {
			return claims, nil
		}
		if IsMalformedError(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrTokenMalformed
}

// JWKSValidatorConfig configures validation of externally issued tokens
// against one or more JWK Set endpoints (identity providers, gateways).
type JWKSValidatorConfig struct {
	// JWKSetURLs lists the endpoints keys are fetched from. Required.
	JWKSetURLs []string
	// Issuer, when set, is required on validated tokens.
	Issuer string
	// Audience, when set, is required on validated tokens.
	Audience []string
	// RefreshInterval is how often key sets are refreshed. Default 1h.
	RefreshInterval time.Duration
	// RefreshRateLimit throttles kid-triggered refreshes. Default 5m.
	RefreshRateLimit time.Duration
	// RefreshTimeout bounds a single refresh request. Default 10s.
	RefreshTimeout time.Duration
	// Logger receives refresh errors. Defaults to the package logger.
	Logger Logger
}

// JWKSValidator validates tokens signed by an external issuer whose public
// keys are published as a JWK Set. Key refresh runs in the background.
type JWKSValidator struct {
	keyfunc       jwt.Keyfunc
	parserOptions []jwt.ParserOption
	logger        Logger
}

var _ TokenValidator = (*JWKSValidator)(nil)

// NewJWKSValidator fetches the initial key sets and returns a validator.
func NewJWKSValidator(cfg JWKSValidatorConfig) (*JWKSValidator, error) {
	if len(cfg.JWKSetURLs) == 0 {
		return nil, errors.New("at least one JWK Set URL is required", errors.CategoryBadInput)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = defaultLogger()
	}

	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = time.Hour
	}
	if cfg.RefreshRateLimit == 0 {
		cfg.RefreshRateLimit = 5 * time.Minute
	}
	if cfg.RefreshTimeout == 0 {
		cfg.RefreshTimeout = 10 * time.Second
	}

	opts := keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Warn("JWKS refresh error", "error", err)
		},
		RefreshInterval:   cfg.RefreshInterval,
		RefreshRateLimit:  cfg.RefreshRateLimit,
		RefreshTimeout:    cfg.RefreshTimeout,
		RefreshUnknownKID: true,
	}

	sets := make(map[string]keyfunc.Options, len(cfg.JWKSetURLs))
	for _, url := range cfg.JWKSetURLs {
		sets[url] = opts
	}

	multi, err := keyfunc.GetMultiple(sets, keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to fetch JWK Sets")
	}

	parserOptions := make([]jwt.ParserOption, 0, 2)
	if cfg.Issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(cfg.Audience...))
	}

	return &JWKSValidator{
		keyfunc:       multi.Keyfunc,
		parserOptions: parserOptions,
		logger:        logger,
	}, nil
}

// Validate satisfies the TokenValidator interface.
func (v *JWKSValidator) Validate(tokenString string) (AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, v.keyfunc, v.parserOptions...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	v.logger.Error("JWKS validator could not decode or validate claims")
	return nil, ErrUnableToDecodeSession
}
