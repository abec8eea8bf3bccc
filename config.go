package gatehouse

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// MinSigningKeyLength is the shortest signing key accepted. HS256 keys below
// this bound are brute-forceable, so construction fails instead of issuing
// weak tokens on the first request.
const MinSigningKeyLength = 32

// DefaultTokenTTL bounds how long issued tokens stay valid when no TTL is
// configured.
const DefaultTokenTTL = time.Hour

// StaticConfig is the concrete Config used when options are known at startup.
// Build it through NewConfig so the fail-fast validation always runs.
type StaticConfig struct {
	SigningKey           string
	SigningMethod        string
	ContextKey           string
	TokenTTL             time.Duration
	ExtendedTokenTTL     time.Duration
	TokenLookup          string
	AuthScheme           string
	Issuer               string
	Audience             []string
	RejectedRouteKey     string
	RejectedRouteDefault string
	AllowList            []string
}

// ConfigOption mutates a StaticConfig before validation.
type ConfigOption func(*StaticConfig)

// WithSigningMethod overrides the signing method (only HMAC methods are
// supported by the built-in token service).
func WithSigningMethod(method string) ConfigOption {
	return func(c *StaticConfig) {
		c.SigningMethod = method
	}
}

// WithTokenTTL sets how long issued tokens remain valid.
func WithTokenTTL(ttl time.Duration) ConfigOption {
	return func(c *StaticConfig) {
		c.TokenTTL = ttl
	}
}

// WithExtendedTokenTTL sets the validity for extended ("remember me") sessions.
func WithExtendedTokenTTL(ttl time.Duration) ConfigOption {
	return func(c *StaticConfig) {
		c.ExtendedTokenTTL = ttl
	}
}

// WithTokenLookup sets where tokens are read from, e.g. "header:Authorization"
// or "cookie:jwt". Multiple sources are comma separated and tried in order.
func WithTokenLookup(lookup string) ConfigOption {
	return func(c *StaticConfig) {
		c.TokenLookup = lookup
	}
}

// WithCookieTransport switches token extraction to the named cookie.
func WithCookieTransport(cookieName string) ConfigOption {
	return func(c *StaticConfig) {
		c.TokenLookup = "cookie:" + cookieName
		c.ContextKey = cookieName
	}
}

// WithAuthScheme overrides the Authorization header scheme.
func WithAuthScheme(scheme string) ConfigOption {
	return func(c *StaticConfig) {
		c.AuthScheme = scheme
	}
}

// WithIssuer sets the iss claim stamped on and required from tokens.
func WithIssuer(issuer string) ConfigOption {
	return func(c *StaticConfig) {
		c.Issuer = issuer
	}
}

// WithAudience sets the aud claim stamped on and required from tokens.
func WithAudience(audience ...string) ConfigOption {
	return func(c *StaticConfig) {
		c.Audience = audience
	}
}

// WithContextKey sets the locals key claims are stored under.
func WithContextKey(key string) ConfigOption {
	return func(c *StaticConfig) {
		c.ContextKey = key
	}
}

// WithRejectedRoute configures where unauthenticated browsers are sent.
func WithRejectedRoute(key, def string) ConfigOption {
	return func(c *StaticConfig) {
		c.RejectedRouteKey = key
		c.RejectedRouteDefault = def
	}
}

// WithAllowList registers paths the middleware passes through without
// requiring a token. A trailing "*" makes the pattern a prefix match.
func WithAllowList(patterns ...string) ConfigOption {
	return func(c *StaticConfig) {
		c.AllowList = append(c.AllowList, patterns...)
	}
}

// NewConfig builds a validated StaticConfig. It returns an error, never a
// partially usable config: a short signing key fails here, at startup.
func NewConfig(signingKey string, opts ...ConfigOption) (*StaticConfig, error) {
	cfg := &StaticConfig{
		SigningKey:           signingKey,
		SigningMethod:        "HS256",
		ContextKey:           "user",
		TokenTTL:             DefaultTokenTTL,
		TokenLookup:          "header:Authorization",
		AuthScheme:           "Bearer",
		RejectedRouteKey:     "rejected_route",
		RejectedRouteDefault: "/login",
	}

	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	if cfg.ExtendedTokenTTL == 0 {
		cfg.ExtendedTokenTTL = 2 * cfg.TokenTTL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the configuration invariants.
func (c *StaticConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(MinSigningKeyLength, 0)),
		validation.Field(&c.SigningMethod, validation.Required, validation.In("HS256", "HS384", "HS512")),
		validation.Field(&c.TokenLookup, validation.Required),
		validation.Field(&c.AuthScheme, validation.Required),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid auth configuration").
			WithMetadata(map[string]any{
				"min_signing_key_length": MinSigningKeyLength,
			})
	}

	if c.TokenTTL <= 0 {
		return errors.New("token TTL must be positive", errors.CategoryValidation).
			WithMetadata(map[string]any{"token_ttl": c.TokenTTL.String()})
	}

	return nil
}

func (c *StaticConfig) GetSigningKey() string    { return c.SigningKey }
func (c *StaticConfig) GetSigningMethod() string { return c.SigningMethod }
func (c *StaticConfig) GetContextKey() string    { return c.ContextKey }

// GetTokenExpiration reports whole hours for the legacy Config surface.
// Sub-hour TTLs round up so a 15m config never yields a zero-hour token.
func (c *StaticConfig) GetTokenExpiration() int {
	return ceilHours(c.TokenTTL)
}

func (c *StaticConfig) GetExtendedTokenDuration() int {
	return ceilHours(c.ExtendedTokenTTL)
}

func (c *StaticConfig) GetTokenTTL() time.Duration         { return c.TokenTTL }
func (c *StaticConfig) GetExtendedTokenTTL() time.Duration { return c.ExtendedTokenTTL }
func (c *StaticConfig) GetTokenLookup() string             { return c.TokenLookup }
func (c *StaticConfig) GetAuthScheme() string              { return c.AuthScheme }
func (c *StaticConfig) GetIssuer() string                  { return c.Issuer }
func (c *StaticConfig) GetAudience() []string              { return c.Audience }
func (c *StaticConfig) GetRejectedRouteKey() string        { return c.RejectedRouteKey }
func (c *StaticConfig) GetRejectedRouteDefault() string    { return c.RejectedRouteDefault }
func (c *StaticConfig) GetAllowList() []string             { return c.AllowList }

// DurationConfig is implemented by configs that express TTLs as durations.
// The token service prefers it over the hour-granularity getters.
type DurationConfig interface {
	GetTokenTTL() time.Duration
	GetExtendedTokenTTL() time.Duration
}

// AllowListConfig is implemented by configs that carry middleware pass-through
// patterns.
type AllowListConfig interface {
	GetAllowList() []string
}

func tokenTTLFromConfig(cfg Config) time.Duration {
	if dc, ok := cfg.(DurationConfig); ok {
		if ttl := dc.GetTokenTTL(); ttl > 0 {
			return ttl
		}
	}
	if hours := cfg.GetTokenExpiration(); hours > 0 {
		return time.Duration(hours) * time.Hour
	}
	return DefaultTokenTTL
}

func extendedTTLFromConfig(cfg Config) time.Duration {
	if dc, ok := cfg.(DurationConfig); ok {
		if ttl := dc.GetExtendedTokenTTL(); ttl > 0 {
			return ttl
		}
	}
	if hours := cfg.GetExtendedTokenDuration(); hours > 0 {
		return time.Duration(hours) * time.Hour
	}
	return 2 * DefaultTokenTTL
}

func ceilHours(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	hours := d / time.Hour
	if d%time.Hour != 0 {
		hours++
	}
	return int(hours)
}
