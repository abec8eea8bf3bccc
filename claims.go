package gatehouse

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthClaims represents structured token claims with enhanced permission checking
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	CanRead(resource string) bool
	CanEdit(resource string) bool
	CanCreate(resource string) bool
	CanDelete(resource string) bool
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// TokenClaims is the concrete implementation of AuthClaims
type TokenClaims struct {
	jwt.RegisteredClaims
	UID       string            `json:"uid,omitempty"`
	UserRole  string            `json:"role,omitempty"`
	Resources map[string]string `json:"res,omitempty"`      // resource -> role mapping
	Scopes    []string          `json:"scopes,omitempty"`   // optional scoped-token grants
	Metadata  map[string]any    `json:"metadata,omitempty"` // extension payload
}

// Verify interface compliance
var _ AuthClaims = (*TokenClaims)(nil)

// Subject returns the subject claim
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *TokenClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the global role
func (c *TokenClaims) Role() string {
	return c.UserRole
}

// CanRead checks if the user can read a specific resource
func (c *TokenClaims) CanRead(resource string) bool {
	if resourceRole, exists := c.Resources[resource]; exists {
		return UserRole(resourceRole).CanRead()
	}
	return UserRole(c.UserRole).CanRead()
}

// CanEdit checks if the user can edit a specific resource
func (c *TokenClaims) CanEdit(resource string) bool {
	if resourceRole, exists := c.Resources[resource]; exists {
		return UserRole(resourceRole).CanEdit()
	}
	return UserRole(c.UserRole).CanEdit()
}

// CanCreate checks if the user can create a specific resource
func (c *TokenClaims) CanCreate(resource string) bool {
	if resourceRole, exists := c.Resources[resource]; exists {
		return UserRole(resourceRole).CanCreate()
	}
	return UserRole(c.UserRole).CanCreate()
}

// CanDelete checks if the user can delete a specific resource
func (c *TokenClaims) CanDelete(resource string) bool {
	if resourceRole, exists := c.Resources[resource]; exists {
		return UserRole(resourceRole).CanDelete()
	}
	return UserRole(c.UserRole).CanDelete()
}

// ResourceRoles exposes resource-specific roles for optional context enrichment.
func (c *TokenClaims) ResourceRoles() map[string]string {
	return c.Resources
}

// ClaimsMetadata exposes metadata extensions for optional context enrichment.
func (c *TokenClaims) ClaimsMetadata() map[string]any {
	return c.Metadata
}

// HasRole checks if the user has a specific role (either global or for any resource)
func (c *TokenClaims) HasRole(role string) bool {
	if c.UserRole == role {
		return true
	}
	for _, resourceRole := range c.Resources {
		if resourceRole == role {
			return true
		}
	}
	return false
}

// IsAtLeast checks if the user's role is at least the minimum required role
func (c *TokenClaims) IsAtLeast(minRole string) bool {
	return UserRole(c.UserRole).IsAtLeast(UserRole(minRole))
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
