package app

import (
	"fmt"
	"strings"

	"github.com/snapkart/storefront/internal/auth"
	"github.com/snapkart/storefront/internal/services"
	"github.com/snapkart/storefront/pkg/crypto"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// AdminServiceConfig converts the admin settings into the service
// representation. A plaintext password is hashed here so the rest of the
// application only ever sees the bcrypt hash.
func (c AuthConfig) AdminServiceConfig() (services.AdminConfig, error) {
	email := strings.TrimSpace(c.Admin.Email)
	password := c.Admin.Password
	if email == "" || password == "" {
		return services.AdminConfig{}, fmt.Errorf("config: auth.admin.email and auth.admin.password are required")
	}

	hash := password
	if !strings.HasPrefix(password, "$2a$") && !strings.HasPrefix(password, "$2b$") && !strings.HasPrefix(password, "$2y$") {
		var err error
		hash, err = crypto.HashPassword(password)
		if err != nil {
			return services.AdminConfig{}, fmt.Errorf("config: hash admin password: %w", err)
		}
	}

	return services.AdminConfig{Email: email, PasswordHash: hash}, nil
}
