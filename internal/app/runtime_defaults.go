package app

import (
	"fmt"
	"strings"

	"github.com/snapkart/storefront/pkg/crypto"
)

const (
	jwtSecretBytes = 48
	pepperBytes    = 32
)

// ApplyRuntimeDefaults ensures critical secrets are populated when running in
// development. It returns a map describing which keys were generated so
// callers can log the event without exposing values.
//
// A generated pepper only survives for the process lifetime, so codes issued
// before a restart stop verifying. With server.environment set to
// "production" a missing secret is therefore a fatal configuration error
// instead of something to paper over.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		if cfg.Server.IsProduction() {
			return nil, fmt.Errorf("auth.jwt.secret must be configured in production")
		}
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	if strings.TrimSpace(cfg.Security.OTPPepper) == "" {
		if cfg.Server.IsProduction() {
			return nil, fmt.Errorf("security.otp_pepper must be configured in production")
		}
		pepper, err := crypto.GenerateSalt(pepperBytes)
		if err != nil {
			return nil, fmt.Errorf("generate otp pepper: %w", err)
		}
		cfg.Security.OTPPepper = pepper
		generated["security.otp_pepper"] = true
	}

	return generated, nil
}
