package app

import "github.com/snapkart/storefront/internal/otp"

// Apply lays the configured overrides over a flow's built-in policy. Zero
// values leave the default in place.
func (s FlowSettings) Apply(policy otp.Policy) otp.Policy {
	if s.SecretLength > 0 {
		policy.SecretLength = s.SecretLength
	}
	if s.TTL > 0 {
		policy.TTL = s.TTL
	}
	if s.Cooldown > 0 {
		policy.Cooldown = s.Cooldown
	}
	if s.MaxAttempts > 0 {
		policy.MaxAttempts = s.MaxAttempts
	}
	return policy
}
