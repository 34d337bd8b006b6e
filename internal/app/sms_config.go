package app

import (
	"strings"

	"github.com/snapkart/storefront/pkg/sms"
)

// GatewaySettings converts SMSConfig to the sms package representation.
func (c SMSConfig) GatewaySettings() sms.GatewaySettings {
	return sms.GatewaySettings{
		Enabled:  c.Enabled,
		Endpoint: strings.TrimSpace(c.Endpoint),
		APIKey:   c.APIKey,
		SenderID: c.SenderID,
		Timeout:  c.Timeout,
	}
}
