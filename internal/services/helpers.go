package services

import (
	"strings"

	"github.com/snapkart/storefront/pkg/crypto"
)

func verifyPasswordHash(hash, password string) bool {
	return crypto.VerifyPassword(hash, password)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var builder strings.Builder
	builder.Grow(len(phone))
	for i := 0; i < len(phone); i++ {
		ch := phone[i]
		if ch == ' ' || ch == '-' || ch == '(' || ch == ')' {
			continue
		}
		builder.WriteByte(ch)
	}
	return builder.String()
}
