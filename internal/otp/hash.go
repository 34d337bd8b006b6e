package otp

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// DigestSecret produces the stored digest for a secret. The mixing order
// (secret : salt : pepper) is an internal contract between issuance and
// verification, not a wire format.
func DigestSecret(secret, salt, pepper string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", secret, salt, pepper)))
	return hex.EncodeToString(sum[:])
}

// SecretMatches recomputes the digest for a submitted secret and compares it
// against the stored hash in constant time. Equality operators are off limits
// here; guess verification must not leak timing.
func SecretMatches(submitted, salt, pepper, storedHash string) bool {
	computed := DigestSecret(submitted, salt, pepper)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
