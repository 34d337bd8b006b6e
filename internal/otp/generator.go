package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// Character classes for mixed secrets. The admin flow guarantees at least one
// rune from every class so transcription mistakes are obvious at a glance.
var (
	upperRunes  = []rune("ABCDEFGHJKLMNPQRSTUVWXYZ")
	lowerRunes  = []rune("abcdefghijkmnpqrstuvwxyz")
	digitRunes  = []rune("23456789")
	symbolRunes = []rune("!@#$%&*?")
	emojiRunes  = []rune("✦✧★☆✺✹")

	mixedClasses = [][]rune{upperRunes, lowerRunes, digitRunes, symbolRunes, emojiRunes}
)

// Digits returns a zero-padded numeric code of n digits drawn from
// crypto/rand. rand.Int performs rejection sampling internally, so the result
// is uniform over [0, 10^n).
func Digits(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("otp: digit count must be positive")
	}

	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	value, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("otp: generate digits: %w", err)
	}

	return fmt.Sprintf("%0*d", n, value), nil
}

// Mixed returns a secret of the requested rune length containing at least one
// rune from every character class. The guaranteed runes are drawn first, the
// remaining slots are filled from the union pool, and the whole secret is
// shuffled with an unbiased Fisher-Yates pass.
func Mixed(length int) (string, error) {
	if length < len(mixedClasses) {
		return "", fmt.Errorf("otp: mixed secret length %d is below the %d mandatory classes", length, len(mixedClasses))
	}

	union := make([]rune, 0, 64)
	for _, class := range mixedClasses {
		union = append(union, class...)
	}

	secret := make([]rune, 0, length)
	for _, class := range mixedClasses {
		r, err := pickRune(class)
		if err != nil {
			return "", err
		}
		secret = append(secret, r)
	}

	for len(secret) < length {
		r, err := pickRune(union)
		if err != nil {
			return "", err
		}
		secret = append(secret, r)
	}

	for i := len(secret) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		secret[i], secret[j] = secret[j], secret[i]
	}

	return string(secret), nil
}

func pickRune(pool []rune) (rune, error) {
	idx, err := randomInt(len(pool))
	if err != nil {
		return 0, err
	}
	return pool[idx], nil
}

func randomInt(max int) (int, error) {
	value, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("otp: random index: %w", err)
	}
	return int(value.Int64()), nil
}
